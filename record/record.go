package record

// Kind discriminates what a single Get/Put exchange carries.
type Kind uint8

const (
	KindData      Kind = iota // numeric row, plus optional trailing text
	KindSegHeader             // segment boundary with header text
	KindTblHeader             // table header line
	KindNextFile              // boundary between concatenated sources
	KindEOF                   // no more sources
)

var kindNames = [...]string{
	KindData:      "data",
	KindSegHeader: "segment-header",
	KindTblHeader: "table-header",
	KindNextFile:  "next-file",
	KindEOF:       "eof",
}

// String returns the kind's name.
func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Record is the unit of exchange in the record-by-record engine. For
// KindData, Values holds the numeric columns and Text any trailing
// free-form word. For the header kinds, Text holds the header line.
// NextFile and EOF carry nothing.
type Record struct {
	Values []float64
	Text   string
	Kind   Kind
}

// Data builds a data record.
func Data(values ...float64) Record {
	return Record{Kind: KindData, Values: values}
}

// Mixed builds a data record with trailing text.
func Mixed(text string, values ...float64) Record {
	return Record{Kind: KindData, Values: values, Text: text}
}

// SegHeader builds a segment header record.
func SegHeader(text string) Record {
	return Record{Kind: KindSegHeader, Text: text}
}

// TblHeader builds a table header record.
func TblHeader(text string) Record {
	return Record{Kind: KindTblHeader, Text: text}
}

// NextFile is the boundary marker returned between concatenated sources
// when file breaks were requested.
func NextFile() Record {
	return Record{Kind: KindNextFile}
}

// EOF is the end-of-all-sources marker.
func EOF() Record {
	return Record{Kind: KindEOF}
}

// Mode controls how records are read or written. The low bits select
// the record interpretation; the high bits are flags.
type Mode uint16

const (
	// ModeData reads/writes numeric rows; malformed input is fatal.
	ModeData Mode = iota
	// ModeText reads/writes unparsed text lines.
	ModeText
	// ModeMixed reads numeric rows with optional trailing text and
	// tolerates malformed rows (they set the mismatch flag and are
	// skipped).
	ModeMixed

	modeBaseMask Mode = 0x00ff
)

const (
	// FileBreak requests a NextFile marker between concatenated
	// sources instead of a silent merge.
	FileBreak Mode = 0x0100
)

// Base strips the flag bits.
func (m Mode) Base() Mode {
	return m & modeBaseMask
}

// WantsFileBreak reports whether the FileBreak flag is set.
func (m Mode) WantsFileBreak() bool {
	return m&FileBreak != 0
}
