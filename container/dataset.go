package container

// Segment is one run of rows sharing a segment header. Rows are
// row-major: Rows[i][j] is column j of record i. Text carries any
// trailing free-form word per row for mixed records; it is either
// empty or parallel to Rows.
type Segment struct {
	Header string
	Rows   [][]float64
	Text   []string
}

// NumRows returns the number of data records in the segment.
func (s *Segment) NumRows() int {
	return len(s.Rows)
}

// Table is an ordered list of segments with optional table headers.
type Table struct {
	Headers  []string
	Segments []*Segment
}

// NumRows returns the total record count across all segments.
func (t *Table) NumRows() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Rows)
	}
	return n
}

// Dataset is the in-memory form of tabular point/line/polygon data:
// tables holding segments holding rows.
type Dataset struct {
	Alloc  `cbor:"-" yaml:"-"`
	Tables []*Table
}

// NewDataset returns an empty dataset with one empty table, ready for
// record-by-record output.
func NewDataset() *Dataset {
	return &Dataset{Tables: []*Table{{}}}
}

// NumColumns returns the column count of the first non-empty segment,
// or 0 for an empty dataset.
func (d *Dataset) NumColumns() int {
	for _, t := range d.Tables {
		for _, s := range t.Segments {
			if len(s.Rows) > 0 {
				return len(s.Rows[0])
			}
		}
	}
	return 0
}

// NumRows returns the total record count across all tables.
func (d *Dataset) NumRows() int {
	n := 0
	for _, t := range d.Tables {
		n += t.NumRows()
	}
	return n
}

// LastTable returns the most recently added table, creating one if the
// dataset is empty.
func (d *Dataset) LastTable() *Table {
	if len(d.Tables) == 0 {
		d.Tables = append(d.Tables, &Table{})
	}
	return d.Tables[len(d.Tables)-1]
}

// TextSegment is one run of free-form text lines under a segment header.
type TextSegment struct {
	Header string
	Lines  []string
}

// TextTable is an ordered list of text segments with optional headers.
type TextTable struct {
	Headers  []string
	Segments []*TextSegment
}

// TextSet is the in-memory form of a text table: tables holding
// segments holding unparsed lines.
type TextSet struct {
	Alloc  `cbor:"-" yaml:"-"`
	Tables []*TextTable
}

// NewTextSet returns an empty text set with one empty table.
func NewTextSet() *TextSet {
	return &TextSet{Tables: []*TextTable{{}}}
}
