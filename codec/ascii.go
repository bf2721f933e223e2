package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/record"
)

// TableReader scans an ASCII table stream one record at a time.
// Lines starting with '#' are table headers, lines starting with '>'
// are segment headers, everything else is whitespace-separated numeric
// columns with an optional trailing text word.
type TableReader struct {
	scanner *bufio.Scanner
	name    string
}

// NewTableReader wraps r. name is used in diagnostics only.
func NewTableReader(r io.Reader, name string) *TableReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &TableReader{scanner: s, name: name}
}

// Read returns the next record or io.EOF when the stream is exhausted.
// A malformed numeric field yields a CodeRecordMismatch error; the
// caller decides whether that is fatal.
func (tr *TableReader) Read() (record.Record, error) {
	for tr.scanner.Scan() {
		line := strings.TrimSpace(tr.scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			return record.TblHeader(strings.TrimSpace(line[1:])), nil
		case strings.HasPrefix(line, ">"):
			return record.SegHeader(strings.TrimSpace(line[1:])), nil
		default:
			return parseDataLine(line)
		}
	}
	if err := tr.scanner.Err(); err != nil {
		return record.Record{}, errors.Wrap(errors.PhaseStream, errors.CodeOpenFailed, err, fmt.Sprintf("read %q", tr.name))
	}
	return record.Record{}, io.EOF
}

func parseDataLine(line string) (record.Record, error) {
	fields := strings.Fields(line)
	values := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := parseValue(f)
		if err != nil {
			// A non-numeric tail is legal only as the final run of
			// fields (mixed records carry one trailing text word).
			if i > 0 && i == len(fields)-1 {
				return record.Mixed(f, values...), nil
			}
			return record.Record{}, errors.RecordMismatch(
				fmt.Sprintf("field %d %q is not numeric", i, f))
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return record.Record{}, errors.RecordMismatch("empty record")
	}
	return record.Data(values...), nil
}

func parseValue(s string) (float64, error) {
	if strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadText returns the next record without numeric parsing: header
// lines are classified as usual, everything else comes back as a data
// record whose Text is the unparsed line.
func (tr *TableReader) ReadText() (record.Record, error) {
	for tr.scanner.Scan() {
		line := strings.TrimSpace(tr.scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			return record.TblHeader(strings.TrimSpace(line[1:])), nil
		case strings.HasPrefix(line, ">"):
			return record.SegHeader(strings.TrimSpace(line[1:])), nil
		default:
			return record.Record{Kind: record.KindData, Text: line}, nil
		}
	}
	if err := tr.scanner.Err(); err != nil {
		return record.Record{}, errors.Wrap(errors.PhaseStream, errors.CodeOpenFailed, err, fmt.Sprintf("read %q", tr.name))
	}
	return record.Record{}, io.EOF
}

// TableWriter formats records back into the ASCII table form the
// TableReader accepts.
type TableWriter struct {
	w         *bufio.Writer
	separator string
}

// NewTableWriter wraps w using separator between columns. An empty
// separator defaults to a single tab.
func NewTableWriter(w io.Writer, separator string) *TableWriter {
	if separator == "" {
		separator = "\t"
	}
	return &TableWriter{w: bufio.NewWriter(w), separator: separator}
}

// Write emits one record. NextFile and EOF records are ignored.
func (tw *TableWriter) Write(rec record.Record) error {
	switch rec.Kind {
	case record.KindTblHeader:
		_, err := fmt.Fprintf(tw.w, "# %s\n", rec.Text)
		return err
	case record.KindSegHeader:
		_, err := fmt.Fprintf(tw.w, "> %s\n", rec.Text)
		return err
	case record.KindData:
		for i, v := range rec.Values {
			if i > 0 {
				if _, err := tw.w.WriteString(tw.separator); err != nil {
					return err
				}
			}
			if _, err := tw.w.WriteString(formatValue(v)); err != nil {
				return err
			}
		}
		if rec.Text != "" {
			if len(rec.Values) > 0 {
				if _, err := tw.w.WriteString(tw.separator); err != nil {
					return err
				}
			}
			if _, err := tw.w.WriteString(rec.Text); err != nil {
				return err
			}
		}
		return tw.w.WriteByte('\n')
	default:
		return nil
	}
}

// Flush drains buffered output.
func (tw *TableWriter) Flush() error {
	return tw.w.Flush()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
