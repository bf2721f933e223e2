package broker

import (
	"math"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

// PutRecord writes one record to the active output resource. Streaming
// destinations format and emit immediately; memory-backed destinations
// lazily allocate a growable container on first write.
//
// A segment header written to a headerless container (matrix, vector)
// before the column count is known is delayed: it is counted, and once
// the first data record establishes the width the delayed headers are
// retroactively materialized as leading all-NaN rows. Once the width
// is established a record of a different width is an error.
func (s *Session) PutRecord(mode record.Mode, rec record.Record) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	st := &s.io[family.Out]
	if !st.enabled {
		return s.report(errors.NotEnabled("out"))
	}
	d := s.active(family.Out)
	if d == nil {
		return s.report(errors.NoOutput())
	}
	if d.Status == family.Used {
		return s.report(errors.WriteOnce(d.ID))
	}

	var err error
	if d.writer != nil {
		err = d.writer.Write(rec)
	} else {
		err = s.putMemory(d, rec)
	}
	if err != nil {
		return s.report(err)
	}

	switch rec.Kind {
	case record.KindData:
		st.rec++
	case record.KindSegHeader:
		st.seg++
	case record.KindTblHeader:
		st.tbl++
	}
	return nil
}

// putMemory routes a record into the descriptor's memory container,
// allocating one on first write.
func (s *Session) putMemory(d *Descriptor, rec record.Record) error {
	if d.Resource == nil {
		var fresh container.Owned
		switch {
		case d.Method&family.ViaMatrix != 0:
			fresh = &container.Matrix{}
		case d.Method&family.ViaVector != 0:
			fresh = &container.Vector{}
		case d.Family == family.TextSet:
			fresh = container.NewTextSet()
		default:
			fresh = container.NewDataset()
		}
		adoptInternal(s, d, fresh)
		d.Resource = fresh
	}

	switch p := d.Resource.(type) {
	case *container.Dataset:
		return s.putDatasetRecord(d, p, rec)
	case *container.Matrix:
		return s.putMatrixRecord(d, p, rec)
	case *container.Vector:
		return s.putVectorRecord(d, p, rec)
	case *container.TextSet:
		return s.putTextRecord(d, p, rec)
	default:
		return errors.BadMethod("resource family has no record writer")
	}
}

func (s *Session) putDatasetRecord(d *Descriptor, ds *container.Dataset, rec record.Record) error {
	tbl := ds.LastTable()
	switch rec.Kind {
	case record.KindTblHeader:
		tbl.Headers = append(tbl.Headers, rec.Text)

	case record.KindSegHeader:
		tbl.Segments = append(tbl.Segments, &container.Segment{
			Header: rec.Text,
			Rows:   make([][]float64, 0, s.defaults.InitialRows),
		})

	case record.KindData:
		if len(tbl.Segments) == 0 {
			tbl.Segments = append(tbl.Segments, &container.Segment{
				Rows: make([][]float64, 0, s.defaults.InitialRows),
			})
		}
		if d.nCols == 0 {
			d.nCols = len(rec.Values)
		} else if len(rec.Values) != d.nCols {
			return errors.DimMismatch(d.nCols, len(rec.Values))
		}
		seg := tbl.Segments[len(tbl.Segments)-1]
		row := make([]float64, len(rec.Values))
		copy(row, rec.Values)
		seg.Rows = append(seg.Rows, row)
		if rec.Text != "" || len(seg.Text) > 0 {
			for len(seg.Text) < len(seg.Rows)-1 {
				seg.Text = append(seg.Text, "")
			}
			seg.Text = append(seg.Text, rec.Text)
		}
	}
	return nil
}

func (s *Session) putMatrixRecord(d *Descriptor, m *container.Matrix, rec record.Record) error {
	switch rec.Kind {
	case record.KindTblHeader:
		// Matrices have no header storage.

	case record.KindSegHeader:
		if d.nCols == 0 {
			d.delayedHdrs++
			return nil
		}
		ensureMatrixCols(s, d, m)
		appendMatrixNaNRow(m)

	case record.KindData:
		if d.nCols == 0 {
			d.nCols = len(rec.Values)
		} else if len(rec.Values) != d.nCols {
			return errors.DimMismatch(d.nCols, len(rec.Values))
		}
		ensureMatrixCols(s, d, m)
		for d.delayedHdrs > 0 {
			appendMatrixNaNRow(m)
			d.delayedHdrs--
		}
		m.Data = append(m.Data, rec.Values...)
		m.NRows++
	}
	return nil
}

func (s *Session) putVectorRecord(d *Descriptor, v *container.Vector, rec record.Record) error {
	switch rec.Kind {
	case record.KindTblHeader:
		// Vectors have no header storage.

	case record.KindSegHeader:
		if d.nCols == 0 {
			d.delayedHdrs++
			return nil
		}
		ensureVectorCols(s, d, v)
		appendVectorNaNRow(v)

	case record.KindData:
		if d.nCols == 0 {
			d.nCols = len(rec.Values)
		} else if len(rec.Values) != d.nCols {
			return errors.DimMismatch(d.nCols, len(rec.Values))
		}
		ensureVectorCols(s, d, v)
		for d.delayedHdrs > 0 {
			appendVectorNaNRow(v)
			d.delayedHdrs--
		}
		for c := range v.Columns {
			val := math.NaN()
			if c < len(rec.Values) {
				val = rec.Values[c]
			}
			v.Columns[c] = append(v.Columns[c], val)
		}
		v.NRows++
	}
	return nil
}

func (s *Session) putTextRecord(d *Descriptor, ts *container.TextSet, rec record.Record) error {
	if len(ts.Tables) == 0 {
		ts.Tables = append(ts.Tables, &container.TextTable{})
	}
	tbl := ts.Tables[len(ts.Tables)-1]
	switch rec.Kind {
	case record.KindTblHeader:
		tbl.Headers = append(tbl.Headers, rec.Text)
	case record.KindSegHeader:
		tbl.Segments = append(tbl.Segments, &container.TextSegment{Header: rec.Text})
	case record.KindData:
		if len(tbl.Segments) == 0 {
			tbl.Segments = append(tbl.Segments, &container.TextSegment{})
		}
		seg := tbl.Segments[len(tbl.Segments)-1]
		seg.Lines = append(seg.Lines, rec.Text)
	}
	return nil
}
