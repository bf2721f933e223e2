package broker

import (
	"io"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

// GetRecord returns the next record from the registered input
// resources, walked in registration order as one continuous stream.
//
// When the active source is exhausted the engine advances to the next
// selected, unconsumed source of the pass family. With no sources left
// an EOF record is returned (repeatedly, without error). If the
// FileBreak flag is set a NextFile record is returned between sources,
// without consuming data, so the caller can react to the boundary.
func (s *Session) GetRecord(mode record.Mode) (record.Record, error) {
	if s.destroyed {
		return record.Record{}, s.report(errors.NoSession())
	}
	st := &s.io[family.In]
	if !st.enabled {
		return record.Record{}, s.report(errors.NotEnabled("in"))
	}

	base := mode.Base()
	fileBreak := mode.WantsFileBreak() || st.mode.WantsFileBreak()

	for {
		d := s.active(family.In)
		if d == nil || d.Status == family.Used {
			prev := d
			next, err := s.nextSource(family.In)
			if err != nil {
				return record.Record{}, s.report(err)
			}
			if next == nil {
				return record.EOF(), nil
			}
			if fileBreak && prev != nil {
				// Boundary between concatenated sources; no data consumed.
				return record.NextFile(), nil
			}
			d = next
		}

		rec, exhausted, err := s.readOne(d, base)
		if err != nil {
			if errors.CodeOf(err) == errors.CodeRecordMismatch {
				d.mismatch = true
				if base == record.ModeMixed {
					continue // tolerated: skip the malformed record
				}
			}
			return record.Record{}, s.report(err)
		}
		if exhausted {
			d.Status = family.Used
			d.closeHandles()
			continue
		}

		switch rec.Kind {
		case record.KindData:
			st.rec++
		case record.KindSegHeader:
			// The descriptor's segment cursor belongs to the payload
			// walkers; only the pass counter advances here.
			st.seg++
		case record.KindTblHeader:
			st.tbl++
		}
		return rec, nil
	}
}

// readOne pulls a single record from one descriptor. The bool result
// reports source exhaustion.
func (s *Session) readOne(d *Descriptor, base record.Mode) (record.Record, bool, error) {
	if d.reader != nil {
		var rec record.Record
		var err error
		if base == record.ModeText {
			rec, err = d.reader.ReadText()
		} else {
			rec, err = d.reader.Read()
		}
		if err == io.EOF {
			return record.Record{}, true, nil
		}
		if err != nil {
			return record.Record{}, false, err
		}
		return rec, false, nil
	}

	switch p := d.payload().(type) {
	case *container.Matrix:
		return nextBlockRecord(d, p.NRows, p.NCols, p.Row, p.GapTest)
	case *container.Vector:
		return nextBlockRecord(d, p.NRows, p.NCols(), p.Row, p.GapTest)
	case *container.Dataset:
		return nextDatasetRecord(d, p)
	case *container.TextSet:
		return nextTextRecord(d, p)
	case nil:
		return record.Record{}, false, errors.PtrIsNull(d.ID, "input resource has no payload")
	default:
		return record.Record{}, false, errors.BadMethod("resource family has no record reader")
	}
}

// nextBlockRecord walks a pre-sized row container (matrix or vector)
// with a manual row cursor. A firing gap test synthesizes a segment
// header and leaves the cursor alone: the same row is reinterpreted as
// the first row of the next segment on the following call.
func nextBlockRecord(d *Descriptor, nRows, nCols int, rowFn func(int, []float64), gapTest func(prev, cur []float64) bool) (record.Record, bool, error) {
	if d.curRow >= nRows {
		return record.Record{}, true, nil
	}

	row := make([]float64, nCols)
	rowFn(d.curRow, row)

	if gapTest != nil && d.curRow > 0 && !d.gapFired && gapTest(d.prevRow, row) {
		d.gapFired = true
		return record.SegHeader("data gap"), false, nil
	}
	d.gapFired = false
	d.prevRow = row
	d.curRow++
	return record.Data(row...), false, nil
}

// nextDatasetRecord walks an in-memory dataset's (table, segment, row,
// header) cursor, emitting table headers, then segment headers, then
// rows, before moving to the next table.
func nextDatasetRecord(d *Descriptor, ds *container.Dataset) (record.Record, bool, error) {
	for {
		if d.curTbl >= len(ds.Tables) {
			return record.Record{}, true, nil
		}
		tbl := ds.Tables[d.curTbl]

		if d.curHdr < len(tbl.Headers) {
			h := tbl.Headers[d.curHdr]
			d.curHdr++
			return record.TblHeader(h), false, nil
		}
		if d.curSeg < 0 {
			d.curSeg = 0
		}
		if d.curSeg >= len(tbl.Segments) {
			d.curTbl++
			d.curHdr = 0
			d.curSeg = -1
			d.curRow = 0
			d.segHeaderSent = false
			continue
		}
		seg := tbl.Segments[d.curSeg]
		if !d.segHeaderSent {
			d.segHeaderSent = true
			return record.SegHeader(seg.Header), false, nil
		}
		if d.curRow >= len(seg.Rows) {
			d.curSeg++
			d.curRow = 0
			d.segHeaderSent = false
			continue
		}
		rec := record.Data(seg.Rows[d.curRow]...)
		if d.curRow < len(seg.Text) {
			rec.Text = seg.Text[d.curRow]
		}
		d.curRow++
		return rec, false, nil
	}
}

// nextTextRecord is the text-table analogue of nextDatasetRecord.
func nextTextRecord(d *Descriptor, ts *container.TextSet) (record.Record, bool, error) {
	for {
		if d.curTbl >= len(ts.Tables) {
			return record.Record{}, true, nil
		}
		tbl := ts.Tables[d.curTbl]

		if d.curHdr < len(tbl.Headers) {
			h := tbl.Headers[d.curHdr]
			d.curHdr++
			return record.TblHeader(h), false, nil
		}
		if d.curSeg < 0 {
			d.curSeg = 0
		}
		if d.curSeg >= len(tbl.Segments) {
			d.curTbl++
			d.curHdr = 0
			d.curSeg = -1
			d.curRow = 0
			d.segHeaderSent = false
			continue
		}
		seg := tbl.Segments[d.curSeg]
		if !d.segHeaderSent {
			d.segHeaderSent = true
			return record.SegHeader(seg.Header), false, nil
		}
		if d.curRow >= len(seg.Lines) {
			d.curSeg++
			d.curRow = 0
			d.segHeaderSent = false
			continue
		}
		line := seg.Lines[d.curRow]
		d.curRow++
		return record.Record{Kind: record.KindData, Text: line}, false, nil
	}
}
