package broker

import (
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/geokit/databroker/codec"
	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

// BeginIO enables record-by-record access for one direction. At least
// one selected, unconsumed resource of the requested family must be
// registered; the engine positions itself on the first one and opens
// its concrete source or sink.
func (s *Session) BeginIO(f family.Family, dir family.Direction, mode record.Mode) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	st := &s.io[dir]
	if st.enabled {
		return s.report(errors.BadMode("record access already enabled for " + dir.String()))
	}

	found := false
	for _, d := range s.objects {
		if s.sourceMatches(d, f, dir) {
			found = true
			break
		}
	}
	if !found {
		if dir == family.In {
			return s.report(errors.NoInput())
		}
		return s.report(errors.NoOutput())
	}

	st.enabled = true
	st.mode = mode
	st.family = f
	st.current = -1
	st.rec, st.seg, st.tbl = 0, 0, 0

	if _, err := s.nextSource(dir); err != nil {
		st.enabled = false
		return s.report(err)
	}

	s.logger.Debug("record access enabled",
		zap.Uint64("session", s.ID),
		zap.String("direction", dir.String()),
		zap.String("family", f.String()))
	return nil
}

// EndIO disables record access for one direction. For output it
// finalizes any memory-backed container: exact-size reallocation,
// materialization of still-pending delayed headers, layout transpose if
// requested, then the container is marked consumed and left on the
// descriptor for pickup.
func (s *Session) EndIO(dir family.Direction) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	st := &s.io[dir]
	if !st.enabled {
		return s.report(errors.NotEnabled(dir.String()))
	}

	d := s.active(dir)
	if d != nil {
		if dir == family.Out {
			if err := s.finalizeOutput(d); err != nil {
				st.enabled = false
				return s.report(err)
			}
			d.Status = family.Used
		} else {
			d.closeHandles()
		}
	}

	st.enabled = false
	st.mode = 0
	st.family = family.NotSet
	st.current = -1
	st.cols = 0

	s.logger.Debug("record access disabled",
		zap.Uint64("session", s.ID),
		zap.String("direction", dir.String()))
	return nil
}

// sourceMatches reports whether d can serve a pass for family f in
// direction dir. Matrix and vector descriptors with a via modifier
// satisfy a Dataset pass.
func (s *Session) sourceMatches(d *Descriptor, f family.Family, dir family.Direction) bool {
	if !d.Selected || d.Direction != dir || d.Status != family.Unused {
		return false
	}
	if f == family.NotSet || d.Family == f {
		return true
	}
	return f == family.Dataset &&
		(d.Family == family.Matrix || d.Family == family.Vector) &&
		d.Method.Via()
}

// active returns the descriptor the direction's cursor points at, or
// nil when no source is open.
func (s *Session) active(dir family.Direction) *Descriptor {
	st := &s.io[dir]
	if st.current < 0 || st.current >= len(s.objects) {
		return nil
	}
	return s.objects[st.current]
}

// nextSource advances the direction's cursor to the next selected,
// unused descriptor of the pass family and opens it. It returns nil
// when no sources remain.
func (s *Session) nextSource(dir family.Direction) (*Descriptor, error) {
	st := &s.io[dir]
	for i := st.current + 1; i < len(s.objects); i++ {
		d := s.objects[i]
		if !s.sourceMatches(d, st.family, dir) {
			continue
		}
		st.current = i
		if err := s.openDescriptor(d, dir); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, nil
}

// openDescriptor readies one descriptor for record access: file methods
// open the file, stream and fdesc methods adopt the caller's handle,
// memory methods need no setup.
func (s *Session) openDescriptor(d *Descriptor, dir family.Direction) error {
	d.Status = family.Using
	d.resetCursors()
	if st := &s.io[dir]; st.cols > 0 {
		d.nCols = st.cols
	}

	switch d.Method.Base() {
	case family.MethodFile:
		if dir == family.In {
			rc, err := codec.Open(d.Filename)
			if err != nil {
				return err
			}
			d.rc = rc
			d.reader = codec.NewTableReader(rc, d.Filename)
		} else {
			wc, err := codec.Create(d.Filename)
			if err != nil {
				return err
			}
			d.wc = wc
			d.writer = codec.NewTableWriter(wc, s.defaults.Separator)
		}
		d.closable = true

	case family.MethodStream, family.MethodFDesc:
		if dir == family.In {
			r, ok := d.Resource.(io.Reader)
			if !ok {
				return errors.BadMethod("stream resource is not readable")
			}
			d.reader = codec.NewTableReader(r, "stream")
		} else {
			w, ok := d.Resource.(io.Writer)
			if !ok {
				return errors.BadMethod("stream resource is not writable")
			}
			d.writer = codec.NewTableWriter(w, s.defaults.Separator)
		}
		d.closable = false
	}
	return nil
}

// finalizeOutput completes a destination at EndIO time.
func (s *Session) finalizeOutput(d *Descriptor) error {
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			return err
		}
		return d.closeHandles()
	}

	switch p := d.Resource.(type) {
	case *container.Dataset:
		for _, tbl := range p.Tables {
			for _, seg := range tbl.Segments {
				seg.Rows = seg.Rows[:len(seg.Rows):len(seg.Rows)]
			}
		}
		d.Messenger = false

	case *container.Matrix:
		if d.delayedHdrs > 0 {
			if d.nCols > 0 {
				ensureMatrixCols(s, d, p)
				for i := 0; i < d.delayedHdrs; i++ {
					appendMatrixNaNRow(p)
				}
			} else {
				s.logger.Warn("dropping delayed segment headers: output width never established",
					zap.Uint64("session", s.ID),
					zap.Int("id", d.ID),
					zap.Int("headers", d.delayedHdrs))
			}
			d.delayedHdrs = 0
		}
		p.Data = p.Data[:len(p.Data):len(p.Data)]
		if s.Flags&ColumnMajor != 0 && p.Layout == container.RowMajor {
			*p = *p.Transpose()
		}
		d.Messenger = false

	case *container.Vector:
		if d.delayedHdrs > 0 && d.nCols > 0 {
			// Delayed headers were never materialized: no data record
			// arrived. Emit them as all-NaN rows of the declared width.
			ensureVectorCols(s, d, p)
			for i := 0; i < d.delayedHdrs; i++ {
				appendVectorNaNRow(p)
			}
			d.delayedHdrs = 0
		}
		for c := range p.Columns {
			p.Columns[c] = p.Columns[c][:len(p.Columns[c]):len(p.Columns[c])]
		}
		d.Messenger = false

	case *container.TextSet:
		d.Messenger = false

	case nil:
		// Nothing was ever written; a messenger keeps waiting.
	}
	return nil
}

func ensureMatrixCols(s *Session, d *Descriptor, m *container.Matrix) {
	if m.NCols == 0 {
		m.NCols = d.nCols
		if m.Data == nil {
			m.Data = make([]float64, 0, s.defaults.InitialRows*d.nCols)
		}
	}
}

func appendMatrixNaNRow(m *container.Matrix) {
	for c := 0; c < m.NCols; c++ {
		m.Data = append(m.Data, math.NaN())
	}
	m.NRows++
}

func ensureVectorCols(s *Session, d *Descriptor, v *container.Vector) {
	if len(v.Columns) == 0 {
		v.Columns = make([][]float64, d.nCols)
		for c := range v.Columns {
			v.Columns[c] = make([]float64, 0, s.defaults.InitialRows)
		}
	}
}

func appendVectorNaNRow(v *container.Vector) {
	for c := range v.Columns {
		v.Columns[c] = append(v.Columns[c], math.NaN())
	}
	v.NRows++
}
