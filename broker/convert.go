package broker

import (
	"io"

	"github.com/geokit/databroker/codec"
	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

// Converter is the per-family import/export contract. The core calls
// these functions but is agnostic to their internals; the binary grid,
// image, palette and document codecs live elsewhere and are injected
// through RegisterConverter.
//
// Import must set the payload's ownership bookkeeping to
// AllocInternally when it allocated the memory, and must leave the
// descriptor's Data/Resource slots consistent with the single-owner
// discipline.
type Converter interface {
	// Import realizes the descriptor's payload from its source.
	Import(s *Session, d *Descriptor, mode record.Mode) (any, error)

	// Export delivers payload to the descriptor's destination.
	Export(s *Session, d *Descriptor, mode record.Mode, payload any) error

	// Destroy releases the payload's storage.
	Destroy(payload any)
}

// RegisterConverter injects or replaces the converter for a family.
func (s *Session) RegisterConverter(f family.Family, c Converter) {
	s.converters[f] = c
}

func builtinConverters() map[family.Family]Converter {
	return map[family.Family]Converter{
		family.Dataset: datasetConverter{},
		family.TextSet: textsetConverter{},
		family.Matrix:  matrixConverter{},
		family.Vector:  vectorConverter{},
	}
}

func (s *Session) converterFor(f family.Family) (Converter, error) {
	conv, ok := s.converters[f]
	if !ok {
		return nil, errors.NoConverter(f.String())
	}
	return conv, nil
}

// GetData imports a registered input resource as one whole container.
// The import marks the resource consumed.
func (s *Session) GetData(id int, mode record.Mode) (any, error) {
	d, err := s.ValidateID(family.NotSet, id, family.In, AnyInput)
	if err != nil {
		return nil, err
	}
	conv, err := s.converterFor(d.Family)
	if err != nil {
		return nil, s.report(err)
	}
	payload, err := conv.Import(s, d, mode)
	if err != nil {
		return nil, s.report(err)
	}
	d.Data = payload
	d.Status = family.Used
	return payload, nil
}

// PutData exports one whole container through a registered output
// resource.
func (s *Session) PutData(id int, mode record.Mode, payload any) error {
	d, err := s.ValidateID(family.NotSet, id, family.Out, AnyInput)
	if err != nil {
		return err
	}
	if d.Status == family.Used {
		return s.report(errors.WriteOnce(id))
	}
	conv, err := s.converterFor(d.Family)
	if err != nil {
		return s.report(err)
	}
	if err := conv.Export(s, d, mode, payload); err != nil {
		return s.report(err)
	}
	d.Status = family.Used
	return nil
}

// adoptInternal stamps broker-allocated bookkeeping onto a payload and
// mirrors it on the descriptor.
func adoptInternal(s *Session, d *Descriptor, payload container.Owned) {
	a := payload.Ownership()
	a.Mode = container.AllocInternally
	a.Level = s.level
	d.AllocMode = container.AllocInternally
	if s.level > d.AllocLevel {
		d.AllocLevel = s.level
	}
}

// openSource returns the byte source for a file/stream/fdesc input.
func openSource(d *Descriptor) (io.Reader, func() error, error) {
	switch d.Method.Base() {
	case family.MethodFile:
		rc, err := codec.Open(d.Filename)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.Close, nil
	case family.MethodStream, family.MethodFDesc:
		r, ok := d.Resource.(io.Reader)
		if !ok {
			return nil, nil, errors.BadMethod("resource is not readable")
		}
		return r, func() error { return nil }, nil
	default:
		return nil, nil, errors.BadMethod("not a byte-level source")
	}
}

// openSink returns the byte sink for a file/stream/fdesc output.
func openSink(d *Descriptor) (io.Writer, func() error, error) {
	switch d.Method.Base() {
	case family.MethodFile:
		wc, err := codec.Create(d.Filename)
		if err != nil {
			return nil, nil, err
		}
		return wc, wc.Close, nil
	case family.MethodStream, family.MethodFDesc:
		w, ok := d.Resource.(io.Writer)
		if !ok {
			return nil, nil, errors.BadMethod("resource is not writable")
		}
		return w, func() error { return nil }, nil
	default:
		return nil, nil, errors.BadMethod("not a byte-level sink")
	}
}

// datasetConverter is the built-in table family converter. It also
// covers matrices and vectors masquerading as datasets.
type datasetConverter struct{}

func (datasetConverter) Import(s *Session, d *Descriptor, mode record.Mode) (any, error) {
	switch {
	case d.Method&family.ViaMatrix != 0:
		m, ok := d.Resource.(*container.Matrix)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "via-matrix input has no matrix payload")
		}
		ds := datasetFromMatrix(m)
		adoptInternal(s, d, ds)
		return ds, nil

	case d.Method&family.ViaVector != 0:
		v, ok := d.Resource.(*container.Vector)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "via-vector input has no vector payload")
		}
		ds := datasetFromVector(v)
		adoptInternal(s, d, ds)
		return ds, nil

	case d.Method.Base() == family.MethodReference:
		ds, ok := d.Resource.(*container.Dataset)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "reference input has no dataset payload")
		}
		return ds, nil

	case d.Method.Base() == family.MethodDuplicate:
		src, ok := d.Resource.(*container.Dataset)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "duplicate input has no dataset payload")
		}
		ds, err := codec.Clone(src)
		if err != nil {
			return nil, errors.ConvertFailed("dataset", err)
		}
		adoptInternal(s, d, ds)
		return ds, nil

	default:
		r, done, err := openSource(d)
		if err != nil {
			return nil, err
		}
		defer done()
		ds, err := readDataset(codec.NewTableReader(r, d.Filename), mode)
		if err != nil {
			return nil, err
		}
		adoptInternal(s, d, ds)
		return ds, nil
	}
}

func (datasetConverter) Export(s *Session, d *Descriptor, mode record.Mode, payload any) error {
	ds, ok := payload.(*container.Dataset)
	if !ok {
		return errors.ConvertFailed("dataset", errors.BadMethod("payload is not a dataset"))
	}
	if d.Method.InMemory() {
		// Hand the container to the registry for pickup.
		d.Resource = ds
		return nil
	}
	w, done, err := openSink(d)
	if err != nil {
		return err
	}
	tw := codec.NewTableWriter(w, s.defaults.Separator)
	if err := writeDataset(tw, ds); err != nil {
		done()
		return err
	}
	if err := tw.Flush(); err != nil {
		done()
		return err
	}
	return done()
}

func (datasetConverter) Destroy(payload any) {
	if ds, ok := payload.(*container.Dataset); ok {
		ds.Tables = nil
	}
}

// readDataset drains a table reader into a fresh dataset.
func readDataset(tr *codec.TableReader, mode record.Mode) (*container.Dataset, error) {
	ds := container.NewDataset()
	tbl := ds.LastTable()
	var seg *container.Segment

	ensureSeg := func() *container.Segment {
		if seg == nil {
			seg = &container.Segment{}
			tbl.Segments = append(tbl.Segments, seg)
		}
		return seg
	}

	for {
		rec, err := tr.Read()
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			if mode.Base() == record.ModeMixed && errors.CodeOf(err) == errors.CodeRecordMismatch {
				continue
			}
			return nil, err
		}
		switch rec.Kind {
		case record.KindTblHeader:
			tbl.Headers = append(tbl.Headers, rec.Text)
		case record.KindSegHeader:
			seg = &container.Segment{Header: rec.Text}
			tbl.Segments = append(tbl.Segments, seg)
		case record.KindData:
			sg := ensureSeg()
			sg.Rows = append(sg.Rows, rec.Values)
			if rec.Text != "" || len(sg.Text) > 0 {
				sg.Text = append(sg.Text, rec.Text)
			}
		}
	}
}

// writeDataset streams a dataset through a table writer.
func writeDataset(tw *codec.TableWriter, ds *container.Dataset) error {
	for _, tbl := range ds.Tables {
		for _, h := range tbl.Headers {
			if err := tw.Write(record.TblHeader(h)); err != nil {
				return err
			}
		}
		for _, seg := range tbl.Segments {
			if err := tw.Write(record.SegHeader(seg.Header)); err != nil {
				return err
			}
			for i, row := range seg.Rows {
				rec := record.Data(row...)
				if i < len(seg.Text) {
					rec.Text = seg.Text[i]
				}
				if err := tw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func datasetFromMatrix(m *container.Matrix) *container.Dataset {
	ds := container.NewDataset()
	seg := &container.Segment{Rows: make([][]float64, 0, m.NRows)}
	for r := 0; r < m.NRows; r++ {
		row := make([]float64, m.NCols)
		m.Row(r, row)
		seg.Rows = append(seg.Rows, row)
	}
	ds.LastTable().Segments = append(ds.LastTable().Segments, seg)
	return ds
}

func datasetFromVector(v *container.Vector) *container.Dataset {
	ds := container.NewDataset()
	seg := &container.Segment{Rows: make([][]float64, 0, v.NRows)}
	for r := 0; r < v.NRows; r++ {
		row := make([]float64, v.NCols())
		v.Row(r, row)
		seg.Rows = append(seg.Rows, row)
	}
	ds.LastTable().Segments = append(ds.LastTable().Segments, seg)
	return ds
}

// textsetConverter is the built-in text table converter.
type textsetConverter struct{}

func (textsetConverter) Import(s *Session, d *Descriptor, mode record.Mode) (any, error) {
	switch d.Method.Base() {
	case family.MethodReference:
		ts, ok := d.Resource.(*container.TextSet)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "reference input has no textset payload")
		}
		return ts, nil
	case family.MethodDuplicate:
		src, ok := d.Resource.(*container.TextSet)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "duplicate input has no textset payload")
		}
		ts, err := codec.Clone(src)
		if err != nil {
			return nil, errors.ConvertFailed("textset", err)
		}
		adoptInternal(s, d, ts)
		return ts, nil
	default:
		r, done, err := openSource(d)
		if err != nil {
			return nil, err
		}
		defer done()
		ts, err := readTextSet(codec.NewTableReader(r, d.Filename))
		if err != nil {
			return nil, err
		}
		adoptInternal(s, d, ts)
		return ts, nil
	}
}

func (textsetConverter) Export(s *Session, d *Descriptor, mode record.Mode, payload any) error {
	ts, ok := payload.(*container.TextSet)
	if !ok {
		return errors.ConvertFailed("textset", errors.BadMethod("payload is not a textset"))
	}
	if d.Method.InMemory() {
		d.Resource = ts
		return nil
	}
	w, done, err := openSink(d)
	if err != nil {
		return err
	}
	tw := codec.NewTableWriter(w, s.defaults.Separator)
	for _, tbl := range ts.Tables {
		for _, h := range tbl.Headers {
			if err := tw.Write(record.TblHeader(h)); err != nil {
				done()
				return err
			}
		}
		for _, seg := range tbl.Segments {
			if err := tw.Write(record.SegHeader(seg.Header)); err != nil {
				done()
				return err
			}
			for _, line := range seg.Lines {
				if err := tw.Write(record.Record{Kind: record.KindData, Text: line}); err != nil {
					done()
					return err
				}
			}
		}
	}
	if err := tw.Flush(); err != nil {
		done()
		return err
	}
	return done()
}

func (textsetConverter) Destroy(payload any) {
	if ts, ok := payload.(*container.TextSet); ok {
		ts.Tables = nil
	}
}

func readTextSet(tr *codec.TableReader) (*container.TextSet, error) {
	ts := container.NewTextSet()
	tbl := ts.Tables[0]
	var seg *container.TextSegment

	ensureSeg := func() *container.TextSegment {
		if seg == nil {
			seg = &container.TextSegment{}
			tbl.Segments = append(tbl.Segments, seg)
		}
		return seg
	}

	for {
		rec, err := tr.ReadText()
		if err == io.EOF {
			return ts, nil
		}
		if err != nil {
			return nil, err
		}
		switch rec.Kind {
		case record.KindTblHeader:
			tbl.Headers = append(tbl.Headers, rec.Text)
		case record.KindSegHeader:
			seg = &container.TextSegment{Header: rec.Text}
			tbl.Segments = append(tbl.Segments, seg)
		case record.KindData:
			ensureSeg().Lines = append(seg.Lines, rec.Text)
		}
	}
}

// matrixConverter moves dense numeric blocks.
type matrixConverter struct{}

func (matrixConverter) Import(s *Session, d *Descriptor, mode record.Mode) (any, error) {
	switch d.Method.Base() {
	case family.MethodReference:
		m, ok := d.Resource.(*container.Matrix)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "reference input has no matrix payload")
		}
		return m, nil
	case family.MethodDuplicate:
		src, ok := d.Resource.(*container.Matrix)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "duplicate input has no matrix payload")
		}
		m, err := codec.Clone(src)
		if err != nil {
			return nil, errors.ConvertFailed("matrix", err)
		}
		adoptInternal(s, d, m)
		return m, nil
	default:
		r, done, err := openSource(d)
		if err != nil {
			return nil, err
		}
		defer done()
		m, err := readMatrix(codec.NewTableReader(r, d.Filename))
		if err != nil {
			return nil, err
		}
		adoptInternal(s, d, m)
		return m, nil
	}
}

func (matrixConverter) Export(s *Session, d *Descriptor, mode record.Mode, payload any) error {
	m, ok := payload.(*container.Matrix)
	if !ok {
		return errors.ConvertFailed("matrix", errors.BadMethod("payload is not a matrix"))
	}
	if d.Method.InMemory() {
		d.Resource = m
		return nil
	}
	w, done, err := openSink(d)
	if err != nil {
		return err
	}
	tw := codec.NewTableWriter(w, s.defaults.Separator)
	row := make([]float64, m.NCols)
	for r := 0; r < m.NRows; r++ {
		m.Row(r, row)
		if err := tw.Write(record.Data(row...)); err != nil {
			done()
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		done()
		return err
	}
	return done()
}

func (matrixConverter) Destroy(payload any) {
	if m, ok := payload.(*container.Matrix); ok {
		m.Data = nil
	}
}

func readMatrix(tr *codec.TableReader) (*container.Matrix, error) {
	var rows [][]float64
	for {
		rec, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec.Kind != record.KindData {
			continue // matrices have no header storage
		}
		if len(rows) > 0 && len(rec.Values) != len(rows[0]) {
			return nil, errors.DimMismatch(len(rows[0]), len(rec.Values))
		}
		rows = append(rows, rec.Values)
	}
	if len(rows) == 0 {
		return container.NewMatrix(0, 0), nil
	}
	m := container.NewMatrix(len(rows), len(rows[0]))
	for r, row := range rows {
		m.SetRow(r, row)
	}
	return m, nil
}

// vectorConverter moves column-array sets.
type vectorConverter struct{}

func (vectorConverter) Import(s *Session, d *Descriptor, mode record.Mode) (any, error) {
	switch d.Method.Base() {
	case family.MethodReference:
		v, ok := d.Resource.(*container.Vector)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "reference input has no vector payload")
		}
		return v, nil
	case family.MethodDuplicate:
		src, ok := d.Resource.(*container.Vector)
		if !ok {
			return nil, errors.PtrIsNull(d.ID, "duplicate input has no vector payload")
		}
		v, err := codec.Clone(src)
		if err != nil {
			return nil, errors.ConvertFailed("vector", err)
		}
		adoptInternal(s, d, v)
		return v, nil
	default:
		r, done, err := openSource(d)
		if err != nil {
			return nil, err
		}
		defer done()
		m, err := readMatrix(codec.NewTableReader(r, d.Filename))
		if err != nil {
			return nil, err
		}
		v := container.NewVector(m.NRows, m.NCols)
		row := make([]float64, m.NCols)
		for r := 0; r < m.NRows; r++ {
			m.Row(r, row)
			v.SetRow(r, row)
		}
		adoptInternal(s, d, v)
		return v, nil
	}
}

func (vectorConverter) Export(s *Session, d *Descriptor, mode record.Mode, payload any) error {
	v, ok := payload.(*container.Vector)
	if !ok {
		return errors.ConvertFailed("vector", errors.BadMethod("payload is not a vector"))
	}
	if d.Method.InMemory() {
		d.Resource = v
		return nil
	}
	w, done, err := openSink(d)
	if err != nil {
		return err
	}
	tw := codec.NewTableWriter(w, s.defaults.Separator)
	row := make([]float64, v.NCols())
	for r := 0; r < v.NRows; r++ {
		v.Row(r, row)
		if err := tw.Write(record.Data(row...)); err != nil {
			done()
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		done()
		return err
	}
	return done()
}

func (vectorConverter) Destroy(payload any) {
	if v, ok := payload.(*container.Vector); ok {
		v.Columns = nil
	}
}
