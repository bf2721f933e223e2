package broker

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

func TestDatasetOutputRoundTrip(t *testing.T) {
	s := newTestSession(t)

	// In-memory destination with no container: the broker allocates one.
	id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.Out, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.BeginIO(family.Dataset, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(record.ModeData, record.SegHeader("seg1")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(record.ModeData, record.Data(1, 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(record.ModeData, record.Data(3, 4)); err != nil {
		t.Fatal(err)
	}
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	payload, err := s.ReadVirtualFile(EncodeVFile(id))
	if err != nil {
		t.Fatal(err)
	}
	ds, ok := payload.(*container.Dataset)
	if !ok {
		t.Fatalf("payload is %T, want *container.Dataset", payload)
	}
	if len(ds.Tables) != 1 || len(ds.Tables[0].Segments) != 1 {
		t.Fatalf("want 1 table with 1 segment, got %d tables", len(ds.Tables))
	}
	seg := ds.Tables[0].Segments[0]
	if seg.Header != "seg1" {
		t.Fatalf("segment header %q, want %q", seg.Header, "seg1")
	}
	want := [][]float64{{1, 2}, {3, 4}}
	if diff := cmp.Diff(want, seg.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	rec, segs, _ := s.Counters(family.Out)
	if rec != 2 || segs != 1 {
		t.Fatalf("counters rec=%d seg=%d, want 2 and 1", rec, segs)
	}
}

func TestFileBreakBetweenConcatenatedInputs(t *testing.T) {
	s := newTestSession(t)

	pathA := writeFile(t, "a.txt", "1 2\n3 4\n")
	pathB := writeFile(t, "b.txt", "5 6\n")
	if _, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, pathA); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, pathB); err != nil {
		t.Fatal(err)
	}

	if err := s.BeginIO(family.Dataset, family.In, record.ModeData|record.FileBreak); err != nil {
		t.Fatal(err)
	}

	var kinds []record.Kind
	var rows [][]float64
	for {
		rec, err := s.GetRecord(record.ModeData)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Kind == record.KindEOF {
			break
		}
		kinds = append(kinds, rec.Kind)
		if rec.Kind == record.KindData {
			rows = append(rows, rec.Values)
		}
	}

	wantKinds := []record.Kind{record.KindData, record.KindData, record.KindNextFile, record.KindData}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("record sequence mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	// EOF is repeatable and never an error.
	for i := 0; i < 3; i++ {
		rec, err := s.GetRecord(record.ModeData)
		if err != nil || rec.Kind != record.KindEOF {
			t.Fatalf("repeat %d: got kind=%v err=%v, want EOF", i, rec.Kind, err)
		}
	}

	rec, _, _ := s.Counters(family.In)
	if rec != 3 {
		t.Fatalf("record counter %d, want 3", rec)
	}
	if err := s.EndIO(family.In); err != nil {
		t.Fatal(err)
	}
}

func TestDelayedSegmentHeaderBecomesNaNRow(t *testing.T) {
	s := newTestSession(t)

	name, err := s.OpenVirtualFile(family.Matrix, family.GeomNone, family.Out, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.BeginIO(family.Matrix, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	// Width unknown: the header must be delayed, not dropped.
	if err := s.PutRecord(record.ModeData, record.SegHeader("pending")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(record.ModeData, record.Data(7, 8, 9)); err != nil {
		t.Fatal(err)
	}
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	payload, err := s.ReadVirtualFile(name)
	if err != nil {
		t.Fatal(err)
	}
	m := payload.(*container.Matrix)
	if m.NRows != 2 || m.NCols != 3 {
		t.Fatalf("matrix is %dx%d, want 2x3", m.NRows, m.NCols)
	}
	for c := 0; c < 3; c++ {
		if !math.IsNaN(m.At(0, c)) {
			t.Fatalf("row 0 col %d = %v, want NaN", c, m.At(0, c))
		}
	}
	want := []float64{7, 8, 9}
	row := make([]float64, 3)
	m.Row(1, row)
	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("data row mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentHeaderAfterWidthIsImmediate(t *testing.T) {
	s := newTestSession(t)

	name, err := s.OpenVirtualFile(family.Matrix, family.GeomNone, family.Out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Matrix, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	s.PutRecord(record.ModeData, record.Data(1, 2))
	s.PutRecord(record.ModeData, record.SegHeader("split"))
	s.PutRecord(record.ModeData, record.Data(3, 4))
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	payload, _ := s.ReadVirtualFile(name)
	m := payload.(*container.Matrix)
	if m.NRows != 3 {
		t.Fatalf("NRows = %d, want 3 (data, NaN boundary, data)", m.NRows)
	}
	if !math.IsNaN(m.At(1, 0)) || !math.IsNaN(m.At(1, 1)) {
		t.Fatal("middle row should be the NaN segment boundary")
	}
}

func TestMidStreamWidthChangeFails(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.Out, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(record.ModeData, record.Data(1, 2)); err != nil {
		t.Fatal(err)
	}
	err := s.PutRecord(record.ModeData, record.Data(1, 2, 3))
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeDimMismatch}) {
		t.Fatalf("expected dim_mismatch, got %v", err)
	}
}

func TestSetColumnsAvoidsHeaderDelay(t *testing.T) {
	s := newTestSession(t)

	name, err := s.OpenVirtualFile(family.Matrix, family.GeomNone, family.Out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Matrix, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	if err := s.SetColumns(family.Out, 2); err != nil {
		t.Fatal(err)
	}
	// Width pre-declared: the header materializes immediately.
	s.PutRecord(record.ModeData, record.SegHeader(""))
	s.PutRecord(record.ModeData, record.Data(1, 2))
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	payload, _ := s.ReadVirtualFile(name)
	m := payload.(*container.Matrix)
	if m.NRows != 2 || m.NCols != 2 {
		t.Fatalf("matrix is %dx%d, want 2x2", m.NRows, m.NCols)
	}
	if !math.IsNaN(m.At(0, 0)) {
		t.Fatal("first row should be the materialized header")
	}
}

func TestGapTestSynthesizesSegmentHeader(t *testing.T) {
	s := newTestSession(t)

	m := container.NewMatrix(3, 2)
	m.SetRow(0, []float64{0, 0})
	m.SetRow(1, []float64{5, 5})
	m.SetRow(2, []float64{6, 6})
	m.GapTest = func(prev, cur []float64) bool {
		return cur[0]-prev[0] > 2
	}

	if _, err := s.Register(family.Matrix, family.MethodReference|family.ViaMatrix, family.GeomNone, family.In, m); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.In, record.ModeData); err != nil {
		t.Fatal(err)
	}

	var kinds []record.Kind
	var rows [][]float64
	for {
		rec, err := s.GetRecord(record.ModeData)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Kind == record.KindEOF {
			break
		}
		kinds = append(kinds, rec.Kind)
		if rec.Kind == record.KindData {
			rows = append(rows, rec.Values)
		}
	}

	// The gap fires between rows 0 and 1: a synthetic boundary appears
	// and row 1 is still delivered afterward, not skipped.
	wantKinds := []record.Kind{record.KindData, record.KindSegHeader, record.KindData, record.KindData}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("record sequence mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]float64{{0, 0}, {5, 5}, {6, 6}}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDatasetInputWalksHeadersSegmentsRows(t *testing.T) {
	s := newTestSession(t)

	ds := container.NewDataset()
	tbl := ds.LastTable()
	tbl.Headers = append(tbl.Headers, "created by unit test")
	tbl.Segments = append(tbl.Segments,
		&container.Segment{Header: "first", Rows: [][]float64{{1, 2}}},
		&container.Segment{Header: "second", Rows: [][]float64{{3, 4}, {5, 6}}},
	)

	if _, err := s.Register(family.Dataset, family.MethodReference, family.GeomLine, family.In, ds); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.In, record.ModeData); err != nil {
		t.Fatal(err)
	}

	var kinds []record.Kind
	var headers []string
	var rows [][]float64
	for {
		rec, err := s.GetRecord(record.ModeData)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Kind == record.KindEOF {
			break
		}
		kinds = append(kinds, rec.Kind)
		switch rec.Kind {
		case record.KindSegHeader:
			headers = append(headers, rec.Text)
		case record.KindData:
			rows = append(rows, rec.Values)
		}
	}
	wantKinds := []record.Kind{
		record.KindTblHeader,
		record.KindSegHeader, record.KindData,
		record.KindSegHeader, record.KindData, record.KindData,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("record sequence mismatch (-want +got):\n%s", diff)
	}
	// Every segment header is emitted and the first segment's row is
	// delivered, not skipped.
	if diff := cmp.Diff([]string{"first", "second"}, headers); diff != "" {
		t.Fatalf("segment headers (-want +got):\n%s", diff)
	}
	wantRows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}

	_, segs, tbls := s.Counters(family.In)
	if segs != 2 || tbls != 1 {
		t.Fatalf("counters seg=%d tbl=%d, want 2 and 1", segs, tbls)
	}
}

func TestTextSetInputWalksSegments(t *testing.T) {
	s := newTestSession(t)

	ts := container.NewTextSet()
	tbl := ts.Tables[0]
	tbl.Segments = append(tbl.Segments,
		&container.TextSegment{Header: "para-1", Lines: []string{"alpha"}},
		&container.TextSegment{Header: "para-2", Lines: []string{"beta", "gamma"}},
	)

	if _, err := s.Register(family.TextSet, family.MethodReference, family.GeomNone, family.In, ts); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.TextSet, family.In, record.ModeText); err != nil {
		t.Fatal(err)
	}

	var headers, lines []string
	for {
		rec, err := s.GetRecord(record.ModeText)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Kind == record.KindEOF {
			break
		}
		switch rec.Kind {
		case record.KindSegHeader:
			headers = append(headers, rec.Text)
		case record.KindData:
			lines = append(lines, rec.Text)
		}
	}
	if diff := cmp.Diff([]string{"para-1", "para-2"}, headers); diff != "" {
		t.Fatalf("segment headers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alpha", "beta", "gamma"}, lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestBeginIOStateMachine(t *testing.T) {
	s := newTestSession(t)

	// No registered input at all.
	err := s.BeginIO(family.Dataset, family.In, record.ModeData)
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeNoInput}) {
		t.Fatalf("expected no_input, got %v", err)
	}

	// GetRecord before BeginIO.
	if _, err := s.GetRecord(record.ModeData); !stderrors.Is(err, &errors.Error{Code: errors.CodeAccessNotEnabled}) {
		t.Fatalf("expected access_not_enabled, got %v", err)
	}

	ds := container.NewDataset()
	ds.LastTable().Segments = append(ds.LastTable().Segments, &container.Segment{Rows: [][]float64{{1}}})
	if _, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.In, record.ModeData); err != nil {
		t.Fatal(err)
	}

	// Double enable.
	if err := s.BeginIO(family.Dataset, family.In, record.ModeData); !stderrors.Is(err, &errors.Error{Code: errors.CodeInvalidMode}) {
		t.Fatalf("expected invalid_mode on double enable, got %v", err)
	}

	if err := s.EndIO(family.In); err != nil {
		t.Fatal(err)
	}
	// EndIO without an enabled pass.
	if err := s.EndIO(family.In); !stderrors.Is(err, &errors.Error{Code: errors.CodeAccessNotEnabled}) {
		t.Fatalf("expected access_not_enabled, got %v", err)
	}
}

func TestOutputConsumedAfterEndIO(t *testing.T) {
	s := newTestSession(t)

	id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.Out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	s.PutRecord(record.ModeData, record.Data(1))
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	d, ok := s.byID[id]
	if !ok {
		t.Fatal("descriptor disappeared")
	}
	if d.Status != family.Used {
		t.Fatalf("status = %v, want used", d.Status)
	}

	// The consumed destination no longer matches a second pass.
	if err := s.BeginIO(family.Dataset, family.Out, record.ModeData); !stderrors.Is(err, &errors.Error{Code: errors.CodeNoOutput}) {
		t.Fatalf("expected no_output, got %v", err)
	}
}

func TestFileOutputWritesTable(t *testing.T) {
	s := newTestSession(t)
	path := writeFile(t, "out.txt", "")

	if _, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.Out, path); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginIO(family.Dataset, family.Out, record.ModeData); err != nil {
		t.Fatal(err)
	}
	s.PutRecord(record.ModeData, record.TblHeader("header line"))
	s.PutRecord(record.ModeData, record.SegHeader("segment"))
	s.PutRecord(record.ModeData, record.Data(1.5, 2.5))
	if err := s.EndIO(family.Out); err != nil {
		t.Fatal(err)
	}

	// Read the file back through the input side.
	s2 := newTestSession(t)
	if _, err := s2.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, path); err != nil {
		t.Fatal(err)
	}
	if err := s2.BeginIO(family.Dataset, family.In, record.ModeData); err != nil {
		t.Fatal(err)
	}
	var kinds []record.Kind
	var rows [][]float64
	for {
		rec, err := s2.GetRecord(record.ModeData)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Kind == record.KindEOF {
			break
		}
		kinds = append(kinds, rec.Kind)
		if rec.Kind == record.KindData {
			rows = append(rows, rec.Values)
		}
	}
	wantKinds := []record.Kind{record.KindTblHeader, record.KindSegHeader, record.KindData}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("round-trip sequence mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float64{{1.5, 2.5}}, rows); diff != "" {
		t.Fatalf("round-trip rows mismatch (-want +got):\n%s", diff)
	}
}
