package broker

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New("test", 2, NoExit)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Destroy() })
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIDUniquenessAcrossRegisterUnregister(t *testing.T) {
	s := newTestSession(t)

	seen := make(map[int]bool)
	var live []int
	for i := 0; i < 50; i++ {
		ds := container.NewDataset()
		id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds)
		if err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("ID %d repeated", id)
		}
		seen[id] = true
		live = append(live, id)

		// Drop every third registration to churn the table.
		if i%3 == 0 {
			victim := live[0]
			live = live[1:]
			if err := s.Unregister(victim); err != nil {
				t.Fatalf("Unregister %d: %v", victim, err)
			}
		}
	}

	// Remaining IDs still resolve and are pairwise distinct.
	ids := make(map[int]bool)
	for _, d := range s.Objects() {
		if ids[d.ID] {
			t.Fatalf("live ID %d duplicated", d.ID)
		}
		ids[d.ID] = true
	}
}

func TestGeometryValidation(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Register(family.Grid, family.MethodReference, family.GeomPoint, family.In, &container.Grid{})
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeInvalidGeometry}) {
		t.Fatalf("grid+point should fail with invalid_geometry, got %v", err)
	}

	if _, err := s.Register(family.Grid, family.MethodReference, family.GeomSurface, family.In, &container.Grid{}); err != nil {
		t.Fatalf("grid+surface should register: %v", err)
	}
}

func TestRegisterFileChecks(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, filepath.Join(t.TempDir(), "missing.txt"))
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeFileNotFound}) {
		t.Fatalf("expected file_not_found, got %v", err)
	}

	// Remote and cache names defer the existence check.
	if _, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, "https://example.org/points.txt"); err != nil {
		t.Fatalf("remote name should defer the check: %v", err)
	}
	if _, err := s.Register(family.Grid, family.MethodFile, family.GeomSurface, family.In, "@earth_relief_01d"); err != nil {
		t.Fatalf("cache name should defer the check: %v", err)
	}

	path := writeFile(t, "ok.txt", "1 2\n")
	if _, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, path); err != nil {
		t.Fatalf("existing file should register: %v", err)
	}
}

func TestIdempotentRegistration(t *testing.T) {
	s := newTestSession(t)
	ds := container.NewDataset()

	id1, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("equivalent registration returned %d, want %d", id2, id1)
	}

	// Reset reuses the descriptor but rewinds its status.
	d, _ := s.ValidateID(family.Dataset, id1, family.In, AnyInput)
	d.Status = family.Used
	id3, err := s.Register(family.Dataset, family.MethodReference|family.Reset, family.GeomPoint, family.In, ds)
	if err != nil {
		t.Fatal(err)
	}
	if id3 != id1 {
		t.Fatalf("reset registration returned %d, want %d", id3, id1)
	}
	if d.Status != family.Unused {
		t.Fatalf("reset should rewind status, got %v", d.Status)
	}
}

func TestRegisterResolvesVirtualFilename(t *testing.T) {
	s := newTestSession(t)
	ds := container.NewDataset()

	name, err := s.OpenVirtualFile(family.Dataset, family.GeomPoint, family.In, ds)
	if err != nil {
		t.Fatal(err)
	}
	id, err := DecodeVFileID(name)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Register(family.Dataset, family.MethodFile, family.GeomPoint, family.In, name)
	if err != nil {
		t.Fatalf("Register with virtual filename: %v", err)
	}
	if got != id {
		t.Fatalf("virtual filename resolved to %d, want %d", got, id)
	}
}

func TestValidateIDMasquerade(t *testing.T) {
	s := newTestSession(t)

	m := container.NewMatrix(2, 2)
	id, err := s.Register(family.Matrix, family.MethodReference|family.ViaMatrix, family.GeomNone, family.In, m)
	if err != nil {
		t.Fatal(err)
	}

	d, err := s.ValidateID(family.Dataset, id, family.In, AnyInput)
	if err != nil {
		t.Fatalf("matrix with via modifier should satisfy a dataset request: %v", err)
	}
	if d.Family != family.Dataset {
		t.Fatalf("lookup should promote family, got %v", d.Family)
	}
	if d.ActualFamily != family.Matrix {
		t.Fatalf("declared family must survive promotion, got %v", d.ActualFamily)
	}

	// A plain matrix without the modifier must not masquerade.
	m2 := container.NewMatrix(2, 2)
	id2, err := s.Register(family.Matrix, family.MethodReference, family.GeomNone, family.In, m2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ValidateID(family.Dataset, id2, family.In, AnyInput); !stderrors.Is(err, &errors.Error{Code: errors.CodeNotAValidID}) {
		t.Fatalf("expected not_a_valid_id, got %v", err)
	}
}

func TestValidateIDDirectionAndConsumption(t *testing.T) {
	s := newTestSession(t)
	ds := container.NewDataset()

	id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.ValidateID(family.Dataset, id, family.Out, AnyInput); !stderrors.Is(err, &errors.Error{Code: errors.CodeNotAValidID}) {
		t.Fatalf("direction mismatch should fail, got %v", err)
	}

	d, _ := s.ValidateID(family.Dataset, id, family.In, AnyInput)
	d.Status = family.Used
	if _, err := s.ValidateID(family.Dataset, id, family.In, AnyInput); !stderrors.Is(err, &errors.Error{Code: errors.CodeNotAValidID}) {
		t.Fatalf("consumed input should fail validation, got %v", err)
	}
}

func TestValidateIDInputKind(t *testing.T) {
	s := newTestSession(t)
	ds := container.NewDataset()

	id, _ := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, ds)
	if err := s.SetModuleInput(id, true); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ValidateID(family.Dataset, id, family.In, ModuleInputOnly); err != nil {
		t.Fatalf("module-input filter should pass: %v", err)
	}
	if _, err := s.ValidateID(family.Dataset, id, family.In, OptionInputOnly); err == nil {
		t.Fatal("option-input filter should reject a module input")
	}
}

func TestUnregisterKeepsIDsStable(t *testing.T) {
	s := newTestSession(t)

	var ids []int
	for i := 0; i < 4; i++ {
		id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, container.NewDataset())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	if err := s.Unregister(ids[1]); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{ids[0], ids[2], ids[3]} {
		if _, err := s.ValidateID(family.Dataset, id, family.In, AnyInput); err != nil {
			t.Fatalf("ID %d should survive compaction: %v", id, err)
		}
	}
	if _, err := s.ValidateID(family.Dataset, ids[1], family.In, AnyInput); err == nil {
		t.Fatal("unregistered ID should not validate")
	}
}

func TestRegisterNonComparableResource(t *testing.T) {
	s := newTestSession(t)

	// A live descriptor of the same family/geometry/direction, so the
	// equivalence scan has something to compare against.
	if _, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, container.NewDataset()); err != nil {
		t.Fatal(err)
	}

	for _, resource := range []any{
		[]float64{1, 2},
		func() {},
		map[string]int{"a": 1},
	} {
		_, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, resource)
		if !stderrors.Is(err, &errors.Error{Code: errors.CodeInvalidMethod}) {
			t.Fatalf("resource %T: expected invalid_method, got %v", resource, err)
		}
	}
}

func TestRegisterAfterDestroy(t *testing.T) {
	s := newTestSession(t)
	s.Destroy()

	_, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, container.NewDataset())
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeNoSession}) {
		t.Fatalf("expected no_session, got %v", err)
	}
}

func TestShelveFamilyDefersResolution(t *testing.T) {
	s := newTestSession(t)

	s.ShelveFamily(family.Vector)
	id, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, container.NewDataset())
	if err != nil {
		t.Fatal(err)
	}
	d, _ := s.ValidateID(family.Dataset, id, family.In, AnyInput)
	if d.ActualFamily != family.Vector {
		t.Fatalf("shelved family should become the declared kind, got %v", d.ActualFamily)
	}

	// The shelf is consumed by one registration only.
	id2, err := s.Register(family.Dataset, family.MethodReference, family.GeomPoint, family.In, container.NewDataset())
	if err != nil {
		t.Fatal(err)
	}
	d2, _ := s.ValidateID(family.Dataset, id2, family.In, AnyInput)
	if d2.ActualFamily != family.Dataset {
		t.Fatalf("shelf should be cleared after use, got %v", d2.ActualFamily)
	}
}
