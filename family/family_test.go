package family

import "testing"

func TestCompatible(t *testing.T) {
	tests := []struct {
		family   Family
		geometry Geometry
		want     bool
	}{
		{Grid, GeomSurface, true},
		{Grid, GeomPoint, false},
		{Image, GeomSurface, true},
		{Image, GeomNone, false},
		{Dataset, GeomPoint, true},
		{Dataset, GeomPolygon, true},
		{Dataset, GeomSurface, false},
		{TextSet, GeomMixed, true},
		{Matrix, GeomNone, true},
		{Vector, GeomLine, true},
		{Palette, GeomNone, true},
		{Palette, GeomPoint, false},
		{Document, GeomNone, true},
		{NotSet, GeomNone, false},
	}
	for _, tt := range tests {
		if got := Compatible(tt.family, tt.geometry); got != tt.want {
			t.Errorf("Compatible(%v, %v) = %v, want %v", tt.family, tt.geometry, got, tt.want)
		}
	}
}

func TestMethodModifiers(t *testing.T) {
	m := MethodReference | ViaMatrix | Reset

	if m.Base() != MethodReference {
		t.Fatalf("Base() = %v, want reference", m.Base())
	}
	if !m.Via() {
		t.Fatal("expected Via() true with ViaMatrix set")
	}
	if !m.InMemory() {
		t.Fatal("reference method should be in-memory")
	}
	if MethodFile.InMemory() {
		t.Fatal("file method should not be in-memory")
	}
	if got := m.String(); got != "reference+via-matrix+reset" {
		t.Fatalf("String() = %q", got)
	}
}

func TestEnumNames(t *testing.T) {
	if Dataset.String() != "dataset" || Grid.String() != "grid" {
		t.Fatal("family names out of sync")
	}
	if GeomSurface.String() != "surface" {
		t.Fatal("geometry names out of sync")
	}
	if Used.String() != "used" {
		t.Fatal("status names out of sync")
	}
	if In.String() != "in" || Out.String() != "out" {
		t.Fatal("direction names out of sync")
	}
	if Family(200).String() != "invalid" {
		t.Fatal("out-of-range family should be invalid")
	}
}
