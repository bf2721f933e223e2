package family

// Family identifies the kind of data a resource carries.
type Family uint8

const (
	NotSet Family = iota
	Dataset
	TextSet
	Grid
	Image
	Palette
	Document
	Matrix
	Vector
	Coord
)

var familyNames = [...]string{
	NotSet:   "not-set",
	Dataset:  "dataset",
	TextSet:  "textset",
	Grid:     "grid",
	Image:    "image",
	Palette:  "palette",
	Document: "document",
	Matrix:   "matrix",
	Vector:   "vector",
	Coord:    "coord",
}

// String returns the family's name.
func (f Family) String() string {
	if int(f) >= len(familyNames) {
		return "invalid"
	}
	return familyNames[f]
}

// Valid reports whether f names a real family.
func (f Family) Valid() bool {
	return f > NotSet && f <= Coord
}

// Geometry is the topological shape a resource's content may have.
type Geometry uint8

const (
	GeomNone Geometry = iota
	GeomPoint
	GeomLine
	GeomPolygon
	GeomMixed // point, line and polygon content intermixed
	GeomSurface
)

var geometryNames = [...]string{
	GeomNone:    "none",
	GeomPoint:   "point",
	GeomLine:    "line",
	GeomPolygon: "polygon",
	GeomMixed:   "mixed",
	GeomSurface: "surface",
}

// String returns the geometry's name.
func (g Geometry) String() string {
	if int(g) >= len(geometryNames) {
		return "invalid"
	}
	return geometryNames[g]
}

// Compatible reports whether geometry g may describe content of family f.
// Tabular families take any planar geometry; gridded families require a
// surface; everything else carries no geometry at all.
func Compatible(f Family, g Geometry) bool {
	switch f {
	case Dataset, TextSet, Matrix, Vector, Coord:
		return g == GeomNone || g == GeomPoint || g == GeomLine ||
			g == GeomPolygon || g == GeomMixed
	case Grid, Image:
		return g == GeomSurface
	case Palette, Document:
		return g == GeomNone
	default:
		return false
	}
}

// Direction selects the transfer side of a resource.
type Direction uint8

const (
	In Direction = iota
	Out
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Status tracks how far a resource has moved through one I/O pass.
// It only advances; an explicit reset is the sole path backward.
type Status uint8

const (
	Unused Status = iota
	Using
	Used
)

var statusNames = [...]string{
	Unused: "unused",
	Using:  "using",
	Used:   "used",
}

// String returns the status name.
func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return "invalid"
	}
	return statusNames[s]
}
