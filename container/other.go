package container

// Grid is a gridded surface: a header plus a dense float32 block. The
// broker only moves grids around; interpreting the values is the grid
// codec's business.
type Grid struct {
	Alloc `cbor:"-" yaml:"-"`
	NX    int
	NY    int
	WESN  [4]float64
	Inc   [2]float64
	Title string
	Data  []float32
}

// Image is a raster with one or more bands of 8-bit samples.
type Image struct {
	Alloc `cbor:"-" yaml:"-"`
	NX    int
	NY    int
	Bands int
	Data  []uint8
}

// PaletteEntry maps one z-range to a color ramp.
type PaletteEntry struct {
	ZLow    float64
	ZHigh   float64
	RGBLow  [3]uint8
	RGBHigh [3]uint8
}

// Palette is an ordered color lookup table.
type Palette struct {
	Alloc   `cbor:"-" yaml:"-"`
	Entries []PaletteEntry
}

// Document is an opaque text document (typically PostScript) moved
// through the broker without interpretation.
type Document struct {
	Alloc `cbor:"-" yaml:"-"`
	Text  string
}
