package container

import "math"

// Layout selects the memory order of a Matrix.
type Layout uint8

const (
	RowMajor Layout = iota
	ColMajor
)

// String returns "row-major" or "col-major".
func (l Layout) String() string {
	if l == ColMajor {
		return "col-major"
	}
	return "row-major"
}

// Matrix is a dense numeric block that can masquerade as tabular data
// (one record per matrix row). GapTest, when non-nil, is consulted by
// the record engine between consecutive rows; returning true inserts a
// synthetic segment boundary before the current row.
type Matrix struct {
	Alloc   `cbor:"-" yaml:"-"`
	NRows   int
	NCols   int
	Layout  Layout
	Data    []float64
	GapTest func(prev, cur []float64) bool `cbor:"-" yaml:"-"`
}

// NewMatrix returns a zeroed row-major matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{NRows: rows, NCols: cols, Data: make([]float64, rows*cols)}
}

// At returns element (r, c) honoring the layout.
func (m *Matrix) At(r, c int) float64 {
	if m.Layout == ColMajor {
		return m.Data[c*m.NRows+r]
	}
	return m.Data[r*m.NCols+c]
}

// Set stores element (r, c) honoring the layout.
func (m *Matrix) Set(r, c int, v float64) {
	if m.Layout == ColMajor {
		m.Data[c*m.NRows+r] = v
	} else {
		m.Data[r*m.NCols+c] = v
	}
}

// Row copies row r into dst, which must have length NCols.
func (m *Matrix) Row(r int, dst []float64) {
	if m.Layout == RowMajor {
		copy(dst, m.Data[r*m.NCols:(r+1)*m.NCols])
		return
	}
	for c := 0; c < m.NCols; c++ {
		dst[c] = m.Data[c*m.NRows+r]
	}
}

// SetRow stores src as row r.
func (m *Matrix) SetRow(r int, src []float64) {
	if m.Layout == RowMajor {
		copy(m.Data[r*m.NCols:(r+1)*m.NCols], src)
		return
	}
	for c := 0; c < m.NCols; c++ {
		m.Data[c*m.NRows+r] = src[c]
	}
}

// FillRowNaN writes NaN across row r. Used when a segment header must
// be materialized as a data row in a headerless container.
func (m *Matrix) FillRowNaN(r int) {
	for c := 0; c < m.NCols; c++ {
		m.Set(r, c, math.NaN())
	}
}

// Transpose returns a new matrix with the opposite layout and the same
// logical content. Ownership bookkeeping and the gap predicate carry
// over, so a transposed payload stays accountable to the GC.
func (m *Matrix) Transpose() *Matrix {
	out := &Matrix{
		Alloc:   m.Alloc,
		NRows:   m.NRows,
		NCols:   m.NCols,
		Data:    make([]float64, len(m.Data)),
		GapTest: m.GapTest,
	}
	if m.Layout == RowMajor {
		out.Layout = ColMajor
	} else {
		out.Layout = RowMajor
	}
	for r := 0; r < m.NRows; r++ {
		for c := 0; c < m.NCols; c++ {
			out.Set(r, c, m.At(r, c))
		}
	}
	return out
}

// Vector is a set of same-length column arrays that can masquerade as
// tabular data (one record per index). Columns[c][i] is column c of
// record i.
type Vector struct {
	Alloc   `cbor:"-" yaml:"-"`
	NRows   int
	Columns [][]float64
	GapTest func(prev, cur []float64) bool `cbor:"-" yaml:"-"`
}

// NewVector returns a zeroed vector set.
func NewVector(rows, cols int) *Vector {
	v := &Vector{NRows: rows, Columns: make([][]float64, cols)}
	for c := range v.Columns {
		v.Columns[c] = make([]float64, rows)
	}
	return v
}

// NCols returns the number of columns.
func (v *Vector) NCols() int {
	return len(v.Columns)
}

// Row copies record r into dst, which must have length NCols().
func (v *Vector) Row(r int, dst []float64) {
	for c := range v.Columns {
		dst[c] = v.Columns[c][r]
	}
}

// SetRow stores src as record r.
func (v *Vector) SetRow(r int, src []float64) {
	for c := range v.Columns {
		v.Columns[c][r] = src[c]
	}
}
