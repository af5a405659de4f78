// Package raster provides the single-band grid model and raster readers.
package raster

import (
	"fmt"
	"math"

	"raster-export/pkg/geometry"
)

// Grid is a single band of float samples stored row-major. NaN marks an
// invalid cell.
type Grid struct {
	Rows int
	Cols int
	Data []float64

	// Transform maps (col, row) pixel coordinates to world coordinates.
	Transform geometry.AffineTransform
	// CRS is a proj4 or WKT definition; empty when unknown.
	CRS string
	// EPSG is the authority code the CRS came from, 0 when unknown.
	EPSG int
}

// NewGrid creates a zero-filled grid with an identity transform.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows:      rows,
		Cols:      cols,
		Data:      make([]float64, rows*cols),
		Transform: geometry.Identity(),
	}
}

// FromRows builds a grid from a slice of equal-length rows.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	g := NewGrid(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", r, len(row), g.Cols)
		}
		copy(g.Data[r*g.Cols:], row)
	}
	return g, nil
}

// At returns the sample at row r, column c.
func (g *Grid) At(r, c int) float64 { return g.Data[r*g.Cols+c] }

// Set stores v at row r, column c.
func (g *Grid) Set(r, c int, v float64) { g.Data[r*g.Cols+c] = v }

// Valid reports whether the cell holds a usable sample.
func (g *Grid) Valid(r, c int) bool { return !math.IsNaN(g.At(r, c)) }

// Extent returns the inclusive window covering the whole grid.
func (g *Grid) Extent() geometry.Bounds {
	return geometry.Bounds{RowMin: 0, RowMax: g.Rows - 1, ColMin: 0, ColMax: g.Cols - 1}
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = make([]float64, len(g.Data))
	copy(out.Data, g.Data)
	return &out
}

// MaskNoData replaces every sample equal to nodata with NaN in place and
// returns how many cells were masked. This is the one in-place mutation
// allowed on a grid, immediately after it is read.
func (g *Grid) MaskNoData(nodata float64) int {
	if math.IsNaN(nodata) {
		return 0
	}
	n := 0
	for i, v := range g.Data {
		if v == nodata {
			g.Data[i] = math.NaN()
			n++
		}
	}
	return n
}

// ValidCount returns the number of non-NaN cells.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Crop returns a new grid holding the inclusive window b. The geotransform
// is shifted so world coordinates of the kept cells are unchanged.
func (g *Grid) Crop(b geometry.Bounds) *Grid {
	out := NewGrid(b.Rows(), b.Cols())
	for r := 0; r < out.Rows; r++ {
		src := (b.RowMin+r)*g.Cols + b.ColMin
		copy(out.Data[r*out.Cols:(r+1)*out.Cols], g.Data[src:src+out.Cols])
	}
	out.Transform = g.Transform.Compose(geometry.Translation(float64(b.ColMin), float64(b.RowMin)))
	out.CRS = g.CRS
	out.EPSG = g.EPSG
	return out
}

// Mask is a boolean grid; true marks a usable cell.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

// NewMask creates an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
}

// MaskFromRows builds a mask from strings where '#' marks true; any other
// rune marks false. Handy for writing fixtures.
func MaskFromRows(rows ...string) *Mask {
	if len(rows) == 0 {
		return NewMask(0, 0)
	}
	m := NewMask(len(rows), len(rows[0]))
	for r, row := range rows {
		for c, ch := range row {
			if c < m.Cols {
				m.Set(r, c, ch == '#')
			}
		}
	}
	return m
}

// At returns the value at row r, column c.
func (m *Mask) At(r, c int) bool { return m.Data[r*m.Cols+c] }

// Set stores v at row r, column c.
func (m *Mask) Set(r, c int, v bool) { m.Data[r*m.Cols+c] = v }

// Count returns the number of true cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// Crop returns a new mask holding the inclusive window b.
func (m *Mask) Crop(b geometry.Bounds) *Mask {
	out := NewMask(b.Rows(), b.Cols())
	for r := 0; r < out.Rows; r++ {
		src := (b.RowMin+r)*m.Cols + b.ColMin
		copy(out.Data[r*out.Cols:(r+1)*out.Cols], m.Data[src:src+out.Cols])
	}
	return out
}

// String renders the mask with '#' for true and '.' for false.
func (m *Mask) String() string {
	buf := make([]byte, 0, m.Rows*(m.Cols+1))
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.At(r, c) {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
