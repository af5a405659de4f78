package roi

import (
	"image"

	"raster-export/internal/raster"
	"raster-export/pkg/geometry"
)

// Labels assigns a component id to every cell; 0 is background and
// components are numbered from 1 in row-major order of their first cell.
type Labels struct {
	Rows  int
	Cols  int
	Data  []int
	Count int
	Sizes []int // Sizes[id] is the pixel count of component id; Sizes[0] is unused.
}

// At returns the label at row r, column c.
func (l *Labels) At(r, c int) int { return l.Data[r*l.Cols+c] }

func neighbours(connectivity int) []image.Point {
	four := []image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	if connectivity == 8 {
		return append(four, image.Point{X: 1, Y: 1}, image.Point{X: 1, Y: -1},
			image.Point{X: -1, Y: 1}, image.Point{X: -1, Y: -1})
	}
	return four
}

// Label finds the connected components of the true cells of m.
// connectivity is 4 or 8; any other value is treated as 4.
func Label(m *raster.Mask, connectivity int) *Labels {
	l := &Labels{Rows: m.Rows, Cols: m.Cols, Data: make([]int, len(m.Data)), Sizes: []int{0}}
	steps := neighbours(connectivity)

	var stack []image.Point
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if !m.At(r, c) || l.At(r, c) != 0 {
				continue
			}

			l.Count++
			id := l.Count
			size := 0
			l.Data[r*l.Cols+c] = id
			stack = append(stack[:0], image.Point{X: c, Y: r})

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				size++

				for _, d := range steps {
					x, y := p.X+d.X, p.Y+d.Y
					if x < 0 || x >= m.Cols || y < 0 || y >= m.Rows {
						continue
					}
					idx := y*l.Cols + x
					if !m.Data[idx] || l.Data[idx] != 0 {
						continue
					}
					l.Data[idx] = id
					stack = append(stack, image.Point{X: x, Y: y})
				}
			}
			l.Sizes = append(l.Sizes, size)
		}
	}
	return l
}

// Largest returns the id of the biggest component. Ties go to the lowest
// id. It returns 0 when there are no components.
func Largest(l *Labels) int {
	best := 0
	for id := 1; id <= l.Count; id++ {
		if best == 0 || l.Sizes[id] > l.Sizes[best] {
			best = id
		}
	}
	return best
}

// Select returns a mask of the cells carrying label id.
func Select(l *Labels, id int) *raster.Mask {
	m := raster.NewMask(l.Rows, l.Cols)
	for i, v := range l.Data {
		m.Data[i] = v == id
	}
	return m
}

// FillHoles marks as valid every invalid cell that cannot reach the grid
// border through other invalid cells (4-connected). Gaps open to the outside
// stay invalid.
func FillHoles(m *raster.Mask) *raster.Mask {
	outside := make([]bool, len(m.Data))
	var stack []image.Point
	push := func(x, y int) {
		idx := y*m.Cols + x
		if m.Data[idx] || outside[idx] {
			return
		}
		outside[idx] = true
		stack = append(stack, image.Point{X: x, Y: y})
	}

	for c := 0; c < m.Cols; c++ {
		push(c, 0)
		push(c, m.Rows-1)
	}
	for r := 0; r < m.Rows; r++ {
		push(0, r)
		push(m.Cols-1, r)
	}

	steps := neighbours(4)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range steps {
			x, y := p.X+d.X, p.Y+d.Y
			if x < 0 || x >= m.Cols || y < 0 || y >= m.Rows {
				continue
			}
			push(x, y)
		}
	}

	out := raster.NewMask(m.Rows, m.Cols)
	for i := range out.Data {
		out.Data[i] = m.Data[i] || !outside[i]
	}
	return out
}

// Bounds returns the inclusive bounds of the true cells of m and false
// if there are none.
func Bounds(m *raster.Mask) (geometry.Bounds, bool) {
	b := geometry.Bounds{RowMin: m.Rows, RowMax: -1, ColMin: m.Cols, ColMax: -1}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if !m.At(r, c) {
				continue
			}
			b.RowMin = min(b.RowMin, r)
			b.RowMax = max(b.RowMax, r)
			b.ColMin = min(b.ColMin, c)
			b.ColMax = max(b.ColMax, c)
		}
	}
	return b, !b.Empty()
}
