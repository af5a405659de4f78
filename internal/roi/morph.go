package roi

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"raster-export/internal/raster"

	"gocv.io/x/gocv"
)

// Erode shrinks the valid area of m by iterations passes of a 3x3 cross.
// Cells outside the grid count as invalid, so valid cells on the edge are
// eroded too.
func Erode(m *raster.Mask, iterations int) (*raster.Mask, error) {
	return morph(m, iterations, gocv.Erode)
}

// Dilate grows the valid area of m by iterations passes of a 3x3 cross.
// Cells outside the grid count as invalid.
func Dilate(m *raster.Mask, iterations int) (*raster.Mask, error) {
	return morph(m, iterations, gocv.Dilate)
}

func morph(m *raster.Mask, iterations int, op func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat)) (*raster.Mask, error) {
	if iterations <= 0 || m.Rows == 0 || m.Cols == 0 {
		return m.Clone(), nil
	}

	buf := make([]byte, len(m.Data))
	for i, v := range m.Data {
		if v {
			buf[i] = 1
		}
	}

	mat, err := gocv.NewMatFromBytes(m.Rows, m.Cols, gocv.MatTypeCV8U, buf)
	if err != nil {
		return nil, fmt.Errorf("mask to mat: %w", err)
	}
	defer mat.Close()

	// One ring of invalid cells stands in for the outside of the grid.
	// Erosion never sets it and dilated cells in it are cropped away.
	src := gocv.NewMat()
	defer src.Close()
	gocv.CopyMakeBorder(mat, &src, 1, 1, 1, 1, gocv.BorderConstant, color.RGBA{})

	dst := gocv.NewMat()
	defer dst.Close()

	element := gocv.GetStructuringElement(gocv.MorphCross, image.Point{3, 3})
	defer element.Close()

	for i := 0; i < iterations; i++ {
		op(src, &dst, element)
		dst.CopyTo(&src)
		clearBorder(&src)
	}

	out := raster.NewMask(m.Rows, m.Cols)
	padded := src.ToBytes()
	stride := m.Cols + 2
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			out.Set(r, c, padded[(r+1)*stride+c+1] != 0)
		}
	}
	// The mat may borrow buf rather than copy it.
	runtime.KeepAlive(buf)
	return out, nil
}

// clearBorder resets the padding ring to invalid between passes.
func clearBorder(m *gocv.Mat) {
	rows, cols := m.Rows(), m.Cols()
	for c := 0; c < cols; c++ {
		m.SetUCharAt(0, c, 0)
		m.SetUCharAt(rows-1, c, 0)
	}
	for r := 0; r < rows; r++ {
		m.SetUCharAt(r, 0, 0)
		m.SetUCharAt(r, cols-1, 0)
	}
}
