// Package roi isolates the single largest connected block of valid cells in
// a raster and crops the raster to it.
package roi

import (
	"fmt"
	"math"

	"raster-export/internal/apperr"
	"raster-export/internal/monitoring"
	"raster-export/internal/raster"
	"raster-export/pkg/geometry"
)

// Options controls detection.
type Options struct {
	Iterations   int // erosion and dilation passes
	Connectivity int // 4 or 8
}

// DefaultOptions returns two morphology passes and 4-connectivity.
func DefaultOptions() Options {
	return Options{Iterations: 2, Connectivity: 4}
}

// Region describes the selected component.
type Region struct {
	Label  int
	Pixels int
	Bounds geometry.Bounds
}

// Result is a cropped grid with cells outside the region set to NaN.
type Result struct {
	Grid   *raster.Grid
	Mask   *raster.Mask
	Region Region
}

// BuildMask marks every non-NaN cell as valid.
func BuildMask(g *raster.Grid) *raster.Mask {
	m := raster.NewMask(g.Rows, g.Cols)
	for i, v := range g.Data {
		m.Data[i] = !math.IsNaN(v)
	}
	return m
}

// ApplyMask returns a copy of g with cells outside m set to NaN.
func ApplyMask(g *raster.Grid, m *raster.Mask) *raster.Grid {
	out := g.Clone()
	for i, ok := range m.Data {
		if !ok {
			out.Data[i] = math.NaN()
		}
	}
	return out
}

// Detect runs the full pipeline: mask, erode, dilate, label, keep the
// largest component, fill its holes, then crop.
func Detect(g *raster.Grid, opts Options) (*Result, error) {
	mask := BuildMask(g)

	if mask.Count() == len(mask.Data) && len(mask.Data) > 0 {
		return &Result{
			Grid:   g.Clone(),
			Mask:   mask,
			Region: Region{Label: 1, Pixels: len(mask.Data), Bounds: g.Extent()},
		}, nil
	}

	eroded, err := Erode(mask, opts.Iterations)
	if err != nil {
		return nil, err
	}
	opened, err := Dilate(eroded, opts.Iterations)
	if err != nil {
		return nil, err
	}

	labels := Label(opened, opts.Connectivity)
	id := Largest(labels)
	if id == 0 {
		return nil, fmt.Errorf("%dx%d grid with %d valid cells: %w",
			g.Rows, g.Cols, mask.Count(), apperr.ErrNoRegionDetected)
	}

	region := FillHoles(Select(labels, id))
	b, _ := Bounds(region)

	cropMask := region.Crop(b)
	out := ApplyMask(g.Crop(b), cropMask)

	monitoring.Logf("roi: label %d of %d, %d px, rows %d-%d cols %d-%d",
		id, labels.Count, labels.Sizes[id], b.RowMin, b.RowMax, b.ColMin, b.ColMax)

	return &Result{
		Grid: out,
		Mask: cropMask,
		Region: Region{
			Label:  id,
			Pixels: labels.Sizes[id],
			Bounds: b,
		},
	}, nil
}
