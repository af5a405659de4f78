// Package stats computes the display summary of a grid's valid cells.
package stats

import (
	"fmt"
	"math"
	"sort"

	"raster-export/internal/apperr"
	"raster-export/internal/raster"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds statistics over the non-NaN cells of a grid.
type Summary struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	P5    float64 `json:"p5"`
	P95   float64 `json:"p95"`
	Count int     `json:"count"`
}

// Compute summarises g. Std is the population standard deviation.
func Compute(g *raster.Grid) (Summary, error) {
	vals := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Summary{}, fmt.Errorf("%dx%d grid: %w", g.Rows, g.Cols, apperr.ErrAllInvalid)
	}

	mean, std := stat.PopMeanStdDev(vals, nil)
	if len(vals) == 1 {
		std = 0
	}
	sort.Float64s(vals)

	return Summary{
		Min:   floats.Min(vals),
		Max:   floats.Max(vals),
		Mean:  mean,
		Std:   std,
		P5:    Percentile(vals, 5),
		P95:   Percentile(vals, 95),
		Count: len(vals),
	}, nil
}

// Percentile returns the p-th percentile (0..100) of sorted, interpolating
// linearly between the two closest ranks. sorted must be ascending and
// non-empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	p = math.Max(0, math.Min(100, p))
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// String formats the summary the way the preview banner shows it.
func (s Summary) String() string {
	return fmt.Sprintf("Data Range: Min=%.4f | Max=%.4f | Mean=%.4f | StdDev=%.4f",
		s.Min, s.Max, s.Mean, s.Std)
}
