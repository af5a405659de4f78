// Package clip masks and crops a raster to a polygon boundary.
package clip

import (
	"fmt"
	"math"

	"raster-export/internal/apperr"
	"raster-export/internal/monitoring"
	"raster-export/internal/raster"
	"raster-export/internal/vector"
	"raster-export/pkg/geometry"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Clip returns a new grid cropped to the pixel window covered by the union
// of the layer's polygons. Cells whose centre lies outside every polygon are
// invalid. g should already have nodata mapped to NaN; it is not modified.
func Clip(g *raster.Grid, layer *vector.Layer) (*raster.Grid, error) {
	polys, err := alignCRS(g, layer)
	if err != nil {
		return nil, err
	}

	inv, ok := g.Transform.Inverse()
	if !ok {
		return nil, fmt.Errorf("raster geotransform is not invertible: %w", apperr.ErrGeometryMismatch)
	}

	// Every polygon as rings in source pixel coordinates.
	var shapes [][][]geometry.Point2D
	var all []geometry.Point2D
	for _, p := range polys {
		for _, poly := range p.Polygons() {
			rings := make([][]geometry.Point2D, 0, len(poly))
			for _, path := range poly {
				ring := make([]geometry.Point2D, len(path))
				for i, pt := range path {
					ring[i] = inv.Apply(geometry.Point2D{X: pt.X, Y: pt.Y})
				}
				rings = append(rings, ring)
				all = append(all, ring...)
			}
			shapes = append(shapes, rings)
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("boundary has no vertices: %w", apperr.ErrEmptyClip)
	}

	box := geometry.BoundingBox(all)
	window := geometry.Bounds{
		RowMin: int(math.Floor(box.Y)),
		RowMax: int(math.Ceil(box.Y+box.Height)) - 1,
		ColMin: int(math.Floor(box.X)),
		ColMax: int(math.Ceil(box.X+box.Width)) - 1,
	}.Intersect(g.Extent())
	if window.Empty() {
		return nil, fmt.Errorf("boundary does not overlap raster: %w", apperr.ErrEmptyClip)
	}

	out := g.Crop(window)
	covered := 0
	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			centre := geometry.Point2D{
				X: float64(window.ColMin+c) + 0.5,
				Y: float64(window.RowMin+r) + 0.5,
			}
			inside := false
			for _, rings := range shapes {
				if geometry.PointInRings(centre, rings) {
					inside = true
					break
				}
			}
			if !inside {
				out.Set(r, c, math.NaN())
			} else if out.Valid(r, c) {
				covered++
			}
		}
	}
	if covered == 0 {
		return nil, fmt.Errorf("no valid cells inside boundary: %w", apperr.ErrEmptyClip)
	}

	monitoring.Logf("clip: window rows %d-%d cols %d-%d, %d covered cells",
		window.RowMin, window.RowMax, window.ColMin, window.ColMax, covered)
	return out, nil
}

// alignCRS returns the layer's polygons expressed in the raster CRS.
// Matching EPSG codes count as the same CRS even when the code has no
// known proj4 definition.
func alignCRS(g *raster.Grid, layer *vector.Layer) ([]geom.Polygonal, error) {
	rasterKnown := g.CRS != "" || g.EPSG != 0
	layerKnown := layer.SR != nil || layer.EPSG != 0
	switch {
	case !rasterKnown && !layerKnown:
		return layer.Polygons, nil
	case !rasterKnown:
		return nil, fmt.Errorf("raster has no CRS but boundary does: %w", apperr.ErrGeometryMismatch)
	case !layerKnown:
		return nil, fmt.Errorf("boundary has no CRS but raster does: %w", apperr.ErrGeometryMismatch)
	case g.EPSG != 0 && g.EPSG == layer.EPSG:
		return layer.Polygons, nil
	case layer.SR == nil:
		return nil, fmt.Errorf("boundary CRS EPSG:%d cannot be reprojected: %w", layer.EPSG, apperr.ErrGeometryMismatch)
	}

	dst, err := proj.Parse(g.CRS)
	if err != nil {
		return nil, fmt.Errorf("parse raster CRS %q: %v: %w", g.CRS, err, apperr.ErrGeometryMismatch)
	}
	trans, err := newTransform(layer.SR, dst)
	if err != nil {
		return nil, fmt.Errorf("build CRS transform: %v: %w", err, apperr.ErrGeometryMismatch)
	}
	if trans == nil {
		// proj reports equal references with a nil transform.
		return layer.Polygons, nil
	}

	out := make([]geom.Polygonal, 0, len(layer.Polygons))
	for i, p := range layer.Polygons {
		moved, err := p.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("reproject polygon %d: %v: %w", i, err, apperr.ErrGeometryMismatch)
		}
		pg, ok := moved.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("reprojected geometry %d is %T: %w", i, moved, apperr.ErrGeometryMismatch)
		}
		out = append(out, pg)
	}
	monitoring.Logf("clip: reprojected %d polygons to raster CRS", len(out))
	return out, nil
}

// newTransform wraps SR.NewTransform, whose equality check panics when
// the two references carry a different number of datum parameters.
func newTransform(src, dst *proj.SR) (t proj.Transformer, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("compare references: %v", r)
		}
	}()
	return src.NewTransform(dst)
}
