package clip

import (
	"errors"
	"math"
	"testing"

	"raster-export/internal/apperr"
	"raster-export/internal/raster"
	"raster-export/internal/vector"
	"raster-export/pkg/geometry"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampGrid(rows, cols int) *raster.Grid {
	g := raster.NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = float64(i)
	}
	return g
}

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}}
}

func TestClipCropsToPolygon(t *testing.T) {
	g := rampGrid(10, 10)
	layer := &vector.Layer{Polygons: []geom.Polygonal{square(2, 2, 6, 6)}}

	out, err := Clip(g, layer)
	require.NoError(t, err)
	require.Equal(t, 4, out.Rows)
	require.Equal(t, 4, out.Cols)
	assert.Equal(t, 16, out.ValidCount())
	assert.Equal(t, g.At(2, 2), out.At(0, 0))
	assert.Equal(t, g.At(5, 5), out.At(3, 3))

	// Input grid untouched.
	assert.Equal(t, 100, g.ValidCount())
}

func TestClipHonoursHoles(t *testing.T) {
	g := rampGrid(10, 10)
	poly := geom.Polygon{
		{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}, {X: 0, Y: 9}},
		{{X: 4, Y: 4}, {X: 5, Y: 4}, {X: 5, Y: 5}, {X: 4, Y: 5}},
	}
	out, err := Clip(g, &vector.Layer{Polygons: []geom.Polygonal{poly}})
	require.NoError(t, err)
	require.Equal(t, 9, out.Rows)
	assert.True(t, math.IsNaN(out.At(4, 4)))
	assert.Equal(t, 80, out.ValidCount())
}

func TestClipUnionOfPolygons(t *testing.T) {
	g := rampGrid(10, 10)
	layer := &vector.Layer{Polygons: []geom.Polygonal{square(0, 0, 2, 2), square(7, 7, 9, 9)}}

	out, err := Clip(g, layer)
	require.NoError(t, err)
	assert.Equal(t, 9, out.Rows)
	assert.Equal(t, 9, out.Cols)
	assert.Equal(t, 8, out.ValidCount())
	assert.True(t, math.IsNaN(out.At(4, 4)))
}

func TestClipUsesGeotransform(t *testing.T) {
	g := rampGrid(10, 10)
	g.Transform = geometry.AffineTransform{A: 10, TX: 1000, D: -10, TY: 2000}

	// World square covering pixel cols 1-2, rows 3-4.
	layer := &vector.Layer{Polygons: []geom.Polygonal{square(1010, 1950, 1030, 1970)}}
	out, err := Clip(g, layer)
	require.NoError(t, err)
	require.Equal(t, 2, out.Rows)
	require.Equal(t, 2, out.Cols)
	assert.Equal(t, g.At(3, 1), out.At(0, 0))
	assert.Equal(t, 4, out.ValidCount())
}

func TestClipEmpty(t *testing.T) {
	g := rampGrid(5, 5)
	_, err := Clip(g, &vector.Layer{Polygons: []geom.Polygonal{square(50, 50, 60, 60)}})
	assert.True(t, errors.Is(err, apperr.ErrEmptyClip))

	nan := raster.NewGrid(5, 5)
	for i := range nan.Data {
		nan.Data[i] = math.NaN()
	}
	_, err = Clip(nan, &vector.Layer{Polygons: []geom.Polygonal{square(0, 0, 5, 5)}})
	assert.True(t, errors.Is(err, apperr.ErrEmptyClip))

	_, err = Clip(g, &vector.Layer{})
	assert.True(t, errors.Is(err, apperr.ErrEmptyClip))
}

func TestClipCRSMismatch(t *testing.T) {
	sr, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	require.NoError(t, err)
	poly := []geom.Polygonal{square(0, 0, 5, 5)}

	g := rampGrid(5, 5)
	_, err = Clip(g, &vector.Layer{Polygons: poly, SR: sr})
	assert.True(t, errors.Is(err, apperr.ErrGeometryMismatch), "raster without CRS")

	g.CRS = "+proj=longlat +datum=WGS84 +no_defs"
	_, err = Clip(g, &vector.Layer{Polygons: poly})
	assert.True(t, errors.Is(err, apperr.ErrGeometryMismatch), "boundary without CRS")

	g.CRS = "not a projection"
	_, err = Clip(g, &vector.Layer{Polygons: poly, SR: sr})
	assert.True(t, errors.Is(err, apperr.ErrGeometryMismatch), "unparseable raster CRS")
}

func TestClipSameCRSSkipsReprojection(t *testing.T) {
	def := "+proj=longlat +datum=WGS84 +no_defs"
	sr, err := proj.Parse(def)
	require.NoError(t, err)

	g := rampGrid(5, 5)
	g.CRS = def
	out, err := Clip(g, &vector.Layer{Polygons: []geom.Polygonal{square(1, 1, 3, 3)}, SR: sr})
	require.NoError(t, err)
	assert.Equal(t, 4, out.ValidCount())
}

func TestClipSameEPSGWithoutProjDefinition(t *testing.T) {
	g := rampGrid(5, 5)
	g.EPSG = 2193
	g.CRS = raster.ProjFromEPSG(2193)

	out, err := Clip(g, &vector.Layer{Polygons: []geom.Polygonal{square(1, 1, 3, 3)}, EPSG: 2193})
	require.NoError(t, err)
	assert.Equal(t, 4, out.ValidCount())

	_, err = Clip(g, &vector.Layer{Polygons: []geom.Polygonal{square(1, 1, 3, 3)}, EPSG: 2154})
	assert.True(t, errors.Is(err, apperr.ErrGeometryMismatch), "different code, nothing to reproject with")
}

func TestClipLambert93(t *testing.T) {
	sr, err := proj.Parse(raster.ProjFromEPSG(2154))
	require.NoError(t, err)

	g := rampGrid(10, 10)
	g.EPSG = 2154
	g.CRS = raster.ProjFromEPSG(2154)
	g.Transform = geometry.AffineTransform{A: 10, TX: 650000, D: -10, TY: 6860000}

	// Boundary from a .prj without an AUTHORITY code.
	layer := &vector.Layer{Polygons: []geom.Polygonal{square(650020, 6859940, 650060, 6859980)}, SR: sr}
	out, err := Clip(g, layer)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Rows)
	assert.Equal(t, 4, out.Cols)
	assert.Equal(t, 16, out.ValidCount())
	assert.Equal(t, g.At(2, 2), out.At(0, 0))
}
