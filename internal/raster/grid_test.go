package raster

import (
	"math"
	"testing"

	"raster-export/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskNoDataInPlace(t *testing.T) {
	g, err := FromRows([][]float64{
		{-9999, 1, 2},
		{3, -9999, 5},
	})
	require.NoError(t, err)

	n := g.MaskNoData(-9999)
	assert.Equal(t, 2, n)
	assert.True(t, math.IsNaN(g.At(0, 0)))
	assert.True(t, math.IsNaN(g.At(1, 1)))
	assert.Equal(t, 4, g.ValidCount())

	assert.Equal(t, 0, g.MaskNoData(math.NaN()))
}

func TestFromRowsRejectsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	g, err := FromRows(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Rows)
}

func TestCropKeepsWorldCoordinates(t *testing.T) {
	g := NewGrid(4, 5)
	for i := range g.Data {
		g.Data[i] = float64(i)
	}
	g.Transform = geometry.AffineTransform{A: 10, TX: 1000, D: -10, TY: 2000}
	g.CRS = "+proj=longlat +datum=WGS84 +no_defs"

	b := geometry.Bounds{RowMin: 1, RowMax: 2, ColMin: 2, ColMax: 4}
	out := g.Crop(b)

	require.Equal(t, 2, out.Rows)
	require.Equal(t, 3, out.Cols)
	assert.Equal(t, []float64{7, 8, 9, 12, 13, 14}, out.Data)
	assert.Equal(t, g.CRS, out.CRS)
	assert.Equal(t,
		g.Transform.Apply(geometry.Point2D{X: 2, Y: 1}),
		out.Transform.Apply(geometry.Point2D{}))

	// Source untouched.
	assert.Equal(t, 0.0, g.At(0, 0))
}

func TestMaskHelpers(t *testing.T) {
	m := MaskFromRows(
		"#..",
		".##",
	)
	assert.Equal(t, 3, m.Count())
	assert.Equal(t, "#..\n.##\n", m.String())

	c := m.Crop(geometry.Bounds{RowMin: 1, RowMax: 1, ColMin: 1, ColMax: 2})
	assert.Equal(t, "##\n", c.String())

	clone := m.Clone()
	clone.Set(0, 0, false)
	assert.True(t, m.At(0, 0))
}

func TestMemSourceReturnsCopies(t *testing.T) {
	g, err := FromRows([][]float64{{1, 0}})
	require.NoError(t, err)
	src := &MemSource{Band: Band{Grid: g, NoData: 0, HasNoData: true}}

	b, err := src.ReadBand()
	require.NoError(t, err)
	b.Grid.MaskNoData(b.NoData)

	assert.Equal(t, 0.0, g.At(0, 1))
	assert.True(t, math.IsNaN(b.Grid.At(0, 1)))
}
