package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffineInverseRoundTrip(t *testing.T) {
	gt := AffineTransform{A: 30, TX: 500000, D: -30, TY: 4100000}
	inv, ok := gt.Inverse()
	assert.True(t, ok)

	p := Point2D{X: 12.5, Y: 7.5}
	back := inv.Apply(gt.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = AffineTransform{}.Inverse()
	assert.False(t, ok)
}

func TestComposeWithTranslation(t *testing.T) {
	gt := AffineTransform{A: 2, TX: 100, D: -2, TY: 50}
	shifted := gt.Compose(Translation(3, 4))
	assert.Equal(t, gt.Apply(Point2D{X: 3, Y: 4}), shifted.Apply(Point2D{}))
	assert.True(t, Identity().IsIdentity())
	assert.False(t, Scale(2, 2).IsIdentity())
}

func TestPointInRingsHonoursHoles(t *testing.T) {
	outer := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	hole := []Point2D{{4, 4}, {6, 4}, {6, 6}, {4, 6}}
	rings := [][]Point2D{outer, hole}

	assert.True(t, PointInRings(Point2D{X: 1, Y: 1}, rings))
	assert.False(t, PointInRings(Point2D{X: 5, Y: 5}, rings))
	assert.False(t, PointInRings(Point2D{X: 11, Y: 5}, rings))
	assert.False(t, PointInPolygon(Point2D{}, outer[:2]))
}

func TestBoundsIntersect(t *testing.T) {
	a := Bounds{RowMin: 0, RowMax: 9, ColMin: 0, ColMax: 9}
	b := Bounds{RowMin: 5, RowMax: 20, ColMin: -3, ColMax: 4}
	got := a.Intersect(b)
	assert.Equal(t, Bounds{RowMin: 5, RowMax: 9, ColMin: 0, ColMax: 4}, got)
	assert.Equal(t, 5, got.Rows())
	assert.Equal(t, 5, got.Cols())
	assert.False(t, got.Empty())

	far := Bounds{RowMin: 50, RowMax: 60, ColMin: 0, ColMax: 1}
	assert.True(t, a.Intersect(far).Empty())
}

func TestBoundingBox(t *testing.T) {
	r := BoundingBox([]Point2D{{3, 1}, {-2, 4}, {0, -5}})
	assert.Equal(t, Rect{X: -2, Y: -5, Width: 5, Height: 9}, r)
	assert.True(t, r.Contains(Point2D{X: 0, Y: 0}))
	assert.Equal(t, Rect{}, BoundingBox(nil))
}
