package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeBoundingBox(t *testing.T) {
	t.Parallel()

	_, ok := ComputeBoundingBox(nil)
	require.False(t, ok)

	points := []Point{{X: 5, Y: 9}, {X: -3, Y: 2}, {X: 7, Y: -1}, {X: 0, Y: 0}}
	box, ok := ComputeBoundingBox(points)
	require.True(t, ok)
	require.Equal(t, BBox{MinX: -3, MinY: -1, MaxX: 7, MaxY: 9}, box)
	for _, p := range points {
		require.True(t, box.Contains(p))
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	box := Normalize(Point{X: 10, Y: 2}, Point{X: 1, Y: 8})
	require.Equal(t, BBox{MinX: 1, MinY: 2, MaxX: 10, MaxY: 8}, box)
}

func TestContainsPointCenterUnderAnyTransform(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: 10, MinY: 20, MaxX: 110, MaxY: 60}
	for deg := 0; deg < 360; deg += 15 {
		for _, scale := range []float64{0, 0.1, 1, 2.5} {
			tr := Transform{X: 40, Y: -15, Rotation: float64(deg) * math.Pi / 180, Scale: scale}
			c := TransformedCenter(box, tr)
			require.True(t, ContainsPoint(box, tr, c.X, c.Y), "deg=%d scale=%v", deg, scale)
		}
	}
}

func TestContainsPointFarOutsideUnderAnyRotation(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 40}
	for deg := 0; deg < 360; deg += 10 {
		tr := Transform{Rotation: float64(deg) * math.Pi / 180, Scale: 1}
		// Farther than the half diagonal plus tolerance.
		require.False(t, ContainsPoint(box, tr, 50+200, 20), "deg=%d", deg)
		require.False(t, ContainsPoint(box, tr, 50, 20-200), "deg=%d", deg)
	}
}

func TestContainsPointRotation(t *testing.T) {
	t.Parallel()

	// A wide, short box rotated by 90 degrees becomes tall and narrow.
	box := BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 10}
	tr := Transform{Rotation: math.Pi / 2, Scale: 1}

	require.True(t, ContainsPoint(box, tr, 50, 5+45))
	require.False(t, ContainsPoint(box, tr, 50+45, 5))
}

func TestContainsPointTolerance(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	require.True(t, ContainsPoint(box, Identity(), 10+HitTolerance-0.5, 5))
	require.False(t, ContainsPoint(box, Identity(), 10+HitTolerance+0.5, 5))
}

func TestNearHandle(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 50}
	tr := Identity()

	require.True(t, NearHandle(box, tr, 50, -RotateHandleOffset, HandleRotate))
	require.False(t, NearHandle(box, tr, 50, 25, HandleRotate))
	require.True(t, NearHandle(box, tr, 103, 52, HandleResize))
	require.False(t, NearHandle(box, tr, 0, 0, HandleResize))

	// Translating the element moves its handles with it.
	tr.X, tr.Y = 200, 100
	require.True(t, NearHandle(box, tr, 300, 150, HandleResize))
	require.False(t, NearHandle(box, tr, 100, 50, HandleResize))
}

func TestNearHandleRotated(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	// Rotated 90 degrees clockwise, the top handle points to the right.
	tr := Transform{Rotation: math.Pi / 2, Scale: 1}
	require.True(t, NearHandle(box, tr, 50+50+RotateHandleOffset, 50, HandleRotate))
}

func TestTransformRoundTrip(t *testing.T) {
	t.Parallel()

	box := BBox{MinX: -20, MinY: 5, MaxX: 30, MaxY: 45}
	tr := Transform{X: 12, Y: -7, Rotation: 0.7, Scale: 1.8}
	p := Point{X: 3, Y: 17}

	back := InversePoint(box, tr, TransformPoint(box, tr, p))
	require.InDelta(t, p.X, back.X, 1e-9)
	require.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestClampScale(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.1, ClampScale(0, 0.1))
	require.Equal(t, 0.1, ClampScale(-3, 0.1))
	require.Equal(t, 0.1, ClampScale(math.NaN(), 0.1))
	require.Equal(t, 2.0, ClampScale(2, 0.1))
}
