// Package geometry holds the pure math behind the whiteboard: bounding boxes,
// element transforms and the hit tests used by the select tool.
//
// Every element is stored in local coordinates with an axis aligned bounding
// box. A Transform is applied about the center of that box: scale first, then
// rotation, then translation.
package geometry

import "math"

const (
	// HitTolerance expands bounding boxes so thin strokes stay pickable.
	HitTolerance = 6.0

	// HandleRadius is the pick radius, in canvas pixels, for transform handles.
	HandleRadius = 10.0

	// RotateHandleOffset is how far above the top edge the rotate handle sits.
	RotateHandleOffset = 24.0

	// ScaleEpsilon is the smallest scale used when inverting a transform.
	ScaleEpsilon = 0.01
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis aligned bounding box. Min is never greater than Max.
type BBox struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Transform places an element on the canvas relative to its bbox center.
// Rotation is in radians.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// Identity is the transform every element starts with.
func Identity() Transform {
	return Transform{Scale: 1}
}

// HandleKind selects which transform handle NearHandle tests.
type HandleKind string

const (
	HandleRotate HandleKind = "rotate"
	HandleResize HandleKind = "resize"
)

// ComputeBoundingBox reduces points to their min/max box. ok is false for an
// empty input.
func ComputeBoundingBox(points []Point) (box BBox, ok bool) {
	if len(points) == 0 {
		return BBox{}, false
	}
	box = BBox{
		MinX: points[0].X, MinY: points[0].Y,
		MaxX: points[0].X, MaxY: points[0].Y,
	}
	for _, p := range points[1:] {
		box.MinX = math.Min(box.MinX, p.X)
		box.MinY = math.Min(box.MinY, p.Y)
		box.MaxX = math.Max(box.MaxX, p.X)
		box.MaxY = math.Max(box.MaxY, p.Y)
	}
	return box, true
}

// Normalize returns the box spanned by two opposite corners in any order.
func Normalize(a, b Point) BBox {
	return BBox{
		MinX: math.Min(a.X, b.X),
		MinY: math.Min(a.Y, b.Y),
		MaxX: math.Max(a.X, b.X),
		MaxY: math.Max(a.Y, b.Y),
	}
}

// Width of the box.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height of the box.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Center returns the untransformed center of the box.
func (b BBox) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Expand grows the box by margin on every side.
func (b BBox) Expand(margin float64) BBox {
	return BBox{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Distance is the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ClampScale keeps s at or above min. Non-finite values collapse to min.
func ClampScale(s, min float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < min {
		return min
	}
	return s
}

// TransformedCenter is where the bbox center lands on the canvas.
func TransformedCenter(b BBox, t Transform) Point {
	c := b.Center()
	return Point{X: c.X + t.X, Y: c.Y + t.Y}
}

// TransformPoint maps a local point to canvas coordinates.
func TransformPoint(b BBox, t Transform, p Point) Point {
	c := b.Center()
	scale := ClampScale(t.Scale, ScaleEpsilon)
	dx := (p.X - c.X) * scale
	dy := (p.Y - c.Y) * scale
	sin, cos := math.Sincos(t.Rotation)
	return Point{
		X: c.X + t.X + dx*cos - dy*sin,
		Y: c.Y + t.Y + dx*sin + dy*cos,
	}
}

// InversePoint maps a canvas point back into the element's local frame.
func InversePoint(b BBox, t Transform, p Point) Point {
	center := TransformedCenter(b, t)
	dx := p.X - center.X
	dy := p.Y - center.Y

	sin, cos := math.Sincos(-t.Rotation)
	rx := dx*cos - dy*sin
	ry := dx*sin + dy*cos

	scale := ClampScale(t.Scale, ScaleEpsilon)
	c := b.Center()
	return Point{X: c.X + rx/scale, Y: c.Y + ry/scale}
}

// ContainsPoint reports whether the canvas point (x, y) hits the transformed
// box, with HitTolerance of slack.
func ContainsPoint(b BBox, t Transform, x, y float64) bool {
	local := InversePoint(b, t, Point{X: x, Y: y})
	return b.Expand(HitTolerance).Contains(local)
}

// HandlePosition returns the canvas position of the given handle.
func HandlePosition(b BBox, t Transform, kind HandleKind) Point {
	switch kind {
	case HandleRotate:
		scale := ClampScale(t.Scale, ScaleEpsilon)
		// The offset stays constant on screen regardless of scale.
		local := Point{X: b.Center().X, Y: b.MinY - RotateHandleOffset/scale}
		return TransformPoint(b, t, local)
	default:
		return TransformPoint(b, t, Point{X: b.MaxX, Y: b.MaxY})
	}
}

// NearHandle reports whether (x, y) is within HandleRadius of a handle.
func NearHandle(b BBox, t Transform, x, y float64, kind HandleKind) bool {
	h := HandlePosition(b, t, kind)
	return Distance(h, Point{X: x, Y: y}) <= HandleRadius
}

// AngleTo returns the angle from a to b in radians.
func AngleTo(a, b Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}
