// Package render draws a scene to raster images and PDF documents.
package render

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
)

// ellipseSegments is how many edges approximate a circle outline.
const ellipseSegments = 48

// Scene is the read side of a scene store.
type Scene interface {
	Elements() []scene.Element
	Bounds() (geometry.BBox, bool)
}

// polyline is an outline in canvas coordinates.
type polyline struct {
	points []geometry.Point
	closed bool
}

// outline returns the canvas space path of a stroke or shape element. Text
// elements have no outline.
func outline(el scene.Element) (polyline, bool) {
	b := el.BBox
	apply := func(p geometry.Point) geometry.Point {
		return geometry.TransformPoint(b, el.Transform, p)
	}

	switch el.Kind {
	case scene.KindPencil, scene.KindEraser:
		pts := make([]geometry.Point, len(el.Points))
		for i, p := range el.Points {
			pts[i] = apply(p)
		}
		return polyline{points: pts}, len(pts) > 0

	case scene.KindRectangle:
		return polyline{
			points: []geometry.Point{
				apply(geometry.Point{X: b.MinX, Y: b.MinY}),
				apply(geometry.Point{X: b.MaxX, Y: b.MinY}),
				apply(geometry.Point{X: b.MaxX, Y: b.MaxY}),
				apply(geometry.Point{X: b.MinX, Y: b.MaxY}),
			},
			closed: true,
		}, true

	case scene.KindCircle:
		c := b.Center()
		rx, ry := b.Width()/2, b.Height()/2
		pts := make([]geometry.Point, ellipseSegments)
		for i := range pts {
			sin, cos := math.Sincos(2 * math.Pi * float64(i) / ellipseSegments)
			pts[i] = apply(geometry.Point{X: c.X + rx*cos, Y: c.Y + ry*sin})
		}
		return polyline{points: pts, closed: true}, true
	}
	return polyline{}, false
}

// segments returns consecutive point pairs, closing the loop if needed.
func (p polyline) segments() [][2]geometry.Point {
	n := len(p.points)
	if n < 2 {
		return nil
	}
	out := make([][2]geometry.Point, 0, n)
	for i := 1; i < n; i++ {
		out = append(out, [2]geometry.Point{p.points[i-1], p.points[i]})
	}
	if p.closed {
		out = append(out, [2]geometry.Point{p.points[n-1], p.points[0]})
	}
	return out
}

// textOrigin is the canvas position of a text element's first line and the
// effective font size after scaling.
func textOrigin(el scene.Element) (geometry.Point, float64) {
	anchor := geometry.TransformPoint(el.BBox, el.Transform, geometry.Point{X: el.BBox.MinX, Y: el.BBox.MinY})
	size := el.FontSize
	if size <= 0 {
		size = scene.DefaultFontSize
	}
	return anchor, size * geometry.ClampScale(el.Transform.Scale, geometry.ScaleEpsilon)
}

// elementColor resolves the paint for el. Erasers paint the background.
func elementColor(el scene.Element, background color.RGBA) color.RGBA {
	if el.Kind == scene.KindEraser {
		return background
	}
	c, _ := ParseColor(el.Color)
	return c
}

// ParseColor reads #rgb and #rrggbb hex colors. Anything else resolves to
// opaque black with ok false.
func ParseColor(s string) (c color.RGBA, ok bool) {
	black := color.RGBA{A: 0xff}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return black, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return black, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
