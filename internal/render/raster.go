package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
)

const (
	defaultWidth  = 640
	defaultHeight = 480

	// maxDimension caps derived image sizes.
	maxDimension = 4096

	capSegments = 12
)

// Options controls rasterization. A zero Width or Height sizes the image to
// the scene bounds at one pixel per canvas unit.
type Options struct {
	Width   int
	Height  int
	Padding float64
	// Background defaults to the canvas color.
	Background string
}

// viewport maps canvas coordinates to pixels.
type viewport struct {
	origin geometry.Point
	scale  float64
}

func (v viewport) apply(p geometry.Point) (float32, float32) {
	return float32((p.X - v.origin.X) * v.scale), float32((p.Y - v.origin.Y) * v.scale)
}

func fit(sc Scene, opts Options) (image.Rectangle, viewport) {
	bounds, ok := sc.Bounds()
	if !ok {
		w, h := opts.Width, opts.Height
		if w <= 0 {
			w = defaultWidth
		}
		if h <= 0 {
			h = defaultHeight
		}
		return image.Rect(0, 0, w, h), viewport{scale: 1}
	}

	bounds = bounds.Expand(opts.Padding)
	bw, bh := math.Max(bounds.Width(), 1), math.Max(bounds.Height(), 1)
	vp := viewport{origin: geometry.Point{X: bounds.MinX, Y: bounds.MinY}, scale: 1}

	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = int(math.Ceil(bw)), int(math.Ceil(bh))
		if longest := max(w, h); longest > maxDimension {
			vp.scale = float64(maxDimension) / float64(longest)
			w, h = int(math.Ceil(bw*vp.scale)), int(math.Ceil(bh*vp.scale))
		}
		return image.Rect(0, 0, max(w, 1), max(h, 1)), vp
	}
	vp.scale = math.Min(float64(w)/bw, float64(h)/bh)
	return image.Rect(0, 0, w, h), vp
}

// Raster draws the scene in insertion order onto a new RGBA image.
func Raster(sc Scene, opts Options) *image.RGBA {
	rect, vp := fit(sc, opts)
	bg := background(opts)

	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	r := vector.NewRasterizer(rect.Dx(), rect.Dy())
	for _, el := range sc.Elements() {
		paint := image.NewUniform(elementColor(el, bg))
		if el.Kind == scene.KindText {
			drawText(dst, el, paint, vp)
			continue
		}
		line, ok := outline(el)
		if !ok {
			continue
		}
		half := math.Max(el.StrokeWidth*vp.scale, 1) / 2
		strokePolyline(r, dst, paint, line, vp, half)
	}
	return dst
}

func background(opts Options) color.RGBA {
	name := opts.Background
	if name == "" {
		name = scene.BackgroundColor
	}
	c, _ := ParseColor(name)
	return c
}

// strokePolyline draws each segment as a quad with round joins. Every
// primitive is its own rasterizer pass so opposite windings never cancel.
func strokePolyline(r *vector.Rasterizer, dst draw.Image, src image.Image, line polyline, vp viewport, half float64) {
	b := dst.Bounds()
	fill := func(build func()) {
		r.Reset(b.Dx(), b.Dy())
		r.DrawOp = draw.Over
		build()
		r.ClosePath()
		r.Draw(dst, b, src, image.Point{})
	}

	for _, p := range line.points {
		x, y := vp.apply(p)
		fill(func() { disc(r, x, y, float32(half)) })
	}
	for _, seg := range line.segments() {
		x0, y0 := vp.apply(seg[0])
		x1, y1 := vp.apply(seg[1])
		dx, dy := x1-x0, y1-y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*float32(half), dx/length*float32(half)
		fill(func() {
			r.MoveTo(x0+nx, y0+ny)
			r.LineTo(x1+nx, y1+ny)
			r.LineTo(x1-nx, y1-ny)
			r.LineTo(x0-nx, y0-ny)
		})
	}
}

func disc(r *vector.Rasterizer, x, y, radius float32) {
	for i := 0; i < capSegments; i++ {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / capSegments)
		px, py := x+radius*float32(cos), y+radius*float32(sin)
		if i == 0 {
			r.MoveTo(px, py)
			continue
		}
		r.LineTo(px, py)
	}
}

// drawText uses the fixed basic face. Rotation is not applied to glyphs; lines
// start at the transformed anchor and advance by the scaled line height.
func drawText(dst draw.Image, el scene.Element, src image.Image, vp viewport) {
	anchor, size := textOrigin(el)
	x, y := vp.apply(anchor)
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: src, Face: face}
	advance := size * 1.2 * vp.scale
	for i, line := range strings.Split(el.Text, "\n") {
		d.Dot = fixed.Point26_6{
			X: fixed.I(int(x)),
			Y: fixed.I(int(float64(y)+float64(i)*advance) + face.Ascent),
		}
		d.DrawString(line)
	}
}

// Thumbnail scales img down so its longest side is at most maxSize.
func Thumbnail(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	var nw, nh int
	if w > h {
		nw, nh = maxSize, max(h*maxSize/w, 1)
	} else {
		nw, nh = max(w*maxSize/h, 1), maxSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// WritePNG rasterizes the scene and encodes it as PNG.
func WritePNG(w io.Writer, sc Scene, opts Options) error {
	if err := png.Encode(w, Raster(sc, opts)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
