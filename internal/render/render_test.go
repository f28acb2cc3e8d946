package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
	"github.com/stretchr/testify/require"
)

func near(t *testing.T, got color.Color, want color.RGBA) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	diff := func(a uint32, b uint8) int {
		d := int(a>>8) - int(b)
		if d < 0 {
			return -d
		}
		return d
	}
	require.LessOrEqual(t, diff(r, want.R)+diff(g, want.G)+diff(b, want.B), 24,
		"got %v want %v", got, want)
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	c, ok := ParseColor("#ff8000")
	require.True(t, ok)
	require.Equal(t, color.RGBA{R: 0xff, G: 0x80, A: 0xff}, c)

	c, ok = ParseColor("#0f0")
	require.True(t, ok)
	require.Equal(t, color.RGBA{G: 0xff, A: 0xff}, c)

	c, ok = ParseColor("rebeccapurple")
	require.False(t, ok)
	require.Equal(t, color.RGBA{A: 0xff}, c)
}

func TestRasterRectangleOutline(t *testing.T) {
	t.Parallel()

	s := scene.NewStore()
	rect, err := scene.NewShape("r1", scene.KindRectangle,
		geometry.Point{X: 10, Y: 10}, geometry.Point{X: 50, Y: 30}, "#ff0000", 2)
	require.NoError(t, err)
	require.True(t, s.AddElement(rect))

	img := Raster(s, Options{Padding: 10})
	require.Equal(t, image.Rect(0, 0, 60, 40), img.Bounds())

	red := color.RGBA{R: 0xff, A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	near(t, img.At(10, 20), red)
	near(t, img.At(30, 10), red)
	near(t, img.At(30, 20), white)
	near(t, img.At(2, 2), white)
}

func TestRasterEraserPaintsBackground(t *testing.T) {
	t.Parallel()

	s := scene.NewStore()
	line := []geometry.Point{{X: 0, Y: 0}, {X: 40, Y: 0}}
	pencil, err := scene.NewStroke("p1", scene.KindPencil, line, "#000000", 4)
	require.NoError(t, err)
	require.True(t, s.AddElement(pencil))

	black := color.RGBA{A: 0xff}
	near(t, Raster(s, Options{Padding: 10}).At(30, 10), black)

	eraser, err := scene.NewStroke("e1", scene.KindEraser, line, "#000000", 6)
	require.NoError(t, err)
	require.True(t, s.AddElement(eraser))

	near(t, Raster(s, Options{Padding: 10}).At(30, 10), color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
}

func TestRasterEmptySceneUsesDefaults(t *testing.T) {
	t.Parallel()

	img := Raster(scene.NewStore(), Options{Background: "#000"})
	require.Equal(t, image.Rect(0, 0, defaultWidth, defaultHeight), img.Bounds())
	near(t, img.At(5, 5), color.RGBA{A: 0xff})
}

func TestRasterFitsRequestedSize(t *testing.T) {
	t.Parallel()

	s := scene.NewStore()
	circle, err := scene.NewShape("c1", scene.KindCircle,
		geometry.Point{X: 0, Y: 0}, geometry.Point{X: 1000, Y: 500}, "#00f", 4)
	require.NoError(t, err)
	require.True(t, s.AddElement(circle))
	text, err := scene.NewText("t1", geometry.Point{X: 400, Y: 200}, "hello\nworld", "#111", "", 0)
	require.NoError(t, err)
	require.True(t, s.AddElement(text))

	img := Raster(s, Options{Width: 200, Height: 200})
	require.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, s, Options{}))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, decoded.Bounds().Dx(), 1000)
}

func TestThumbnail(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	thumb := Thumbnail(src, 100)
	require.Equal(t, image.Rect(0, 0, 100, 25), thumb.Bounds())

	require.Same(t, src, Thumbnail(src, 1000))
}

func TestExportPDF(t *testing.T) {
	t.Parallel()

	s := scene.NewStore()
	stroke, err := scene.NewStroke("p1", scene.KindPencil,
		[]geometry.Point{{X: 0, Y: 0}, {X: 30, Y: 40}, {X: 60, Y: 10}}, "#1f2937", 3)
	require.NoError(t, err)
	require.True(t, s.AddElement(stroke))
	rect, err := scene.NewShape("r1", scene.KindRectangle,
		geometry.Point{X: 5, Y: 5}, geometry.Point{X: 25, Y: 25}, "#f00", 2)
	require.NoError(t, err)
	require.True(t, s.AddElement(rect))
	text, err := scene.NewText("t1", geometry.Point{X: 10, Y: 50}, "notes", "#000", "", 0)
	require.NoError(t, err)
	require.True(t, s.AddElement(text))

	var buf bytes.Buffer
	require.NoError(t, ExportPDF(&buf, s, PDFOptions{Title: "Session"}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, ExportPDF(&buf, scene.NewStore(), PDFOptions{}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
