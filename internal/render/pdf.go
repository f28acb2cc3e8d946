package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
)

const (
	pdfMargin = 10.0 // mm
	// ptPerMM converts font sizes from points to page millimetres.
	ptPerMM = 72.0 / 25.4
)

// PDFOptions controls PDF export.
type PDFOptions struct {
	// Title is printed in the page header when set.
	Title string
}

// ExportPDF writes the scene as a single landscape A4 page, scaled to fit.
func ExportPDF(w io.Writer, sc Scene, opts PDFOptions) error {
	pdf := buildPDF(sc, opts)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDFFile writes the scene to path.
func ExportPDFFile(path string, sc Scene, opts PDFOptions) error {
	return buildPDF(sc, opts).OutputFileAndClose(path)
}

func buildPDF(sc Scene, opts PDFOptions) *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	top := pdfMargin
	if opts.Title != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(pdfMargin, pdfMargin+5, opts.Title)
		top += 10
	}

	bounds, ok := sc.Bounds()
	if !ok {
		return pdf
	}
	availW, availH := pageW-2*pdfMargin, pageH-top-pdfMargin
	scale := math.Min(availW/math.Max(bounds.Width(), 1), availH/math.Max(bounds.Height(), 1))
	toPage := func(p geometry.Point) (float64, float64) {
		return pdfMargin + (p.X-bounds.MinX)*scale, top + (p.Y-bounds.MinY)*scale
	}

	bg, _ := ParseColor(scene.BackgroundColor)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	for _, el := range sc.Elements() {
		c := elementColor(el, bg)
		if el.Kind == scene.KindText {
			anchor, size := textOrigin(el)
			x, y := toPage(anchor)
			pt := math.Max(size*scale*ptPerMM, 1)
			pdf.SetFont("Helvetica", "", pt)
			pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
			lineH := size * 1.2 * scale
			for i, line := range strings.Split(el.Text, "\n") {
				pdf.Text(x, y+float64(i+1)*lineH, line)
			}
			continue
		}

		line, ok := outline(el)
		if !ok {
			continue
		}
		pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
		pdf.SetLineWidth(math.Max(el.StrokeWidth*scale, 0.1))
		if line.closed {
			pts := make([]gofpdf.PointType, len(line.points))
			for i, p := range line.points {
				pts[i].X, pts[i].Y = toPage(p)
			}
			pdf.Polygon(pts, "D")
			continue
		}
		for _, seg := range line.segments() {
			x0, y0 := toPage(seg[0])
			x1, y1 := toPage(seg[1])
			pdf.Line(x0, y0, x1, y1)
		}
	}
	return pdf
}
