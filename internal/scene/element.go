package scene

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/piyushdolas8/skillswap/internal/geometry"
)

// Kind is the element variant. It never changes after creation.
type Kind string

const (
	KindPencil    Kind = "pencil"
	KindEraser    Kind = "eraser"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
)

const (
	// BackgroundColor is the canvas color; eraser strokes paint with it.
	BackgroundColor = "#ffffff"

	// DefaultFontFamily is used for text elements that do not name one.
	DefaultFontFamily = "sans-serif"

	// DefaultFontSize is used for text elements that do not set one.
	DefaultFontSize = 20.0

	// Average glyph advance and line height relative to the font size. Used
	// to size text boxes without a font backend.
	glyphAdvance = 0.6
	lineHeight   = 1.2
)

// ErrInvalidElement is returned when an element is not fully formed.
var ErrInvalidElement = fmt.Errorf("invalid element")

// Element is a single whiteboard item. Points are only meaningful for pencil
// and eraser strokes; the text fields only for text elements. Rectangle and
// circle geometry derives from BBox.
type Element struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"type"`
	Points      []geometry.Point   `json:"points,omitempty"`
	Color       string             `json:"color"`
	StrokeWidth float64            `json:"strokeWidth"`
	Text        string             `json:"text,omitempty"`
	FontFamily  string             `json:"fontFamily,omitempty"`
	FontSize    float64            `json:"fontSize,omitempty"`
	BBox        geometry.BBox      `json:"bbox"`
	Transform   geometry.Transform `json:"transform"`
}

// IsStroke reports whether the element is a freehand stroke.
func (k Kind) IsStroke() bool {
	return k == KindPencil || k == KindEraser
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPencil, KindEraser, KindRectangle, KindCircle, KindText:
		return true
	default:
		return false
	}
}

// NewStroke builds a pencil or eraser element from raw points. Eraser strokes
// always carry the background color.
func NewStroke(id string, kind Kind, points []geometry.Point, color string, width float64) (Element, error) {
	if !kind.IsStroke() {
		return Element{}, fmt.Errorf("%w: %s is not a stroke", ErrInvalidElement, kind)
	}
	if kind == KindEraser {
		color = BackgroundColor
	}
	box, ok := geometry.ComputeBoundingBox(points)
	if !ok {
		return Element{}, fmt.Errorf("%w: empty stroke", ErrInvalidElement)
	}
	el := Element{
		ID:          id,
		Kind:        kind,
		Points:      append([]geometry.Point(nil), points...),
		Color:       color,
		StrokeWidth: width,
		BBox:        box,
		Transform:   geometry.Identity(),
	}
	return el, el.Validate()
}

// NewShape builds a rectangle or circle spanning two opposite corners.
func NewShape(id string, kind Kind, a, b geometry.Point, color string, width float64) (Element, error) {
	if kind != KindRectangle && kind != KindCircle {
		return Element{}, fmt.Errorf("%w: %s is not a shape", ErrInvalidElement, kind)
	}
	el := Element{
		ID:          id,
		Kind:        kind,
		Color:       color,
		StrokeWidth: width,
		BBox:        geometry.Normalize(a, b),
		Transform:   geometry.Identity(),
	}
	return el, el.Validate()
}

// NewText builds a text element anchored at its top-left corner.
func NewText(id string, anchor geometry.Point, text, color, fontFamily string, fontSize float64) (Element, error) {
	if fontFamily == "" {
		fontFamily = DefaultFontFamily
	}
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	el := Element{
		ID:          id,
		Kind:        KindText,
		Color:       color,
		StrokeWidth: 1,
		Text:        text,
		FontFamily:  fontFamily,
		FontSize:    fontSize,
		Transform:   geometry.Identity(),
	}
	el.BBox = TextBox(anchor, text, fontSize)
	return el, el.Validate()
}

// TextBox estimates the box occupied by text starting at anchor.
func TextBox(anchor geometry.Point, text string, fontSize float64) geometry.BBox {
	lines := strings.Split(text, "\n")
	widest := 0
	for _, line := range lines {
		if n := utf8.RuneCountInString(line); n > widest {
			widest = n
		}
	}
	return geometry.BBox{
		MinX: anchor.X,
		MinY: anchor.Y,
		MaxX: anchor.X + float64(widest)*fontSize*glyphAdvance,
		MaxY: anchor.Y + float64(len(lines))*fontSize*lineHeight,
	}
}

// Validate reports whether the element is fully formed.
func (e Element) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidElement)
	case !e.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidElement, e.Kind)
	case e.BBox.MinX > e.BBox.MaxX || e.BBox.MinY > e.BBox.MaxY:
		return fmt.Errorf("%w: inverted bbox", ErrInvalidElement)
	case e.Transform.Scale <= 0:
		return fmt.Errorf("%w: non-positive scale", ErrInvalidElement)
	}
	switch e.Kind {
	case KindPencil, KindEraser:
		if len(e.Points) < 2 {
			return fmt.Errorf("%w: stroke needs at least 2 points", ErrInvalidElement)
		}
	case KindText:
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("%w: empty text", ErrInvalidElement)
		}
	}
	return nil
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	out := e
	out.Points = append([]geometry.Point(nil), e.Points...)
	return out
}

// Contains reports whether the canvas point hits the element.
func (e Element) Contains(x, y float64) bool {
	return geometry.ContainsPoint(e.BBox, e.Transform, x, y)
}

// NearHandle reports whether the canvas point grabs one of the element's
// transform handles.
func (e Element) NearHandle(x, y float64, kind geometry.HandleKind) bool {
	return geometry.NearHandle(e.BBox, e.Transform, x, y, kind)
}
