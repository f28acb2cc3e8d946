package scene

import (
	"encoding/json"
	"testing"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/stretchr/testify/require"
)

func rect(t *testing.T, id string, a, b geometry.Point) Element {
	t.Helper()
	el, err := NewShape(id, KindRectangle, a, b, "#000000", 2)
	require.NoError(t, err)
	return el
}

func TestAddElementUniqueIDs(t *testing.T) {
	t.Parallel()

	s := NewStore()
	el := rect(t, "a", geometry.Point{}, geometry.Point{X: 10, Y: 10})

	require.True(t, s.AddElement(el))
	require.False(t, s.AddElement(el))
	require.Equal(t, 1, s.Len())
}

func TestAddElementRejectsPartialElements(t *testing.T) {
	t.Parallel()

	s := NewStore()
	stroke, err := NewStroke("s1", KindPencil, []geometry.Point{{X: 1, Y: 1}}, "#000000", 2)
	require.ErrorIs(t, err, ErrInvalidElement)
	require.False(t, s.AddElement(stroke))

	text, err := NewText("t1", geometry.Point{}, "   ", "#000000", "", 0)
	require.ErrorIs(t, err, ErrInvalidElement)
	require.False(t, s.AddElement(text))
	require.Zero(t, s.Len())
}

func TestStrokeBoundingBox(t *testing.T) {
	t.Parallel()

	points := []geometry.Point{{X: 3, Y: 4}, {X: -1, Y: 8}, {X: 6, Y: 2}}
	el, err := NewStroke("s", KindPencil, points, "#ff0000", 3)
	require.NoError(t, err)
	for _, p := range points {
		require.LessOrEqual(t, el.BBox.MinX, p.X)
		require.LessOrEqual(t, el.BBox.MinY, p.Y)
		require.GreaterOrEqual(t, el.BBox.MaxX, p.X)
		require.GreaterOrEqual(t, el.BBox.MaxY, p.Y)
	}
}

func TestEraserUsesBackgroundColor(t *testing.T) {
	t.Parallel()

	el, err := NewStroke("e", KindEraser, []geometry.Point{{}, {X: 5, Y: 5}}, "#123456", 20)
	require.NoError(t, err)
	require.Equal(t, BackgroundColor, el.Color)
}

func TestUpdateElementMissingIsNoop(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddElement(rect(t, "a", geometry.Point{}, geometry.Point{X: 10, Y: 10}))
	before := s.Elements()

	require.False(t, s.UpdateElement("missing", geometry.Transform{X: 5, Scale: 1}))
	require.Equal(t, before, s.Elements())

	require.True(t, s.UpdateElement("a", geometry.Transform{X: 5, Scale: 2}))
	el, ok := s.Element("a")
	require.True(t, ok)
	require.Equal(t, geometry.Transform{X: 5, Scale: 2}, el.Transform)
}

func TestReplaceElementIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	el := rect(t, "a", geometry.Point{}, geometry.Point{X: 10, Y: 10})
	s.AddElement(el)

	el.Transform = geometry.Transform{X: 3, Y: 4, Rotation: 0.5, Scale: 1.5}
	require.True(t, s.ReplaceElement(el))
	first := s.Elements()
	require.True(t, s.ReplaceElement(el))
	require.Equal(t, first, s.Elements())

	require.False(t, s.ReplaceElement(rect(t, "nope", geometry.Point{}, geometry.Point{X: 1, Y: 1})))
}

func TestReplaceTextRecomputesBox(t *testing.T) {
	t.Parallel()

	s := NewStore()
	el, err := NewText("t", geometry.Point{X: 10, Y: 10}, "hi", "#000000", "", 10)
	require.NoError(t, err)
	s.AddElement(el)

	el.Text = "a much longer line"
	require.True(t, s.ReplaceElement(el))
	got, _ := s.Element("t")
	require.Equal(t, TextBox(geometry.Point{X: 10, Y: 10}, el.Text, 10), got.BBox)
}

func TestHitTestTopmostWins(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddElement(rect(t, "bottom", geometry.Point{}, geometry.Point{X: 100, Y: 100}))
	s.AddElement(rect(t, "top", geometry.Point{X: 40, Y: 40}, geometry.Point{X: 60, Y: 60}))

	el, ok := s.HitTest(50, 50)
	require.True(t, ok)
	require.Equal(t, "top", el.ID)

	el, ok = s.HitTest(10, 10)
	require.True(t, ok)
	require.Equal(t, "bottom", el.ID)

	_, ok = s.HitTest(500, 500)
	require.False(t, ok)
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddElement(rect(t, "a", geometry.Point{}, geometry.Point{X: 1, Y: 1}))
	s.AddElement(rect(t, "b", geometry.Point{}, geometry.Point{X: 1, Y: 1}))
	s.AddElement(rect(t, "c", geometry.Point{}, geometry.Point{X: 1, Y: 1}))

	require.True(t, s.RemoveElement("b"))
	require.False(t, s.RemoveElement("b"))
	require.Equal(t, []string{"a", "c"}, s.IDs())

	s.SetCode("x := 1", "go")
	s.Clear()
	require.Zero(t, s.Len())
	code, lang := s.Code()
	require.Equal(t, "x := 1", code)
	require.Equal(t, "go", lang)
}

func TestCodeLastWriteWins(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, lang := s.Code()
	require.Equal(t, DefaultLanguage, lang)

	s.SetCode("print(1)", "python")
	s.SetCode("print(2)", "")
	code, lang := s.Code()
	require.Equal(t, "print(2)", code)
	require.Equal(t, "python", lang)
}

func TestElementJSONFieldNames(t *testing.T) {
	t.Parallel()

	el, err := NewStroke("s", KindPencil, []geometry.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, "#000000", 2)
	require.NoError(t, err)

	raw, err := json.Marshal(el)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"id", "type", "points", "color", "strokeWidth", "bbox", "transform"} {
		require.Contains(t, fields, key)
	}
	require.Equal(t, "pencil", fields["type"])
}

func TestBounds(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, ok := s.Bounds()
	require.False(t, ok)

	el := rect(t, "a", geometry.Point{}, geometry.Point{X: 10, Y: 10})
	el.Transform = geometry.Transform{X: 100, Y: 50, Scale: 1}
	s.AddElement(el)

	b, ok := s.Bounds()
	require.True(t, ok)
	require.InDelta(t, 100, b.MinX, 1e-9)
	require.InDelta(t, 60, b.MaxY, 1e-9)
}
