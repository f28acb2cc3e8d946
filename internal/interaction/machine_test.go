package interaction

import (
	"math"
	"testing"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
	"github.com/stretchr/testify/require"
)

var style = Style{Color: "#1f2937", StrokeWidth: 3}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func TestStrokeWithOnePointIsDiscarded(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolPencil, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(10, 10), "s1")
	require.Equal(t, StateDrawing, m.State())

	// Jitter below the threshold does not add points.
	m, _ = m.PointerMove(pt(11, 10))
	m, out := m.PointerUp(pt(11, 11))
	require.Nil(t, out.Added)
	require.Equal(t, StateIdle, m.State())
}

func TestStrokeCommitsWithBoundingBox(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolPencil, Style: style}
	path := []geometry.Point{pt(0, 0), pt(10, 5), pt(20, -4), pt(30, 12), pt(40, 3)}

	m := New()
	m, _ = m.PointerDown(env, path[0], "s1")
	for _, p := range path[1 : len(path)-1] {
		var out Outcome
		m, out = m.PointerMove(p)
		require.NotNil(t, out.Preview)
		require.Nil(t, out.Added)
	}
	m, out := m.PointerUp(path[len(path)-1])
	require.Equal(t, StateIdle, m.State())
	require.NotNil(t, out.Added)

	el := out.Added
	require.Equal(t, "s1", el.ID)
	require.Equal(t, scene.KindPencil, el.Kind)
	require.Len(t, el.Points, 5)
	require.Equal(t, geometry.BBox{MinX: 0, MinY: -4, MaxX: 40, MaxY: 12}, el.BBox)
	require.Equal(t, geometry.Identity(), el.Transform)
	require.Equal(t, style.StrokeWidth, el.StrokeWidth)
}

func TestEraserStroke(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolEraser, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(0, 0), "e1")
	m, out := m.PointerUp(pt(30, 30))
	require.Equal(t, StateIdle, m.State())
	require.NotNil(t, out.Added)
	require.Equal(t, scene.KindEraser, out.Added.Kind)
	require.Equal(t, scene.BackgroundColor, out.Added.Color)
}

func TestShapeDragNormalizesBox(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolRectangle, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(50, 60), "r1")
	m, out := m.PointerMove(pt(10, 20))
	require.NotNil(t, out.Preview)
	m, out = m.PointerUp(pt(5, 15))

	require.NotNil(t, out.Added)
	require.Equal(t, geometry.BBox{MinX: 5, MinY: 15, MaxX: 50, MaxY: 60}, out.Added.BBox)
	require.Equal(t, StateIdle, m.State())
}

func TestShapeClickWithoutDragIsDiscarded(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolCircle, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(5, 5), "c1")
	_, out := m.PointerUp(pt(5, 5))
	require.Nil(t, out.Added)
}

func TestTextCommitOnSecondPointerDown(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolText, Style: style}
	m := New()
	m, out := m.PointerDown(env, pt(10, 10), "t1")
	require.True(t, out.TextOpened)
	require.Equal(t, StateTextEditing, m.State())

	m = m.TextInput("hello")
	m, out = m.PointerDown(env, pt(200, 200), "t2")
	require.True(t, out.TextClosed)
	require.NotNil(t, out.Added)
	require.Equal(t, "t1", out.Added.ID)
	require.Equal(t, "hello", out.Added.Text)
	require.Equal(t, StateIdle, m.State())
}

func TestTextEnterAndShiftEnter(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolText, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(0, 0), "t1")
	m = m.TextInput("line one")

	m, out := m.KeyEnter(true)
	require.Nil(t, out.Added)
	require.Equal(t, "line one\n", m.PendingText())

	m = m.TextInput(m.PendingText() + "line two")
	m, out = m.KeyEnter(false)
	require.NotNil(t, out.Added)
	require.Equal(t, "line one\nline two", out.Added.Text)
	require.Equal(t, StateIdle, m.State())
}

func TestTextEscapeAndEmptyBlurDiscard(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolText, Style: style}

	m := New()
	m, _ = m.PointerDown(env, pt(0, 0), "t1")
	m = m.TextInput("draft")
	m, out := m.KeyEscape()
	require.True(t, out.TextClosed)
	require.Nil(t, out.Added)
	require.Equal(t, StateIdle, m.State())

	m, _ = m.PointerDown(env, pt(0, 0), "t2")
	m, out = m.Blur()
	require.True(t, out.TextClosed)
	require.Nil(t, out.Added)

	m, _ = m.PointerDown(env, pt(0, 0), "t3")
	m = m.TextInput("kept")
	_, out = m.Blur()
	require.NotNil(t, out.Added)
	require.Equal(t, "t3", out.Added.ID)
}

func sceneWith(t *testing.T, els ...scene.Element) *scene.Store {
	t.Helper()
	s := scene.NewStore()
	for _, el := range els {
		require.True(t, s.AddElement(el))
	}
	return s
}

func box(t *testing.T, id string, x0, y0, x1, y1 float64) scene.Element {
	t.Helper()
	el, err := scene.NewShape(id, scene.KindRectangle, pt(x0, y0), pt(x1, y1), "#000000", 2)
	require.NoError(t, err)
	return el
}

func TestSelectHitAndMove(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 100, 100), box(t, "b", 40, 40, 60, 60))
	env := Env{Tool: ToolSelect, Scene: store}

	m := New()
	m, out := m.PointerDown(env, pt(50, 50), "")
	require.True(t, out.SelectionChanged)
	require.Equal(t, "b", out.Selected)
	require.Equal(t, StateTransforming, m.State())
	require.Equal(t, TransformMove, m.Mode())

	m, out = m.PointerMove(pt(60, 45))
	require.NotNil(t, out.Preview)
	m, out = m.PointerUp(pt(70, 80))
	require.NotNil(t, out.Updated)
	require.Equal(t, "b", out.Updated.ID)
	require.Equal(t, geometry.Transform{X: 20, Y: 30, Scale: 1}, out.Updated.Transform)
	require.Equal(t, StateIdle, m.State())
}

func TestSelectMissClearsSelection(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 10, 10))
	env := Env{Tool: ToolSelect, Scene: store, Selected: "a"}

	m := New()
	m, out := m.PointerDown(env, pt(500, 500), "")
	require.True(t, out.SelectionChanged)
	require.Empty(t, out.Selected)
	require.Equal(t, StateSelecting, m.State())

	m, out = m.PointerUp(pt(500, 500))
	require.Nil(t, out.Updated)
	require.Equal(t, StateIdle, m.State())
}

func TestSelectClickWithoutMoveDoesNotUpdate(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 10, 10))
	env := Env{Tool: ToolSelect, Scene: store, Selected: "a"}

	m := New()
	m, out := m.PointerDown(env, pt(5, 5), "")
	require.False(t, out.SelectionChanged)
	_, out = m.PointerUp(pt(5, 5))
	require.Nil(t, out.Updated)
}

func TestRotateHandleHasPriority(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 100, 100))
	env := Env{Tool: ToolSelect, Scene: store, Selected: "a"}

	m := New()
	m, _ = m.PointerDown(env, pt(50, -geometry.RotateHandleOffset), "")
	require.Equal(t, TransformRotate, m.Mode())

	// Pointer straight to the right of the center puts the handle there.
	_, out := m.PointerUp(pt(200, 50))
	require.NotNil(t, out.Updated)
	require.InDelta(t, math.Pi/2, out.Updated.Transform.Rotation, 1e-9)
}

func TestResizeScaleFloor(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 100, 100))
	env := Env{Tool: ToolSelect, Scene: store, Selected: "a"}

	for _, target := range []geometry.Point{pt(50, 50), pt(51, 50), pt(-1000, -1000), pt(150, 150)} {
		m := New()
		m, _ = m.PointerDown(env, pt(100, 100), "")
		require.Equal(t, TransformResize, m.Mode())
		_, out := m.PointerUp(target)
		if out.Updated == nil {
			continue
		}
		require.GreaterOrEqual(t, out.Updated.Transform.Scale, MinScale)
	}

	m := New()
	m, _ = m.PointerDown(env, pt(100, 100), "")
	_, out := m.PointerUp(pt(50, 50))
	require.NotNil(t, out.Updated)
	require.Equal(t, MinScale, out.Updated.Transform.Scale)

	m = New()
	m, _ = m.PointerDown(env, pt(100, 100), "")
	_, out = m.PointerUp(pt(150, 150))
	require.InDelta(t, 2.0, out.Updated.Transform.Scale, 1e-9)
}

func TestResizeFromZeroStartDistanceKeepsBaseline(t *testing.T) {
	t.Parallel()

	m := New().beginTransform(box(t, "a", 0, 0, 10, 10), TransformResize, pt(5, 5))
	el := m.transformed(pt(100, 100))
	require.Equal(t, 1.0, el.Transform.Scale)
}

func TestPointerDownIgnoredDuringGesture(t *testing.T) {
	t.Parallel()

	env := Env{Tool: ToolPencil, Style: style}
	m := New()
	m, _ = m.PointerDown(env, pt(0, 0), "s1")
	m, _ = m.PointerMove(pt(10, 10))

	m2, out := m.PointerDown(Env{Tool: ToolRectangle, Style: style}, pt(50, 50), "r1")
	require.Equal(t, Outcome{}, out)
	require.Equal(t, StateDrawing, m2.State())

	_, out = m2.PointerUp(pt(20, 20))
	require.NotNil(t, out.Added)
	require.Equal(t, "s1", out.Added.ID)
}

func TestEscapeDoesNotRevertTransform(t *testing.T) {
	t.Parallel()

	store := sceneWith(t, box(t, "a", 0, 0, 10, 10))
	env := Env{Tool: ToolSelect, Scene: store}

	m := New()
	m, _ = m.PointerDown(env, pt(5, 5), "")
	m, _ = m.PointerMove(pt(25, 5))
	m, out := m.KeyEscape()
	require.Equal(t, Outcome{}, out)
	require.Equal(t, StateTransforming, m.State())

	_, out = m.PointerUp(pt(25, 5))
	require.NotNil(t, out.Updated)
	require.Equal(t, 20.0, out.Updated.Transform.X)
}
