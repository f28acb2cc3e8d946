// Package interaction turns raw pointer and keyboard input into committed
// whiteboard mutations.
//
// Machine is a plain value with no I/O: it reads the scene through SceneView
// and reports what happened as an Outcome. The caller owns the scene store and
// decides what to broadcast.
package interaction

import (
	"math"
	"strings"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
)

const (
	// MinPointDistance is the displacement a pointer must exceed before a
	// stroke records another point.
	MinPointDistance = 2.0

	// MinScale is the lower clamp applied while resizing.
	MinScale = 0.1
)

// Tool is the active whiteboard tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolPencil    Tool = "pencil"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolPencil, ToolEraser, ToolRectangle, ToolCircle, ToolText:
		return true
	default:
		return false
	}
}

// State names the gesture in progress.
type State string

const (
	StateIdle          State = "Idle"
	StateDrawing       State = "Drawing"
	StateShapeDragging State = "ShapeDragging"
	StateTextEditing   State = "TextEditing"
	StateSelecting     State = "Selecting"
	StateTransforming  State = "Transforming"
)

// TransformMode is the kind of transform gesture.
type TransformMode string

const (
	TransformMove   TransformMode = "move"
	TransformResize TransformMode = "resize"
	TransformRotate TransformMode = "rotate"
)

// Style carries the drawing attributes applied to new elements.
type Style struct {
	Color       string
	StrokeWidth float64
	FontFamily  string
	FontSize    float64
}

// SceneView is the read-only part of the scene the machine needs.
type SceneView interface {
	Element(id string) (scene.Element, bool)
	HitTest(x, y float64) (scene.Element, bool)
}

// Env is the context a pointer event is interpreted in.
type Env struct {
	Tool     Tool
	Style    Style
	Scene    SceneView
	Selected string
}

// Outcome reports the result of one input.
type Outcome struct {
	// Added is a newly committed element.
	Added *scene.Element
	// Updated is the full element after a committed transform.
	Updated *scene.Element
	// Preview is an uncommitted in-progress element for rendering.
	Preview *scene.Element

	// SelectionChanged is set when Selected should replace the selection.
	SelectionChanged bool
	Selected         string

	// TextOpened and TextClosed track the text overlay.
	TextOpened bool
	TextClosed bool
	TextAnchor geometry.Point
}

// Machine is the per-client gesture state machine.
type Machine struct {
	state State

	points []geometry.Point
	kind   scene.Kind
	anchor geometry.Point
	id     string
	style  Style

	text string

	mode     TransformMode
	target   scene.Element
	baseline geometry.Transform
	start    geometry.Point
}

// New returns an idle machine.
func New() Machine {
	return Machine{state: StateIdle}
}

// State returns the current gesture state.
func (m Machine) State() State {
	if m.state == "" {
		return StateIdle
	}
	return m.state
}

// Mode returns the transform mode while Transforming.
func (m Machine) Mode() TransformMode { return m.mode }

// PendingText returns the overlay content while TextEditing.
func (m Machine) PendingText() string { return m.text }

// Busy reports whether a pointer gesture is in progress.
func (m Machine) Busy() bool {
	switch m.State() {
	case StateDrawing, StateShapeDragging, StateSelecting, StateTransforming:
		return true
	default:
		return false
	}
}

// PointerDown starts a gesture. id is used if the gesture creates an element.
func (m Machine) PointerDown(env Env, p geometry.Point, id string) (Machine, Outcome) {
	if m.Busy() {
		return m, Outcome{}
	}
	if m.State() == StateTextEditing {
		return m.finishText(true)
	}

	switch env.Tool {
	case ToolPencil, ToolEraser:
		m.state = StateDrawing
		m.kind = scene.Kind(env.Tool)
		m.id = id
		m.style = env.Style
		m.points = []geometry.Point{p}
		return m, Outcome{}

	case ToolRectangle, ToolCircle:
		m.state = StateShapeDragging
		m.kind = scene.Kind(env.Tool)
		m.id = id
		m.style = env.Style
		m.anchor = p
		return m, Outcome{}

	case ToolText:
		m.state = StateTextEditing
		m.id = id
		m.style = env.Style
		m.anchor = p
		m.text = ""
		return m, Outcome{TextOpened: true, TextAnchor: p}

	case ToolSelect:
		return m.selectDown(env, p)
	}
	return m, Outcome{}
}

func (m Machine) selectDown(env Env, p geometry.Point) (Machine, Outcome) {
	if env.Scene == nil {
		return m, Outcome{}
	}
	if env.Selected != "" {
		if el, ok := env.Scene.Element(env.Selected); ok {
			switch {
			case el.NearHandle(p.X, p.Y, geometry.HandleRotate):
				return m.beginTransform(el, TransformRotate, p), Outcome{}
			case el.NearHandle(p.X, p.Y, geometry.HandleResize):
				return m.beginTransform(el, TransformResize, p), Outcome{}
			}
		}
	}
	if el, ok := env.Scene.HitTest(p.X, p.Y); ok {
		out := Outcome{}
		if el.ID != env.Selected {
			out.SelectionChanged = true
			out.Selected = el.ID
		}
		return m.beginTransform(el, TransformMove, p), out
	}

	m.state = StateSelecting
	out := Outcome{}
	if env.Selected != "" {
		out.SelectionChanged = true
	}
	return m, out
}

func (m Machine) beginTransform(el scene.Element, mode TransformMode, p geometry.Point) Machine {
	m.state = StateTransforming
	m.mode = mode
	m.target = el
	m.baseline = el.Transform
	m.start = p
	return m
}

// PointerMove advances the current gesture.
func (m Machine) PointerMove(p geometry.Point) (Machine, Outcome) {
	switch m.State() {
	case StateDrawing:
		last := m.points[len(m.points)-1]
		if geometry.Distance(last, p) > MinPointDistance {
			m.points = append(m.points[:len(m.points):len(m.points)], p)
		}
		if preview, err := scene.NewStroke(m.id, m.kind, m.points, m.style.Color, m.style.StrokeWidth); err == nil {
			return m, Outcome{Preview: &preview}
		}
		return m, Outcome{}

	case StateShapeDragging:
		preview, err := scene.NewShape(m.id, m.kind, m.anchor, p, m.style.Color, m.style.StrokeWidth)
		if err != nil {
			return m, Outcome{}
		}
		return m, Outcome{Preview: &preview}

	case StateTransforming:
		el := m.transformed(p)
		return m, Outcome{Preview: &el}
	}
	return m, Outcome{}
}

// transformed applies the in-progress gesture at pointer p to the target.
func (m Machine) transformed(p geometry.Point) scene.Element {
	el := m.target.Clone()
	t := m.baseline
	center := geometry.TransformedCenter(el.BBox, m.baseline)

	switch m.mode {
	case TransformMove:
		t.X = m.baseline.X + (p.X - m.start.X)
		t.Y = m.baseline.Y + (p.Y - m.start.Y)
	case TransformRotate:
		t.Rotation = geometry.AngleTo(center, p) + math.Pi/2
	case TransformResize:
		startDist := geometry.Distance(center, m.start)
		if startDist > 0 {
			t.Scale = m.baseline.Scale * geometry.Distance(center, p) / startDist
		}
		t.Scale = geometry.ClampScale(t.Scale, MinScale)
	}
	el.Transform = t
	return el
}

// PointerUp ends the current gesture.
func (m Machine) PointerUp(p geometry.Point) (Machine, Outcome) {
	switch m.State() {
	case StateDrawing:
		if geometry.Distance(m.points[len(m.points)-1], p) > MinPointDistance {
			m.points = append(m.points[:len(m.points):len(m.points)], p)
		}
		el, err := scene.NewStroke(m.id, m.kind, m.points, m.style.Color, m.style.StrokeWidth)
		m = m.reset()
		if err != nil {
			return m, Outcome{}
		}
		return m, Outcome{Added: &el}

	case StateShapeDragging:
		el, err := scene.NewShape(m.id, m.kind, m.anchor, p, m.style.Color, m.style.StrokeWidth)
		m = m.reset()
		if err != nil || (el.BBox.Width() == 0 && el.BBox.Height() == 0) {
			return m, Outcome{}
		}
		return m, Outcome{Added: &el}

	case StateTransforming:
		el := m.transformed(p)
		changed := el.Transform != m.baseline
		m = m.reset()
		if !changed {
			return m, Outcome{}
		}
		return m, Outcome{Updated: &el}

	case StateSelecting:
		return m.reset(), Outcome{}
	}
	return m, Outcome{}
}

// TextInput replaces the overlay content.
func (m Machine) TextInput(text string) Machine {
	if m.State() == StateTextEditing {
		m.text = text
	}
	return m
}

// KeyEnter commits pending text unless shift is held, which inserts a line
// break instead.
func (m Machine) KeyEnter(shift bool) (Machine, Outcome) {
	if m.State() != StateTextEditing {
		return m, Outcome{}
	}
	if shift {
		m.text += "\n"
		return m, Outcome{}
	}
	return m.finishText(true)
}

// KeyEscape discards pending text. It never reverts a transform.
func (m Machine) KeyEscape() (Machine, Outcome) {
	if m.State() != StateTextEditing {
		return m, Outcome{}
	}
	return m.finishText(false)
}

// Blur commits pending text if there is any and closes the overlay.
func (m Machine) Blur() (Machine, Outcome) {
	if m.State() != StateTextEditing {
		return m, Outcome{}
	}
	return m.finishText(true)
}

func (m Machine) finishText(commit bool) (Machine, Outcome) {
	out := Outcome{TextClosed: true}
	if commit && strings.TrimSpace(m.text) != "" {
		el, err := scene.NewText(m.id, m.anchor, m.text, m.style.Color, m.style.FontFamily, m.style.FontSize)
		if err == nil {
			out.Added = &el
		}
	}
	return m.reset(), out
}

func (m Machine) reset() Machine {
	return Machine{state: StateIdle}
}
