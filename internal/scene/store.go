// Package scene holds the shared whiteboard document: an insertion ordered set
// of elements plus the single code buffer that both participants edit.
//
// Paint order is insertion order. Remote updates replace elements wholesale by
// id; there is no merge.
package scene

import (
	"sync"

	"github.com/piyushdolas8/skillswap/internal/geometry"
)

// DefaultLanguage is the code buffer language before anyone picks one.
const DefaultLanguage = "javascript"

// Store is the scene graph and code buffer for one session. It is safe for
// concurrent use, though in practice only the session loop writes to it.
type Store struct {
	mu       sync.RWMutex
	order    []string
	elements map[string]Element
	code     string
	language string
}

// NewStore returns an empty scene.
func NewStore() *Store {
	return &Store{
		elements: make(map[string]Element),
		language: DefaultLanguage,
	}
}

// AddElement appends el. It returns false without changing anything when the
// id already exists or the element is not fully formed.
func (s *Store) AddElement(el Element) bool {
	if el.Validate() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[el.ID]; ok {
		return false
	}
	s.elements[el.ID] = el.Clone()
	s.order = append(s.order, el.ID)
	return true
}

// UpdateElement replaces the transform of an existing element.
func (s *Store) UpdateElement(id string, t geometry.Transform) bool {
	if t.Scale <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[id]
	if !ok {
		return false
	}
	el.Transform = t
	s.elements[id] = el
	return true
}

// ReplaceElement overwrites an existing element with el, keeping its paint
// position. Kind is immutable, so a kind mismatch is rejected.
func (s *Store) ReplaceElement(el Element) bool {
	if el.Validate() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.elements[el.ID]
	if !ok || cur.Kind != el.Kind {
		return false
	}
	next := el.Clone()
	if next.Kind == KindText && next.Text != cur.Text {
		anchor := geometry.Point{X: next.BBox.MinX, Y: next.BBox.MinY}
		next.BBox = TextBox(anchor, next.Text, next.FontSize)
	}
	s.elements[el.ID] = next
	return true
}

// RemoveElement deletes an element by id.
func (s *Store) RemoveElement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[id]; !ok {
		return false
	}
	delete(s.elements, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every element. The code buffer is left alone.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.elements = make(map[string]Element)
}

// SetCode replaces the code buffer. An empty language keeps the current one.
func (s *Store) SetCode(text, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = text
	if language != "" {
		s.language = language
	}
}

// Code returns the code buffer and its language.
func (s *Store) Code() (text, language string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code, s.language
}

// Element looks up a single element.
func (s *Store) Element(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[id]
	if !ok {
		return Element{}, false
	}
	return el.Clone(), true
}

// Elements returns a copy of all elements in paint order.
func (s *Store) Elements() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id].Clone())
	}
	return out
}

// IDs returns element ids in paint order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// HitTest returns the topmost element containing (x, y).
func (s *Store) HitTest(x, y float64) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		el := s.elements[s.order[i]]
		if el.Contains(x, y) {
			return el.Clone(), true
		}
	}
	return Element{}, false
}

// Bounds returns the canvas space box covering every element, taking
// transforms into account. ok is false for an empty scene.
func (s *Store) Bounds() (geometry.BBox, bool) {
	var corners []geometry.Point
	for _, el := range s.Elements() {
		b := el.BBox
		for _, p := range []geometry.Point{
			{X: b.MinX, Y: b.MinY}, {X: b.MaxX, Y: b.MinY},
			{X: b.MinX, Y: b.MaxY}, {X: b.MaxX, Y: b.MaxY},
		} {
			corners = append(corners, geometry.TransformPoint(b, el.Transform, p))
		}
	}
	return geometry.ComputeBoundingBox(corners)
}
