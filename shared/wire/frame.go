package wire

import (
	"encoding/json"
	"fmt"
)

// Frame is the unit exchanged on the relay's plain WebSocket endpoint. Type
// reuses the Socket.IO event names (SocketMessage, SocketSubscribed, ...).
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame of the given type.
func NewFrame(typ string, data any) (Frame, error) {
	if data == nil {
		return Frame{Type: typ}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s frame: %w", typ, err)
	}
	return Frame{Type: typ, Data: raw}, nil
}

// ParseData unmarshals the frame body into v.
func (f Frame) ParseData(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s frame has no data", ErrMalformed, f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %s frame: %v", ErrMalformed, f.Type, err)
	}
	return nil
}
