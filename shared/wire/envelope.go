package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a payload cannot be decoded or fails
// validation. Receivers drop such messages.
var ErrMalformed = errors.New("malformed payload")

// Event names a message type on a session topic.
type Event string

const (
	EventCodeUpdate     Event = "code-update"
	EventElementAdded   Event = "element-added"
	EventElementUpdated Event = "element-updated"
	EventElementRemoved Event = "element-removed"
	EventClearCanvas    Event = "clear-canvas"
	EventChatMessage    Event = "chat-message"
	EventFileShared     Event = "file-shared"
	EventMediaUpdate    Event = "media-update"
	EventPeerJoined     Event = "peer-joined"
	EventWebRTCOffer    Event = "webrtc-offer"
	EventWebRTCAnswer   Event = "webrtc-answer"
	EventWebRTCICE      Event = "webrtc-ice"
)

// Transport level event names used between clients and the relay.
const (
	// SocketMessage carries an Envelope in either direction.
	SocketMessage = "message"
	// SocketSubscribed is emitted by the relay once a client joined its topic.
	SocketSubscribed = "subscribed"
	// SocketPeerLeft is emitted by the relay when the other participant leaves.
	SocketPeerLeft = "peer-left"
	// SocketError is emitted by the relay before it drops a client.
	SocketError = "error"
)

var knownEvents = map[Event]struct{}{
	EventCodeUpdate:     {},
	EventElementAdded:   {},
	EventElementUpdated: {},
	EventElementRemoved: {},
	EventClearCanvas:    {},
	EventChatMessage:    {},
	EventFileShared:     {},
	EventMediaUpdate:    {},
	EventPeerJoined:     {},
	EventWebRTCOffer:    {},
	EventWebRTCAnswer:   {},
	EventWebRTCICE:      {},
}

// Known reports whether e is part of the session event set.
func (e Event) Known() bool {
	_, ok := knownEvents[e]
	return ok
}

// IsSignaling reports whether e belongs to the media negotiation exchange.
func (e Event) IsSignaling() bool {
	return e == EventPeerJoined || strings.HasPrefix(string(e), "webrtc-")
}

// Envelope is one message on a session topic.
type Envelope struct {
	// Event is the message type.
	Event Event `json:"event"`
	// From is the sender's participant id. The relay stamps it.
	From string `json:"from,omitempty"`
	// Payload is the event specific JSON body.
	Payload json.RawMessage `json:"payload"`
	// SentAt is the send time in ms since epoch.
	SentAt int64 `json:"sentAt,omitempty"`
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event Event, payload any) (Envelope, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Payload: raw}, nil
}

// Validator is implemented by payloads that check their own shape.
type Validator interface {
	Validate() error
}

// Decode unmarshals an envelope payload into T and validates it.
func Decode[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("%w: %s: empty payload", ErrMalformed, env.Event)
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
	}
	return out, nil
}

// DecodeAny converts a loosely typed transport value (as handed out by the
// Socket.IO libraries) into an Envelope.
func DecodeAny(input any) (Envelope, error) {
	var env Envelope
	var raw []byte
	switch v := input.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(input)
		if err != nil {
			return env, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return env, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}
