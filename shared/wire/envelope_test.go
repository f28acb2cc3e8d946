package wire

import (
	"encoding/json"
	"testing"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/scene"
	"github.com/stretchr/testify/require"
)

func TestElementAddedRoundTrip(t *testing.T) {
	t.Parallel()

	el, err := scene.NewStroke("s1", scene.KindPencil,
		[]geometry.Point{{X: 1, Y: 2}, {X: 5, Y: 9}, {X: 7, Y: 3}}, "#1f2937", 4)
	require.NoError(t, err)
	el.Transform = geometry.Transform{X: 3, Y: -2, Rotation: 0.25, Scale: 1.5}

	env, err := NewEnvelope(EventElementAdded, ElementPayload{Element: el})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	back, err := DecodeAny(raw)
	require.NoError(t, err)
	require.Equal(t, EventElementAdded, back.Event)

	got, err := Decode[ElementPayload](back)
	require.NoError(t, err)
	require.Equal(t, el, got.Element)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := []Envelope{
		{Event: EventElementAdded},
		{Event: EventElementAdded, Payload: json.RawMessage(`{"element":`)},
		{Event: EventElementAdded, Payload: json.RawMessage(`{"element":{"id":"x","type":"pencil","points":[{"x":1,"y":1}],"transform":{"scale":1}}}`)},
		{Event: EventElementAdded, Payload: json.RawMessage(`{"element":{"id":"x","type":"hexagon","transform":{"scale":1}}}`)},
	}
	for _, env := range cases {
		_, err := Decode[ElementPayload](env)
		require.ErrorIs(t, err, ErrMalformed, string(env.Payload))
	}

	_, err := Decode[ChatMessage](Envelope{Event: EventChatMessage, Payload: json.RawMessage(`{"id":"1","text":"  "}`)})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode[SessionDescription](Envelope{Event: EventWebRTCOffer, Payload: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeAnyFromMap(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"event":   "chat-message",
		"from":    "peer-b",
		"payload": map[string]any{"id": "m1", "name": "Bo", "text": "hi", "timestamp": 12},
	}
	env, err := DecodeAny(in)
	require.NoError(t, err)
	require.Equal(t, "peer-b", env.From)

	msg, err := Decode[ChatMessage](env)
	require.NoError(t, err)
	require.Equal(t, ChatMessage{ID: "m1", Name: "Bo", Text: "hi", Timestamp: 12}, msg)

	_, err = DecodeAny(map[string]any{"payload": 1})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEmptyPayloadEvents(t *testing.T) {
	t.Parallel()

	env, err := NewEnvelope(EventClearCanvas, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(env.Payload))

	_, err = Decode[ClearCanvas](env)
	require.NoError(t, err)
}

func TestEventClassification(t *testing.T) {
	t.Parallel()

	require.True(t, EventWebRTCICE.IsSignaling())
	require.True(t, EventPeerJoined.IsSignaling())
	require.False(t, EventChatMessage.IsSignaling())
	require.True(t, EventElementRemoved.Known())
	require.False(t, Event("subscribed").Known())
}

func TestCodeUpdateRequiresCodeField(t *testing.T) {
	t.Parallel()

	env := Envelope{Event: EventCodeUpdate, Payload: json.RawMessage(`{"language":"go"}`)}
	_, err := Decode[CodeUpdate](env)
	require.ErrorIs(t, err, ErrMalformed)

	env.Payload = json.RawMessage(`{"code":"","language":"go"}`)
	p, err := Decode[CodeUpdate](env)
	require.NoError(t, err)
	require.Equal(t, CodeUpdate{Code: "", Language: "go"}, p)
}
