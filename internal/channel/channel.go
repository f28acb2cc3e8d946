// Package channel is the realtime broadcast transport between the two
// participants of a session.
//
// Delivery is at-most-once with no local echo and FIFO order per sender.
// Nothing is persisted: a message sent while the peer is absent is lost.
package channel

import (
	"context"
	"errors"

	"github.com/piyushdolas8/skillswap/shared/wire"
)

// MaxSubscribers is the participant cap for a topic.
const MaxSubscribers = 2

var (
	// ErrTopicFull is reported when a third participant tries to subscribe.
	ErrTopicFull = errors.New("topic full")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("channel closed")
	// ErrNotSubscribed is returned by Send before the subscription completes.
	ErrNotSubscribed = errors.New("channel not subscribed")
)

// Status is a subscription lifecycle notification.
type Status string

const (
	// StatusSubscribed fires once the topic accepted this client.
	StatusSubscribed Status = "subscribed"
	// StatusFailed fires when the subscription could not be established.
	StatusFailed Status = "failed"
	// StatusPeerLeft fires when the other participant left the topic.
	StatusPeerLeft Status = "peer-left"
	// StatusClosed fires when the transport dropped after subscribing.
	StatusClosed Status = "closed"
)

// Handler receives inbound traffic. Callbacks run on a transport goroutine,
// one at a time, and must not block.
type Handler struct {
	OnMessage func(env wire.Envelope)
	OnStatus  func(status Status, err error)
}

func (h Handler) message(env wire.Envelope) {
	if h.OnMessage != nil {
		h.OnMessage(env)
	}
}

func (h Handler) status(s Status, err error) {
	if h.OnStatus != nil {
		h.OnStatus(s, err)
	}
}

// Deliver forwards an envelope to h.OnMessage if set.
func (h Handler) Deliver(env wire.Envelope) { h.message(env) }

// Notify forwards a status to h.OnStatus if set.
func (h Handler) Notify(s Status, err error) { h.status(s, err) }

// Channel is one participant's connection to a session topic.
type Channel interface {
	// Subscribe joins the topic. The outcome is reported once through
	// h.OnStatus; a returned error means the attempt could not start.
	Subscribe(ctx context.Context, h Handler) error

	// Send broadcasts payload as event to the other participant.
	Send(ctx context.Context, event wire.Event, payload any) error

	// Close leaves the topic. It is safe to call more than once.
	Close() error

	// Self is the participant id stamped on this client's envelopes. Relay
	// transports only know it once subscribed.
	Self() string
}
