// Package relay is the server side of the realtime channel: it admits at most
// two participants per topic and forwards every session message from one to
// the other, stamping the sender.
package relay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// ErrAlreadyJoined is returned when a participant id is already on the topic.
var ErrAlreadyJoined = errors.New("participant already joined")

// Member is one subscribed connection. Its methods are called with the room
// lock held and must not block.
type Member interface {
	ID() string
	// Joined acknowledges the subscription before any message is delivered.
	Joined(ack wire.Subscribed)
	Deliver(env wire.Envelope)
	PeerLeft()
}

// Rooms tracks topic membership across every transport.
type Rooms struct {
	mu      sync.Mutex
	topics  map[string]map[string]Member
	metrics *Metrics
}

// NewRooms returns an empty registry. metrics may be nil.
func NewRooms(metrics *Metrics) *Rooms {
	return &Rooms{
		topics:  make(map[string]map[string]Member),
		metrics: metrics,
	}
}

// Join admits m to topic and acknowledges it.
func (r *Rooms) Join(topic string, m Member) error {
	if topic == "" {
		return errors.New("topic is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.topics[topic]
	if _, ok := members[m.ID()]; ok {
		r.metrics.rejected("duplicate")
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, m.ID())
	}
	if len(members) >= channel.MaxSubscribers {
		r.metrics.rejected("full")
		return channel.ErrTopicFull
	}
	if members == nil {
		members = make(map[string]Member, channel.MaxSubscribers)
		r.topics[topic] = members
	}
	members[m.ID()] = m
	r.metrics.topics(len(r.topics))

	logger.Debugf("relay: %s joined %s (%d/%d)", m.ID(), topic, len(members), channel.MaxSubscribers)
	m.Joined(wire.Subscribed{Topic: topic, Self: m.ID(), Peers: len(members)})
	return nil
}

// Leave removes m from topic and tells the remaining participant. Leaving a
// topic m is not on is a no-op.
func (r *Rooms) Leave(topic string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.topics[topic]
	if members[m.ID()] != m {
		return
	}
	delete(members, m.ID())
	if len(members) == 0 {
		delete(r.topics, topic)
	}
	r.metrics.topics(len(r.topics))

	logger.Debugf("relay: %s left %s", m.ID(), topic)
	for _, other := range members {
		other.PeerLeft()
	}
}

// Relay forwards env from sender to every other member of topic and returns
// how many received it. The relay does not interpret payloads.
func (r *Rooms) Relay(topic string, sender Member, env wire.Envelope) int {
	if env.Event == "" {
		return 0
	}
	env.From = sender.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.topics[topic]
	if members[sender.ID()] != sender {
		return 0
	}
	n := 0
	for id, other := range members {
		if id == sender.ID() {
			continue
		}
		other.Deliver(env)
		n++
	}
	r.metrics.relayed(env.Event)
	return n
}

// Occupancy returns how many participants are on topic.
func (r *Rooms) Occupancy(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// Topics returns how many topics have participants.
func (r *Rooms) Topics() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}
