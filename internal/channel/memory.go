package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// memoryQueueSize bounds each subscriber's pending deliveries. Overflow is
// dropped, which at-most-once delivery allows.
const memoryQueueSize = 256

// Hub is an in-process set of topics. It backs tests and single-machine demos
// with the same semantics as the relay.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[string]*MemoryChannel
	now    func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[string]*MemoryChannel),
		now:    time.Now,
	}
}

// Channel returns a channel for participant self on topic. Nothing happens
// until Subscribe.
func (h *Hub) Channel(topic, self string) *MemoryChannel {
	return &MemoryChannel{hub: h, topic: topic, self: self}
}

// Occupancy returns how many participants are subscribed to topic.
func (h *Hub) Occupancy(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *Hub) join(c *MemoryChannel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.topics[c.topic]
	if members == nil {
		members = make(map[string]*MemoryChannel)
		h.topics[c.topic] = members
	}
	if _, ok := members[c.self]; ok {
		return fmt.Errorf("participant %s already on topic %s", c.self, c.topic)
	}
	if len(members) >= MaxSubscribers {
		return ErrTopicFull
	}
	members[c.self] = c
	return nil
}

func (h *Hub) leave(c *MemoryChannel) []*MemoryChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.topics[c.topic]
	if members[c.self] != c {
		return nil
	}
	delete(members, c.self)
	if len(members) == 0 {
		delete(h.topics, c.topic)
		return nil
	}
	out := make([]*MemoryChannel, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	return out
}

func (h *Hub) peers(c *MemoryChannel) []*MemoryChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*MemoryChannel
	for id, m := range h.topics[c.topic] {
		if id != c.self {
			out = append(out, m)
		}
	}
	return out
}

// MemoryChannel is a Channel on a Hub.
type MemoryChannel struct {
	hub   *Hub
	topic string
	self  string

	mu      sync.Mutex
	handler Handler
	queue   chan func()
	done    chan struct{}
	joined  bool
	closed  bool
}

var _ Channel = (*MemoryChannel)(nil)

// Self returns the participant id stamped on outgoing envelopes.
func (c *MemoryChannel) Self() string { return c.self }

// Subscribe implements Channel.
func (c *MemoryChannel) Subscribe(_ context.Context, h Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.joined {
		c.mu.Unlock()
		return fmt.Errorf("already subscribed to %s", c.topic)
	}
	c.handler = h
	c.queue = make(chan func(), memoryQueueSize)
	c.done = make(chan struct{})
	go c.run()
	c.mu.Unlock()

	if err := c.hub.join(c); err != nil {
		c.push(func() { h.status(StatusFailed, err) })
		return nil
	}

	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
	c.push(func() { h.status(StatusSubscribed, nil) })
	return nil
}

func (c *MemoryChannel) run() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryChannel) push(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue == nil || c.closed {
		return
	}
	select {
	case c.queue <- fn:
	default:
		logger.Warnf("memory channel %s/%s: queue full, dropping delivery", c.topic, c.self)
	}
}

// Send implements Channel.
func (c *MemoryChannel) Send(_ context.Context, event wire.Event, payload any) error {
	c.mu.Lock()
	closed, joined := c.closed, c.joined
	c.mu.Unlock()
	switch {
	case closed:
		return ErrClosed
	case !joined:
		return ErrNotSubscribed
	}

	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	env.From = c.self
	env.SentAt = c.hub.now().UnixMilli()

	for _, peer := range c.hub.peers(c) {
		peer.push(func() { peer.handler.message(env) })
	}
	return nil
}

// Close implements Channel.
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	joined := c.joined
	c.mu.Unlock()

	if joined {
		for _, peer := range c.hub.leave(c) {
			peer.push(func() { peer.handler.status(StatusPeerLeft, nil) })
		}
	}

	c.mu.Lock()
	c.closed = true
	if c.done != nil {
		close(c.done)
	}
	c.mu.Unlock()
	return nil
}
