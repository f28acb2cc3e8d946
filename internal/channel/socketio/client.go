// Package socketio connects a session to the relay over Socket.IO.
package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
	socket "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
)

// Path is where the relay mounts its Socket.IO endpoint.
const Path = "/v1/updates"

// Client is a channel.Channel backed by a Socket.IO connection.
type Client struct {
	serverURL string
	token     string
	topic     string
	now       func() time.Time

	mu        sync.RWMutex
	socket    *socket.Socket
	handler   channel.Handler
	self      string
	connected bool
	joined    bool
	closed    bool
	reported  bool

	// deliveries serializes handler callbacks.
	deliveries chan func()
	done       chan struct{}
	closeOnce  sync.Once
}

var _ channel.Channel = (*Client)(nil)

// New returns a client for topic on the relay at serverURL.
func New(serverURL, token, topic string) *Client {
	return &Client{
		serverURL:  serverURL,
		token:      token,
		topic:      topic,
		now:        time.Now,
		deliveries: make(chan func(), 256),
		done:       make(chan struct{}),
	}
}

// Self returns the participant id assigned by the relay, empty before the
// subscription completes.
func (c *Client) Self() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

// Subscribe implements channel.Channel.
func (c *Client) Subscribe(_ context.Context, h channel.Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return channel.ErrClosed
	}
	if c.socket != nil {
		c.mu.Unlock()
		return fmt.Errorf("already subscribed to %s", c.topic)
	}
	c.handler = h
	c.mu.Unlock()

	go c.run()

	opts := socket.DefaultOptions()
	opts.SetPath(Path)
	opts.SetTransports(types.NewSet(socket.Polling, socket.WebSocket))
	opts.SetReconnection(false)
	opts.SetAuth(map[string]any{
		"token": c.token,
		"topic": c.topic,
	})

	logger.Debugf("socket.io: connecting to %s%s (topic %s)", c.serverURL, Path, c.topic)
	sock, err := socket.Connect(c.serverURL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.socket = sock
	c.mu.Unlock()

	sock.On(types.EventName("connect"), func(args ...any) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		logger.Debugf("socket.io: connected (topic %s)", c.topic)
	})

	sock.On(types.EventName("connect_error"), func(args ...any) {
		var err error = fmt.Errorf("connect error")
		if len(args) > 0 {
			err = fmt.Errorf("connect error: %v", args[0])
		}
		c.fail(err)
	})

	sock.On(types.EventName(wire.SocketSubscribed), func(args ...any) {
		var ack wire.Subscribed
		if len(args) > 0 {
			if err := decodeAny(args[0], &ack); err != nil {
				logger.Warnf("socket.io: bad subscribed payload: %v", err)
			}
		}
		c.subscribed(ack)
	})

	sock.On(types.EventName(wire.SocketError), func(args ...any) {
		var payload wire.ErrorPayload
		if len(args) > 0 {
			_ = decodeAny(args[0], &payload)
		}
		c.fail(relayError(payload.Message))
	})

	sock.On(types.EventName(wire.SocketMessage), func(args ...any) {
		if len(args) == 0 {
			return
		}
		env, err := wire.DecodeAny(args[0])
		if err != nil {
			logger.Debugf("socket.io: dropping message: %v", err)
			return
		}
		c.dispatch(func() { h.Deliver(env) })
	})

	sock.On(types.EventName(wire.SocketPeerLeft), func(args ...any) {
		c.dispatch(func() { h.Notify(channel.StatusPeerLeft, nil) })
	})

	sock.On(types.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		c.disconnected(reason)
	})

	return nil
}

// relayError maps the relay's error message to the error reported on
// subscribe.
func relayError(message string) error {
	if message == channel.ErrTopicFull.Error() {
		return channel.ErrTopicFull
	}
	return fmt.Errorf("relay error: %s", message)
}

func (c *Client) subscribed(ack wire.Subscribed) {
	c.mu.Lock()
	c.self = ack.Self
	c.joined = true
	first := !c.reported
	c.reported = true
	h := c.handler
	c.mu.Unlock()
	if first {
		c.dispatch(func() { h.Notify(channel.StatusSubscribed, nil) })
	}
}

// disconnected reports a drop after the ack as closed and a drop before it
// as a failed subscription.
func (c *Client) disconnected(reason string) {
	c.mu.Lock()
	wasJoined := c.joined
	closed := c.closed
	c.connected = false
	c.joined = false
	h := c.handler
	c.mu.Unlock()
	logger.Infof("socket.io: disconnected (topic %s): %s", c.topic, reason)
	switch {
	case closed:
	case wasJoined:
		c.dispatch(func() { h.Notify(channel.StatusClosed, fmt.Errorf("disconnected: %s", reason)) })
	default:
		c.fail(fmt.Errorf("disconnected before subscribing: %s", reason))
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	first := !c.reported
	c.reported = true
	h := c.handler
	c.mu.Unlock()
	if first {
		c.dispatch(func() { h.Notify(channel.StatusFailed, err) })
	}
}

func (c *Client) run() {
	for {
		select {
		case fn := <-c.deliveries:
			fn()
		case <-c.done:
			return
		}
	}
}

func (c *Client) dispatch(fn func()) {
	select {
	case <-c.done:
	case c.deliveries <- fn:
	default:
		logger.Warnf("socket.io: delivery queue full (topic %s), dropping", c.topic)
	}
}

// Send implements channel.Channel.
func (c *Client) Send(_ context.Context, event wire.Event, payload any) error {
	c.mu.RLock()
	sock, joined, closed := c.socket, c.joined, c.closed
	c.mu.RUnlock()
	switch {
	case closed:
		return channel.ErrClosed
	case sock == nil || !joined:
		return channel.ErrNotSubscribed
	}

	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	env.SentAt = c.now().UnixMilli()

	var data map[string]any
	if err := decodeAny(env, &data); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	sock.Emit(wire.SocketMessage, data)
	return nil
}

// Close implements channel.Channel.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		sock := c.socket
		c.mu.Unlock()
		if sock != nil {
			sock.Disconnect()
		}
		close(c.done)
	})
	return nil
}

func decodeAny(input any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
