// Package wsclient connects a session to the relay over a plain WebSocket,
// for environments where Socket.IO is not available.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

const (
	// Path is where the relay mounts its WebSocket endpoint.
	Path = "/v1/ws"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is a channel.Channel backed by a gorilla WebSocket.
type Client struct {
	serverURL string
	token     string
	topic     string
	dialer    *websocket.Dialer
	now       func() time.Time

	writeMu sync.Mutex
	mu      sync.RWMutex
	conn    *websocket.Conn
	self    string
	joined  bool
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

var _ channel.Channel = (*Client)(nil)

// New returns a client for topic on the relay at serverURL (http or ws
// scheme).
func New(serverURL, token, topic string) *Client {
	return &Client{
		serverURL: serverURL,
		token:     token,
		topic:     topic,
		dialer:    websocket.DefaultDialer,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Self returns the participant id assigned by the relay.
func (c *Client) Self() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

// Endpoint builds the WebSocket URL for topic.
func Endpoint(serverURL, topic string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + Path
	q := u.Query()
	q.Set("topic", topic)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe implements channel.Channel. The dial happens synchronously; the
// subscription outcome arrives through h.OnStatus.
func (c *Client) Subscribe(ctx context.Context, h channel.Handler) error {
	c.mu.RLock()
	closed, conn := c.closed, c.conn
	c.mu.RUnlock()
	if closed {
		return channel.ErrClosed
	}
	if conn != nil {
		return fmt.Errorf("already subscribed to %s", c.topic)
	}

	endpoint, err := Endpoint(c.serverURL, c.topic)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			go h.Notify(channel.StatusFailed, rejection(resp))
			return nil
		}
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn, h)
	go c.pingPump(conn)
	return nil
}

// rejection maps the relay's pre-upgrade refusal body to an error. A full
// topic and a duplicate participant both answer 409.
func rejection(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if resp.Body != nil {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	switch {
	case body.Error == channel.ErrTopicFull.Error():
		return channel.ErrTopicFull
	case body.Error != "":
		return fmt.Errorf("relay error: %s", body.Error)
	}
	return fmt.Errorf("relay answered %d", resp.StatusCode)
}

func (c *Client) readPump(conn *websocket.Conn, h channel.Handler) {
	defer func() {
		c.mu.Lock()
		wasJoined, closed := c.joined, c.closed
		c.joined = false
		c.mu.Unlock()
		_ = conn.Close()
		if wasJoined && !closed {
			h.Notify(channel.StatusClosed, errors.New("connection lost"))
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	reported := false
	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("ws: read error (topic %s): %v", c.topic, err)
			}
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !reported && !closed {
				h.Notify(channel.StatusFailed, err)
			}
			return
		}

		switch frame.Type {
		case wire.SocketSubscribed:
			var ack wire.Subscribed
			if err := frame.ParseData(&ack); err != nil {
				logger.Warnf("ws: bad subscribed frame: %v", err)
			}
			c.mu.Lock()
			c.self = ack.Self
			c.joined = true
			c.mu.Unlock()
			if !reported {
				reported = true
				h.Notify(channel.StatusSubscribed, nil)
			}

		case wire.SocketMessage:
			var env wire.Envelope
			if err := frame.ParseData(&env); err != nil || env.Event == "" {
				logger.Debugf("ws: dropping malformed message frame")
				continue
			}
			h.Deliver(env)

		case wire.SocketPeerLeft:
			h.Notify(channel.StatusPeerLeft, nil)

		case wire.SocketError:
			var payload wire.ErrorPayload
			_ = frame.ParseData(&payload)
			if !reported {
				reported = true
				err := fmt.Errorf("relay error: %s", payload.Message)
				if payload.Message == channel.ErrTopicFull.Error() {
					err = channel.ErrTopicFull
				}
				h.Notify(channel.StatusFailed, err)
			}
		}
	}
}

func (c *Client) pingPump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Send implements channel.Channel.
func (c *Client) Send(_ context.Context, event wire.Event, payload any) error {
	c.mu.RLock()
	conn, joined, closed := c.conn, c.joined, c.closed
	c.mu.RUnlock()
	switch {
	case closed:
		return channel.ErrClosed
	case conn == nil || !joined:
		return channel.ErrNotSubscribed
	}

	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	env.SentAt = c.now().UnixMilli()
	frame, err := wire.NewFrame(wire.SocketMessage, env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Close implements channel.Channel.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()
		close(c.done)
		if conn == nil {
			return
		}
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		_ = conn.Close()
	})
	return nil
}
