package relay

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

const (
	// WSPath is where the plain WebSocket endpoint is mounted.
	WSPath = "/v1/ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendQueueSize  = 256

	transportWS = "ws"
)

// WSServer admits plain WebSocket clients to topic rooms.
type WSServer struct {
	rooms    *Rooms
	tokens   *crypto.TokenManager
	metrics  *Metrics
	upgrader websocket.Upgrader
}

// NewWSServer builds the WebSocket endpoint on rooms.
func NewWSServer(rooms *Rooms, tokens *crypto.TokenManager, metrics *Metrics, origins []string) *WSServer {
	return &WSServer{
		rooms:   rooms,
		tokens:  tokens,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || containsString(origins, "*") || containsString(origins, origin)
			},
		},
	}
}

// wsMember is a WebSocket connection on a topic. Frames queue on send and a
// single writer drains them.
type wsMember struct {
	id      string
	metrics *Metrics

	mu     sync.Mutex
	send   chan wire.Frame
	closed bool
}

func newWSMember(id string, metrics *Metrics) *wsMember {
	return &wsMember{id: id, metrics: metrics, send: make(chan wire.Frame, sendQueueSize)}
}

func (m *wsMember) ID() string { return m.id }

func (m *wsMember) Joined(ack wire.Subscribed) { m.enqueue(wire.SocketSubscribed, ack) }

func (m *wsMember) Deliver(env wire.Envelope) { m.enqueue(wire.SocketMessage, env) }

func (m *wsMember) PeerLeft() { m.enqueue(wire.SocketPeerLeft, map[string]any{}) }

func (m *wsMember) enqueue(typ string, data any) {
	frame, err := wire.NewFrame(typ, data)
	if err != nil {
		logger.Warnf("ws: encode %s frame: %v", typ, err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.send <- frame:
	default:
		m.metrics.dropped()
		logger.Warnf("ws: send queue full for %s, dropping %s", m.id, typ)
	}
}

func (m *wsMember) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.send)
	}
}

// Handle upgrades a request for ?topic=. Authentication is a bearer token in
// the Authorization header or the token query parameter. A full topic is
// refused with 409 before the upgrade.
func (s *WSServer) Handle(c *gin.Context) {
	topic := strings.TrimSpace(c.Query("topic"))
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing topic"})
		return
	}

	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.metrics.rejected("auth")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if !claims.AllowsTopic(topic) {
		s.metrics.rejected("auth")
		c.JSON(http.StatusForbidden, gin.H{"error": "token is not valid for this topic"})
		return
	}

	member := newWSMember(claims.UserID(), s.metrics)
	if err := s.rooms.Join(topic, member); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, channel.ErrTopicFull) || errors.Is(err, ErrAlreadyJoined) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("ws: upgrade failed for %s: %v", member.id, err)
		s.rooms.Leave(topic, member)
		member.close()
		return
	}
	s.metrics.connected(transportWS)
	logger.Infof("ws client ready (user: %s, topic: %s)", member.id, topic)

	go s.writePump(conn, member)
	s.readPump(conn, topic, member)
}

func (s *WSServer) readPump(conn *websocket.Conn, topic string, m *wsMember) {
	defer func() {
		s.rooms.Leave(topic, m)
		m.close()
		s.metrics.disconnected(transportWS)
		logger.Infof("ws client disconnected (user: %s, topic: %s)", m.id, topic)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("ws: read error (user %s): %v", m.id, err)
			}
			return
		}
		if frame.Type != wire.SocketMessage {
			continue
		}
		var env wire.Envelope
		if err := frame.ParseData(&env); err != nil {
			logger.Debugf("ws: dropping malformed frame from %s: %v", m.id, err)
			continue
		}
		s.rooms.Relay(topic, m, env)
	}
}

func (s *WSServer) writePump(conn *websocket.Conn, m *wsMember) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-m.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
