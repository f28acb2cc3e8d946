package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

const (
	// SocketIOPath is where the Socket.IO endpoint is mounted.
	SocketIOPath = "/v1/updates"

	// socketIOPingInterval is how often the server pings clients so a peer
	// that vanished without a disconnect frees its slot quickly.
	socketIOPingInterval = 5 * time.Second
	socketIOPingTimeout  = 15 * time.Second

	transportSocketIO = "socketio"
)

// SocketIOServer admits Socket.IO clients to topic rooms.
type SocketIOServer struct {
	server  *socket.Server
	rooms   *Rooms
	tokens  *crypto.TokenManager
	metrics *Metrics
	origins []string
}

// NewSocketIOServer builds the Socket.IO endpoint on rooms.
func NewSocketIOServer(rooms *Rooms, tokens *crypto.TokenManager, metrics *Metrics, origins []string) *SocketIOServer {
	opts := socket.DefaultServerOptions()
	opts.SetCors(&sockettypes.Cors{
		Origin:      corsOrigin(origins),
		Credentials: false,
	})
	opts.SetPingTimeout(socketIOPingTimeout)
	opts.SetPingInterval(socketIOPingInterval)
	opts.SetPath(SocketIOPath)

	s := &SocketIOServer{
		server:  socket.NewServer(nil, opts),
		rooms:   rooms,
		tokens:  tokens,
		metrics: metrics,
		origins: origins,
	}
	s.server.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.handleConnection(client)
	})
	return s
}

func corsOrigin(origins []string) any {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return "*"
	}
	return origins
}

// sioMember is a Socket.IO connection on a topic.
type sioMember struct {
	id     string
	client *socket.Socket
}

func (m *sioMember) ID() string { return m.id }

func (m *sioMember) Joined(ack wire.Subscribed) {
	m.client.Emit(wire.SocketSubscribed, ack)
}

func (m *sioMember) Deliver(env wire.Envelope) {
	m.client.Emit(wire.SocketMessage, env)
}

func (m *sioMember) PeerLeft() {
	m.client.Emit(wire.SocketPeerLeft, map[string]any{})
}

func (s *SocketIOServer) reject(client *socket.Socket, reason, message string) {
	s.metrics.rejected(reason)
	client.Emit(wire.SocketError, wire.ErrorPayload{Message: message})
	client.Disconnect(true)
}

func (s *SocketIOServer) handleConnection(client *socket.Socket) {
	socketID := string(client.Id())
	logger.Debugf("Socket.IO connection attempt (socket ID: %s)", socketID)

	authMap := client.Handshake().Auth
	if len(authMap) == 0 {
		logger.Warnf("Socket.IO missing auth data (socket %s)", socketID)
		s.reject(client, "auth", "Missing authentication data")
		return
	}

	var auth wire.SocketAuth
	if err := decodeAny(authMap, &auth); err != nil {
		logger.Warnf("Socket.IO invalid auth data (socket %s): %v", socketID, err)
		s.reject(client, "auth", "Invalid authentication data")
		return
	}
	auth.Topic = strings.TrimSpace(auth.Topic)
	if auth.Topic == "" {
		s.reject(client, "auth", "Missing topic")
		return
	}

	// Do not log the token.
	claims, err := s.tokens.Verify(auth.Token)
	if err != nil {
		logger.Warnf("Socket.IO invalid token (socket %s): %v", socketID, err)
		s.reject(client, "auth", "Invalid authentication token")
		return
	}
	if !claims.AllowsTopic(auth.Topic) {
		s.reject(client, "auth", "Token is not valid for this topic")
		return
	}

	member := &sioMember{id: claims.UserID(), client: client}
	if err := s.rooms.Join(auth.Topic, member); err != nil {
		logger.Infof("Socket.IO subscription rejected (user %s, topic %s): %v", member.id, auth.Topic, err)
		client.Emit(wire.SocketError, wire.ErrorPayload{Message: err.Error()})
		client.Disconnect(true)
		return
	}
	s.metrics.connected(transportSocketIO)
	logger.Infof("Socket.IO client ready (user: %s, topic: %s)", member.id, auth.Topic)

	client.On(wire.SocketMessage, func(data ...any) {
		if len(data) == 0 {
			return
		}
		env, err := wire.DecodeAny(data[0])
		if err != nil {
			logger.Debugf("Socket.IO dropping message from %s: %v", member.id, err)
			return
		}
		s.rooms.Relay(auth.Topic, member, env)
	})

	client.On("disconnect", func(data ...any) {
		reason := ""
		if len(data) > 0 {
			if r, ok := data[0].(string); ok {
				reason = r
			}
		}
		logger.Infof("User disconnected: %s (socket %s, topic %s, reason: %s)", member.id, socketID, auth.Topic, reason)
		s.rooms.Leave(auth.Topic, member)
		s.metrics.disconnected(transportSocketIO)
	})
}

// Handler returns a gin handler serving the Socket.IO endpoint.
func (s *SocketIOServer) Handler() gin.HandlerFunc {
	httpHandler := s.server.ServeHandler(nil)
	allowOrigin := "*"
	if origin, ok := corsOrigin(s.origins).(string); ok {
		allowOrigin = origin
	}

	return func(c *gin.Context) {
		if allowOrigin == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin := c.GetHeader("Origin"); containsString(s.origins, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			return
		}

		logger.Tracef("Socket.IO request: %s %s", c.Request.Method, c.Request.URL.Path)
		httpHandler.ServeHTTP(c.Writer, c.Request)
	}
}

// Close shuts down the Socket.IO server.
func (s *SocketIOServer) Close() error {
	s.server.Close(nil)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func decodeAny(input any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(wire.ErrMalformed, err)
	}
	return nil
}
