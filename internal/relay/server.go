package relay

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/internal/relay/middleware"
	"github.com/piyushdolas8/skillswap/internal/storage"
)

// FilesPath is where the local storage backend is served.
const FilesPath = "/files"

// Config wires a relay Server.
type Config struct {
	Tokens       *crypto.TokenManager
	MasterSecret string
	Origins      []string

	// Uploader stores shared files. Nil disables POST /v1/files.
	Uploader       storage.Uploader
	MaxUploadBytes int64
	// LocalFilesDir is served under FilesPath when set.
	LocalFilesDir string

	// Metrics enables the collectors and GET /metrics.
	Metrics bool
}

// Server is the relay's HTTP surface.
type Server struct {
	router   *gin.Engine
	rooms    *Rooms
	socketIO *SocketIOServer
	ws       *WSServer
}

// NewServer builds the router and both realtime endpoints.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("token manager is required")
	}
	if len(cfg.Origins) == 0 {
		cfg.Origins = []string{"*"}
	}

	var metrics *Metrics
	if cfg.Metrics {
		metrics = NewMetrics()
	}
	rooms := NewRooms(metrics)

	s := &Server{
		router:   gin.New(),
		rooms:    rooms,
		socketIO: NewSocketIOServer(rooms, cfg.Tokens, metrics, cfg.Origins),
		ws:       NewWSServer(rooms, cfg.Tokens, metrics, cfg.Origins),
	}

	router := s.router
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.SecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsString(cfg.Origins, "*"),
	}))
	router.Use(middleware.LoggingMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "SkillSwap relay")
	})

	h := &handlers{
		rooms:          rooms,
		tokens:         cfg.Tokens,
		uploader:       cfg.Uploader,
		maxUploadBytes: cfg.MaxUploadBytes,
		metrics:        metrics,
	}
	router.GET("/healthz", h.health)

	v1 := router.Group("/v1")
	{
		v1.POST("/auth/token", middleware.RequireSecret(cfg.MasterSecret), h.issueToken)
		v1.GET("/ws", s.ws.Handle)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.Tokens))
	{
		protected.GET("/topics/:id", h.topic)
		protected.POST("/files", h.uploadFile)
	}

	// Authentication happens in the Socket.IO handshake.
	router.Any(SocketIOPath, s.socketIO.Handler())
	router.Any(SocketIOPath+"/*any", s.socketIO.Handler())

	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if cfg.LocalFilesDir != "" {
		router.Static(FilesPath, cfg.LocalFilesDir)
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Rooms exposes the topic registry.
func (s *Server) Rooms() *Rooms { return s.rooms }

// Close shuts down the realtime endpoints.
func (s *Server) Close() error {
	return s.socketIO.Close()
}
