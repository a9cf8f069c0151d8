package room

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	maxTextWords   = 500

	// DefaultAPILimit is the per-client budget of /api requests per minute.
	DefaultAPILimit = 120
)

// ServerOptions configures the HTTP surface. Hub.Submitter also backs
// POST /api/scores.
type ServerOptions struct {
	Hub      HubOptions
	Registry *prometheus.Registry
	Logger   *zap.Logger
	// APILimit caps /api requests per client IP per minute. Zero means
	// DefaultAPILimit; a negative value disables limiting.
	APILimit int
}

// Server exposes the hub over websockets plus a small JSON/text API.
type Server struct {
	hub       *Hub
	provider  provider.Provider
	textWords int
	submitter Submitter
	log       *zap.Logger
	registry  *prometheus.Registry
	apiLimit  int
	upgrader  websocket.Upgrader
	engine    *gin.Engine
}

// NewServer builds the gin router and a hub. A nil registry gets a private
// one so several servers can coexist in one process.
func NewServer(opts ServerOptions) *Server {
	log := logging.OrNop(opts.Logger)
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	hubOpts := opts.Hub
	if hubOpts.Logger == nil {
		hubOpts.Logger = log
	}
	if hubOpts.Metrics == nil {
		hubOpts.Metrics = NewMetrics(reg)
	}
	hub := NewHub(hubOpts)

	s := &Server{
		hub:       hub,
		provider:  hubOpts.Provider,
		textWords: hub.opts.TextWords,
		submitter: hubOpts.Submitter,
		log:       log,
		registry:  reg,
		apiLimit:  opts.APILimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.hub.RoomCount()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	if limiter := s.apiLimiter(); limiter != nil {
		api.Use(limiter)
	}
	api.GET("/text", s.handleText)
	api.POST("/scores", s.handleScore)

	r.GET("/ws/rooms/:room", s.handleRoom)
	return r
}

func (s *Server) apiLimiter() gin.HandlerFunc {
	limit := s.apiLimit
	if limit < 0 {
		return nil
	}
	if limit == 0 {
		limit = DefaultAPILimit
	}
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: uint(limit),
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
		ErrorHandler: func(c *gin.Context, _ ratelimit.Info) {
			s.log.Warn("api rate limit hit", zap.String("client_ip", c.ClientIP()), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		},
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the room hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("room server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleText(c *gin.Context) {
	mode, err := model.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count := s.textWords
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTextWords {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 500"})
			return
		}
		count = n
	}
	text := provider.Fetch(c.Request.Context(), s.provider, mode, count, s.log)
	c.String(http.StatusOK, text)
}

func (s *Server) handleScore(c *gin.Context) {
	var res model.Result
	if err := c.ShouldBindJSON(&res); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result payload"})
		return
	}
	if _, err := model.ParseMode(string(res.Mode)); err != nil || res.Mode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	}
	if res.WPM < 0 || res.Accuracy < 0 || res.Accuracy > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metrics out of range"})
		return
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now()
	}
	if s.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "score storage disabled"})
		return
	}
	if err := s.submitter.SubmitResult(c.Request.Context(), res); err != nil {
		s.log.Error("failed to store score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store score"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res.ID})
}

func (s *Server) handleRoom(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("room"))
	player := strings.TrimSpace(c.Query("player"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room is required"})
		return
	}
	if player == "" {
		player = "player-" + uuid.NewString()[:8]
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	peer := newWSPeer(conn)
	if err := s.hub.Attach(roomID, player, peer); err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go peer.writeLoop(s.log.With(zap.String("room", roomID), zap.String("player", player)))
	defer func() {
		peer.close()
		s.hub.Detach(roomID, player)
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close after the read loop ends.
			_ = cerr
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("room connection closed", zap.String("room", roomID), zap.String("player", player), zap.Error(err))
			}
			return
		}
		s.hub.Handle(ctx, roomID, player, data)
	}
}

// RequestLogger logs each request with zap.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			log.Error("server error", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Debug("request processed", fields...)
		}
	}
}
