package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"gunplay/internal/game"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	Addr           string
	Stats          StatsStore
	CORSOrigins    []string
	RateLimit      RateLimitConfig
	MaxWSPerIP     int
	TokenSecret    []byte // empty generates a per-process secret
	RecentLimit    int
	DisableLogging bool
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the hub that streams session frames.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	tokens      *TokenIssuer
	httpServer  *http.Server
	logger      zerolog.Logger
}

// NewServer creates the API server for engine.
//
// IMPORTANT: no listener is opened until Run is called. For testing HTTP
// endpoints use Router() with httptest.
func NewServer(engine *game.Engine, cfg ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		engine:      engine,
		tokens:      NewTokenIssuer(cfg.TokenSecret, 0),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
		logger:      logger,
	}
	origins := NewOriginChecker(cfg.CORSOrigins)
	s.hub = NewHub(engine, s.tokens, origins, cfg.MaxWSPerIP, logger)

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Tokens:         s.tokens,
		Stats:          cfg.Stats,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    origins.Patterns(),
		RecentLimit:    cfg.RecentLimit,
		DisableLogging: cfg.DisableLogging,
	})

	// The socket needs the hub, so it is not part of the NewRouter factory.
	s.router.Get("/ws", s.hub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Callbacks returns engine callbacks that stream frames to sockets and
// record metrics. Compose them with other consumers before SetCallbacks.
func (s *Server) Callbacks() game.Callbacks {
	return game.Callbacks{
		OnFrame: func(u game.FrameUpdate) {
			RecordFrame(u)
			s.hub.Publish(u)
		},
		OnEnd: s.hub.CloseSession,
		OnTick: func(d time.Duration, sessions int) {
			RecordTick(d, sessions)
			UpdateEventLogStats(s.engine.EventLogStats())
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server starting")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.Stop()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the socket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Tokens returns the session token issuer.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// Stop releases background workers.
func (s *Server) Stop() {
	s.rateLimiter.Stop()
}
