package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gunplay/internal/game"
	"gunplay/internal/input"
	"gunplay/internal/stats"
)

// EngineInterface defines the session engine methods used by the API.
// This interface enables mocking for tests without spinning up the frame loop.
type EngineInterface interface {
	CreateSession(loadout []string) (game.SessionInfo, error)
	EndSession(id string) (game.SessionSummary, error)
	Session(id string) (game.SessionInfo, bool)
	Sessions() []game.SessionInfo
	Push(id string, ev input.Event) error
}

// StatsStore is the read side of the session statistics store.
type StatsStore interface {
	Recent(ctx context.Context, n int) ([]stats.SessionStats, error)
	Totals(ctx context.Context) (stats.Totals, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: engine,
//	    Tokens: tokens,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the session engine (required)
	Engine EngineInterface

	// Tokens signs session ownership tokens. Nil uses a random secret.
	Tokens *TokenIssuer

	// Stats serves /api/stats. Nil answers 503.
	Stats StatsStore

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil. If both are nil,
	// uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// RecentLimit caps the rows returned by /api/stats/recent.
	RecentLimit int

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies.
type routerHandlers struct {
	engine      EngineInterface
	tokens      *TokenIssuer
	stats       StatsStore
	recentLimit int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup
// goroutine when no RateLimiter is passed:
//   - No network listeners are opened
//   - No frame loop is started
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", TokenHeader},
		MaxAge:         300,
	}))

	if cfg.Tokens == nil {
		cfg.Tokens = NewTokenIssuer(nil, 0)
	}

	h := &routerHandlers{
		engine:      cfg.Engine,
		tokens:      cfg.Tokens,
		stats:       cfg.Stats,
		recentLimit: cfg.RecentLimit,
	}
	if h.recentLimit <= 0 {
		h.recentLimit = 50
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Weapon catalog
		r.Get("/weapons", h.handleGetWeapons)
		r.Get("/weapons/{name}", h.handleGetWeapon)
		r.Get("/weapons/{name}/pattern.png", h.handleGetPattern)

		// Sessions
		r.Get("/sessions", h.handleListSessions)
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{id}", h.handleGetSession)
		r.Group(func(r chi.Router) {
			r.Use(cfg.Tokens.RequireSession)
			r.Delete("/sessions/{id}", h.handleEndSession)
			r.Post("/sessions/{id}/input", h.handlePushInput)
		})

		// Statistics
		r.Get("/stats/recent", h.handleRecentStats)
		r.Get("/stats/totals", h.handleTotals)
	})

	return r
}
