package api

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gunplay/internal/animation"
	"gunplay/internal/game"
)

// Metrics with bounded cardinality (no per-session labels to prevent DoS)
var (
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gunplay_frame_duration_seconds",
		Help:    "Time spent stepping every session for one frame",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.033},
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gunplay_active_sessions",
		Help: "Current number of game sessions",
	})

	shotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunplay_shots_total",
		Help: "Shots fired",
	}, []string{"classification"}) // Bounded: weapon classifications

	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunplay_hits_total",
		Help: "Hit-scan hits",
	})

	reloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunplay_reloads_total",
		Help: "Reloads started",
	})

	switchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunplay_weapon_switches_total",
		Help: "Weapons equipped",
	})

	inputDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunplay_input_dropped_total",
		Help: "Input events rejected before reaching a session",
	}, []string{"reason"}) // Bounded: "limited", "invalid", "unknown_session"

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gunplay_event_log_dropped",
		Help: "Events dropped by the event log since start",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin or token check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "token", "ws_ip_limit", "ws_total_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"}) // Bounded: "in", "out"
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on loopback in production
	AllowExternal bool
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// NewDebugServer builds the internal metrics and pprof server. It returns nil
// when disabled. The caller owns ListenAndServe and Shutdown.
func NewDebugServer(cfg ObservabilityConfig, logger zerolog.Logger) *http.Server {
	if !cfg.Enabled {
		logger.Info().Msg("debug server disabled")
		return nil
	}

	// pprof on a public interface is a DoS vector
	if !cfg.AllowExternal && !isLoopback(cfg.ListenAddr) {
		logger.Warn().Str("addr", cfg.ListenAddr).Msg("debug server forced to localhost")
		cfg.ListenAddr = DefaultObservabilityConfig().ListenAddr
	}

	var handler http.Handler = DebugHandler()
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, handler)
	}

	logger.Info().
		Str("pprof", "http://"+cfg.ListenAddr+"/debug/pprof/").
		Str("metrics", "http://"+cfg.ListenAddr+"/metrics").
		Msg("debug server configured")

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// DebugHandler serves /metrics, /health and the pprof endpoints.
func DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency and status per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// RecordTick records one engine frame. It matches game.Callbacks.OnTick.
func RecordTick(duration time.Duration, sessions int) {
	frameDuration.Observe(duration.Seconds())
	activeSessions.Set(float64(sessions))
}

// RecordFrame counts the gameplay events of a session frame.
func RecordFrame(u game.FrameUpdate) {
	for _, ev := range u.Events {
		switch p := ev.Payload.(type) {
		case game.FireEvent:
			shotsTotal.WithLabelValues(p.Classification.String()).Inc()
		case game.HitEvent:
			hitsTotal.Inc()
		case game.AnimationEvent:
			if p.Clip == animation.ClipReload {
				reloadsTotal.Inc()
			}
		case game.EquipEvent:
			switchesTotal.Inc()
		}
	}
}

// UpdateEventLogStats publishes the event log drop count.
func UpdateEventLogStats(stats game.EventLogStats) {
	eventLogDropped.Set(float64(stats.Dropped))
}

// RecordInputDropped counts input that never reached a session.
// reason must be one of: "limited", "invalid", "unknown_session"
func RecordInputDropped(reason string) {
	inputDropped.WithLabelValues(reason).Inc()
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func recordWSMessage(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}
