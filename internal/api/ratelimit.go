package api

import (
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter and starts its
// cleanup goroutine. Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	def := DefaultRateLimitConfig
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now.UnixNano())
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now.UnixNano())
	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

// cleanup removes limiters idle for two cleanup intervals.
func (rl *IPRateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupInterval * 2).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip, time.Now()).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimiterStats holds rate limiter counters.
type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

// Stats returns rate limiter statistics
func (rl *IPRateLimiter) Stats() LimiterStats {
	return LimiterStats{Allowed: rl.allowed.Load(), Rejected: rl.rejected.Load()}
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// CAUTION: X-Forwarded-For can be spoofed if not behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	maxPerIP    int32
	rejected    atomic.Uint64
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	if maxPerIP <= 0 {
		maxPerIP = MaxWSConnectionsPerIP
	}
	return &WebSocketRateLimiter{maxPerIP: int32(maxPerIP)}
}

// Allow reserves a connection slot for ip.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	actual, _ := wrl.connections.LoadOrStore(ip, new(atomic.Int32))
	counter := actual.(*atomic.Int32)

	for {
		current := counter.Load()
		if current >= wrl.maxPerIP {
			wrl.rejected.Add(1)
			return false
		}
		if counter.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a slot reserved by Allow.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if v, ok := wrl.connections.Load(ip); ok {
		v.(*atomic.Int32).Add(-1)
	}
}

// ConnectionCount returns the open connections for ip.
func (wrl *WebSocketRateLimiter) ConnectionCount(ip string) int {
	if v, ok := wrl.connections.Load(ip); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

// Rejected returns how many connections were refused.
func (wrl *WebSocketRateLimiter) Rejected() uint64 {
	return wrl.rejected.Load()
}

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginChecker matches request origins against glob patterns in the form
// accepted by the CORS middleware, e.g. "http://localhost:*".
type OriginChecker struct {
	patterns []string
}

// NewOriginChecker builds a checker. Nil patterns use DefaultAllowedOrigins.
func NewOriginChecker(patterns []string) *OriginChecker {
	if patterns == nil {
		patterns = DefaultAllowedOrigins
	}
	return &OriginChecker{patterns: patterns}
}

// Allowed reports whether origin matches any pattern. "*" allows everything.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, p := range oc.patterns {
		if p == "*" || p == origin {
			return true
		}
		if ok, _ := path.Match(p, origin); ok {
			return true
		}
	}
	return false
}

// Patterns returns the configured origin patterns.
func (oc *OriginChecker) Patterns() []string {
	return oc.patterns
}
