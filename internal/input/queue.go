package input

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Queue carries input from any number of producer goroutines to the single
// frame loop that owns a player's weapons. Producers never block; the frame
// loop drains everything pending once per frame.
type Queue struct {
	events  chan Stamped
	limiter *rate.Limiter
	logger  zerolog.Logger

	// Metrics
	enqueued    atomic.Uint64
	drained     atomic.Uint64
	dropped     atomic.Uint64
	limited     atomic.Uint64
	avgWaitTime atomic.Int64 // nanoseconds, exponential moving average
}

// QueueConfig holds configuration for an input queue
type QueueConfig struct {
	BufferSize    int     // events buffered between frames (default: 256)
	RatePerSecond float64 // sustained press rate (default: 60)
	Burst         int     // burst allowance (default: 30)
}

// DefaultQueueConfig returns sensible defaults for one player
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BufferSize:    256,
		RatePerSecond: 60,
		Burst:         30,
	}
}

// NewQueue creates an input queue
func NewQueue(config QueueConfig, logger zerolog.Logger) *Queue {
	def := DefaultQueueConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = def.RatePerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}

	return &Queue{
		events:  make(chan Stamped, config.BufferSize),
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		logger:  logger,
	}
}

// Enqueue adds an event (non-blocking).
// Returns false if the event was rate limited or the buffer is full.
func (q *Queue) Enqueue(e Event) bool {
	return q.EnqueueAt(e, time.Now())
}

// EnqueueAt adds an event stamped with receivedAt.
func (q *Queue) EnqueueAt(e Event, receivedAt time.Time) bool {
	if !e.IsRelease() && !q.limiter.AllowN(receivedAt, 1) {
		q.limited.Add(1)
		return false
	}

	select {
	case q.events <- Stamped{Event: e, ReceivedAt: receivedAt}:
		q.enqueued.Add(1)
		return true
	default:
		dropped := q.dropped.Add(1)
		if dropped%100 == 1 {
			q.logger.Warn().
				Stringer("event", e).
				Uint64("dropped", dropped).
				Msg("input queue full, dropping event")
		}
		return false
	}
}

// Drain returns pending events in arrival order without blocking. At most
// one buffer's worth is taken per call; the rest waits for the next frame.
func (q *Queue) Drain(now time.Time) []Stamped {
	var out []Stamped
	for len(out) < cap(q.events) {
		select {
		case ev := <-q.events:
			q.updateAvgWaitTime(now.Sub(ev.ReceivedAt))
			out = append(out, ev)
		default:
			q.drained.Add(uint64(len(out)))
			return out
		}
	}
	q.drained.Add(uint64(len(out)))
	return out
}

// updateAvgWaitTime updates exponential moving average
func (q *Queue) updateAvgWaitTime(waitTime time.Duration) {
	if waitTime < 0 {
		waitTime = 0
	}
	current := q.avgWaitTime.Load()
	// EMA with alpha = 0.1 (smooth over ~10 samples)
	newAvg := (current*9 + waitTime.Nanoseconds()) / 10
	q.avgWaitTime.Store(newAvg)
}

// Stats returns current queue statistics
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Drained:        q.drained.Load(),
		Dropped:        q.dropped.Load(),
		RateLimited:    q.limited.Load(),
		Pending:        uint64(len(q.events)),
		BufferSize:     uint64(cap(q.events)),
		AvgWaitTimeMs:  float64(q.avgWaitTime.Load()) / 1e6,
		BufferUsagePct: float64(len(q.events)) / float64(cap(q.events)) * 100,
	}
}

// QueueStats holds queue metrics
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Drained        uint64  `json:"drained"`
	Dropped        uint64  `json:"dropped"`
	RateLimited    uint64  `json:"rate_limited"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}
