package game

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize       = 1024                   // Circular buffer size
	MaxEventsPerSec       = 20000                  // Global rate limit
	MaxEventsPerSession   = 2000                   // Per-session rate limit per second
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SessionLimiterCleanup = 5 * time.Minute        // Cleanup interval for session limiters
)

// EventLog is a bounded, rate-limited, append-only JSONL log of frame events.
// Under pressure it drops the oldest pending events rather than blocking the
// frame loop.
type EventLog struct {
	buffer    [EventBufferSize]Event
	bufMu     sync.Mutex
	writeHead uint64
	readHead  uint64

	globalLimiter   *rate.Limiter
	sessionLimiters sync.Map // map[string]*sessionLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    io.Writer
	closer io.Closer
	outMu  sync.Mutex
	logger zerolog.Logger

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type sessionLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates a new bounded event log
func NewEventLog(logger zerolog.Logger) *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start opens filePath for append and begins the async writer. An empty path
// keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if filePath == "" {
		return el.StartWriter(nil)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.closer = file
	return el.StartWriter(file)
}

// StartWriter begins the async writer flushing to w.
func (el *EventLog) StartWriter(w io.Writer) error {
	if !el.running.CompareAndSwap(false, true) {
		return nil
	}
	el.out = w

	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes pending events and closes the output.
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.outMu.Lock()
		if el.closer != nil {
			el.closer.Close()
		}
		el.outMu.Unlock()
	})
}

// Emit adds an event. Returns false if rate limited or the log is stopped.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if event.SessionID != "" && !el.sessionLimiter(event.SessionID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.bufMu.Lock()
	el.writeHead++
	if el.writeHead-el.readHead > EventBufferSize {
		// overwrite the oldest pending event
		el.readHead++
		el.droppedCount.Add(1)
	}
	event.Sequence = el.writeHead
	el.buffer[el.writeHead%EventBufferSize] = event
	el.bufMu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, frame uint64, sessionID string, payload any) bool {
	return el.Emit(NewEvent(eventType, frame, sessionID, payload))
}

func (el *EventLog) sessionLimiter(sessionID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.sessionLimiters.Load(sessionID); ok {
		e := entry.(*sessionLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sessionLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSession, MaxEventsPerSession/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sessionLimiters.LoadOrStore(sessionID, entry)
	return actual.(*sessionLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SessionLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSessionLimiters()
		}
	}
}

func (el *EventLog) cleanupSessionLimiters() {
	cutoff := time.Now().Add(-SessionLimiterCleanup).UnixNano()
	el.sessionLimiters.Range(func(key, value any) bool {
		if value.(*sessionLimiterEntry).lastUsed.Load() < cutoff {
			el.sessionLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from circular buffer
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.bufMu.Lock()
	defer el.bufMu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// flushBatch writes events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.outMu.Lock()
	defer el.outMu.Unlock()

	if el.out == nil {
		return
	}

	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			el.logger.Warn().Err(err).Uint64("sequence", event.Sequence).Msg("event log write failed")
			return
		}
	}
}

// EventLogStats holds event log metrics
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns metrics for monitoring
func (el *EventLog) Stats() EventLogStats {
	el.bufMu.Lock()
	pending := el.writeHead - el.readHead
	el.bufMu.Unlock()

	return EventLogStats{
		Total:   el.totalCount.Load(),
		Dropped: el.droppedCount.Load(),
		Pending: pending,
		Running: el.running.Load(),
	}
}
