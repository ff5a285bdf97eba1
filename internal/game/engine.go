package game

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gunplay/internal/input"
)

var (
	ErrSessionLimit    = errors.New("session limit reached")
	ErrSessionNotFound = errors.New("session not found")
	ErrInputDropped    = errors.New("input dropped")
)

// ResourceLimits defines hard caps to prevent DoS attacks
type ResourceLimits struct {
	MaxSessions int // concurrent sessions
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxSessions: 256,
}

// EngineConfig configures the session engine.
type EngineConfig struct {
	FPS      int
	MaxDelta float64
	Limits   ResourceLimits
	Loadout  []string
	Queue    input.QueueConfig
	Seed     int64 // zero seeds from the clock

	// NewScanner builds the hit-scan collaborator for a session. Nil gives
	// every session a TargetBoard with DefaultTargets.
	NewScanner func() HitScanner
}

// DefaultEngineConfig returns the 60 fps defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FPS:      60,
		MaxDelta: DefaultMaxDelta,
		Limits:   DefaultLimits,
		Loadout:  DefaultLoadout,
		Queue:    input.DefaultQueueConfig(),
	}
}

// Session is one player's rig driven by the engine.
type Session struct {
	ID      string
	Started time.Time

	seed    int64
	rig     *Rig
	clock   *FrameClock
	frames  uint64
	scanner HitScanner
}

// Push feeds an input event to the session. Safe from any goroutine.
func (s *Session) Push(e input.Event) bool {
	return s.rig.Input().Enqueue(e)
}

// SessionInfo is a read-only view of a session.
type SessionInfo struct {
	ID      string           `json:"id"`
	Started time.Time        `json:"started"`
	Frames  uint64           `json:"frames"`
	Loadout []string         `json:"loadout"`
	HUD     HUD              `json:"hud"`
	Input   input.QueueStats `json:"input"`
	Hits    map[string]int   `json:"hits,omitempty"`
}

// SessionSummary is delivered when a session ends.
type SessionSummary struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`
	Frames  uint64    `json:"frames"`
	Loadout []string  `json:"loadout"`
}

// FrameUpdate is one session's result for an engine tick.
type FrameUpdate struct {
	SessionID string       `json:"sessionId"`
	Frame     uint64       `json:"frame"`
	Events    []FrameEvent `json:"events"`
	HUD       HUD          `json:"hud"`
}

// Callbacks receive engine output. They run on the engine goroutine after the
// engine lock is released.
type Callbacks struct {
	OnFrame func(FrameUpdate)
	OnEnd   func(SessionSummary)
	OnTick  func(elapsed time.Duration, sessions int)
}

// Engine runs every session's frame at a fixed rate.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg      EngineConfig
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	tickCount uint64
	callbacks Callbacks

	eventLog *EventLog
	rng      *rand.Rand
	logger   zerolog.Logger
}

// NewEngine creates a session engine.
func NewEngine(cfg EngineConfig, logger zerolog.Logger) *Engine {
	def := DefaultEngineConfig()
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = def.MaxDelta
	}
	if cfg.Limits.MaxSessions <= 0 {
		cfg.Limits = def.Limits
	}
	if len(cfg.Loadout) == 0 {
		cfg.Loadout = def.Loadout
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Engine{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		eventLog: NewEventLog(logger),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   logger,
	}
}

// SetCallbacks replaces the engine callbacks.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

// Start begins the frame loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.FPS))
	ticker, stop, done := e.ticker, e.stopChan, e.done
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case now := <-ticker.C:
				e.Step(now)
			case <-stop:
				return
			}
		}
	}()

	e.logger.Info().Int("fps", e.cfg.FPS).Msg("engine started")
}

// Stop stops the frame loop and waits for the current frame to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	<-done
	e.logger.Info().Uint64("ticks", e.TickCount()).Msg("engine stopped")
}

// Running reports whether the frame loop is active.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// TickCount returns the number of frames stepped.
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// Step runs one frame for every session at now.
func (e *Engine) Step(now time.Time) {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	frame := e.tickCount
	cb := e.callbacks

	updates := make([]FrameUpdate, 0, len(e.sessions))
	total := 0
	for _, s := range e.sessions {
		dt := s.clock.Tick(now)
		events := s.rig.Frame(dt, now)
		s.frames++
		total += len(events)

		for _, ev := range events {
			e.eventLog.EmitSimple(ev.Type, frame, s.ID, ev.Payload)
		}
		if cb.OnFrame != nil {
			updates = append(updates, FrameUpdate{
				SessionID: s.ID,
				Frame:     frame,
				Events:    events,
				HUD:       s.rig.HUD(),
			})
		}
	}
	sessions := len(e.sessions)
	e.eventLog.EmitSimple(EventTypeFrame, frame, "", FramePayload{
		Sessions: sessions,
		Events:   total,
		UnixNano: now.UnixNano(),
	})
	e.mu.Unlock()

	for _, u := range updates {
		cb.OnFrame(u)
	}
	if cb.OnTick != nil {
		cb.OnTick(time.Since(start), sessions)
	}
}

// CreateSession starts a session with loadout, or the configured loadout when
// empty.
func (e *Engine) CreateSession(loadout []string) (SessionInfo, error) {
	if len(loadout) == 0 {
		loadout = e.cfg.Loadout
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sessions) >= e.cfg.Limits.MaxSessions {
		return SessionInfo{}, ErrSessionLimit
	}

	seed := e.rng.Int63()
	var scanner HitScanner
	if e.cfg.NewScanner != nil {
		scanner = e.cfg.NewScanner()
	} else {
		scanner = NewTargetBoard(DefaultFOV, 16.0/9.0, DefaultTargets()...)
	}

	id := uuid.NewString()
	rig, err := NewRig(RigConfig{
		Loadout: loadout,
		Seed:    seed,
		Queue:   e.cfg.Queue,
		Scanner: scanner,
	}, e.logger.With().Str("session", id).Logger())
	if err != nil {
		return SessionInfo{}, err
	}

	s := &Session{
		ID:      id,
		Started: time.Now(),
		seed:    seed,
		rig:     rig,
		clock:   NewFrameClock(e.cfg.MaxDelta),
		scanner: scanner,
	}
	e.sessions[id] = s
	e.eventLog.EmitSimple(EventTypeSessionStart, e.tickCount, id, SessionPayload{Seed: seed, Loadout: rig.Loadout()})

	e.logger.Info().Str("session", id).Strs("loadout", rig.Loadout()).Msg("session created")
	return e.infoLocked(s), nil
}

// EndSession removes a session and reports its summary.
func (e *Engine) EndSession(id string) (SessionSummary, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		e.mu.Unlock()
		return SessionSummary{}, ErrSessionNotFound
	}
	delete(e.sessions, id)
	e.eventLog.EmitSimple(EventTypeSessionEnd, e.tickCount, id, SessionPayload{Seed: s.seed, Frames: s.frames})
	onEnd := e.callbacks.OnEnd
	e.mu.Unlock()

	summary := SessionSummary{
		ID:      s.ID,
		Started: s.Started,
		Ended:   time.Now(),
		Frames:  s.frames,
		Loadout: s.rig.Loadout(),
	}
	e.logger.Info().Str("session", id).Uint64("frames", s.frames).Msg("session ended")
	if onEnd != nil {
		onEnd(summary)
	}
	return summary, nil
}

// EndAll ends every session.
func (e *Engine) EndAll() {
	e.mu.RLock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	for _, id := range ids {
		e.EndSession(id)
	}
}

// Push feeds an input event to a session. ErrInputDropped means the session
// queue rate limited the event or was full.
func (e *Engine) Push(id string, ev input.Event) error {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	if !s.Push(ev) {
		return ErrInputDropped
	}
	return nil
}

// Session returns a view of one session.
func (e *Engine) Session(id string) (SessionInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return e.infoLocked(s), true
}

// Sessions lists all sessions, oldest first.
func (e *Engine) Sessions() []SessionInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]SessionInfo, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, e.infoLocked(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

func (e *Engine) infoLocked(s *Session) SessionInfo {
	info := SessionInfo{
		ID:      s.ID,
		Started: s.Started,
		Frames:  s.frames,
		Loadout: s.rig.Loadout(),
		HUD:     s.rig.HUD(),
		Input:   s.rig.Input().Stats(),
	}
	if b, ok := s.scanner.(*TargetBoard); ok {
		info.Hits = b.Hits()
	}
	return info
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// EventLogStats returns event log statistics for monitoring
func (e *Engine) EventLogStats() EventLogStats {
	return e.eventLog.Stats()
}

// Limits returns the current resource limits
func (e *Engine) Limits() ResourceLimits {
	return e.cfg.Limits
}

// FPS returns the configured frame rate.
func (e *Engine) FPS() int {
	return e.cfg.FPS
}
