package stats

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gunplay/internal/animation"
	"gunplay/internal/game"
)

// Tracker counts one session's shots, hits, reloads and switches from its
// frame events.
type Tracker struct {
	sessionID string
	shots     int
	hits      int
	reloads   int
	switches  int
	weapons   map[string]*WeaponStats
}

// NewTracker starts counting for sessionID.
func NewTracker(sessionID string) *Tracker {
	return &Tracker{
		sessionID: sessionID,
		weapons:   make(map[string]*WeaponStats),
	}
}

func (t *Tracker) weapon(name string) *WeaponStats {
	w, ok := t.weapons[name]
	if !ok {
		w = &WeaponStats{Weapon: name}
		t.weapons[name] = w
	}
	return w
}

// Observe folds a frame's events into the counts.
func (t *Tracker) Observe(events []game.FrameEvent) {
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case game.FireEvent:
			t.shots++
			t.weapon(p.Weapon).Shots++
		case game.HitEvent:
			t.hits++
			t.weapon(p.Weapon).Hits++
		case game.AnimationEvent:
			if p.Clip == animation.ClipReload {
				t.reloads++
			}
		case game.EquipEvent:
			t.switches++
		}
	}
}

// Shots returns the shot count so far.
func (t *Tracker) Shots() int { return t.shots }

// Finish builds the record for a session summary.
func (t *Tracker) Finish(s game.SessionSummary) *SessionStats {
	st := &SessionStats{
		SessionID: t.sessionID,
		StartedAt: s.Started,
		EndedAt:   s.Ended,
		Frames:    s.Frames,
		Loadout:   strings.Join(s.Loadout, ","),
		Shots:     t.shots,
		Hits:      t.hits,
		Reloads:   t.reloads,
		Switches:  t.switches,
	}
	names := make([]string, 0, len(t.weapons))
	for name := range t.weapons {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st.Weapons = append(st.Weapons, *t.weapons[name])
	}
	return st
}

// Recorder keeps a Tracker per live session and saves each when it ends.
// Its methods plug directly into game.Callbacks.
type Recorder struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	store    *Store
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRecorder creates a recorder writing to store. A nil store only counts.
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		trackers: make(map[string]*Tracker),
		store:    store,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Observe routes a frame update to its session's tracker.
func (r *Recorder) Observe(u game.FrameUpdate) {
	if len(u.Events) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[u.SessionID]
	if !ok {
		t = NewTracker(u.SessionID)
		r.trackers[u.SessionID] = t
	}
	t.Observe(u.Events)
}

// Finish saves and forgets a session's tracker.
func (r *Recorder) Finish(s game.SessionSummary) {
	r.mu.Lock()
	t, ok := r.trackers[s.ID]
	delete(r.trackers, s.ID)
	r.mu.Unlock()

	if !ok {
		t = NewTracker(s.ID)
	}
	st := t.Finish(s)
	if r.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Save(ctx, st); err != nil {
		r.logger.Error().Err(err).Str("session", s.ID).Msg("failed to save session stats")
		return
	}
	r.logger.Debug().
		Str("session", s.ID).
		Int("shots", st.Shots).
		Int("hits", st.Hits).
		Msg("session stats saved")
}

// Live returns the number of sessions being tracked.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
