package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gunplay/internal/input"
)

func newTestEngine(t *testing.T, maxSessions int) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig()
	cfg.Seed = 42
	cfg.Limits.MaxSessions = maxSessions
	return NewEngine(cfg, zerolog.Nop())
}

// TestNewEngine verifies engine creation with correct defaults
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		fps      int
		expected int
	}{
		{"standard 60 FPS", 60, 60},
		{"low 30 FPS", 30, 30},
		{"zero falls back", 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{FPS: tt.fps}, zerolog.Nop())
			if engine.FPS() != tt.expected {
				t.Errorf("Expected %d FPS, got %d", tt.expected, engine.FPS())
			}
			if engine.Limits().MaxSessions != DefaultLimits.MaxSessions {
				t.Errorf("Expected default limits, got %+v", engine.Limits())
			}
		})
	}
}

// TestEngineStartStop verifies engine can start and stop without panics
func TestEngineStartStop(t *testing.T) {
	engine := NewEngine(EngineConfig{FPS: 200}, zerolog.Nop())

	engine.Start()
	engine.Start()
	assert.True(t, engine.Running())
	time.Sleep(50 * time.Millisecond)

	engine.Stop()
	assert.False(t, engine.Running())
	assert.Greater(t, engine.TickCount(), uint64(0))

	// Should not panic on double stop
	engine.Stop()

	// and can be restarted
	engine.Start()
	engine.Stop()
}

func TestSessionLifecycle(t *testing.T) {
	engine := newTestEngine(t, 2)

	var ended []SessionSummary
	engine.SetCallbacks(Callbacks{OnEnd: func(s SessionSummary) { ended = append(ended, s) }})

	a, err := engine.CreateSession(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoadout, a.Loadout)

	b, err := engine.CreateSession([]string{"awp", "glock"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = engine.CreateSession(nil)
	assert.True(t, errors.Is(err, ErrSessionLimit))

	list := engine.Sessions()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = engine.CreateSession([]string{"nope"})
	assert.Error(t, err)

	summary, err := engine.EndSession(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, summary.ID)
	assert.False(t, summary.Ended.Before(summary.Started))
	require.Len(t, ended, 1)

	_, err = engine.EndSession(a.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.Equal(t, 1, engine.SessionCount())

	engine.EndAll()
	assert.Equal(t, 0, engine.SessionCount())
	assert.Len(t, ended, 2)
}

func TestEnginePushUnknownSession(t *testing.T) {
	engine := newTestEngine(t, 4)
	err := engine.Push("missing", input.Jump)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestEnginePushDropsWhenQueueFull(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Seed = 1
	cfg.Queue = input.QueueConfig{BufferSize: 1}
	engine := NewEngine(cfg, zerolog.Nop())

	info, err := engine.CreateSession(nil)
	require.NoError(t, err)

	require.NoError(t, engine.Push(info.ID, input.Jump))
	assert.ErrorIs(t, engine.Push(info.ID, input.Jump), ErrInputDropped)

	engine.Step(time.Now())
	assert.NoError(t, engine.Push(info.ID, input.Jump), "drained queue accepts input again")
}

func TestEngineStepDrivesSessions(t *testing.T) {
	engine := newTestEngine(t, 4)

	var mu sync.Mutex
	var updates []FrameUpdate
	var ticks int
	engine.SetCallbacks(Callbacks{
		OnFrame: func(u FrameUpdate) {
			mu.Lock()
			updates = append(updates, u)
			mu.Unlock()
		},
		OnTick: func(_ time.Duration, sessions int) {
			ticks++
			assert.Equal(t, 1, sessions)
		},
	})

	info, err := engine.CreateSession(nil)
	require.NoError(t, err)
	require.NoError(t, engine.Push(info.ID, input.SwitchPrimary))

	now := epoch
	engine.Step(now)
	require.Len(t, updates, 1)
	assert.Equal(t, info.ID, updates[0].SessionID)
	assert.Equal(t, uint64(1), updates[0].Frame)
	assert.Equal(t, []EventType{EventTypeAnimation, EventTypeEquip}, types(updates[0].Events))

	// draw finishes within a second of clamped frames
	for i := 0; i < 60; i++ {
		now = now.Add(16 * time.Millisecond)
		engine.Step(now)
	}
	got, ok := engine.Session(info.ID)
	require.True(t, ok)
	assert.Equal(t, "AK", got.HUD.Weapon)
	assert.Equal(t, uint64(61), got.Frames)

	require.NoError(t, engine.Push(info.ID, input.TriggerDown))
	now = now.Add(16 * time.Millisecond)
	engine.Step(now)

	last := updates[len(updates)-1]
	assert.Contains(t, types(last.Events), EventTypeFire)
	assert.Equal(t, 29, last.HUD.Bullets)
	assert.Equal(t, 62, ticks)
	assert.Equal(t, uint64(62), engine.TickCount())
}

func TestEngineEventLog(t *testing.T) {
	engine := newTestEngine(t, 4)
	require.NoError(t, engine.StartEventLog(""))

	info, err := engine.CreateSession(nil)
	require.NoError(t, err)
	engine.Push(info.ID, input.SwitchMelee)
	engine.Step(epoch)

	stats := engine.EventLogStats()
	assert.True(t, stats.Running)
	// session start, draw, equip and the frame boundary
	assert.Equal(t, uint64(4), stats.Total)

	engine.StopEventLog()
	assert.False(t, engine.EventLogStats().Running)
}

func TestSessionsAreIndependent(t *testing.T) {
	engine := newTestEngine(t, 4)
	a, _ := engine.CreateSession([]string{"glock"})
	b, _ := engine.CreateSession([]string{"glock"})

	engine.Push(a.ID, input.SwitchSecondary)
	engine.Push(b.ID, input.SwitchSecondary)
	now := epoch
	for i := 0; i < 60; i++ {
		engine.Step(now)
		now = now.Add(16 * time.Millisecond)
	}

	engine.Push(a.ID, input.TriggerDown)
	engine.Step(now)

	ia, _ := engine.Session(a.ID)
	ib, _ := engine.Session(b.ID)
	assert.Equal(t, 11, ia.HUD.Bullets)
	assert.Equal(t, 12, ib.HUD.Bullets)
	assert.Greater(t, ia.HUD.Camera.Pitch, 0.0)
	assert.Equal(t, 0.0, ib.HUD.Camera.Pitch)
}
