package input

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventNamesRoundTrip(t *testing.T) {
	for e := range eventNames {
		back, ok := ParseEvent(e.String())
		require.True(t, ok, e.String())
		assert.Equal(t, e, back)
	}

	_, ok := ParseEvent("dance")
	assert.False(t, ok)
	assert.Equal(t, "unknown(999)", Event(999).String())
}

func TestFromKey(t *testing.T) {
	tests := []struct {
		code     string
		down     bool
		expected Event
		ok       bool
	}{
		{"KeyW", true, MoveForwardDown, true},
		{"KeyW", false, MoveForwardUp, true},
		{"KeyA", true, MoveLeftDown, true},
		{"KeyS", false, MoveBackwardUp, true},
		{"KeyD", true, MoveRightDown, true},
		{"Space", true, Jump, true},
		{"Space", false, Unknown, false},
		{"KeyR", true, Reload, true},
		{"Digit1", true, SwitchPrimary, true},
		{"Digit2", true, SwitchSecondary, true},
		{"Digit3", true, SwitchMelee, true},
		{"KeyQ", true, SwitchLast, true},
		{"ShiftLeft", true, ShiftDown, true},
		{"ShiftLeft", false, ShiftUp, true},
		{"KeyZ", true, Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e, ok := FromKey(tt.code, tt.down)
			if ok != tt.ok || e != tt.expected {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.expected, tt.ok, e, ok)
			}
		})
	}
}

func TestFromMouse(t *testing.T) {
	e, ok := FromMouse(0, true)
	assert.True(t, ok)
	assert.Equal(t, TriggerDown, e)

	e, _ = FromMouse(0, false)
	assert.Equal(t, TriggerUp, e)

	e, _ = FromMouse(2, true)
	assert.Equal(t, ADSDown, e)

	_, ok = FromMouse(1, true)
	assert.False(t, ok)
}

func TestMessageResolve(t *testing.T) {
	tests := []struct {
		raw      string
		expected Event
		ok       bool
	}{
		{`{"event":"reload"}`, Reload, true},
		{`{"key":"KeyW","down":true}`, MoveForwardDown, true},
		{`{"key":"KeyW"}`, MoveForwardUp, true},
		{`{"button":0,"down":true}`, TriggerDown, true},
		{`{"button":2}`, ADSUp, true},
		{`{}`, Unknown, false},
		{`{"event":"nope"}`, Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var m Message
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &m))
			e, ok := m.Resolve()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, e)
			}
		})
	}
}

func TestEventText(t *testing.T) {
	b, err := json.Marshal(struct {
		E Event `json:"e"`
	}{TriggerDown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"e":"trigger_down"}`, string(b))

	var e Event
	require.NoError(t, e.UnmarshalText([]byte("ads_up")))
	assert.Equal(t, ADSUp, e)
	assert.Error(t, e.UnmarshalText([]byte("bogus")))
}

func TestQueueDrainOrder(t *testing.T) {
	q := NewQueue(DefaultQueueConfig(), zerolog.Nop())
	now := time.Now()

	require.True(t, q.EnqueueAt(MoveForwardDown, now))
	require.True(t, q.EnqueueAt(TriggerDown, now))
	require.True(t, q.EnqueueAt(TriggerUp, now))

	got := q.Drain(now.Add(5 * time.Millisecond))
	require.Len(t, got, 3)
	assert.Equal(t, MoveForwardDown, got[0].Event)
	assert.Equal(t, TriggerDown, got[1].Event)
	assert.Equal(t, TriggerUp, got[2].Event)

	assert.Empty(t, q.Drain(now))

	stats := q.Stats()
	assert.Equal(t, uint64(3), stats.Enqueued)
	assert.Equal(t, uint64(3), stats.Drained)
	assert.Equal(t, uint64(0), stats.Pending)
	assert.Greater(t, stats.AvgWaitTimeMs, 0.0)
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(QueueConfig{BufferSize: 2, RatePerSecond: 1000, Burst: 100}, zerolog.Nop())
	now := time.Now()

	assert.True(t, q.EnqueueAt(Jump, now))
	assert.True(t, q.EnqueueAt(Jump, now))
	assert.False(t, q.EnqueueAt(Jump, now))

	stats := q.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.InDelta(t, 100.0, stats.BufferUsagePct, 1e-9)
}

func TestQueueRateLimitSparesReleases(t *testing.T) {
	q := NewQueue(QueueConfig{BufferSize: 64, RatePerSecond: 1, Burst: 2}, zerolog.Nop())
	now := time.Now()

	assert.True(t, q.EnqueueAt(TriggerDown, now))
	assert.True(t, q.EnqueueAt(TriggerDown, now))
	assert.False(t, q.EnqueueAt(TriggerDown, now), "burst exhausted")
	assert.True(t, q.EnqueueAt(TriggerUp, now), "releases bypass the limiter")

	assert.Equal(t, uint64(1), q.Stats().RateLimited)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue(QueueConfig{BufferSize: 1000, RatePerSecond: 1e6, Burst: 1000}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(Jump)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(time.Now()), 400)
}

func TestEventClassification(t *testing.T) {
	assert.True(t, MoveLeftDown.IsMovement())
	assert.True(t, ShiftUp.IsMovement())
	assert.False(t, Jump.IsMovement())
	assert.True(t, PointerUnlocked.IsRelease())
	assert.False(t, TriggerDown.IsRelease())
}

func TestPressedPairs(t *testing.T) {
	tests := []struct {
		release Event
		press   Event
	}{
		{MoveForwardUp, MoveForwardDown},
		{MoveBackwardUp, MoveBackwardDown},
		{MoveLeftUp, MoveLeftDown},
		{MoveRightUp, MoveRightDown},
		{TriggerUp, TriggerDown},
		{ADSUp, ADSDown},
		{ShiftUp, ShiftDown},
		{PointerUnlocked, PointerLocked},
	}
	for _, tt := range tests {
		t.Run(tt.release.String(), func(t *testing.T) {
			got, ok := tt.release.Pressed()
			require.True(t, ok)
			assert.Equal(t, tt.press, got)
			assert.True(t, tt.release.IsRelease())

			_, ok = tt.press.Pressed()
			assert.False(t, ok, "a press ends nothing")
		})
	}

	_, ok := Jump.Pressed()
	assert.False(t, ok)
}

func TestQueueDrainTakesOneBufferPerCall(t *testing.T) {
	q := NewQueue(QueueConfig{BufferSize: 4}, zerolog.Nop())
	now := time.Now()

	for i := 0; i < 4; i++ {
		require.True(t, q.EnqueueAt(TriggerUp, now))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				q.EnqueueAt(TriggerUp, now)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, len(q.Drain(now)), 4)
	}
	close(stop)
	<-done

	q.Drain(now)
	assert.Empty(t, q.Drain(now))
}
