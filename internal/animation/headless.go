package animation

import "math"

// Track is an in-process Action that only tracks clip time.
type Track struct {
	name      string
	duration  float64
	loop      LoopMode
	timeScale float64
	clamp     bool

	running bool
	time    float64
}

// NewTrack creates a stopped track that loops forever at time scale 1.
func NewTrack(name string, duration float64) *Track {
	return &Track{name: name, duration: duration, loop: LoopRepeat, timeScale: 1}
}

func (t *Track) Name() string { return t.name }
func (t *Track) Duration() float64 { return t.duration }
func (t *Track) IsRunning() bool { return t.running }
func (t *Track) Time() float64 { return t.time }
func (t *Track) Loop() LoopMode { return t.loop }
func (t *Track) TimeScale() float64 { return t.timeScale }
func (t *Track) ClampWhenFinished() bool { return t.clamp }
func (t *Track) SetLoop(mode LoopMode) { t.loop = mode }
func (t *Track) SetTimeScale(scale float64) { t.timeScale = scale }
func (t *Track) SetClampWhenFinished(on bool) { t.clamp = on }
func (t *Track) Play() { t.running = true }
func (t *Track) Reset() { t.time = 0 }

// Stop halts playback and rewinds.
func (t *Track) Stop() {
	t.running = false
	t.time = 0
}

// advance moves the track forward and reports whether a one-shot clip ended.
func (t *Track) advance(dt float64) bool {
	if !t.running {
		return false
	}
	t.time += dt * t.timeScale

	if t.loop == LoopRepeat {
		if t.duration > 0 && t.time >= t.duration {
			t.time = math.Mod(t.time, t.duration)
		}
		return false
	}

	if t.time < t.duration {
		return false
	}
	t.running = false
	if t.clamp {
		t.time = t.duration
	} else {
		t.time = 0
	}
	return true
}

// Headless is a deterministic Mixer. Finished callbacks run synchronously
// inside Update after every track has advanced, in track order then
// listener order. Callbacks may play or stop tracks re-entrantly.
type Headless struct {
	tracks    []*Track
	byName    map[string]*Track
	listeners []func(Action)
}

// NewHeadless creates an empty mixer.
func NewHeadless() *Headless {
	return &Headless{byName: make(map[string]*Track)}
}

// Add registers tracks with the mixer.
func (h *Headless) Add(tracks ...*Track) {
	for _, t := range tracks {
		if _, dup := h.byName[t.name]; dup {
			continue
		}
		h.tracks = append(h.tracks, t)
		h.byName[t.name] = t
	}
}

// Track returns a registered track by clip name.
func (h *Headless) Track(name string) (*Track, bool) {
	t, ok := h.byName[name]
	return t, ok
}

// Actions returns the tracks keyed by clip name.
func (h *Headless) Actions() map[string]Action {
	out := make(map[string]Action, len(h.tracks))
	for _, t := range h.tracks {
		out[t.name] = t
	}
	return out
}

// Running returns the names of playing tracks in registration order.
func (h *Headless) Running() []string {
	var names []string
	for _, t := range h.tracks {
		if t.running {
			names = append(names, t.name)
		}
	}
	return names
}

// OnFinished subscribes to one-shot completions.
func (h *Headless) OnFinished(fn func(Action)) {
	h.listeners = append(h.listeners, fn)
}

// Update advances every running track by dt seconds.
func (h *Headless) Update(dt float64) {
	if dt <= 0 {
		return
	}

	var finished []*Track
	for _, t := range h.tracks {
		if t.advance(dt) {
			finished = append(finished, t)
		}
	}

	for _, t := range finished {
		for _, fn := range h.listeners {
			fn(t)
		}
	}
}
