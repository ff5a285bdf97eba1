package animation

import "errors"

// ErrMissingAsset is wrapped by every failed registry lookup.
var ErrMissingAsset = errors.New("missing asset")

// LoopMode controls what an action does when it reaches the end of its clip.
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopRepeat
)

// Action is one playable clip.
type Action interface {
	Name() string
	Play()
	Stop()
	Reset()
	SetLoop(mode LoopMode)
	SetTimeScale(scale float64)
	SetClampWhenFinished(clamp bool)
	IsRunning() bool
	Duration() float64
}

// Mixer advances a weapon's actions and reports one-shot completions.
type Mixer interface {
	Update(dt float64)
	OnFinished(fn func(Action))
}

// Visibility is a mesh or overlay that can be shown or hidden.
type Visibility interface {
	SetVisible(visible bool)
	Visible() bool
}

// Registry is an opaque keyed asset store.
type Registry interface {
	Get(key string) (any, bool)
}

// Registry keys for a weapon named name.
func MixerKey(name string) string { return name + "_AnimationMixer" }
func ActionsKey(name string) string { return name + "_AnimationsActions" }
func ArmatureKey(name string) string { return name + "_Armature" }
func ScopeKey(name string) string { return name + "_Scope" }
