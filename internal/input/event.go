// Package input defines the discrete player input events and the per-session
// queue that carries them from the socket into the frame loop.
package input

import (
	"fmt"
	"time"
)

// Event is a discrete input transition.
type Event int

const (
	Unknown Event = iota
	MoveForwardDown
	MoveForwardUp
	MoveBackwardDown
	MoveBackwardUp
	MoveLeftDown
	MoveLeftUp
	MoveRightDown
	MoveRightUp
	Jump
	Reload
	TriggerDown
	TriggerUp
	ADSDown
	ADSUp
	ShiftDown
	ShiftUp
	SwitchPrimary
	SwitchSecondary
	SwitchMelee
	SwitchLast
	PointerLocked
	PointerUnlocked
)

// eventNames maps events to their wire names.
var eventNames = map[Event]string{
	MoveForwardDown:  "move_forward_down",
	MoveForwardUp:    "move_forward_up",
	MoveBackwardDown: "move_backward_down",
	MoveBackwardUp:   "move_backward_up",
	MoveLeftDown:     "move_left_down",
	MoveLeftUp:       "move_left_up",
	MoveRightDown:    "move_right_down",
	MoveRightUp:      "move_right_up",
	Jump:             "jump",
	Reload:           "reload",
	TriggerDown:      "trigger_down",
	TriggerUp:        "trigger_up",
	ADSDown:          "ads_down",
	ADSUp:            "ads_up",
	ShiftDown:        "shift_down",
	ShiftUp:          "shift_up",
	SwitchPrimary:    "switch_primary",
	SwitchSecondary:  "switch_secondary",
	SwitchMelee:      "switch_melee",
	SwitchLast:       "switch_last",
	PointerLocked:    "pointer_locked",
	PointerUnlocked:  "pointer_unlocked",
}

var eventsByName = func() map[string]Event {
	m := make(map[string]Event, len(eventNames))
	for e, name := range eventNames {
		m[name] = e
	}
	return m
}()

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

// MarshalText implements encoding.TextMarshaler.
func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Event) UnmarshalText(b []byte) error {
	parsed, ok := ParseEvent(string(b))
	if !ok {
		return fmt.Errorf("unknown input event %q", string(b))
	}
	*e = parsed
	return nil
}

// ParseEvent looks up an event by wire name.
func ParseEvent(name string) (Event, bool) {
	e, ok := eventsByName[name]
	return e, ok
}

// pressOf maps each release to the press it ends.
var pressOf = map[Event]Event{
	MoveForwardUp:   MoveForwardDown,
	MoveBackwardUp:  MoveBackwardDown,
	MoveLeftUp:      MoveLeftDown,
	MoveRightUp:     MoveRightDown,
	TriggerUp:       TriggerDown,
	ADSUp:           ADSDown,
	ShiftUp:         ShiftDown,
	PointerUnlocked: PointerLocked,
}

// Pressed returns the press that release e ends.
func (e Event) Pressed() (Event, bool) {
	p, ok := pressOf[e]
	return p, ok
}

// IsMovement reports whether e changes the walking or sprint state.
func (e Event) IsMovement() bool {
	switch e {
	case MoveForwardDown, MoveForwardUp, MoveBackwardDown, MoveBackwardUp,
		MoveLeftDown, MoveLeftUp, MoveRightDown, MoveRightUp,
		ShiftDown, ShiftUp:
		return true
	}
	return false
}

// IsRelease reports whether e ends a held state. Releases are never rate
// limited so no button can stay stuck down.
func (e Event) IsRelease() bool {
	_, ok := pressOf[e]
	return ok
}

// keyDown and keyUp map browser KeyboardEvent.code values to events.
var keyDown = map[string]Event{
	"KeyW":      MoveForwardDown,
	"KeyA":      MoveLeftDown,
	"KeyS":      MoveBackwardDown,
	"KeyD":      MoveRightDown,
	"Space":     Jump,
	"KeyR":      Reload,
	"Digit1":    SwitchPrimary,
	"Digit2":    SwitchSecondary,
	"Digit3":    SwitchMelee,
	"KeyQ":      SwitchLast,
	"ShiftLeft": ShiftDown,
}

var keyUp = map[string]Event{
	"KeyW":      MoveForwardUp,
	"KeyA":      MoveLeftUp,
	"KeyS":      MoveBackwardUp,
	"KeyD":      MoveRightUp,
	"ShiftLeft": ShiftUp,
}

// FromKey maps a browser key code to an event.
func FromKey(code string, down bool) (Event, bool) {
	var e Event
	var ok bool
	if down {
		e, ok = keyDown[code]
	} else {
		e, ok = keyUp[code]
	}
	return e, ok
}

// FromMouse maps a mouse button (0 primary, 2 secondary) to an event.
func FromMouse(button int, down bool) (Event, bool) {
	switch {
	case button == 0 && down:
		return TriggerDown, true
	case button == 0:
		return TriggerUp, true
	case button == 2 && down:
		return ADSDown, true
	case button == 2:
		return ADSUp, true
	}
	return Unknown, false
}

// Message is the JSON envelope clients send. Exactly one of Event, Key or
// Button identifies the input.
type Message struct {
	Event  string `json:"event,omitempty"`
	Key    string `json:"key,omitempty"`
	Button *int   `json:"button,omitempty"`
	Down   bool   `json:"down,omitempty"`
}

// Resolve turns a client message into an event.
func (m Message) Resolve() (Event, bool) {
	switch {
	case m.Event != "":
		return ParseEvent(m.Event)
	case m.Key != "":
		return FromKey(m.Key, m.Down)
	case m.Button != nil:
		return FromMouse(*m.Button, m.Down)
	}
	return Unknown, false
}

// Stamped is an event with the time it was received.
type Stamped struct {
	Event      Event
	ReceivedAt time.Time
}
