package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"gunplay/internal/animation"
	"gunplay/internal/weapon"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeFrame             // Engine tick boundary
	EventTypeFire
	EventTypeAnimation
	EventTypeEquip
	EventTypeHit
	EventTypeSessionStart
	EventTypeSessionEnd
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

var eventTypeNames = map[EventType]string{
	EventTypeFrame:        "frame",
	EventTypeFire:         "fire",
	EventTypeAnimation:    "animation",
	EventTypeEquip:        "equip",
	EventTypeHit:          "hit",
	EventTypeSessionStart: "session_start",
	EventTypeSessionEnd:   "session_end",
}

// String returns human-readable event type
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(b []byte) error {
	for k, name := range eventTypeNames {
		if name == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", string(b))
}

// FrameEvent is one entry of a frame's outbox. Payload holds one of the
// typed payloads below, matching Type.
type FrameEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// FireEvent is emitted for every accepted shot, after the camera kick.
type FireEvent struct {
	Weapon           string                `json:"weapon"`
	Classification   weapon.Classification `json:"classification"`
	AimPoint         mgl64.Vec2            `json:"aimPoint"`
	BulletsRemaining int                   `json:"bulletsRemaining"`
	Camera           weapon.Camera         `json:"camera"`
}

// AnimationEvent mirrors a clip transition accepted by a weapon's machine.
type AnimationEvent struct {
	Weapon string         `json:"weapon"`
	Clip   animation.Clip `json:"clip"`
}

// EquipEvent reports the slot now in hand. Weapon is empty for bare hands.
type EquipEvent struct {
	Slot   weapon.Slot `json:"slot"`
	Weapon string      `json:"weapon,omitempty"`
}

// HitEvent is a hit-scan result for a shot.
type HitEvent struct {
	Weapon string  `json:"weapon"`
	Target string  `json:"target"`
	Offset float64 `json:"offset"` // angular distance from the target center
}

// FramePayload contains engine tick boundary information for replay
type FramePayload struct {
	Sessions int   `json:"sessions"`
	Events   int   `json:"events"`
	UnixNano int64 `json:"unixNano"`
}

// SessionPayload contains session lifecycle details
type SessionPayload struct {
	Seed    int64    `json:"seed"`
	Loadout []string `json:"loadout,omitempty"`
	Frames  uint64   `json:"frames,omitempty"`
}

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	Frame     uint64          `json:"frame"`     // Engine tick this occurred in
	SessionID string          `json:"sessionId"` // Source session (for rate limiting)
	Payload   json.RawMessage `json:"payload"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, frame uint64, sessionID string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Frame:     frame,
		SessionID: sessionID,
		Payload:   EncodePayload(payload),
	}
}
