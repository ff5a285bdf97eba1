// Package weapon holds per-weapon ballistic state and the fire/recover strategies
// that mutate it and the camera.
package weapon

import (
	"fmt"
	"strings"
)

// Classification is the weapon family.
type Classification int

const (
	Rifle Classification = iota
	Sniper
	Pistol
	SMG
	Shotgun
	Machinegun
	Melee
)

var classificationNames = [...]string{
	Rifle:      "RIFLE",
	Sniper:     "SNIPER",
	Pistol:     "PISTOL",
	SMG:        "SMG",
	Shotgun:    "SHOTGUN",
	Machinegun: "MACHINEGUN",
	Melee:      "MELEE",
}

// String returns the upper-case name of the classification.
func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return fmt.Sprintf("Classification(%d)", int(c))
	}
	return classificationNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Classification) UnmarshalText(b []byte) error {
	parsed, err := ParseClassification(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification accepts a classification name in any case.
func ParseClassification(s string) (Classification, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range classificationNames {
		if name == upper {
			return Classification(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weapon classification %q", s)
}

// Slot is an equip slot in the inventory.
type Slot int

const (
	SlotHands Slot = iota
	SlotPrimary
	SlotSecondary
	SlotMelee
)

// Slots lists every slot in switch order.
var Slots = []Slot{SlotHands, SlotPrimary, SlotSecondary, SlotMelee}

func (s Slot) String() string {
	switch s {
	case SlotHands:
		return "HANDS"
	case SlotPrimary:
		return "PRIMARY"
	case SlotSecondary:
		return "SECONDARY"
	case SlotMelee:
		return "MELEE"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SlotFor maps a classification to the slot it occupies.
func SlotFor(c Classification) Slot {
	switch c {
	case Pistol:
		return SlotSecondary
	case Melee:
		return SlotMelee
	default:
		return SlotPrimary
	}
}

// FireMode selects the fire/recover strategy.
type FireMode int

const (
	Automatic FireMode = iota
	SemiAutomatic
	MeleeStrike
)

func (m FireMode) String() string {
	switch m {
	case Automatic:
		return "AUTOMATIC"
	case SemiAutomatic:
		return "SEMI_AUTOMATIC"
	case MeleeStrike:
		return "MELEE"
	default:
		return fmt.Sprintf("FireMode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m FireMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
