// Package animation drives a weapon's first-person clips from input, fire and
// reload events, and from the playback engine's finished notifications.
package animation

import "fmt"

// Clip is an animation category. Concrete clip names are <weapon>_<suffix>.
type Clip int

const (
	ClipDraw Clip = iota
	ClipRemove
	ClipIdle
	ClipFire
	ClipADSFire
	ClipReload
	ClipADSAim
	ClipWalk
	ClipRun
	ClipJump
)

// Clips lists every category.
var Clips = []Clip{
	ClipDraw, ClipRemove, ClipIdle, ClipFire, ClipADSFire,
	ClipReload, ClipADSAim, ClipWalk, ClipRun, ClipJump,
}

var clipSuffixes = [...]string{
	ClipDraw:    "draw",
	ClipRemove:  "remove",
	ClipIdle:    "idle",
	ClipFire:    "fire",
	ClipADSFire: "ads_fire",
	ClipReload:  "reload",
	ClipADSAim:  "ads_aim",
	ClipWalk:    "walk",
	ClipRun:     "run",
	ClipJump:    "jump",
}

// Suffix returns the clip name suffix, e.g. "ads_fire".
func (c Clip) Suffix() string {
	if c < 0 || int(c) >= len(clipSuffixes) {
		return ""
	}
	return clipSuffixes[c]
}

func (c Clip) String() string {
	switch c {
	case ClipDraw:
		return "DRAW"
	case ClipRemove:
		return "REMOVE"
	case ClipIdle:
		return "IDLE"
	case ClipFire:
		return "FIRE"
	case ClipADSFire:
		return "ADS_FIRE"
	case ClipReload:
		return "RELOAD"
	case ClipADSAim:
		return "ADS_AIM"
	case ClipWalk:
		return "WALK"
	case ClipRun:
		return "RUN"
	case ClipJump:
		return "JUMP"
	default:
		return fmt.Sprintf("Clip(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Clip) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClipName returns the concrete clip name for a weapon.
func ClipName(weapon string, c Clip) string {
	return weapon + "_" + c.Suffix()
}
