package game

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"gunplay/internal/weapon"
)

// HitScanner resolves a shot fired from cam through a normalized screen
// point. It is the ray-cast collaborator of the frame loop.
type HitScanner interface {
	Scan(cam weapon.Camera, aim mgl64.Vec2) (Hit, bool)
}

// Hit is the closest target a shot passed through.
type Hit struct {
	Target string
	Offset float64
}

// Target is a disc fixed in world angles, seen from the player's position.
type Target struct {
	ID     string  `json:"id" yaml:"id"`
	Yaw    float64 `json:"yaw" yaml:"yaw"`
	Pitch  float64 `json:"pitch" yaml:"pitch"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// TargetBoard is a HitScanner over a fixed set of angular targets.
type TargetBoard struct {
	fov     float64 // vertical field of view, radians
	aspect  float64
	targets []Target
	hits    map[string]int
}

// DefaultFOV matches a 75 degree vertical perspective camera.
const DefaultFOV = 75 * math.Pi / 180

// NewTargetBoard creates a board for a camera with the given vertical field of
// view and aspect ratio.
func NewTargetBoard(fov, aspect float64, targets ...Target) *TargetBoard {
	if fov <= 0 {
		fov = DefaultFOV
	}
	if aspect <= 0 {
		aspect = 16.0 / 9.0
	}
	return &TargetBoard{
		fov:     fov,
		aspect:  aspect,
		targets: append([]Target(nil), targets...),
		hits:    make(map[string]int),
	}
}

// DefaultTargets is a small range: one head-sized disc dead ahead, a body
// below it and two flankers.
func DefaultTargets() []Target {
	return []Target{
		{ID: "head", Yaw: 0, Pitch: 0, Radius: 0.015},
		{ID: "body", Yaw: 0, Pitch: -0.06, Radius: 0.04},
		{ID: "left", Yaw: 0.2, Pitch: 0, Radius: 0.03},
		{ID: "right", Yaw: -0.2, Pitch: 0, Radius: 0.03},
	}
}

// Direction converts a camera orientation plus a normalized screen point into
// the world yaw and pitch of the ray. Screen x grows rightwards, which turns
// the ray to a smaller yaw.
func (b *TargetBoard) Direction(cam weapon.Camera, aim mgl64.Vec2) (yaw, pitch float64) {
	halfV := math.Tan(b.fov / 2)
	yaw = cam.Yaw - math.Atan(aim.X()*halfV*b.aspect)
	pitch = cam.Pitch + math.Atan(aim.Y()*halfV)
	return yaw, pitch
}

// Scan implements HitScanner.
func (b *TargetBoard) Scan(cam weapon.Camera, aim mgl64.Vec2) (Hit, bool) {
	yaw, pitch := b.Direction(cam, aim)

	best := Hit{Offset: math.Inf(1)}
	for _, t := range b.targets {
		d := math.Hypot(yaw-t.Yaw, pitch-t.Pitch)
		if d <= t.Radius && d < best.Offset {
			best = Hit{Target: t.ID, Offset: d}
		}
	}
	if best.Target == "" {
		return Hit{}, false
	}
	b.hits[best.Target]++
	return best, true
}

// Hits returns per-target hit counts.
func (b *TargetBoard) Hits() map[string]int {
	out := make(map[string]int, len(b.hits))
	for k, v := range b.hits {
		out[k] = v
	}
	return out
}

// Targets returns the targets sorted by ID.
func (b *TargetBoard) Targets() []Target {
	out := append([]Target(nil), b.targets...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
