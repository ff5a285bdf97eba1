// Package recoil converts digitized spray patterns into the lookup curves that drive
// per-shot aim offsets and camera kick.
package recoil

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Reference half-extents of the 1920x1080 capture the patterns were digitized on.
const (
	ReferenceHalfWidth  = 960.0
	ReferenceHalfHeight = 540.0
)

// Pattern is a raw digitized spray: flat (x, y) pixel pairs in capture coordinates.
// The first pair is the zero point every other shot is measured from.
type Pattern struct {
	Name   string
	Points []float64
}

// Len returns the number of (x, y) pairs in the pattern.
func (p Pattern) Len() int {
	return len(p.Points) / 2
}

// Scale holds the weapon-specific factors applied to a pattern.
type Scale struct {
	BulletCount int     `json:"bulletCount" yaml:"bulletCount"`
	RateX       float64 `json:"rateX" yaml:"rateX"`
	RateY       float64 `json:"rateY" yaml:"rateY"`
	RecoilForce float64 `json:"recoilForce" yaml:"recoilForce"`
}

// AK47Pattern is the reference 30-round AK spray.
var AK47Pattern = Pattern{
	Name: "ak47",
	Points: []float64{
		222, 602, 230, 585, 222, 540, 228, 472, 231, 398,
		200, 320, 180, 255, 150, 208, 190, 173, 290, 183,
		343, 177, 312, 150, 350, 135, 412, 158, 420, 144,
		323, 141, 277, 124, 244, 100, 179, 102, 100, 124,
		149, 130, 134, 123, 149, 100, 170, 92, 125, 100,
		110, 87, 160, 88, 237, 95, 346, 147, 381, 146,
	},
}

// NormalizePattern scales every shot's offset from the zero point and maps it into
// device-independent [-1, 1] screen coordinates with upward kick positive on y.
// At most count shots are converted.
func NormalizePattern(p Pattern, s Scale, count int) []mgl64.Vec2 {
	n := p.Len()
	if count < n {
		n = count
	}
	if n <= 0 {
		return nil
	}

	baseX, baseY := p.Points[0], p.Points[1]
	out := make([]mgl64.Vec2, n)
	for i := 0; i < n; i++ {
		dx := (p.Points[2*i] - baseX) * s.RateX * s.RecoilForce
		dy := (p.Points[2*i+1] - baseY) * s.RateY * s.RecoilForce

		screenX := ReferenceHalfWidth + dx
		screenY := ReferenceHalfHeight - dy

		out[i] = mgl64.Vec2{
			(screenX - ReferenceHalfWidth) / ReferenceHalfWidth,
			(screenY - ReferenceHalfHeight) / ReferenceHalfHeight,
		}
	}
	return out
}

// Differentiate re-expresses absolute samples as consecutive differences
// (sample[i] - sample[i-1]); the first entry is always zero.
func Differentiate(abs []mgl64.Vec2) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, len(abs))
	for i := 1; i < len(abs); i++ {
		out[i] = abs[i].Sub(abs[i-1])
	}
	return out
}
