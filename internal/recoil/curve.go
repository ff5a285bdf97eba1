package recoil

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Curve is an immutable piecewise-linear interpolant from recoil progress
// (seconds of sustained fire) to a screen-space offset.
type Curve struct {
	positions []float64
	samples   []mgl64.Vec2
}

// Sample is one knot of a Curve.
type Sample struct {
	ShotIndex float64    `json:"shotIndex"`
	Offset    mgl64.Vec2 `json:"offset"`
}

// NewCurve builds a curve with knots at i*interval. The samples slice is copied.
func NewCurve(samples []mgl64.Vec2, interval float64) *Curve {
	c := &Curve{
		positions: make([]float64, len(samples)),
		samples:   make([]mgl64.Vec2, len(samples)),
	}
	copy(c.samples, samples)
	for i := range samples {
		c.positions[i] = float64(i) * interval
	}
	return c
}

// AimCurve builds the absolute aim-point curve for a weapon.
func AimCurve(p Pattern, s Scale, interval float64, magazine int) *Curve {
	return NewCurve(NormalizePattern(p, s, sampleCount(p, s, magazine)), interval)
}

// DeltaCurve builds the per-shot camera rotation curve for a weapon.
func DeltaCurve(p Pattern, s Scale, interval float64, magazine int) *Curve {
	abs := NormalizePattern(p, s, sampleCount(p, s, magazine))
	return NewCurve(Differentiate(abs), interval)
}

func sampleCount(p Pattern, s Scale, magazine int) int {
	n := p.Len()
	if s.BulletCount > 0 && s.BulletCount < n {
		n = s.BulletCount
	}
	if magazine > 0 && magazine < n {
		n = magazine
	}
	return n
}

// Len returns the number of knots.
func (c *Curve) Len() int {
	return len(c.samples)
}

// Span returns the progress value of the last knot.
func (c *Curve) Span() float64 {
	if len(c.positions) == 0 {
		return 0
	}
	return c.positions[len(c.positions)-1]
}

// Samples returns a copy of the curve's knots.
func (c *Curve) Samples() []Sample {
	out := make([]Sample, len(c.samples))
	for i := range c.samples {
		out[i] = Sample{ShotIndex: c.positions[i], Offset: c.samples[i]}
	}
	return out
}

// Evaluate interpolates linearly between the bracketing knots. Progress outside
// the sampled domain clamps to the nearest endpoint.
func (c *Curve) Evaluate(progress float64) mgl64.Vec2 {
	n := len(c.samples)
	if n == 0 {
		return mgl64.Vec2{}
	}
	if progress <= c.positions[0] {
		return c.samples[0]
	}
	if progress >= c.positions[n-1] {
		return c.samples[n-1]
	}

	hi := sort.SearchFloat64s(c.positions, progress)
	if c.positions[hi] == progress {
		return c.samples[hi]
	}
	lo := hi - 1
	t := (progress - c.positions[lo]) / (c.positions[hi] - c.positions[lo])
	return c.samples[lo].Add(c.samples[hi].Sub(c.samples[lo]).Mul(t))
}
