package weapon

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Recoil constants, radians before division by the weapon's recoil control.
const (
	automaticBasicKick = 0.04 * math.Pi
	semiAutomaticKick  = 0.05 * math.Pi
	semiSpreadGain     = 60.0
)

type strategy struct {
	fire    func(s *State, cam Rotator, rng Rand) mgl64.Vec2
	recover func(s *State, cam Rotator, dt float64, triggerDown bool)
}

var strategies = map[FireMode]strategy{
	Automatic:     {fire: fireAutomatic, recover: recoverAutomatic},
	SemiAutomatic: {fire: fireSemiAutomatic, recover: recoverSemiAutomatic},
	MeleeStrike:   {fire: fireMelee, recover: recoverNone},
}

// Fire attempts a shot at now. An illegal attempt returns false and leaves the
// weapon and camera untouched.
func (s *State) Fire(cam Rotator, now time.Time, rng Rand) (Shot, bool) {
	if !s.CanFire(now) {
		return Shot{}, false
	}
	st, ok := strategies[s.spec.Mode]
	if !ok {
		return Shot{}, false
	}

	aim := st.fire(s, cam, rng)
	s.lastFire = now

	return Shot{
		AimPoint:         aim,
		BulletsRemaining: s.bullets,
		HitScan:          s.spec.Mode != MeleeStrike,
	}, true
}

// jitter returns the random spread: x in [-0.5, 0.5) and y in [0, 1), scaled
// by the inverse of the accurate range.
func (s *State) jitter(rng Rand) mgl64.Vec2 {
	inv := 1 / s.spec.AccurateRange
	x := (rng.Float64() - 0.5) * inv
	y := rng.Float64() * inv
	return mgl64.Vec2{x, y}
}

func fireAutomatic(s *State, cam Rotator, rng Rand) mgl64.Vec2 {
	if s.recovering {
		s.yawTotal = s.recoverYaw
		s.pitchTotal = s.recoverPitch
	}

	var aim mgl64.Vec2
	if s.aim != nil {
		aim = s.aim.Evaluate(s.progress)
	}
	aim = aim.Add(s.jitter(rng))

	basic := automaticBasicKick / s.spec.RecoilControl
	cam.Rotate(basic, 0)
	s.basicPitch += basic

	if s.delta != nil {
		d := s.delta.Evaluate(s.progress)
		dYaw := -d.X() * math.Pi / s.spec.RecoilControl
		dPitch := d.Y() * math.Pi / s.spec.RecoilControl
		cam.Rotate(dPitch, dYaw)
		s.pitchTotal += dPitch
		s.yawTotal += dYaw
	}

	s.progress += s.spec.FireInterval
	s.bullets--
	s.recovering = false
	return aim
}

func fireSemiAutomatic(s *State, cam Rotator, rng Rand) mgl64.Vec2 {
	if s.recovering {
		s.pitchTotal = s.recoverPitch
	}

	base := s.jitter(rng)

	kick := semiAutomaticKick / s.spec.RecoilControl
	cam.Rotate(kick, 0)
	s.pitchTotal += kick

	s.progress += s.spec.FireInterval
	k := ((s.progress / s.spec.FireInterval) - 1) * semiSpreadGain / s.spec.RecoilControl

	s.bullets--
	s.recovering = false
	return base.Mul(k)
}

func fireMelee(*State, Rotator, Rand) mgl64.Vec2 {
	return mgl64.Vec2{}
}
