package weapon

// Basic pitch kick drains at a fixed rate per reference frame.
const (
	basicDecayPerFrame = 0.001
	referenceFrame     = 0.016
)

// Recover runs once per frame for every held weapon, fired or not. It returns
// the camera toward its pre-recoil orientation in proportion to dt.
func (s *State) Recover(cam Rotator, dt float64, triggerDown bool) {
	if dt < 0 {
		dt = 0
	}
	if st, ok := strategies[s.spec.Mode]; ok {
		st.recover(s, cam, dt, triggerDown)
	}
}

func recoverAutomatic(s *State, cam Rotator, dt float64, triggerDown bool) {
	decayBasicPitch(s, cam, dt)

	// Holding the trigger with ammo left suspends recovery; the next shot
	// re-seeds the accumulators instead.
	if triggerDown && s.bullets > 0 && s.active {
		return
	}
	recoverAlongCurve(s, cam, dt)
}

// Single-press weapons recover regardless of the trigger.
func recoverSemiAutomatic(s *State, cam Rotator, dt float64, _ bool) {
	recoverAlongCurve(s, cam, dt)
}

func recoverNone(*State, Rotator, float64, bool) {}

func decayBasicPitch(s *State, cam Rotator, dt float64) {
	if s.basicPitch <= 0 {
		return
	}
	step := basicDecayPerFrame * dt / referenceFrame
	if s.basicPitch-step > 0 {
		cam.Rotate(-step, 0)
		s.basicPitch -= step
		return
	}
	cam.Rotate(-s.basicPitch, 0)
	s.basicPitch = 0
}

func recoverAlongCurve(s *State, cam Rotator, dt float64) {
	if s.progress == 0 {
		return
	}

	if !s.recovering {
		s.recoverYaw = s.yawTotal
		s.recoverPitch = s.pitchTotal
		s.startLine = s.progress
		s.recovering = true
	}

	step := s.startLine
	if s.spec.RecoverTime > 0 {
		step = dt / s.spec.RecoverTime * s.startLine
	}

	if before := s.progress; before-step > 0 {
		s.progress -= step
		ratio := (before - s.progress) / s.startLine
		dPitch := s.pitchTotal * ratio
		dYaw := s.yawTotal * ratio
		cam.Rotate(-dPitch, -dYaw)
		s.recoverPitch -= dPitch
		s.recoverYaw -= dYaw
		return
	}

	// Final frame gives back exactly what is still owed.
	cam.Rotate(-s.recoverPitch, -s.recoverYaw)
	s.progress = 0
	s.startLine = 0
	s.pitchTotal, s.yawTotal = 0, 0
	s.recoverPitch, s.recoverYaw = 0, 0
	s.recovering = false
}
