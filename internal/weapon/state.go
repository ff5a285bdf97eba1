package weapon

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"gunplay/internal/recoil"
)

// Rotator is the mutable camera orientation that recoil and recovery act on.
type Rotator interface {
	Rotate(dPitch, dYaw float64)
}

// Rand is the jitter source. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Camera is a plain pitch/yaw pair in radians.
type Camera struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Rotate adds the given deltas.
func (c *Camera) Rotate(dPitch, dYaw float64) {
	c.Pitch += dPitch
	c.Yaw += dYaw
}

// State is the per-weapon ballistic record. It is owned by a single player's
// frame loop and is not safe for concurrent use.
type State struct {
	id   string
	spec Spec

	bullets  int
	reserve  int
	active   bool
	lastFire time.Time

	// Recoil accumulators. progress is the position along the recoil curve.
	progress     float64
	yawTotal     float64
	pitchTotal   float64
	recoverYaw   float64
	recoverPitch float64
	basicPitch   float64
	startLine    float64
	recovering   bool

	aim   *recoil.Curve
	delta *recoil.Curve
}

// Shot is the result of a successful fire.
type Shot struct {
	AimPoint         mgl64.Vec2 `json:"aimPoint"`
	BulletsRemaining int        `json:"bulletsRemaining"`
	HitScan          bool       `json:"hitScan"`
}

// Status is a read-only view of a weapon for HUDs and snapshots.
type Status struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Classification  Classification `json:"classification"`
	Bullets         int            `json:"bullets"`
	MagazineSize    int            `json:"magazineSize"`
	Reserve         int            `json:"reserve"`
	Active          bool           `json:"active"`
	RecoverProgress float64        `json:"recoverProgress"`
}

type curvePair struct {
	aim   *recoil.Curve
	delta *recoil.Curve
}

var (
	curveMu    sync.Mutex
	curveCache = make(map[string]curvePair)
)

// curvesFor builds the spec's curves once and shares them read-only afterwards.
func curvesFor(spec Spec) curvePair {
	if !spec.HasPattern() {
		return curvePair{}
	}

	curveMu.Lock()
	defer curveMu.Unlock()

	if c, ok := curveCache[spec.ID]; ok {
		return c
	}
	c := curvePair{
		aim:   recoil.AimCurve(*spec.Pattern, spec.AimScale, spec.FireInterval, spec.MagazineSize),
		delta: recoil.DeltaCurve(*spec.Pattern, spec.DeltaScale, spec.FireInterval, spec.MagazineSize),
	}
	curveCache[spec.ID] = c
	return c
}

// New creates a weapon with a full magazine. The weapon starts inactive until
// its draw animation completes.
func New(spec Spec, id string) *State {
	c := curvesFor(spec)
	return &State{
		id:      id,
		spec:    spec,
		bullets: spec.MagazineSize,
		reserve: spec.ReserveAmmo,
		aim:     c.aim,
		delta:   c.delta,
	}
}

func (s *State) ID() string { return s.id }
func (s *State) Spec() Spec { return s.spec }
func (s *State) Name() string { return s.spec.Name }
func (s *State) Bullets() int { return s.bullets }
func (s *State) Reserve() int { return s.reserve }
func (s *State) Active() bool { return s.active }

// SetActive toggles whether the weapon responds to fire and reload input.
func (s *State) SetActive(active bool) {
	s.active = active
}

// LastFire returns the timestamp of the last accepted fire.
func (s *State) LastFire() time.Time { return s.lastFire }

// RecoverProgress returns the current position along the recoil curve.
func (s *State) RecoverProgress() float64 { return s.progress }

// Recovering reports whether a recovery phase has started since the last shot.
func (s *State) Recovering() bool { return s.recovering }

// Accumulated returns the camera rotation still owed back by recovery:
// basic pitch kick plus the remaining curve-driven pitch and yaw.
func (s *State) Accumulated() (basicPitch, pitch, yaw float64) {
	if s.recovering {
		return s.basicPitch, s.recoverPitch, s.recoverYaw
	}
	return s.basicPitch, s.pitchTotal, s.yawTotal
}

// AimCurve returns the absolute aim curve, nil for weapons without a pattern.
func (s *State) AimCurve() *recoil.Curve { return s.aim }

// FireIntervalDuration returns the minimum spacing between shots.
func (s Spec) FireIntervalDuration() time.Duration {
	return time.Duration(s.FireInterval * float64(time.Second))
}

// CanFire reports whether a fire request at now would be accepted.
func (s *State) CanFire(now time.Time) bool {
	if !s.active {
		return false
	}
	if s.spec.Mode != MeleeStrike && s.bullets <= 0 {
		return false
	}
	return now.Sub(s.lastFire) >= s.spec.FireIntervalDuration()
}

// CanReload reports whether a reload would change the magazine.
func (s *State) CanReload() bool {
	if s.spec.Mode == MeleeStrike {
		return false
	}
	return s.bullets < s.spec.MagazineSize && s.reserve > 0
}

// CommitReload moves ammunition from reserve into the magazine and returns the
// number of rounds moved. Called once the reload animation completes.
func (s *State) CommitReload() int {
	if !s.CanReload() {
		return 0
	}
	n := s.spec.MagazineSize - s.bullets
	if n > s.reserve {
		n = s.reserve
	}
	s.bullets += n
	s.reserve -= n
	return n
}

// Snapshot returns a read-only view of the weapon.
func (s *State) Snapshot() Status {
	return Status{
		ID:              s.id,
		Name:            s.spec.Name,
		Classification:  s.spec.Classification,
		Bullets:         s.bullets,
		MagazineSize:    s.spec.MagazineSize,
		Reserve:         s.reserve,
		Active:          s.active,
		RecoverProgress: s.progress,
	}
}
