package animation

import (
	"fmt"

	"github.com/rs/zerolog"

	"gunplay/internal/weapon"
)

// Weapon is the slice of weapon state the machine drives.
type Weapon interface {
	Spec() weapon.Spec
	Active() bool
	SetActive(active bool)
	CanReload() bool
	CommitReload() int
}

// Flags is the independent flag set that selects which clip plays.
type Flags struct {
	Running   bool `json:"running"`
	Walking   bool `json:"walking"`
	Aiming    bool `json:"aiming"`
	Jumping   bool `json:"jumping"`
	Reloading bool `json:"reloading"`
	Firing    bool `json:"firing"`
}

// Clip time scales that do not depend on the weapon.
const (
	idleTimeScale = 0.8
	walkTimeScale = 1.0
	runTimeScale  = 0.8
)

// Machine is the animation state of one weapon.
type Machine struct {
	weapon   Weapon
	spec     weapon.Spec
	mixer    Mixer
	actions  map[Clip]Action
	byName   map[string]Clip
	armature Visibility
	scope    Visibility
	flags    Flags

	onClip  []func(Clip)
	missing map[string]bool
	logger  zerolog.Logger
}

// New binds a machine to the weapon's assets in reg. Missing assets are logged
// and leave the operations that need them disabled.
func New(w Weapon, reg Registry, logger zerolog.Logger) *Machine {
	spec := w.Spec()
	m := &Machine{
		weapon:  w,
		spec:    spec,
		actions: make(map[Clip]Action),
		byName:  make(map[string]Clip),
		missing: make(map[string]bool),
		logger:  logger.With().Str("weapon", spec.Name).Logger(),
	}

	if v, err := lookup[Mixer](reg, MixerKey(spec.Name)); err == nil {
		m.mixer = v
		m.mixer.OnFinished(m.HandleFinished)
	} else {
		m.reportMissing(err)
	}

	// Clips without a mixer would never finish, so they are not bound.
	if actions, err := lookup[map[string]Action](reg, ActionsKey(spec.Name)); err == nil && m.mixer != nil {
		for _, c := range Clips {
			name := ClipName(spec.Name, c)
			if a, ok := actions[name]; ok {
				m.actions[c] = a
				m.byName[name] = c
				m.configure(c, a)
			}
		}
	} else if err != nil {
		m.reportMissing(err)
	}

	if v, err := lookup[Visibility](reg, ArmatureKey(spec.Name)); err == nil {
		m.armature = v
	} else {
		m.reportMissing(err)
	}

	// Only scoped weapons carry an overlay.
	if v, err := lookup[Visibility](reg, ScopeKey(spec.Name)); err == nil {
		m.scope = v
	} else if spec.IsSniper() {
		m.reportMissing(err)
	}

	return m
}

func lookup[T any](reg Registry, key string) (T, error) {
	var zero T
	if reg == nil {
		return zero, fmt.Errorf("%w: %s", ErrMissingAsset, key)
	}
	raw, ok := reg.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingAsset, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has type %T", ErrMissingAsset, key, raw)
	}
	return v, nil
}

func (m *Machine) reportMissing(err error) {
	key := err.Error()
	if m.missing[key] {
		return
	}
	m.missing[key] = true
	m.logger.Warn().Err(err).Msg("animation asset unavailable")
}

func (m *Machine) configure(c Clip, a Action) {
	switch c {
	case ClipDraw, ClipRemove:
		a.SetLoop(LoopOnce)
		a.SetClampWhenFinished(true)
		a.SetTimeScale(m.spec.DrawTimeScale)
	case ClipJump:
		a.SetLoop(LoopOnce)
		a.SetTimeScale(m.spec.JumpTimeScale)
	case ClipReload:
		a.SetLoop(LoopOnce)
		scale := 1.0
		if m.spec.ReloadTime > 0 && a.Duration() > 0 {
			scale = a.Duration() / m.spec.ReloadTime
		}
		a.SetTimeScale(scale)
	case ClipFire, ClipADSFire:
		a.SetLoop(LoopOnce)
		a.SetTimeScale(1)
	case ClipIdle:
		a.SetLoop(LoopRepeat)
		a.SetTimeScale(idleTimeScale)
	case ClipWalk:
		a.SetLoop(LoopRepeat)
		a.SetTimeScale(walkTimeScale)
	case ClipRun:
		a.SetLoop(LoopRepeat)
		a.SetTimeScale(runTimeScale)
	case ClipADSAim:
		a.SetLoop(LoopOnce)
		a.SetClampWhenFinished(true)
		a.SetTimeScale(1)
	}
}

// OnClip subscribes to the clip transitions the machine accepts.
func (m *Machine) OnClip(fn func(Clip)) {
	m.onClip = append(m.onClip, fn)
}

// Flags returns a copy of the current flag set.
func (m *Machine) Flags() Flags { return m.flags }

// Weapon returns the driven weapon.
func (m *Machine) Weapon() Weapon { return m.weapon }

// MissingAssets returns how many distinct lookups or clips were unavailable.
func (m *Machine) MissingAssets() int { return len(m.missing) }

// Update advances the mixer. Finished callbacks run inside this call.
func (m *Machine) Update(dt float64) {
	if m.mixer != nil {
		m.mixer.Update(dt)
	}
}

func (m *Machine) emit(c Clip) {
	for _, fn := range m.onClip {
		fn(c)
	}
}

func (m *Machine) action(c Clip) Action {
	a, ok := m.actions[c]
	if !ok {
		m.reportMissing(fmt.Errorf("%w: clip %s", ErrMissingAsset, ClipName(m.spec.Name, c)))
		return nil
	}
	return a
}

// restart plays a clip from its first frame and reports whether it exists.
func (m *Machine) restart(c Clip) bool {
	a := m.action(c)
	if a == nil {
		return false
	}
	a.Stop()
	a.Reset()
	a.Play()
	return true
}

// ensure plays a looped clip unless it is already running.
func (m *Machine) ensure(c Clip) {
	if a := m.action(c); a != nil && !a.IsRunning() {
		a.Reset()
		a.Play()
	}
}

func (m *Machine) stop(c Clip) {
	if a, ok := m.actions[c]; ok {
		a.Reset()
		a.Stop()
	}
}

// stopAll halts every clip. One-shot flags whose clip is cut short are
// cleared since their finished callback will never arrive.
func (m *Machine) stopAll() {
	for _, c := range Clips {
		m.stop(c)
	}
	m.flags.Firing = false
	m.flags.Jumping = false
}

func (m *Machine) setMeshVisible(visible bool) {
	if m.armature != nil {
		m.armature.SetVisible(visible)
	}
}

func (m *Machine) setScopeVisible(visible bool) {
	if m.scope != nil {
		m.scope.SetVisible(visible)
	}
}

// canMove reports whether a movement clip may take the channel.
func (m *Machine) canMove() bool {
	f := m.flags
	if !m.weapon.Active() || f.Reloading || f.Firing || f.Jumping {
		return false
	}
	return !f.Aiming || m.spec.IsSniper()
}

// resumeMovement plays whichever of run, walk or idle the flags call for.
func (m *Machine) resumeMovement() {
	target := ClipIdle
	switch {
	case m.flags.Walking && m.flags.Running:
		target = ClipRun
	case m.flags.Walking:
		target = ClipWalk
	}
	for _, c := range []Clip{ClipIdle, ClipWalk, ClipRun} {
		if c != target {
			m.stop(c)
		}
	}
	m.ensure(target)
}

// Draw starts equipping the weapon. It stays inactive until the draw clip ends.
func (m *Machine) Draw() {
	m.weapon.SetActive(false)
	m.flags.Aiming = false
	m.stopAll()
	m.setMeshVisible(true)
	m.setScopeVisible(false)
	played := m.restart(ClipDraw)
	m.emit(ClipDraw)
	if !played {
		m.finishDraw()
	}
}

// Remove holsters the weapon. The reloading and movement flags survive so a
// cut reload resumes on the next draw.
func (m *Machine) Remove() {
	m.stopAll()
	m.flags.Aiming = false
	m.weapon.SetActive(false)
	m.setMeshVisible(false)
	m.setScopeVisible(false)
	m.emit(ClipRemove)
}

// Idle clears the firing flag and falls back to the movement clip.
func (m *Machine) Idle() {
	m.flags.Firing = false
	if m.canMove() {
		m.resumeMovement()
	}
}

// Fire plays the shot clip for an accepted fire.
func (m *Machine) Fire() {
	sniper := m.spec.IsSniper()
	if sniper || !m.flags.Aiming {
		m.stopAll()
		m.flags.Firing = m.restart(ClipFire)
		if sniper {
			m.setMeshVisible(true)
			m.setScopeVisible(false)
		}
		m.emit(ClipFire)
		return
	}

	m.stop(ClipADSAim)
	m.flags.Firing = m.restart(ClipADSFire)
	m.emit(ClipADSFire)
}

// Reload starts a reload if the weapon can take one. Ammunition moves when the
// clip finishes.
func (m *Machine) Reload() bool {
	if !m.weapon.Active() || m.flags.Reloading || !m.weapon.CanReload() {
		return false
	}
	if _, ok := m.actions[ClipReload]; !ok {
		m.action(ClipReload)
		return false
	}
	if m.flags.Aiming {
		m.flags.Aiming = false
		if m.spec.IsSniper() {
			m.setMeshVisible(true)
			m.setScopeVisible(false)
		}
	}
	m.stopAll()
	m.flags.Reloading = true
	m.weapon.SetActive(false)
	m.restart(ClipReload)
	m.emit(ClipReload)
	return true
}

// Aim toggles aim-down-sights.
func (m *Machine) Aim(down bool) {
	if m.spec.Mode == weapon.MeleeStrike {
		return
	}
	sniper := m.spec.IsSniper()

	if down {
		if !m.weapon.Active() || m.flags.Reloading || m.flags.Aiming {
			return
		}
		m.flags.Aiming = true
		if sniper {
			m.setMeshVisible(false)
			m.setScopeVisible(true)
		} else {
			m.stopAll()
			m.restart(ClipADSAim)
		}
		m.emit(ClipADSAim)
		return
	}

	if !m.flags.Aiming {
		return
	}
	m.flags.Aiming = false
	if sniper {
		m.setMeshVisible(true)
		m.setScopeVisible(false)
	} else {
		m.stop(ClipADSAim)
	}
	if m.canMove() {
		m.resumeMovement()
	}
}

// Walk records the walking flag and swaps the movement clip when allowed.
func (m *Machine) Walk(down bool) {
	if m.flags.Walking == down {
		return
	}
	m.flags.Walking = down
	if m.canMove() {
		m.resumeMovement()
	}
}

// Run records the sprint flag. Running only shows while walking.
func (m *Machine) Run(down bool) {
	if m.flags.Running == down {
		return
	}
	m.flags.Running = down
	if m.canMove() {
		m.resumeMovement()
	}
}

// Jump plays the one-shot jump clip. Skipped while aiming or when a
// higher-precedence clip owns the channel.
func (m *Machine) Jump() bool {
	f := m.flags
	if !m.weapon.Active() || f.Aiming || f.Reloading || f.Firing || f.Jumping {
		return false
	}
	if _, ok := m.actions[ClipJump]; !ok {
		m.action(ClipJump)
		return false
	}
	for _, c := range []Clip{ClipIdle, ClipWalk, ClipRun} {
		m.stop(c)
	}
	m.flags.Jumping = true
	m.restart(ClipJump)
	m.emit(ClipJump)
	return true
}

// HandleFinished routes a mixer completion. Names that belong to another
// weapon or to clips without a follow-up are ignored.
func (m *Machine) HandleFinished(a Action) {
	c, ok := m.byName[a.Name()]
	if !ok {
		m.logger.Debug().Str("clip", a.Name()).Msg("ignoring finished clip")
		return
	}

	switch c {
	case ClipDraw:
		m.finishDraw()
	case ClipReload:
		m.finishReload()
	case ClipJump:
		m.finishJump()
	case ClipFire:
		m.finishFire()
	case ClipADSFire:
		m.finishADSFire()
	}
}

func (m *Machine) finishDraw() {
	m.weapon.SetActive(true)
	if m.flags.Reloading {
		m.flags.Reloading = false
		if m.Reload() {
			return
		}
	}
	m.resumeMovement()
}

func (m *Machine) finishReload() {
	if !m.flags.Reloading {
		return
	}
	m.weapon.CommitReload()
	m.weapon.SetActive(true)
	m.flags.Reloading = false
	m.resumeMovement()
}

func (m *Machine) finishJump() {
	m.flags.Jumping = false
	if m.canMove() {
		m.resumeMovement()
	}
}

func (m *Machine) finishFire() {
	m.flags.Firing = false
	if m.flags.Aiming {
		if m.spec.IsSniper() {
			m.setMeshVisible(false)
			m.setScopeVisible(true)
		} else {
			m.restart(ClipADSAim)
			return
		}
	}
	if m.canMove() {
		m.resumeMovement()
	}
}

func (m *Machine) finishADSFire() {
	m.flags.Firing = false
	switch {
	case m.spec.IsSniper():
		m.stopAll()
		m.ensure(ClipIdle)
	case m.flags.Aiming:
		m.restart(ClipADSAim)
	case m.canMove():
		m.resumeMovement()
	}
}
