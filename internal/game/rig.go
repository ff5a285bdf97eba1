package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gunplay/internal/animation"
	"gunplay/internal/asset"
	"gunplay/internal/input"
	"gunplay/internal/inventory"
	"gunplay/internal/weapon"
)

// RigConfig describes one player's weapon set.
type RigConfig struct {
	Loadout  []string // catalog IDs, at most one per slot
	Seed     int64
	Queue    input.QueueConfig
	Manifest *asset.Manifest // nil uses the embedded manifest
	Scanner  HitScanner      // nil disables hit-scan
}

// DefaultLoadout is the arsenal every new session receives.
var DefaultLoadout = []string{"ak", "glock", "knife"}

// Rig is the local player's weapon set: camera, inventory, input state and the
// per-frame orchestration between them. A Rig is owned by one goroutine; only
// its input queue may be fed from others.
type Rig struct {
	cam     weapon.Camera
	inv     *inventory.Manager
	queue   *input.Queue
	rng     *rand.Rand
	scanner HitScanner
	logger  zerolog.Logger

	trigger bool
	locked  bool
	moving  map[input.Event]bool
	sprint  bool

	loadout []string
	outbox  []FrameEvent
}

// NewRig builds the loadout's weapons and animation machines. The rig starts
// empty-handed with the pointer locked.
func NewRig(cfg RigConfig, logger zerolog.Logger) (*Rig, error) {
	if len(cfg.Loadout) == 0 {
		cfg.Loadout = DefaultLoadout
	}
	manifest := asset.DefaultManifest()
	if cfg.Manifest != nil {
		manifest = *cfg.Manifest
	}

	specs := make([]weapon.Spec, 0, len(cfg.Loadout))
	for _, id := range cfg.Loadout {
		spec, ok := weapon.LookupSpec(id)
		if !ok {
			return nil, fmt.Errorf("unknown weapon %q", id)
		}
		specs = append(specs, spec)
	}

	r := &Rig{
		inv:     inventory.NewManager(logger),
		queue:   input.NewQueue(cfg.Queue, logger),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		scanner: cfg.Scanner,
		logger:  logger,
		locked:  true,
		moving:  make(map[input.Event]bool),
		loadout: append([]string(nil), cfg.Loadout...),
	}

	reg := asset.Build(specs, manifest)
	for _, spec := range specs {
		state := weapon.New(spec, uuid.NewString())
		anim := animation.New(state, reg, logger)
		name := spec.Name
		anim.OnClip(func(c animation.Clip) {
			r.push(EventTypeAnimation, AnimationEvent{Weapon: name, Clip: c})
		})
		if !r.inv.PickUp(inventory.NewItem(state, anim)) {
			return nil, fmt.Errorf("weapon %q: slot %s already taken", spec.ID, weapon.SlotFor(spec.Classification))
		}
	}

	r.inv.OnEquip(func(item *inventory.Item) {
		ev := EquipEvent{Slot: r.inv.Current()}
		if item != nil {
			ev.Weapon = item.State.Name()
		}
		r.push(EventTypeEquip, ev)
	})
	return r, nil
}

func (r *Rig) push(t EventType, payload any) {
	r.outbox = append(r.outbox, FrameEvent{Type: t, Payload: payload})
}

// Input returns the rig's input queue. It is safe to enqueue from any goroutine.
func (r *Rig) Input() *input.Queue { return r.queue }

// Camera returns the current orientation.
func (r *Rig) Camera() weapon.Camera { return r.cam }

// Inventory exposes the slot manager.
func (r *Rig) Inventory() *inventory.Manager { return r.inv }

// Loadout returns the catalog IDs the rig was built with.
func (r *Rig) Loadout() []string { return append([]string(nil), r.loadout...) }

// TriggerDown reports whether the trigger is held.
func (r *Rig) TriggerDown() bool { return r.trigger }

// Frame runs one frame: pending input is applied in arrival order, a held
// trigger keeps automatic weapons firing, then every weapon recovers and the
// active weapon's clips advance by dt. It returns the events the frame
// produced, in order.
func (r *Rig) Frame(dt float64, now time.Time) []FrameEvent {
	if dt < 0 {
		dt = 0
	}

	for _, ev := range r.queue.Drain(now) {
		r.apply(ev.Event, now)
	}

	if r.trigger {
		if item := r.inv.Active(); item != nil && item.State.Spec().Mode == weapon.Automatic {
			r.fire(now)
		}
	}

	r.inv.Update(&r.cam, dt, r.trigger)

	out := r.outbox
	r.outbox = nil
	return out
}

// apply routes one input event. Movement reaches every held weapon so flags
// stay current across switches; everything else goes to the active weapon.
func (r *Rig) apply(e input.Event, now time.Time) {
	active := r.inv.Active()

	switch e {
	case input.MoveForwardDown, input.MoveBackwardDown, input.MoveLeftDown, input.MoveRightDown:
		r.moving[e] = true
		r.broadcastWalk()
	case input.MoveForwardUp, input.MoveBackwardUp, input.MoveLeftUp, input.MoveRightUp:
		if down, ok := e.Pressed(); ok {
			delete(r.moving, down)
		}
		r.broadcastWalk()
	case input.ShiftDown, input.ShiftUp:
		r.sprint = e == input.ShiftDown
		r.inv.Each(func(_ weapon.Slot, item *inventory.Item) { item.Anim.Run(r.sprint) })

	case input.TriggerDown:
		r.trigger = true
		r.fire(now)
	case input.TriggerUp:
		r.trigger = false

	case input.ADSDown, input.ADSUp:
		if active != nil {
			active.Anim.Aim(e == input.ADSDown)
		}
	case input.Jump:
		if active != nil {
			active.Anim.Jump()
		}
	case input.Reload:
		if active != nil {
			active.Anim.Reload()
		}

	case input.SwitchPrimary:
		r.inv.SwitchWeapon(weapon.SlotPrimary)
	case input.SwitchSecondary:
		r.inv.SwitchWeapon(weapon.SlotSecondary)
	case input.SwitchMelee:
		r.inv.SwitchWeapon(weapon.SlotMelee)
	case input.SwitchLast:
		r.inv.SwitchLast()

	case input.PointerLocked:
		r.locked = true
	case input.PointerUnlocked:
		r.locked = false
		r.trigger = false

	default:
		r.logger.Debug().Stringer("event", e).Msg("ignoring input")
	}
}

func (r *Rig) broadcastWalk() {
	walking := len(r.moving) > 0
	r.inv.Each(func(_ weapon.Slot, item *inventory.Item) { item.Anim.Walk(walking) })
}

// fire attempts one shot with the active weapon. Order within a shot: camera
// kick, hit-scan, then the fire clip.
func (r *Rig) fire(now time.Time) {
	item := r.inv.Active()
	if item == nil || !r.locked {
		return
	}
	shot, ok := item.State.Fire(&r.cam, now, r.rng)
	if !ok {
		return
	}

	// melee strikes only play their clip
	if !shot.HitScan {
		item.Anim.Fire()
		return
	}

	spec := item.State.Spec()
	r.push(EventTypeFire, FireEvent{
		Weapon:           spec.Name,
		Classification:   spec.Classification,
		AimPoint:         shot.AimPoint,
		BulletsRemaining: shot.BulletsRemaining,
		Camera:           r.cam,
	})

	if r.scanner != nil {
		if hit, ok := r.scanner.Scan(r.cam, shot.AimPoint); ok {
			r.push(EventTypeHit, HitEvent{Weapon: spec.Name, Target: hit.Target, Offset: hit.Offset})
		}
	}

	item.Anim.Fire()
}

// HUD is the on-screen weapon readout.
type HUD struct {
	Slot         weapon.Slot     `json:"slot"`
	Weapon       string          `json:"weapon,omitempty"`
	Bullets      int             `json:"bullets"`
	MagazineSize int             `json:"magazineSize"`
	Reserve      int             `json:"reserve"`
	NextWeapon   string          `json:"nextWeapon,omitempty"`
	Reloading    bool            `json:"reloading"`
	Aiming       bool            `json:"aiming"`
	Camera       weapon.Camera   `json:"camera"`
	Weapons      []weapon.Status `json:"weapons"`
}

// HUD returns the current readout. NextWeapon is what SwitchLast would draw.
func (r *Rig) HUD() HUD {
	h := HUD{Slot: r.inv.Current(), Camera: r.cam}
	if item := r.inv.Active(); item != nil {
		st := item.State.Snapshot()
		flags := item.Anim.Flags()
		h.Weapon = st.Name
		h.Bullets = st.Bullets
		h.MagazineSize = st.MagazineSize
		h.Reserve = st.Reserve
		h.Reloading = flags.Reloading
		h.Aiming = flags.Aiming
	}
	if prev := r.inv.Get(r.inv.Previous()); prev != nil {
		h.NextWeapon = prev.State.Name()
	}
	r.inv.Each(func(_ weapon.Slot, item *inventory.Item) {
		h.Weapons = append(h.Weapons, item.State.Snapshot())
	})
	return h
}
