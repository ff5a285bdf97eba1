package game

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gunplay/internal/animation"
	"gunplay/internal/input"
	"gunplay/internal/weapon"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// alwaysHit records the camera it was called with and reports a hit.
type alwaysHit struct {
	cams []weapon.Camera
}

func (a *alwaysHit) Scan(cam weapon.Camera, _ mgl64.Vec2) (Hit, bool) {
	a.cams = append(a.cams, cam)
	return Hit{Target: "dummy"}, true
}

func newRig(t *testing.T, loadout ...string) *Rig {
	t.Helper()
	r, err := NewRig(RigConfig{Loadout: loadout, Seed: 1}, zerolog.Nop())
	require.NoError(t, err)
	return r
}

// equip switches to slot and plays the draw clip to the end.
func equip(t *testing.T, r *Rig, ev input.Event, now time.Time) []FrameEvent {
	t.Helper()
	require.True(t, r.Input().EnqueueAt(ev, now))
	out := r.Frame(0, now)
	r.Frame(2, now)
	require.NotNil(t, r.Inventory().Active())
	require.True(t, r.Inventory().Active().State.Active())
	return out
}

func types(events []FrameEvent) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestNewRigRejectsBadLoadout(t *testing.T) {
	tests := []struct {
		name    string
		loadout []string
	}{
		{"unknown weapon", []string{"ak", "bazooka"}},
		{"two primaries", []string{"ak", "m416"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRig(RigConfig{Loadout: tt.loadout}, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestNewRigDefaults(t *testing.T) {
	r := newRig(t)

	assert.Equal(t, DefaultLoadout, r.Loadout())
	assert.Equal(t, 3, r.Inventory().Len())
	assert.Equal(t, weapon.SlotHands, r.Inventory().Current())
	assert.Equal(t, weapon.Camera{}, r.Camera())
}

func TestRigEquip(t *testing.T) {
	r := newRig(t)
	out := equip(t, r, input.SwitchPrimary, epoch)

	require.Len(t, out, 2)
	assert.Equal(t, EventTypeAnimation, out[0].Type)
	assert.Equal(t, AnimationEvent{Weapon: "AK", Clip: animation.ClipDraw}, out[0].Payload)
	assert.Equal(t, EventTypeEquip, out[1].Type)
	assert.Equal(t, EquipEvent{Slot: weapon.SlotPrimary, Weapon: "AK"}, out[1].Payload)
}

func TestRigAutomaticFireWhileHeld(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchPrimary, epoch)
	ak := r.Inventory().Active().State
	interval := ak.Spec().FireIntervalDuration()

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	out := r.Frame(0.016, now)
	assert.Equal(t, []EventType{EventTypeFire, EventTypeAnimation}, types(out))
	assert.Equal(t, 29, ak.Bullets())
	assert.Greater(t, r.Camera().Pitch, 0.0)

	// same instant: interval gating stops a second shot
	assert.Empty(t, r.Frame(0.016, now))

	for i := 1; i <= 4; i++ {
		now = now.Add(interval)
		out = r.Frame(0.016, now)
		require.NotEmpty(t, out, "shot %d", i)
	}
	assert.Equal(t, 25, ak.Bullets())
	assert.True(t, r.TriggerDown())

	r.Input().EnqueueAt(input.TriggerUp, now)
	now = now.Add(interval)
	assert.Empty(t, r.Frame(0.016, now))
	assert.Equal(t, 25, ak.Bullets())
}

func TestRigSemiAutomaticFiresOncePerPress(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchSecondary, epoch)
	glock := r.Inventory().Active().State
	interval := glock.Spec().FireIntervalDuration()

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	r.Frame(0.016, now)

	for i := 0; i < 5; i++ {
		now = now.Add(interval)
		r.Frame(0.016, now)
	}
	assert.Equal(t, 11, glock.Bullets())

	r.Input().EnqueueAt(input.TriggerUp, now)
	r.Input().EnqueueAt(input.TriggerDown, now)
	r.Frame(0.016, now)
	assert.Equal(t, 10, glock.Bullets())
}

func TestRigShotOrder(t *testing.T) {
	scanner := &alwaysHit{}
	r, err := NewRig(RigConfig{Seed: 1, Scanner: scanner}, zerolog.Nop())
	require.NoError(t, err)
	equip(t, r, input.SwitchPrimary, epoch)

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	out := r.Frame(0, now)

	assert.Equal(t, []EventType{EventTypeFire, EventTypeHit, EventTypeAnimation}, types(out))
	require.Len(t, scanner.cams, 1)

	// the scan sees the camera after the kick
	fire := out[0].Payload.(FireEvent)
	assert.Equal(t, fire.Camera, scanner.cams[0])
	assert.Greater(t, scanner.cams[0].Pitch, 0.0)
	assert.Equal(t, animation.ClipFire, out[2].Payload.(AnimationEvent).Clip)
}

func TestRigMeleeSkipsHitScan(t *testing.T) {
	scanner := &alwaysHit{}
	r, err := NewRig(RigConfig{Seed: 1, Scanner: scanner}, zerolog.Nop())
	require.NoError(t, err)
	equip(t, r, input.SwitchMelee, epoch)

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	out := r.Frame(0, now)

	require.Equal(t, []EventType{EventTypeAnimation}, types(out), "a strike is only its clip")
	assert.Equal(t, animation.ClipFire, out[0].Payload.(AnimationEvent).Clip)
	assert.Empty(t, scanner.cams)
	assert.Equal(t, weapon.Camera{}, r.Camera())
}

func TestRigPointerLock(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchPrimary, epoch)
	ak := r.Inventory().Active().State

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.PointerUnlocked, now)
	r.Input().EnqueueAt(input.TriggerDown, now)
	r.Frame(0.016, now)
	assert.Equal(t, 30, ak.Bullets(), "no fire without pointer lock")

	r.Input().EnqueueAt(input.PointerLocked, now)
	r.Input().EnqueueAt(input.TriggerDown, now)
	r.Frame(0.016, now)
	assert.Equal(t, 29, ak.Bullets())

	// losing the lock releases a held trigger
	r.Input().EnqueueAt(input.PointerUnlocked, now)
	r.Frame(0.016, now)
	assert.False(t, r.TriggerDown())
}

func TestRigWalkTracksAllKeys(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchPrimary, epoch)
	primary := r.Inventory().Get(weapon.SlotPrimary)
	melee := r.Inventory().Get(weapon.SlotMelee)

	steps := []struct {
		event   input.Event
		walking bool
	}{
		{input.MoveForwardDown, true},
		{input.MoveLeftDown, true},
		{input.MoveForwardUp, true},
		{input.MoveLeftUp, false},
		{input.MoveBackwardDown, true},
		{input.MoveBackwardUp, false},
	}

	for _, st := range steps {
		r.Input().EnqueueAt(st.event, epoch)
		r.Frame(0, epoch)
		assert.Equal(t, st.walking, primary.Anim.Flags().Walking, st.event.String())
		assert.Equal(t, st.walking, melee.Anim.Flags().Walking, "holstered %s", st.event)
	}

	r.Input().EnqueueAt(input.ShiftDown, epoch)
	r.Frame(0, epoch)
	assert.True(t, melee.Anim.Flags().Running)
}

func TestRigReloadThroughInput(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchSecondary, epoch)
	glock := r.Inventory().Active().State

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	r.Input().EnqueueAt(input.TriggerUp, now)
	r.Frame(0, now)
	require.Equal(t, 11, glock.Bullets())

	r.Input().EnqueueAt(input.Reload, now)
	out := r.Frame(0, now)
	require.Len(t, out, 1)
	assert.Equal(t, AnimationEvent{Weapon: "Glock", Clip: animation.ClipReload}, out[0].Payload)
	assert.True(t, r.HUD().Reloading)

	r.Frame(5, now)
	hud := r.HUD()
	assert.False(t, hud.Reloading)
	assert.Equal(t, 12, hud.Bullets)
	assert.Equal(t, 47, hud.Reserve)
}

func TestRigHUD(t *testing.T) {
	r := newRig(t)

	hud := r.HUD()
	assert.Equal(t, weapon.SlotHands, hud.Slot)
	assert.Empty(t, hud.Weapon)
	assert.Equal(t, "knife", hud.NextWeapon)
	assert.Len(t, hud.Weapons, 3)

	equip(t, r, input.SwitchPrimary, epoch)
	equip(t, r, input.SwitchSecondary, epoch)

	hud = r.HUD()
	assert.Equal(t, "Glock", hud.Weapon)
	assert.Equal(t, 12, hud.Bullets)
	assert.Equal(t, 12, hud.MagazineSize)
	assert.Equal(t, 48, hud.Reserve)
	assert.Equal(t, "AK", hud.NextWeapon)
}

func TestRigSwitchLast(t *testing.T) {
	r := newRig(t)
	equip(t, r, input.SwitchPrimary, epoch)
	equip(t, r, input.SwitchSecondary, epoch)

	out := equip(t, r, input.SwitchLast, epoch)
	assert.Equal(t, []FrameEvent{
		{Type: EventTypeAnimation, Payload: AnimationEvent{Weapon: "Glock", Clip: animation.ClipRemove}},
		{Type: EventTypeAnimation, Payload: AnimationEvent{Weapon: "AK", Clip: animation.ClipDraw}},
		{Type: EventTypeEquip, Payload: EquipEvent{Slot: weapon.SlotPrimary, Weapon: "AK"}},
	}, out)
}

// A spray followed by release settles the camera back to where it started.
func TestRigSprayRecovers(t *testing.T) {
	r := newRig(t, "m416")
	equip(t, r, input.SwitchPrimary, epoch)
	interval := r.Inventory().Active().State.Spec().FireIntervalDuration()

	now := epoch.Add(time.Second)
	r.Input().EnqueueAt(input.TriggerDown, now)
	for i := 0; i < 10; i++ {
		r.Frame(0.016, now)
		now = now.Add(interval)
	}
	require.Greater(t, r.Camera().Pitch, 0.0)

	r.Input().EnqueueAt(input.TriggerUp, now)
	for i := 0; i < 2000; i++ {
		now = now.Add(16 * time.Millisecond)
		r.Frame(0.016, now)
	}
	assert.InDelta(t, 0.0, r.Camera().Pitch, 1e-9)
	assert.InDelta(t, 0.0, r.Camera().Yaw, 1e-9)
}
