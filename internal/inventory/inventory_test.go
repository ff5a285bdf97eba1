package inventory

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gunplay/internal/animation"
	"gunplay/internal/asset"
	"gunplay/internal/weapon"
)

type harness struct {
	inv    *Manager
	reg    *asset.Registry
	events []string
	equips []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		inv: NewManager(zerolog.Nop()),
		reg: asset.Build(weapon.AllSpecs(), asset.DefaultManifest()),
	}
	h.inv.OnEquip(func(item *Item) {
		if item == nil {
			h.equips = append(h.equips, "none")
			return
		}
		h.equips = append(h.equips, item.State.Name())
	})
	return h
}

func (h *harness) give(t *testing.T, id string) *Item {
	t.Helper()
	spec := weapon.GetSpec(id)
	state := weapon.New(spec, id)
	anim := animation.New(state, h.reg, zerolog.Nop())
	anim.OnClip(func(c animation.Clip) {
		h.events = append(h.events, fmt.Sprintf("%s:%s", spec.Name, c))
	})
	item := NewItem(state, anim)
	require.True(t, h.inv.PickUp(item))
	return item
}

func TestNewManager(t *testing.T) {
	inv := NewManager(zerolog.Nop())

	assert.Equal(t, weapon.SlotHands, inv.Current())
	assert.Equal(t, weapon.SlotMelee, inv.Previous())
	assert.Nil(t, inv.Active())
	assert.Equal(t, 0, inv.Len())
}

func TestPickUpFirstComeFirstServed(t *testing.T) {
	h := newHarness(t)
	ak := h.give(t, "ak")

	spec := weapon.GetSpec("awp")
	state := weapon.New(spec, "awp")
	rejected := NewItem(state, animation.New(state, h.reg, zerolog.Nop()))

	assert.False(t, h.inv.PickUp(rejected), "primary slot already taken")
	assert.Same(t, ak, h.inv.Get(weapon.SlotPrimary))
	assert.False(t, h.inv.PickUp(nil))
}

func TestSwitchWeapon(t *testing.T) {
	h := newHarness(t)
	h.give(t, "ak")
	h.give(t, "glock")

	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	assert.Equal(t, []string{"AK:DRAW"}, h.events)
	assert.Equal(t, []string{"AK"}, h.equips)
	assert.Equal(t, weapon.SlotHands, h.inv.Previous())

	require.True(t, h.inv.SwitchWeapon(weapon.SlotSecondary))
	assert.Equal(t, []string{"AK:DRAW", "AK:REMOVE", "Glock:DRAW"}, h.events)
	assert.Equal(t, weapon.SlotPrimary, h.inv.Previous())
	assert.Equal(t, "Glock", h.inv.Active().State.Name())
}

func TestSwitchToCurrentSlotIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.give(t, "ak")
	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.events = nil
	h.equips = nil

	assert.False(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	assert.False(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	assert.Empty(t, h.events)
	assert.Empty(t, h.equips)
}

func TestSwitchToEmptySlot(t *testing.T) {
	h := newHarness(t)
	h.give(t, "ak")
	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.events = nil

	require.True(t, h.inv.SwitchWeapon(weapon.SlotSecondary))
	assert.Equal(t, []string{"AK:REMOVE"}, h.events)
	assert.Equal(t, "none", h.equips[len(h.equips)-1])
	assert.Nil(t, h.inv.Active())
}

func TestSwitchLast(t *testing.T) {
	h := newHarness(t)
	h.give(t, "knife")
	h.give(t, "ak")

	// empty hands start with melee as the last weapon
	require.True(t, h.inv.SwitchLast())
	assert.Equal(t, weapon.SlotMelee, h.inv.Current())

	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	require.True(t, h.inv.SwitchLast())
	assert.Equal(t, weapon.SlotMelee, h.inv.Current())
	require.True(t, h.inv.SwitchLast())
	assert.Equal(t, weapon.SlotPrimary, h.inv.Current())
}

// Switching away mid-reload removes the primary before drawing the secondary,
// and the cut reload resumes when the primary comes back.
func TestSwitchDuringReload(t *testing.T) {
	h := newHarness(t)
	m416 := h.give(t, "m416")
	h.give(t, "glock")
	cam := &weapon.Camera{}

	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.inv.Update(cam, 1, false)
	require.True(t, m416.State.Active())

	_, ok := m416.State.Fire(cam, time.Now(), fixedRand(0.5))
	require.True(t, ok)
	require.True(t, m416.Anim.Reload())
	h.inv.Update(cam, 0.5, false)

	h.events = nil
	require.True(t, h.inv.SwitchWeapon(weapon.SlotSecondary))
	assert.Equal(t, []string{"M416:REMOVE", "Glock:DRAW"}, h.events)
	assert.True(t, m416.Anim.Flags().Reloading)
	assert.Equal(t, 29, m416.State.Bullets())

	// holstered weapons do not advance their clips
	h.inv.Update(cam, 5, false)
	assert.Equal(t, 29, m416.State.Bullets())

	h.events = nil
	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.inv.Update(cam, 1, false)
	assert.Equal(t, []string{"Glock:REMOVE", "M416:DRAW", "M416:RELOAD"}, h.events)

	h.inv.Update(cam, 3.1, false)
	assert.Equal(t, 30, m416.State.Bullets())
	assert.True(t, m416.State.Active())
}

// Recoil keeps settling on a holstered weapon.
func TestUpdateRecoversHolsteredWeapons(t *testing.T) {
	h := newHarness(t)
	ak := h.give(t, "ak")
	h.give(t, "glock")
	cam := &weapon.Camera{}

	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.inv.Update(cam, 1, false)

	now := time.Now()
	for i := 0; i < 5; i++ {
		_, ok := ak.State.Fire(cam, now, fixedRand(0.5))
		require.True(t, ok)
		now = now.Add(ak.State.Spec().FireIntervalDuration())
	}
	require.Greater(t, ak.State.RecoverProgress(), 0.0)

	require.True(t, h.inv.SwitchWeapon(weapon.SlotSecondary))
	for i := 0; i < 1000; i++ {
		h.inv.Update(cam, 0.016, true)
	}

	assert.Equal(t, 0.0, ak.State.RecoverProgress())
	assert.InDelta(t, 0.0, cam.Pitch, 1e-9)
	assert.InDelta(t, 0.0, cam.Yaw, 1e-9)
}

func TestDrop(t *testing.T) {
	h := newHarness(t)
	ak := h.give(t, "ak")
	require.True(t, h.inv.SwitchWeapon(weapon.SlotPrimary))
	h.events = nil

	dropped := h.inv.Drop(weapon.SlotPrimary)
	assert.Same(t, ak, dropped)
	assert.Equal(t, weapon.SlotHands, h.inv.Current())
	assert.Equal(t, []string{"AK:REMOVE"}, h.events)
	assert.Nil(t, h.inv.Drop(weapon.SlotPrimary))
	assert.Equal(t, 0, h.inv.Len())
}

func TestPickUpIntoCurrentSlotDraws(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.inv.SwitchWeapon(weapon.SlotSecondary))
	h.events = nil

	h.give(t, "glock")
	assert.Equal(t, []string{"Glock:DRAW"}, h.events)
}

func TestEachSlotOrder(t *testing.T) {
	h := newHarness(t)
	h.give(t, "knife")
	h.give(t, "glock")
	h.give(t, "ak")

	var order []weapon.Slot
	h.inv.Each(func(s weapon.Slot, _ *Item) { order = append(order, s) })
	assert.Equal(t, []weapon.Slot{weapon.SlotPrimary, weapon.SlotSecondary, weapon.SlotMelee}, order)
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
