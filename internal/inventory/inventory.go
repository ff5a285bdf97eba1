// Package inventory holds the player's weapons by equip slot and turns slot
// switches into remove/draw animation pairs.
package inventory

import (
	"github.com/rs/zerolog"

	"gunplay/internal/animation"
	"gunplay/internal/weapon"
)

// Item is a held weapon and its animation machine.
type Item struct {
	State *weapon.State
	Anim  *animation.Machine
}

// NewItem pairs a weapon with its machine.
func NewItem(state *weapon.State, anim *animation.Machine) *Item {
	return &Item{State: state, Anim: anim}
}

// Manager owns the equip slots of one player. Not safe for concurrent use.
type Manager struct {
	slots    map[weapon.Slot]*Item
	current  weapon.Slot
	previous weapon.Slot
	onEquip  []func(*Item)
	logger   zerolog.Logger
}

// NewManager starts empty-handed with the melee slot as the previous slot.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		slots:    make(map[weapon.Slot]*Item),
		current:  weapon.SlotHands,
		previous: weapon.SlotMelee,
		logger:   logger,
	}
}

// OnEquip subscribes to equip changes. The item is nil for an empty slot.
func (m *Manager) OnEquip(fn func(*Item)) {
	m.onEquip = append(m.onEquip, fn)
}

func (m *Manager) emitEquip(item *Item) {
	for _, fn := range m.onEquip {
		fn(item)
	}
}

// Current returns the active slot.
func (m *Manager) Current() weapon.Slot { return m.current }

// Previous returns the slot that was active before the last switch.
func (m *Manager) Previous() weapon.Slot { return m.previous }

// Active returns the item in the current slot, or nil.
func (m *Manager) Active() *Item { return m.slots[m.current] }

// Get returns the item in slot, or nil.
func (m *Manager) Get(slot weapon.Slot) *Item { return m.slots[slot] }

// Len returns the number of held weapons.
func (m *Manager) Len() int { return len(m.slots) }

// Each visits held items in slot order.
func (m *Manager) Each(fn func(weapon.Slot, *Item)) {
	for _, slot := range weapon.Slots {
		if item, ok := m.slots[slot]; ok {
			fn(slot, item)
		}
	}
}

// SwitchWeapon removes the current weapon and draws the one in target.
// Switching to the current slot does nothing and returns false.
func (m *Manager) SwitchWeapon(target weapon.Slot) bool {
	if target == m.current {
		return false
	}

	if cur := m.slots[m.current]; cur != nil {
		cur.Anim.Remove()
	}
	next := m.slots[target]
	if next != nil {
		next.Anim.Draw()
	}

	m.previous = m.current
	m.current = target

	m.logger.Debug().
		Stringer("from", m.previous).
		Stringer("to", m.current).
		Bool("empty", next == nil).
		Msg("weapon switch")

	m.emitEquip(next)
	return true
}

// SwitchLast swaps back to the previous slot.
func (m *Manager) SwitchLast() bool {
	return m.SwitchWeapon(m.previous)
}

// PickUp stores item in the slot its classification maps to. An occupied
// slot rejects the item. Picking up into the current slot draws it.
func (m *Manager) PickUp(item *Item) bool {
	if item == nil || item.State == nil {
		return false
	}
	slot := weapon.SlotFor(item.State.Spec().Classification)
	if _, taken := m.slots[slot]; taken {
		return false
	}
	m.slots[slot] = item

	if slot == m.current {
		item.Anim.Draw()
		m.emitEquip(item)
	}
	return true
}

// Drop removes and returns the weapon in slot. Dropping the current weapon
// leaves the player empty-handed.
func (m *Manager) Drop(slot weapon.Slot) *Item {
	item, ok := m.slots[slot]
	if !ok {
		return nil
	}
	delete(m.slots, slot)

	if slot == m.current {
		item.Anim.Remove()
		m.previous = m.current
		m.current = weapon.SlotHands
		m.emitEquip(nil)
	}
	return item
}

// Update runs recovery on every held weapon and advances only the current
// weapon's mixer.
func (m *Manager) Update(cam weapon.Rotator, dt float64, triggerDown bool) {
	m.Each(func(_ weapon.Slot, item *Item) {
		item.State.Recover(cam, dt, triggerDown)
	})
	if cur := m.Active(); cur != nil {
		cur.Anim.Update(dt)
	}
}
