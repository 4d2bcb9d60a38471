package entity

import (
	"lwar/server/internal/geom"
	"lwar/server/internal/wire"
)

// aimDeadZone discards aim vectors too short to carry a direction.
const aimDeadZone = 24

// Slot binds one loadout position to its live entity and the type the player
// has selected for it.
type Slot struct {
	Entity       *Entity
	SelectedType *Type
}

// Player is the per-participant gameplay state embedded in a client slot.
type Player struct {
	ID   wire.Id
	Name string

	Ship    Slot
	Weapons [NumSlots]Slot

	Kills  uint16
	Deaths uint16

	// Latched input, consumed by the player-update stage each tick.
	Accel geom.Vec
	Rot   float32
	Aim   geom.Vec
}

// Init resets the player for a fresh client slot.
func (p *Player) Init(index uint16) {
	p.ID.N = index
	p.Name = ""
	p.Kills = 0
	p.Deaths = 0
	p.Ship = Slot{}
	for i := range p.Weapons {
		p.Weapons[i] = Slot{}
	}
	p.Accel = geom.Zero
	p.Rot = 0
	p.Aim = geom.Zero
}

// Input latches one folded input frame. Button bytes are non-zero when the
// button was pressed at any point since the previous accepted frame.
func (p *Player) Input(m *wire.Input) {
	p.Accel.X = buttonAxis(m.Forwards, m.Backwards)
	p.Accel.Y = buttonAxis(m.StrafeRight, m.StrafeLeft)

	//1.- Ignore aim vectors inside the dead zone so a centered stick does
	// not yank the ship's heading around.
	aim := geom.Vec{X: float32(m.AimX), Y: float32(m.AimY)}
	if aim.Len() >= aimDeadZone {
		p.Aim = aim
	}

	//2.- Fire buttons gate the activation of whatever occupies each slot.
	fire := [NumSlots]uint8{m.Fire1, m.Fire2, m.Fire3, m.Fire4}
	for i := range p.Weapons {
		if w := p.Weapons[i].Entity; w != nil {
			w.Active = fire[i] != 0
		}
	}
	//3.- A bare hull without a first hardpoint weapon fires its own gun.
	if ship := p.Ship.Entity; ship != nil && p.Weapons[0].Entity == nil {
		ship.Active = fire[0] != 0
	}
}

// Select records the requested ship and weapon types for the next spawn.
func (p *Player) Select(types *Registry, ship uint8, weapons [NumSlots]uint8) {
	p.Ship.SelectedType = types.Get(ship)
	for i := range p.Weapons {
		p.Weapons[i].SelectedType = types.Get(weapons[i])
	}
}

func buttonAxis(positive, negative uint8) float32 {
	var v float32
	if positive != 0 {
		v++
	}
	if negative != 0 {
		v--
	}
	return v
}
