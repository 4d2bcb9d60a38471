// Package entity owns the simulated object graph: pooled entities with
// generational identifiers, the immutable type registry with action and
// collision callbacks, the parent/child attachment tree, and the format
// lists that batch per-tick snapshot updates.
package entity

import (
	"lwar/server/internal/geom"
	"lwar/server/internal/wire"
)

// Entity is one simulated object. Kinematic state is integrated by the
// physics stage unless the entity is attached, in which case its pose is
// slaved to the parent.
type Entity struct {
	ID   wire.Id
	Type *Type
	Dead bool
	Age  int64

	Player *Player

	Parent   *Entity
	Children []*Entity

	// Slot points back into the owning player's loadout when the entity is
	// directly controlled.
	Slot *Slot

	Target *Entity

	Active   bool
	Interval int64
	periodic int64

	X   geom.Vec
	V   geom.Vec
	A   geom.Vec
	Phi float32
	Rot float32

	DX   geom.Vec
	DPhi float32

	Energy    float32
	Health    float32
	Shield    float32
	Len       float32
	Mass      float32
	Radius    float32
	Remaining float32

	Collides bool
	Bounces  bool

	attacker *Player
}

// Attached reports whether the entity's pose is slaved to a parent.
func (e *Entity) Attached() bool { return e.Parent != nil }

// Push accumulates an external acceleration, such as gravity.
func (e *Entity) Push(a geom.Vec) {
	e.A = e.A.Add(a)
}

// AccelerateTo steers toward the body-frame target velocity v, bounded by
// the type's acceleration budget.
func (e *Entity) AccelerateTo(v geom.Vec) {
	//1.- Express the target in world coordinates and take the velocity gap.
	world := v.Rotate(e.Phi)
	dv := world.Sub(e.V)
	//2.- Clamp the correction to the type's acceleration magnitude.
	limit := e.Type.MaxAccel.Len()
	if l := dv.Len(); limit > 0 && l > limit {
		dv = dv.Scale(limit / l)
	}
	e.A = e.A.Add(dv)
}

// Rotate requests a turn at fraction r of the type's rotation cap. r is
// clamped into [-1, 1].
func (e *Entity) Rotate(r float32) {
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	e.Rot = r * e.Type.MaxRot
}

// Hit applies damage and remembers the attacker for kill attribution.
func (e *Entity) Hit(damage float32, attacker *Player) {
	e.Health -= damage
	if attacker != nil {
		e.attacker = attacker
	}
}

// SlaveToParent recomputes the pose of an attached entity from its parent.
func (e *Entity) SlaveToParent() {
	p := e.Parent
	e.X = p.X.Add(e.DX.Rotate(p.Phi))
	e.V = p.V
	e.Phi = p.Phi + e.DPhi
}
