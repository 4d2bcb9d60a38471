package entity

import (
	"lwar/server/internal/geom"
	"lwar/server/internal/pool"
)

// MaxTypes bounds the type registry.
const MaxTypes = 32

// NumSlots is the number of weapon attachment points per ship.
const NumSlots = 4

// SlotType describes one attachment point of a ship type: placement relative
// to the hull and the set of weapon type ids allowed to occupy it.
type SlotType struct {
	DX            geom.Vec
	DPhi          float32
	PossibleTypes pool.BitSet
}

// Type is the immutable descriptor shared by all entities of one kind.
type Type struct {
	ID uint8

	// Act fires on the activation cadence; Collide runs after each resolved
	// impact with the magnitude of the velocity change.
	Act     func(w *World, e *Entity)
	Collide func(w *World, e, other *Entity, impact float32)

	InitInterval int64

	InitEnergy float32
	InitHealth float32
	InitShield float32
	InitLen    float32
	InitMass   float32
	InitRadius float32

	MaxAccel geom.Vec
	MaxBrake geom.Vec
	MaxRot   float32

	Formats []*Format

	Name  string
	Slots [NumSlots]SlotType

	Collides bool
	Bounces  bool
}

// Registry maps numeric type ids to descriptors.
type Registry struct {
	types [MaxTypes]*Type
}

// Register binds t under its numeric id. Format membership is joined per
// entity by World.Create.
func (r *Registry) Register(t *Type) {
	if t == nil || int(t.ID) >= len(r.types) {
		return
	}
	r.types[t.ID] = t
}

// Get returns the descriptor for id, or nil for unknown ids. Id zero is the
// reserved empty selection.
func (r *Registry) Get(id uint8) *Type {
	if int(id) >= len(r.types) {
		return nil
	}
	return r.types[id]
}
