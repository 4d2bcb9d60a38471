package entity

import (
	"lwar/server/internal/geom"
	"lwar/server/internal/wire"
)

// Format groups entities whose snapshot updates share one record layout. The
// protocol layer walks the membership list when it assembles update batches.
type Format struct {
	Kind      wire.Tag
	RecordLen int
	Pack      func(b *wire.Buffer, e *Entity)

	members []*Entity
}

// NewFormat measures the record length by packing a throwaway entity once
// at registration time; batch sizing depends on it being fixed.
func NewFormat(kind wire.Tag, pack func(b *wire.Buffer, e *Entity)) *Format {
	f := &Format{Kind: kind, Pack: pack}
	var b wire.Buffer
	probe := &Entity{Type: &Type{InitHealth: 1, InitEnergy: 1}}
	pack(&b, probe)
	f.RecordLen = b.Len()
	return f
}

// Members exposes the current membership list, dead entries included; the
// caller is expected to skip them.
func (f *Format) Members() []*Entity { return f.members }

// Count returns the number of live members.
func (f *Format) Count() int {
	n := 0
	for _, e := range f.members {
		if !e.Dead {
			n++
		}
	}
	return n
}

func (f *Format) add(e *Entity) {
	f.members = append(f.members, e)
}

func (f *Format) remove(e *Entity) {
	for i, m := range f.members {
		if m == e {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return
		}
	}
}

// PackPosRot is the generic position + orientation record.
func PackPosRot(b *wire.Buffer, e *Entity) {
	b.PutID(e.ID)
	b.PutI16(int16(e.X.X))
	b.PutI16(int16(e.X.Y))
	b.PutU16(geom.Deg100(e.Phi))
}

// PackPos is the position-only record for entities without orientation.
func PackPos(b *wire.Buffer, e *Entity) {
	b.PutID(e.ID)
	b.PutI16(int16(e.X.X))
	b.PutI16(int16(e.X.Y))
}

// PackRay carries the beam pose, its measured length, and the hit target.
func PackRay(b *wire.Buffer, e *Entity) {
	b.PutID(e.ID)
	b.PutI16(int16(e.X.X))
	b.PutI16(int16(e.X.Y))
	b.PutU16(geom.Deg100(e.Phi))
	b.PutU16(uint16(e.Len))
	if e.Target == nil {
		b.PutID(wire.NoEntity)
	} else {
		b.PutID(e.Target.ID)
	}
}

// PackCircle carries position and radius for round static bodies.
func PackCircle(b *wire.Buffer, e *Entity) {
	b.PutID(e.ID)
	b.PutI16(int16(e.X.X))
	b.PutI16(int16(e.X.Y))
	b.PutU16(uint16(e.Radius))
}

// PackShip carries hull and shield percentages plus the energy level of each
// weapon slot.
func PackShip(b *wire.Buffer, e *Entity) {
	b.PutID(e.ID)
	b.PutU8(percent(e.Health, e.Type.InitHealth))
	b.PutU8(percent(e.Shield, e.Type.InitShield))
	for i := 0; i < NumSlots; i++ {
		var p uint8
		if e.Player != nil {
			if w := e.Player.Weapons[i].Entity; w != nil {
				p = percent(w.Energy, w.Type.InitEnergy)
			}
		}
		b.PutU8(p)
	}
}

func percent(value, initial float32) uint8 {
	if initial <= 0 {
		return 0
	}
	p := 100 * value / initial
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return uint8(p)
}
