package entity

import (
	"lwar/server/internal/geom"
	"lwar/server/internal/pool"
	"lwar/server/internal/wire"
)

// MaxEntities bounds the entity pool.
const MaxEntities = 4096

// World owns the entity pool, the type registry, and the format table, and
// drives the per-entity action callbacks.
type World struct {
	Types   Registry
	Formats []*Format

	// OnAdd and OnRemove fire when an entity enters or leaves the world, in
	// time for the protocol layer to broadcast ADD and REMOVE. OnKill fires
	// when a player's ship is destroyed with an attribution.
	OnAdd    func(e *Entity)
	OnRemove func(e *Entity)
	OnKill   func(killer, victim *Player)

	entities *pool.Pool[Entity]
}

// NewWorld builds an empty world with the full entity pool.
func NewWorld() *World {
	w := &World{}
	w.entities = pool.New[Entity](MaxEntities,
		func(i uint16, e *Entity) {
			gen := e.ID.Gen
			*e = Entity{ID: wire.Id{N: i, Gen: gen}}
		},
		func(i uint16, e *Entity) {
			e.ID.Gen++
		})
	return w
}

// RegisterFormat appends a format to the table walked at send time.
func (w *World) RegisterFormat(f *Format) {
	w.Formats = append(w.Formats, f)
}

// Len returns the number of live entities, dead-but-unreclaimed included.
func (w *World) Len() int { return w.entities.Len() }

// ForEach visits allocated entities in allocation order.
func (w *World) ForEach(fn func(e *Entity) bool) {
	w.entities.ForEach(func(_ uint16, e *Entity) bool { return fn(e) })
}

// ByID resolves an identifier, rejecting stale generations and dead slots.
func (w *World) ByID(id wire.Id) *Entity {
	e := w.entities.At(id.N)
	if e == nil || !w.entities.Live(id.N) || e.ID.Gen != id.Gen || e.Dead {
		return nil
	}
	return e
}

// Create allocates an entity of type t owned by p, initialized from the
// type's defaults. Pool exhaustion is a configuration error and returns nil.
func (w *World) Create(t *Type, p *Player, x, v geom.Vec) *Entity {
	e := w.entities.Alloc()
	if e == nil {
		return nil
	}
	//1.- Copy the type defaults into the live scalars.
	e.Type = t
	e.Player = p
	e.X = x
	e.V = v
	e.Interval = t.InitInterval
	e.Energy = t.InitEnergy
	e.Health = t.InitHealth
	e.Shield = t.InitShield
	e.Len = t.InitLen
	e.Mass = t.InitMass
	e.Radius = t.InitRadius
	e.Collides = t.Collides
	e.Bounces = t.Bounces
	//2.- Join the type's snapshot formats so updates start flowing.
	for _, f := range t.Formats {
		f.add(e)
	}
	if w.OnAdd != nil {
		w.OnAdd(e)
	}
	return e
}

// Attach slaves child to parent at the relative placement dx, dphi. Cycles
// are refused.
func (w *World) Attach(parent, child *Entity, dx geom.Vec, dphi float32) bool {
	if parent == nil || child == nil || child.Parent != nil {
		return false
	}
	//1.- Walk up from the parent to guarantee the tree stays acyclic.
	for a := parent; a != nil; a = a.Parent {
		if a == child {
			return false
		}
	}
	child.Parent = parent
	child.DX = dx
	child.DPhi = dphi
	parent.Children = append(parent.Children, child)
	child.SlaveToParent()
	return true
}

// Release detaches child from its parent without killing it; the entity
// resumes independent motion from its current pose.
func (w *World) Release(child *Entity) {
	p := child.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == child {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	child.Parent = nil
	child.DX = geom.Zero
	child.DPhi = 0
}

// Remove marks the entity dead and cascades over its attachment subtree.
// Reclamation is deferred to Cleanup so the removal can still be broadcast.
func (w *World) Remove(e *Entity) {
	if e == nil || e.Dead {
		return
	}
	e.Dead = true
	for _, c := range e.Children {
		w.Remove(c)
	}
	w.notifyRemoved(e)
}

func (w *World) notifyRemoved(e *Entity) {
	//1.- Clear the loadout slot before anyone else observes the death.
	if e.Slot != nil {
		if e.Player != nil && e == e.Player.Ship.Entity {
			e.Player.Select(&w.Types, 0, [NumSlots]uint8{})
		}
		e.Slot.Entity = nil
		e.Slot = nil
	}
	if w.OnRemove != nil {
		w.OnRemove(e)
	}
}

// Update advances ages and fires the action callback of every active entity
// on its cadence, then reaps anything the callbacks killed.
func (w *World) Update(deltaMs int64) {
	w.ForEach(func(e *Entity) bool {
		if e.Dead {
			return true
		}
		e.Age += deltaMs
		if e.Type.Act == nil {
			return true
		}
		//1.- The periodic accumulator only runs while the entity is active;
		// going inactive resets it so reactivation fires promptly.
		if clockPeriodicActive(&e.periodic, e.Interval, deltaMs, e.Active) {
			e.Type.Act(w, e)
		}
		return true
	})
	w.Reap()
}

// Reap removes entities whose health was exhausted and credits kills. The
// physics stage calls it again after collision damage has been applied.
func (w *World) Reap() {
	w.ForEach(func(e *Entity) bool {
		if e.Dead || e.Health > 0 {
			return true
		}
		if p := e.Player; p != nil && e == p.Ship.Entity {
			p.Deaths++
			if a := e.attacker; a != nil && a != p {
				a.Kills++
				if w.OnKill != nil {
					w.OnKill(a, p)
				}
			}
		}
		w.Remove(e)
		return true
	})
}

// Cleanup reclaims dead entities after the send stage.
func (w *World) Cleanup() {
	w.entities.FreePred(func(_ uint16, e *Entity) bool {
		if !e.Dead {
			return false
		}
		w.detach(e)
		if e.Type != nil {
			for _, f := range e.Type.Formats {
				f.remove(e)
			}
		}
		return true
	})
}

// RemoveFor kills every entity owned by p, used when a client slot dies.
func (w *World) RemoveFor(p *Player) {
	w.ForEach(func(e *Entity) bool {
		if e.Player == p {
			w.Remove(e)
		}
		return true
	})
}

func (w *World) detach(e *Entity) {
	if p := e.Parent; p != nil {
		for i, c := range p.Children {
			if c == e {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
		e.Parent = nil
	}
	e.Children = nil
}

// SpawnShip creates the selected ship for p at x and attaches the selected
// weapons to its hardpoints. Missing selections spawn nothing.
func (w *World) SpawnShip(p *Player, x geom.Vec) *Entity {
	ship := w.spawnSlot(p, &p.Ship, nil, nil, x, geom.Zero)
	if ship == nil {
		return nil
	}
	for i := range p.Weapons {
		//1.- Hardpoint placement comes from the ship type; the physics pass
		// overrides the spawn pose as soon as the weapon is attached.
		st := &ship.Type.Slots[i]
		w.spawnSlot(p, &p.Weapons[i], ship, st, geom.Zero, geom.Zero)
	}
	return ship
}

func (w *World) spawnSlot(p *Player, s *Slot, parent *Entity, st *SlotType, x, v geom.Vec) *Entity {
	if s.Entity != nil || s.SelectedType == nil {
		return nil
	}
	t := s.SelectedType
	if st != nil && !st.PossibleTypes.IsEmpty() && !st.PossibleTypes.Contains(uint16(t.ID)) {
		return nil
	}
	e := w.Create(t, p, x, v)
	if e == nil {
		return nil
	}
	s.Entity = e
	e.Slot = s
	if parent != nil {
		w.Attach(parent, e, st.DX, st.DPhi)
	}
	return e
}

// clockPeriodic ticks a countdown timer with interval i against the elapsed
// delta and reports whether the timer fired.
func clockPeriodic(t *int64, i, delta int64) bool {
	if *t < delta {
		if *t+i < delta {
			*t = 0
		} else {
			*t = *t + i - delta
		}
		return true
	}
	*t -= delta
	return false
}

// clockPeriodicActive runs the timer only while active; finishing a cycle
// while inactive resets it so the next activation fires immediately.
func clockPeriodicActive(t *int64, i, delta int64, active bool) bool {
	if *t != 0 || active {
		if clockPeriodic(t, i, delta) {
			if !active {
				*t = 0
			}
			return active
		}
	}
	return false
}
