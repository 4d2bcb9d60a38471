// Package physics advances the continuous-time simulation: velocity
// integration, analytic two-body collision prediction, heap-ordered impulse
// resolution, and attachment re-slaving, all inside a single tick.
package physics

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
	"lwar/server/internal/logging"
	"lwar/server/internal/pq"
)

// MaxCollisions bounds the per-tick event heap.
const MaxCollisions = 32

// Collision is one predicted contact, consumed within the tick.
type Collision struct {
	T      float32
	E      [2]*entity.Entity
	Impact [2]float32
	X      geom.Vec
}

// Engine holds the collision heap across ticks so no allocation happens on
// the hot path.
type Engine struct {
	// OnCollision fires after each resolved impact, in time order, so the
	// protocol layer can broadcast it.
	OnCollision func(c *Collision)

	heap *pq.Heap[Collision]
	log  *logging.Logger
}

// NewEngine builds an engine with the fixed-size event heap.
func NewEngine(log *logging.Logger) *Engine {
	if log == nil {
		log = logging.L()
	}
	return &Engine{
		heap: pq.New[Collision](MaxCollisions, func(a, b Collision) bool { return a.T < b.T }),
		log:  log,
	}
}

// Update runs the physics stage for one tick of dt seconds.
func (en *Engine) Update(w *entity.World, dt float32) {
	if dt <= 0 {
		return
	}

	//1.- Give every mover its time budget and integrate acceleration.
	w.ForEach(func(e *entity.Entity) bool {
		if e.Dead {
			return true
		}
		e.Remaining = dt
		if !e.Attached() {
			e.V = e.V.Add(e.A.Scale(dt))
		}
		return true
	})

	en.findCollisions(w, dt)
	en.resolveCollisions(w)

	//2.- Spend whatever time remains, then reset the per-tick inputs and
	// re-slave attached poses.
	w.ForEach(func(e *entity.Entity) bool {
		if e.Dead {
			return true
		}
		if e.Attached() {
			e.SlaveToParent()
		} else {
			move(e, e.Remaining)
		}
		e.A = geom.Zero
		e.Rot = 0
		return true
	})
}

func (en *Engine) findCollisions(w *entity.World, dt float32) {
	dropped := 0
	w.ForEach(func(e0 *entity.Entity) bool {
		if e0.Dead || !e0.Collides || e0.Attached() {
			return true
		}
		w.ForEach(func(e1 *entity.Entity) bool {
			//1.- Visit each unordered pair once via the slot ordering.
			if e1.Dead || !e1.Collides || e1.Attached() || e0.ID.N >= e1.ID.N {
				return true
			}
			t, ok := predict(e0, e1)
			if !ok || t > dt {
				return true
			}
			if !en.heap.Push(Collision{T: t, E: [2]*entity.Entity{e0, e1}}) {
				dropped++
			}
			return true
		})
		return true
	})
	if dropped > 0 {
		en.log.Warn("collision heap full, deferring events to the next tick",
			logging.Int("dropped", dropped))
	}
}

// predict solves |dx + dv*t|^2 = (r0+r1)^2 for the earliest future contact.
func predict(e0, e1 *entity.Entity) (float32, bool) {
	r := e0.Radius + e1.Radius
	dx := e0.X.Sub(e1.X)
	//1.- Entities already intersecting were separated previously and will
	// separate again; skipping them avoids pinning pairs together.
	if dx.LenSq() < r*r {
		return 0, false
	}
	dv := e0.V.Sub(e1.V)
	a := dv.LenSq()
	b := 2 * dv.Dot(dx)
	c := dx.LenSq() - r*r
	x0, x1, n := geom.Roots(a, b, c)
	return geom.SmallestPositiveRoot(x0, x1, n)
}

func (en *Engine) resolveCollisions(w *entity.World) {
	en.heap.Drain(func(c Collision) {
		e0, e1 := c.E[0], c.E[1]

		//1.- Advance both participants to the contact time.
		move(e0, c.T)
		move(e1, c.T)

		v0, v1 := e0.V, e1.V
		bounce(e0, e1)

		//2.- The broadcast contact point is radius-weighted between centers.
		r0, r1 := e0.Radius, e1.Radius
		if r0+r1 > 0 {
			c.X = e0.X.Scale(r1 / (r0 + r1)).Add(e1.X.Scale(r0 / (r0 + r1)))
		}
		c.Impact[0] = e0.V.Sub(v0).Len()
		c.Impact[1] = e1.V.Sub(v1).Len()

		//3.- Gameplay reacts after the impulse is in place.
		if e0.Type.Collide != nil {
			e0.Type.Collide(w, e0, e1, c.Impact[0])
		}
		if e1.Type.Collide != nil {
			e1.Type.Collide(w, e1, e0, c.Impact[1])
		}
		if en.OnCollision != nil {
			en.OnCollision(&c)
		}
	})
}

// move advances an unattached entity by t seconds of its current motion.
func move(e *entity.Entity, t float32) {
	if t <= 0 {
		return
	}
	e.X = e.X.Add(e.V.Scale(t))
	e.Phi += e.Rot * t
	e.Remaining -= t
}

// bounce applies the 1-D elastic impulse along the collision axis. A side
// with bounces disabled acts as an immovable wall the other side reflects
// off.
func bounce(e0, e1 *entity.Entity) {
	m0, m1 := e0.Mass, e1.Mass
	if m0+m1 <= 0 {
		return
	}
	axis := e0.X.Sub(e1.X).Normalize()

	p0, rest0 := geom.Project(e0.V, axis)
	p1, rest1 := geom.Project(e1.V, axis)

	v0, v1 := rest0, rest1
	if !e1.Bounces {
		v0 = v0.Add(p0.Scale(-1)).Add(p1.Scale(2))
	} else {
		v0 = v0.Add(p0.Scale((m0 - m1) / (m0 + m1)))
		v0 = v0.Add(p1.Scale((2 * m1) / (m0 + m1)))
	}
	if !e0.Bounces {
		v1 = v1.Add(p1.Scale(-1)).Add(p0.Scale(2))
	} else {
		v1 = v1.Add(p1.Scale((m1 - m0) / (m0 + m1)))
		v1 = v1.Add(p0.Scale((2 * m0) / (m0 + m1)))
	}

	if e0.Bounces {
		e0.V = v0
	}
	if e1.Bounces {
		e1.V = v1
	}
}
