package rules

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
)

func rayType(formats ...*entity.Format) *entity.Type {
	return &entity.Type{
		ID:         TypeRay,
		Act:        rayScan,
		InitHealth: 1,
		// The radius doubles as the beam's maximum reach.
		InitRadius: 512,
		Formats:    formats,
		Name:       "ray",
	}
}

// rayScan traces the beam against every entity except itself, its emitter,
// and the emitter's carrier, clamping the beam length at the nearest hit.
func rayScan(w *entity.World, ray *entity.Entity) {
	phaser := ray.Parent
	if phaser == nil {
		w.Remove(ray)
		return
	}
	//1.- The beam dies with its emitter's trigger.
	if !phaser.Active {
		w.Remove(ray)
		return
	}

	u := geom.Unit(ray.Phi)
	var bestT float32
	var bestE *entity.Entity

	w.ForEach(func(e *entity.Entity) bool {
		if e.Dead || e == ray || e == phaser {
			return true
		}
		if phaser.Parent != nil && e == phaser.Parent {
			return true
		}
		//2.- Analytic ray-sphere intersection along the beam direction.
		dx := ray.X.Sub(e.X)
		a := u.LenSq()
		b := 2 * dx.Dot(u)
		c := dx.LenSq() - e.Radius*e.Radius
		t, ok := geom.SmallestPositiveRoot(geom.Roots(a, b, c))
		if !ok || t > ray.Radius {
			return true
		}
		if bestE == nil || t < bestT {
			bestT = t
			bestE = e
		}
		return true
	})

	ray.Target = bestE
	if bestE != nil {
		ray.Len = bestT
	} else {
		ray.Len = ray.Radius
	}
}
