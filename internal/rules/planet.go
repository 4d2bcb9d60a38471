package rules

import (
	"lwar/server/internal/entity"
)

// gravityFactor scales the inverse-square pull of planets.
const gravityFactor = 10000

func planetType(formats ...*entity.Format) *entity.Type {
	return &entity.Type{
		ID:         TypePlanet,
		Act:        planetGravity,
		InitHealth: 1000,
		InitMass:   10000,
		InitRadius: 128,
		Formats:    formats,
		Name:       "planet",
		Collides:   true,
		Bounces:    true,
	}
}

// planetGravity pulls every massive entity other than a planet toward the
// planet with a force quadratic in proximity and inverse in the target's
// mass.
func planetGravity(w *entity.World, planet *entity.Entity) {
	m0 := planet.Mass
	w.ForEach(func(other *entity.Entity) bool {
		if other.Dead || other.Type == planet.Type {
			return true
		}
		m1 := other.Mass
		if m1 <= 0 {
			return true
		}
		dx := planet.X.Sub(other.X)
		l := dx.Len()
		if l == 0 {
			return true
		}
		a := dx.Normalize().Scale(gravityFactor * (m0 + m1) / m1 / (l * l))
		other.Push(a)
		return true
	})
}
