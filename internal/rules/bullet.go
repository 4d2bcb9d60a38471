package rules

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
)

// bulletLifetimeMs bounds how long a bullet survives without hitting
// anything.
const bulletLifetimeMs = 5000

func bulletType(formats ...*entity.Format) *entity.Type {
	return &entity.Type{
		ID:         TypeBullet,
		Act:        bulletDecay,
		Collide:    bulletHit,
		InitHealth: 100,
		InitMass:   0.1,
		InitRadius: 8,
		MaxAccel:   geom.Vec{Y: 500},
		Formats:    formats,
		Name:       "bullet",
		Collides:   true,
		Bounces:    true,
	}
}

func bulletDecay(w *entity.World, b *entity.Entity) {
	if b.Age > bulletLifetimeMs {
		b.Health = 0
	}
}

func bulletHit(_ *entity.World, b, _ *entity.Entity, impact float32) {
	//1.- Bullets shatter on hard impacts but keep their bounce velocity.
	b.Health -= 0.05 * impact
}
