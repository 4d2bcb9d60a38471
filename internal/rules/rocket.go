package rules

import (
	"math"

	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
)

func rocketType(formats ...*entity.Format) *entity.Type {
	return &entity.Type{
		ID:         TypeRocket,
		Act:        rocketAim,
		Collide:    rocketHit,
		InitHealth: 100,
		InitMass:   1,
		InitRadius: 16,
		MaxAccel:   geom.Vec{X: 500, Y: 20},
		MaxBrake:   geom.Vec{X: 20, Y: 20},
		MaxRot:     1,
		Formats:    formats,
		Name:       "rocket",
		Collides:   true,
		Bounces:    true,
	}
}

// rocketAim homes on the most on-axis target ahead of the rocket: the
// smaller the lateral bearing, the harder the rocket burns toward it. A
// rocket still riding its hardpoint is released on the first activation.
func rocketAim(w *entity.World, rocket *entity.Entity) {
	if rocket.Attached() {
		w.Release(rocket)
	}
	var best geom.Vec
	var target *entity.Entity

	w.ForEach(func(e *entity.Entity) bool {
		if e.Dead || e == rocket {
			return true
		}
		if rocket.Player != nil && e.Player == rocket.Player {
			return true
		}
		//1.- The body-frame bearing to the candidate decides eligibility:
		// targets behind the rocket are ignored.
		v := e.X.Sub(rocket.X).Rotate(-rocket.Phi).Normalize()
		if v.X < 0 {
			return true
		}
		if target == nil || float32(math.Abs(float64(v.Y))) < float32(math.Abs(float64(best.Y))) {
			best = v
			target = e
		}
		return true
	})

	rocket.Target = target
	if target == nil {
		rocket.AccelerateTo(geom.Zero)
		return
	}
	//2.- Thrust falls off with the bearing error so the rocket carves
	// toward the target instead of overshooting.
	acc := 1 - float32(math.Abs(float64(best.Y)))
	speed := rocket.Type.MaxAccel.Len() * acc * acc
	rocket.AccelerateTo(best.Scale(speed))
	rocket.Rotate(best.Y)
}

func rocketHit(_ *entity.World, rocket, _ *entity.Entity, impact float32) {
	rocket.Health -= 0.1 * impact
}
