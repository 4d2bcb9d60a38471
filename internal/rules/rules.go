// Package rules defines the gameplay layer: the concrete entity types with
// their action and collision callbacks, the world bootstrap that places the
// sun and planets, and the per-tick player stage translating latched input
// into ship motion.
package rules

import (
	"math"
	"math/rand"

	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
	"lwar/server/internal/session"
	"lwar/server/internal/wire"
)

// Numeric entity type ids, part of the wire contract via ADD messages.
const (
	TypeShip   uint8 = 1
	TypeBullet uint8 = 2
	TypePlanet uint8 = 3
	TypeRocket uint8 = 4
	TypeRay    uint8 = 5
	TypeGun    uint8 = 6
	TypePhaser uint8 = 7
)

// World geometry for the planet rings and respawn placement.
const (
	minPlanetDist = 2500
	spawnBaseDist = 4000
)

// Rules owns the registered types and the randomness used for placement.
type Rules struct {
	planets int
	rng     *rand.Rand
}

// New builds the rule set. rng may be nil, in which case placement falls
// back to a fixed seed, which is handy for tests.
func New(planets int, rng *rand.Rand) *Rules {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Rules{planets: planets, rng: rng}
}

// Install registers the update formats and entity types with the world.
// Ships carry two formats: the kinematic record and the status record.
func (r *Rules) Install(w *entity.World) {
	posRot := entity.NewFormat(wire.TagUpdate, entity.PackPosRot)
	pos := entity.NewFormat(wire.TagUpdatePos, entity.PackPos)
	ray := entity.NewFormat(wire.TagUpdateRay, entity.PackRay)
	circle := entity.NewFormat(wire.TagUpdateCircle, entity.PackCircle)
	ship := entity.NewFormat(wire.TagUpdateShip, entity.PackShip)
	for _, f := range []*entity.Format{posRot, pos, ray, circle, ship} {
		w.RegisterFormat(f)
	}

	w.Types.Register(shipType(posRot, ship))
	w.Types.Register(bulletType(pos))
	w.Types.Register(planetType(circle))
	w.Types.Register(rocketType(posRot))
	w.Types.Register(rayType(ray))
	w.Types.Register(gunType())
	w.Types.Register(phaserType())
}

// Populate seeds the world with the sun and the planet rings, owned by the
// server's own player so their announcements carry a valid id.
func (r *Rules) Populate(w *entity.World, owner *entity.Player) {
	t := w.Types.Get(TypePlanet)
	if t == nil {
		return
	}
	//1.- The sun sits at the origin, heavier and wider than its planets.
	if sun := w.Create(t, owner, geom.Zero, geom.Zero); sun != nil {
		sun.Mass = 10 * t.InitMass
		sun.Radius = 4 * t.InitRadius
		sun.Active = true
	}
	//2.- Planets occupy concentric rings at random phases.
	for i := 0; i < r.planets; i++ {
		dist := float32(spawnBaseDist + (i+1)*minPlanetDist)
		phi := geom.Rad(float32(r.rng.Intn(360)))
		p := w.Create(t, owner, geom.Unit(phi).Scale(dist), geom.Zero)
		if p != nil {
			p.Active = true
		}
	}
}

// SpawnPoint picks a respawn position halfway between two adjacent inner
// rings.
func (r *Rules) SpawnPoint() geom.Vec {
	rings := r.planets - 5
	if rings < 1 {
		rings = 1
	}
	i := r.rng.Intn(rings)
	dist := float32(spawnBaseDist+(i+1)*minPlanetDist) + minPlanetDist/2
	phi := geom.Rad(float32(r.rng.Intn(360)))
	return geom.Unit(phi).Scale(dist)
}

// PlayersUpdate runs the player stage: respawn ships where missing and
// translate latched input into acceleration and rotation.
func (r *Rules) PlayersUpdate(table *session.Table, w *entity.World) {
	table.ForEach(func(c *session.Client) bool {
		if c.Dead {
			return true
		}
		p := &c.Player
		if p.Ship.Entity == nil {
			w.SpawnShip(p, r.SpawnPoint())
		}
		playerAction(p)
		return true
	})
}

func playerAction(p *entity.Player) {
	ship := p.Ship.Entity
	if ship == nil {
		return
	}
	//1.- Thrust is a body-frame target velocity scaled from the input axes.
	v := geom.Vec{
		X: p.Accel.X * ship.Type.MaxAccel.X * 0.5,
		Y: p.Accel.Y * ship.Type.MaxAccel.Y * 0.5,
	}
	//2.- Steering chases the aim vector: the body-frame bearing error maps
	// onto the rotation fraction.
	q := p.Aim.Rotate(-ship.Phi).Normalize()
	p.Rot = geom.Arctan(q) / math.Pi

	if p.Accel.X != 0 || p.Accel.Y != 0 {
		ship.AccelerateTo(v)
	}
	ship.Rotate(p.Rot)
}
