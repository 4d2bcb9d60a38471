package rules

import (
	"math"
	"math/rand"
	"testing"

	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
	"lwar/server/internal/session"
)

func installedWorld(planets int) (*Rules, *entity.World) {
	r := New(planets, rand.New(rand.NewSource(42)))
	w := entity.NewWorld()
	r.Install(w)
	return r, w
}

func TestInstallRegistersAllTypes(t *testing.T) {
	_, w := installedWorld(0)
	for _, id := range []uint8{TypeShip, TypeBullet, TypePlanet, TypeRocket, TypeRay, TypeGun, TypePhaser} {
		if w.Types.Get(id) == nil {
			t.Fatalf("type %d not registered", id)
		}
	}
	if len(w.Formats) != 5 {
		t.Fatalf("%d formats registered, want 5", len(w.Formats))
	}
	//1.- Ships feed both the kinematic and the status batches.
	if got := len(w.Types.Get(TypeShip).Formats); got != 2 {
		t.Fatalf("ship carries %d formats, want 2", got)
	}
}

func TestPopulatePlacesSunAndPlanets(t *testing.T) {
	r, w := installedWorld(11)
	r.Populate(w, nil)
	if w.Len() != 12 {
		t.Fatalf("%d entities, want sun + 11 planets", w.Len())
	}
	var sun *entity.Entity
	w.ForEach(func(e *entity.Entity) bool {
		if e.X == geom.Zero {
			sun = e
		} else if d := e.X.Len(); d < spawnBaseDist+minPlanetDist-1 {
			t.Fatalf("planet inside the innermost ring: %v", d)
		}
		return true
	})
	if sun == nil {
		t.Fatalf("no sun at the origin")
	}
	if sun.Mass <= w.Types.Get(TypePlanet).InitMass {
		t.Fatalf("sun not heavier than a planet")
	}
}

func TestGravityPullsTowardPlanet(t *testing.T) {
	_, w := installedWorld(0)
	planet := w.Create(w.Types.Get(TypePlanet), nil, geom.Zero, geom.Zero)
	planet.Active = true
	ship := w.Create(w.Types.Get(TypeShip), nil, geom.Vec{X: 1000}, geom.Zero)

	w.Update(16)
	//1.- The accumulated acceleration must point at the planet.
	if ship.A.X >= 0 {
		t.Fatalf("gravity pushes away: %v", ship.A)
	}
	//2.- Massless entities are immune.
	ray := w.Create(w.Types.Get(TypeRay), nil, geom.Vec{X: 500}, geom.Zero)
	w.Update(16)
	if ray.A != geom.Zero {
		t.Fatalf("gravity moved a massless ray")
	}
}

func TestShipFiresBulletWhileActive(t *testing.T) {
	_, w := installedWorld(0)
	ship := w.Create(w.Types.Get(TypeShip), nil, geom.Zero, geom.Zero)
	ship.Active = true

	before := w.Len()
	w.Update(300)
	if w.Len() != before+1 {
		t.Fatalf("no bullet spawned")
	}
	var bullet *entity.Entity
	w.ForEach(func(e *entity.Entity) bool {
		if e.Type.ID == TypeBullet {
			bullet = e
		}
		return true
	})
	if bullet == nil {
		t.Fatalf("spawned entity is not a bullet")
	}
	//1.- The bullet leaves the muzzle moving along the ship's heading.
	if bullet.V.X <= 0 || bullet.X.X <= ship.Radius {
		t.Fatalf("bullet pose wrong: x=%v v=%v", bullet.X, bullet.V)
	}
}

func TestBulletDecaysWithAge(t *testing.T) {
	_, w := installedWorld(0)
	b := w.Create(w.Types.Get(TypeBullet), nil, geom.Zero, geom.Zero)
	b.Active = true
	w.Update(bulletLifetimeMs + 1)
	w.Update(1)
	if !b.Dead {
		t.Fatalf("aged bullet still alive")
	}
}

func TestRayScanMeasuresNearestHit(t *testing.T) {
	_, w := installedWorld(0)
	phaser := w.Create(w.Types.Get(TypePhaser), nil, geom.Zero, geom.Zero)
	phaser.Active = true
	ray := w.Create(w.Types.Get(TypeRay), nil, geom.Zero, geom.Zero)
	w.Attach(phaser, ray, geom.Zero, 0)
	ray.Active = true

	//1.- Two candidates ahead; the nearer one wins.
	near := w.Create(w.Types.Get(TypeShip), nil, geom.Vec{X: 200}, geom.Zero)
	w.Create(w.Types.Get(TypeShip), nil, geom.Vec{X: 400}, geom.Zero)

	w.Update(16)
	if ray.Target != near {
		t.Fatalf("ray targeted the wrong entity")
	}
	want := float32(200 - 32)
	if math.Abs(float64(ray.Len-want)) > 0.5 {
		t.Fatalf("beam length %v, want about %v", ray.Len, want)
	}
}

func TestRayDiesWithInactivePhaser(t *testing.T) {
	_, w := installedWorld(0)
	phaser := w.Create(w.Types.Get(TypePhaser), nil, geom.Zero, geom.Zero)
	phaser.Active = true
	w.Update(16)
	var ray *entity.Entity
	w.ForEach(func(e *entity.Entity) bool {
		if e.Type.ID == TypeRay {
			ray = e
		}
		return true
	})
	if ray == nil {
		t.Fatalf("phaser never spawned its ray")
	}
	phaser.Active = false
	w.Update(16)
	if !ray.Dead {
		t.Fatalf("ray survived its phaser going dark")
	}
}

func TestRocketReleasesAndHomes(t *testing.T) {
	_, w := installedWorld(0)
	var owner, foe entity.Player
	owner.Init(0)
	foe.Init(1)
	ship := w.Create(w.Types.Get(TypeShip), &owner, geom.Zero, geom.Zero)
	rocket := w.Create(w.Types.Get(TypeRocket), &owner, geom.Zero, geom.Zero)
	w.Attach(ship, rocket, geom.Vec{X: 32}, 0)
	target := w.Create(w.Types.Get(TypeShip), &foe, geom.Vec{X: 800, Y: 50}, geom.Zero)

	rocket.Active = true
	w.Update(16)
	if rocket.Attached() {
		t.Fatalf("activated rocket still riding the hardpoint")
	}
	if rocket.Target != target {
		t.Fatalf("rocket did not pick the enemy ship")
	}
	if rocket.A.X <= 0 {
		t.Fatalf("rocket not burning toward the target: %v", rocket.A)
	}
}

func TestRocketIgnoresOwnPlayer(t *testing.T) {
	_, w := installedWorld(0)
	var owner entity.Player
	owner.Init(0)
	rocket := w.Create(w.Types.Get(TypeRocket), &owner, geom.Zero, geom.Zero)
	w.Create(w.Types.Get(TypeShip), &owner, geom.Vec{X: 500}, geom.Zero)
	rocket.Active = true
	w.Update(16)
	if rocket.Target != nil {
		t.Fatalf("rocket locked onto its own player")
	}
}

func TestPlayersUpdateSpawnsMissingShips(t *testing.T) {
	r, w := installedWorld(11)
	table := session.NewTable()
	c := table.CreateLocal()
	c.Player.Select(&w.Types, TypeShip, [entity.NumSlots]uint8{TypeGun, 0, 0, 0})

	r.PlayersUpdate(table, w)
	ship := c.Player.Ship.Entity
	if ship == nil {
		t.Fatalf("ship not spawned")
	}
	if c.Player.Weapons[0].Entity == nil {
		t.Fatalf("gun not mounted")
	}
	//1.- Respawn placement sits between the inner rings.
	if d := ship.X.Len(); d < spawnBaseDist || d > spawnBaseDist+11*minPlanetDist {
		t.Fatalf("spawn distance %v outside the rings", d)
	}
}

func TestPlayerActionSteersTowardAim(t *testing.T) {
	r, w := installedWorld(11)
	table := session.NewTable()
	c := table.CreateLocal()
	c.Player.Select(&w.Types, TypeShip, [entity.NumSlots]uint8{})
	r.PlayersUpdate(table, w)
	ship := c.Player.Ship.Entity

	//1.- Aim straight up from a zero heading: positive rotation.
	c.Player.Aim = geom.Vec{Y: 100}
	ship.Phi = 0
	r.PlayersUpdate(table, w)
	if ship.Rot <= 0 {
		t.Fatalf("ship not turning toward aim: rot=%v", ship.Rot)
	}
	//2.- Forward thrust accumulates acceleration along the heading.
	c.Player.Accel = geom.Vec{X: 1}
	r.PlayersUpdate(table, w)
	if ship.A.X <= 0 {
		t.Fatalf("thrust not applied: %v", ship.A)
	}
}
