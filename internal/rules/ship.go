package rules

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
)

func shipType(formats ...*entity.Format) *entity.Type {
	t := &entity.Type{
		ID:           TypeShip,
		Act:          shipShoot,
		Collide:      shipHit,
		InitInterval: 300,
		InitEnergy:   1000,
		InitHealth:   200,
		InitShield:   100,
		InitMass:     1,
		InitRadius:   32,
		MaxAccel:     geom.Vec{X: 200, Y: 200},
		MaxBrake:     geom.Vec{X: 200, Y: 200},
		MaxRot:       3,
		Formats:      formats,
		Name:         "ship",
		Collides:     true,
		Bounces:      true,
	}
	//1.- Hardpoints sit on the hull: front, starboard, aft, port. Only
	// carried weapons may occupy them.
	weaponMask := weaponSlotMask()
	t.Slots = [entity.NumSlots]entity.SlotType{
		{DX: geom.Vec{X: 32}, DPhi: 0, PossibleTypes: weaponMask},
		{DX: geom.Vec{Y: 32}, DPhi: halfPi, PossibleTypes: weaponMask},
		{DX: geom.Vec{X: -32}, DPhi: pi, PossibleTypes: weaponMask},
		{DX: geom.Vec{Y: -32}, DPhi: -halfPi, PossibleTypes: weaponMask},
	}
	return t
}

// shipShoot fires an unguided bullet straight ahead while the ship itself is
// triggered, covering hulls with an empty first hardpoint.
func shipShoot(w *entity.World, ship *entity.Entity) {
	spawnBullet(w, ship, ship)
}

func shipHit(_ *entity.World, ship, _ *entity.Entity, impact float32) {
	ship.Health -= 0.1 * impact
}

// spawnBullet creates a bullet ahead of the muzzle, inheriting the shooter's
// velocity plus the bullet's muzzle speed.
func spawnBullet(w *entity.World, muzzle, hull *entity.Entity) *entity.Entity {
	bt := w.Types.Get(TypeBullet)
	if bt == nil {
		return nil
	}
	f := geom.Unit(muzzle.Phi)
	x := muzzle.X.Add(f.Scale(hull.Radius + bt.InitRadius*2))
	v := muzzle.V.Add(f.Scale(bt.MaxAccel.Y))
	b := w.Create(bt, muzzle.Player, x, v)
	if b != nil {
		b.Active = true
	}
	return b
}
