package rules

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
)

func phaserType() *entity.Type {
	return &entity.Type{
		ID:         TypePhaser,
		Act:        phaserBeam,
		InitEnergy: 1000,
		InitHealth: 1,
		Name:       "phaser",
	}
}

// phaserBeam keeps exactly one ray child alive while the trigger is held.
// The ray tears itself down once the phaser goes inactive.
func phaserBeam(w *entity.World, phaser *entity.Entity) {
	if len(phaser.Children) > 0 {
		return
	}
	rt := w.Types.Get(TypeRay)
	if rt == nil {
		return
	}
	x := phaser.X.Add(geom.Unit(phaser.Phi).Scale(phaser.Radius))
	ray := w.Create(rt, phaser.Player, x, geom.Zero)
	if ray == nil {
		return
	}
	w.Attach(phaser, ray, geom.Vec{X: phaser.Radius}, 0)
	ray.Active = true
}
