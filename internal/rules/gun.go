package rules

import (
	"lwar/server/internal/entity"
)

func gunType() *entity.Type {
	return &entity.Type{
		ID:           TypeGun,
		Act:          gunShoot,
		InitInterval: 300,
		InitEnergy:   10000,
		InitHealth:   1,
		Name:         "gun",
	}
}

// gunShoot fires from the hardpoint while ammunition lasts.
func gunShoot(w *entity.World, gun *entity.Entity) {
	if gun.Energy <= 0 {
		return
	}
	gun.Energy--
	hull := gun.Parent
	if hull == nil {
		hull = gun
	}
	spawnBullet(w, gun, hull)
}
