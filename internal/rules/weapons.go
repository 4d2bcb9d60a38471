package rules

import (
	"math"

	"lwar/server/internal/pool"
)

const (
	pi     = float32(math.Pi)
	halfPi = float32(math.Pi / 2)
)

// weaponSlotMask lists the types a ship hardpoint accepts. Rockets mount
// like weapons and are released on their first activation.
func weaponSlotMask() pool.BitSet {
	return pool.Empty.
		Insert(uint16(TypeGun)).
		Insert(uint16(TypePhaser)).
		Insert(uint16(TypeRocket))
}
