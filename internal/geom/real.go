package geom

import "math"

// Rad converts degrees to radians.
func Rad(a float32) float32 {
	return a * math.Pi / 180
}

// Deg100 quantizes an angle in radians to hundredths of a degree in
// [0, 36000), the resolution carried by orientation update records.
func Deg100(a float32) uint16 {
	d := float64(a) * 180 / math.Pi
	m := (int64(d*100)%36000 + 36000) % 36000
	return uint16(m)
}

// Roots solves a*x^2 + b*x + c = 0 and returns the solutions together with
// their count (0, 1 or 2). With a == 0 the equation degenerates and no
// roots are reported.
func Roots(a, b, c float32) (x0, x1 float32, n int) {
	//1.- A non-positive discriminant either yields no real roots or one.
	d := float64(b)*float64(b) - 4*float64(a)*float64(c)
	if d < 0 || a == 0 {
		return 0, 0, 0
	}
	//2.- Evaluate both branches of the quadratic formula.
	sq := float32(math.Sqrt(d))
	x0 = (-b + sq) / (2 * a)
	x1 = (-b - sq) / (2 * a)
	if d == 0 {
		return x0, x1, 1
	}
	return x0, x1, 2
}

// SmallestPositiveRoot picks the earliest root strictly greater than zero,
// mirroring the collision-time selection rule. ok is false when both roots
// are in the past.
func SmallestPositiveRoot(x0, x1 float32, n int) (t float32, ok bool) {
	if n == 0 {
		return 0, false
	}
	if 0 < x0 && (x0 <= x1 || x1 <= 0) {
		return x0, true
	}
	if 0 < x1 && (x1 < x0 || x0 <= 0) {
		return x1, true
	}
	return 0, false
}
