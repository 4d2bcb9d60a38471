package geom

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestRotatePreservesLength(t *testing.T) {
	//1.- Rotate an arbitrary vector by a quarter turn and compare lengths.
	v := Vec{3, 4}
	r := v.Rotate(math.Pi / 2)
	if !approx(v.Len(), r.Len()) {
		t.Fatalf("rotation changed length: %v -> %v", v.Len(), r.Len())
	}
	//2.- A quarter turn maps (3,4) onto (-4,3).
	if !approx(r.X, -4) || !approx(r.Y, 3) {
		t.Fatalf("unexpected rotation result %+v", r)
	}
}

func TestProjectDecomposes(t *testing.T) {
	//1.- Project onto the x axis and verify v = p + r with p parallel to b.
	v := Vec{2, 5}
	b := Vec{1, 0}
	p, r := Project(v, b)
	if !approx(p.X, 2) || !approx(p.Y, 0) {
		t.Fatalf("unexpected parallel component %+v", p)
	}
	if !approx(r.X, 0) || !approx(r.Y, 5) {
		t.Fatalf("unexpected restriction %+v", r)
	}
	sum := p.Add(r)
	if !approx(sum.X, v.X) || !approx(sum.Y, v.Y) {
		t.Fatalf("decomposition does not sum back to v: %+v", sum)
	}
}

func TestNormalizeZeroIsSafe(t *testing.T) {
	if got := Zero.Normalize(); got != Zero {
		t.Fatalf("normalizing zero must stay zero, got %+v", got)
	}
}

func TestRootsQuadratic(t *testing.T) {
	//1.- x^2 - 3x + 2 has roots 1 and 2.
	x0, x1, n := Roots(1, -3, 2)
	if n != 2 {
		t.Fatalf("expected two roots, got %d", n)
	}
	lo, hi := x0, x1
	if lo > hi {
		lo, hi = hi, lo
	}
	if !approx(lo, 1) || !approx(hi, 2) {
		t.Fatalf("unexpected roots %v %v", lo, hi)
	}
	//2.- A negative discriminant yields no real solutions.
	if _, _, n := Roots(1, 0, 1); n != 0 {
		t.Fatalf("expected zero roots for x^2+1")
	}
}

func TestSmallestPositiveRoot(t *testing.T) {
	cases := []struct {
		x0, x1 float32
		n      int
		want   float32
		ok     bool
	}{
		{1, 2, 2, 1, true},
		{2, 1, 2, 1, true},
		{-1, 2, 2, 2, true},
		{-1, -2, 2, 0, false},
		{0, 0, 0, 0, false},
	}
	for _, c := range cases {
		got, ok := SmallestPositiveRoot(c.x0, c.x1, c.n)
		if ok != c.ok || (ok && !approx(got, c.want)) {
			t.Fatalf("roots (%v,%v): got %v/%v want %v/%v", c.x0, c.x1, got, ok, c.want, c.ok)
		}
	}
}

func TestDeg100Wraps(t *testing.T) {
	//1.- Pi radians is 180 degrees, stored as hundredths.
	if got := Deg100(math.Pi); got != 18000 {
		t.Fatalf("expected 18000, got %d", got)
	}
	//2.- Negative angles wrap into [0, 36000).
	if got := Deg100(-math.Pi / 2); got != 27000 {
		t.Fatalf("expected 27000, got %d", got)
	}
}
