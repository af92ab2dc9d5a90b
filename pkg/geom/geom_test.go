package geom

import (
	"math"
	"testing"
)

func TestFixAngle(t *testing.T) {
	expectFixed(t, 0, 0)
	expectFixed(t, math.Pi, math.Pi)
	expectFixed(t, TwoPi, 0)
	expectFixed(t, -math.Pi/2, 3*math.Pi/2)
	expectFixed(t, 5*math.Pi, math.Pi)
	expectFixed(t, -4*math.Pi-0.1, TwoPi-0.1)
	expectFixed(t, -1e-18, 0)
}

func expectFixed(t *testing.T, in, expected float64) {
	actual := FixAngle(in)
	if actual < 0 || actual >= TwoPi {
		t.Errorf("FixAngle(%f) = %f, out of range", in, actual)
	}
	if math.Abs(actual-expected) > 1e-9 {
		t.Errorf("FixAngle(%f) = %f, expected %f", in, actual, expected)
	}
}

func TestMinimumAngleFromTo(t *testing.T) {
	expectMinAngle(t, 0, Radians(90), Radians(90))
	expectMinAngle(t, Radians(90), 0, Radians(-90))
	expectMinAngle(t, Radians(350), Radians(10), Radians(20))
	expectMinAngle(t, Radians(10), Radians(350), Radians(-20))
	expectMinAngle(t, 0, math.Pi, math.Pi)
}

func expectMinAngle(t *testing.T, from, to, expected float64) {
	actual := MinimumAngleFromTo(from, to)
	if math.Abs(actual-expected) > 1e-9 {
		t.Errorf("MinimumAngleFromTo(%.3f, %.3f) = %.3f, expected %.3f", from, to, actual, expected)
	}
}

func TestUnwrapDelta(t *testing.T) {
	// Crossing 2π -> 0 anticlockwise.
	d := UnwrapDelta(6.2, 0.05)
	if math.Abs(d-(0.05+TwoPi-6.2)) > 1e-9 {
		t.Errorf("Unexpected delta across 0: %f", d)
	}
	// Crossing 0 -> 2π clockwise.
	d = UnwrapDelta(0.05, 6.2)
	if math.Abs(d-(6.2-TwoPi-0.05)) > 1e-9 {
		t.Errorf("Unexpected delta across 2π: %f", d)
	}
	// No crossing.
	d = UnwrapDelta(1, 1.5)
	if math.Abs(d-0.5) > 1e-9 {
		t.Errorf("Unexpected plain delta: %f", d)
	}
}

func TestVec2IsImmutable(t *testing.T) {
	a := V(1, 2)
	b := a.Add(V(3, 4))
	if a.X() != 1 || a.Y() != 2 {
		t.Fatalf("Add modified its receiver: %v", a)
	}
	if b.X() != 4 || b.Y() != 6 {
		t.Fatalf("Unexpected sum %v", b)
	}
	c := b.Sub(a).Scale(0.5)
	if c.X() != 1.5 || c.Y() != 2 {
		t.Fatalf("Unexpected result %v", c)
	}
}

func TestPolar(t *testing.T) {
	p := Polar(2, math.Pi/2)
	if math.Abs(p.X()) > 1e-9 || math.Abs(p.Y()-2) > 1e-9 {
		t.Errorf("Unexpected polar vector %v", p)
	}
	if math.Abs(p.Norm()-2) > 1e-9 {
		t.Errorf("Unexpected norm %f", p.Norm())
	}
	if math.Abs(V(0, -1).Angle()-3*math.Pi/2) > 1e-9 {
		t.Errorf("Angle should be in [0, 2π), got %f", V(0, -1).Angle())
	}
}

func TestWithinTolerance(t *testing.T) {
	if !V(0, 0).WithinTolerance(V(1, -1), 1) {
		t.Error("Points exactly at tolerance should be within it")
	}
	if V(0, 0).WithinTolerance(V(1.01, 0), 1) {
		t.Error("Point outside tolerance on x reported within")
	}
	if V(0, 0).WithinTolerance(V(0, -1.01), 1) {
		t.Error("Point outside tolerance on y reported within")
	}
}

func TestRangeHelpers(t *testing.T) {
	if !IsInRange(29.5, 29.5, 30.5, 0.001) || IsInRange(31, 29.5, 30.5, 0.001) {
		t.Error("IsInRange gave the wrong answer")
	}
	if !IsEqual(1.0005, 1, 0.001) || IsEqual(1.1, 1, 0.001) {
		t.Error("IsEqual gave the wrong answer")
	}
	if !IsCloseTo(Radians(359), Radians(1), Radians(3)) {
		t.Error("IsCloseTo should handle wrap-around")
	}
}
