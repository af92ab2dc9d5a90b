package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is an immutable point or displacement in the field frame (cm).
// Every operation returns a new value.
type Vec2 struct {
	v r2.Vec
}

func V(x, y float64) Vec2 {
	return Vec2{r2.Vec{X: x, Y: y}}
}

// Polar returns the vector with the given magnitude and angle (radians).
func Polar(mag, angle float64) Vec2 {
	return V(mag*math.Cos(angle), mag*math.Sin(angle))
}

func (a Vec2) X() float64 { return a.v.X }
func (a Vec2) Y() float64 { return a.v.Y }

func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{r2.Add(a.v, b.v)}
}

func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{r2.Sub(a.v, b.v)}
}

func (a Vec2) Scale(f float64) Vec2 {
	return Vec2{r2.Scale(f, a.v)}
}

func (a Vec2) Norm() float64 {
	return r2.Norm(a.v)
}

// Angle is the direction of the vector in [0, 2π).
func (a Vec2) Angle() float64 {
	return FixAngle(math.Atan2(a.v.Y, a.v.X))
}

// ComponentSum is x+y.  Used on per-wheel pairs.
func (a Vec2) ComponentSum() float64 {
	return a.v.X + a.v.Y
}

// ComponentDiff is x-y.  Used on per-wheel pairs.
func (a Vec2) ComponentDiff() float64 {
	return a.v.X - a.v.Y
}

// WithinTolerance is true if both axes of a-b are within tol.
func (a Vec2) WithinTolerance(b Vec2, tol float64) bool {
	d := a.Sub(b)
	return math.Abs(d.X()) <= tol && math.Abs(d.Y()) <= tol
}

func (a Vec2) String() string {
	return fmt.Sprintf("<%.2f, %.2f>", a.v.X, a.v.Y)
}

// Pose is the robot's position and heading.  Heading is in [0, 2π) whenever
// it comes from the odometer.
type Pose struct {
	Position Vec2
	Heading  float64
}

func (p Pose) String() string {
	return fmt.Sprintf("%v %.1f°", p.Position, Degrees(p.Heading))
}
