package geom

import "math"

const TwoPi = 2 * math.Pi

// FixAngle maps an angle of any magnitude (radians) into [0, 2π).
func FixAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		// math.Mod of a tiny negative number can round back up to 2π.
		a = 0
	}
	return a
}

// PlusMinusPi maps an angle into (-π, π].
func PlusMinusPi(a float64) float64 {
	d := math.Mod(a, TwoPi)
	if d <= -math.Pi {
		d += TwoPi
	} else if d > math.Pi {
		d -= TwoPi
	}
	return d
}

// MinimumAngleFromTo returns the signed smallest rotation taking heading
// from to heading to.  Positive is anticlockwise.
func MinimumAngleFromTo(from, to float64) float64 {
	return PlusMinusPi(to - from)
}

// UnwrapDelta returns cur-prev after shifting prev by a whole turn when the
// raw difference is larger than 1.5π, which happens when the heading crosses
// the 0/2π boundary between two samples.
func UnwrapDelta(prev, cur float64) float64 {
	d := cur - prev
	if d > 1.5*math.Pi {
		prev += TwoPi
	} else if d < -1.5*math.Pi {
		prev -= TwoPi
	}
	return cur - prev
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// IsInRange reports lo-err <= v <= hi+err.
func IsInRange(v, lo, hi, err float64) bool {
	return v >= lo-err && v <= hi+err
}

// IsEqual reports |a-b| <= err.
func IsEqual(a, b, err float64) bool {
	return math.Abs(a-b) <= err
}

// IsCloseTo reports whether two headings are within err of each other,
// taking wrap-around into account.
func IsCloseTo(a, b, err float64) bool {
	return math.Abs(MinimumAngleFromTo(a, b)) <= err
}
