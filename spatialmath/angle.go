package spatialmath

import (
	"math"

	"github.com/golang/geo/s1"
)

// NormalizeAngle maps theta (radians) into the canonical range (-π, π].
func NormalizeAngle(theta float64) float64 {
	return float64(s1.Angle(theta).Normalized())
}

// AngleDelta returns the signed shortest rotation from `from` to `to`, in (-π, π]. Differences
// between headings must always go through this function so that errors never jump by 2π.
func AngleDelta(to, from float64) float64 {
	return NormalizeAngle(to - from)
}

// AlmostEqualAngle reports whether a and b describe the same direction within eps radians.
func AlmostEqualAngle(a, b, eps float64) bool {
	return math.Abs(AngleDelta(a, b)) <= eps
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return s1.Angle(degrees * float64(s1.Degree)).Radians()
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return s1.Angle(radians).Degrees()
}
