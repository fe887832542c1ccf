// Package spatialmath defines the planar geometry used by the drivetrain packages: vectors,
// poses and wraparound-aware angle arithmetic.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Epsilon is the default tolerance used for approximate equality.
const Epsilon = 1e-6

// Vector2d is an immutable planar vector. Every operation returns a new value.
type Vector2d struct {
	X float64
	Y float64
}

// NewVector2d creates a vector from its components.
func NewVector2d(x, y float64) Vector2d {
	return Vector2d{X: x, Y: y}
}

// Polar returns the vector with magnitude r at angle theta (radians).
func Polar(r, theta float64) Vector2d {
	return Vector2d{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

func fromPoint(p r2.Point) Vector2d {
	return Vector2d{X: p.X, Y: p.Y}
}

// Point returns the vector as an r2.Point.
func (v Vector2d) Point() r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// Add returns v + o.
func (v Vector2d) Add(o Vector2d) Vector2d {
	return fromPoint(v.Point().Add(o.Point()))
}

// Sub returns v - o.
func (v Vector2d) Sub(o Vector2d) Vector2d {
	return fromPoint(v.Point().Sub(o.Point()))
}

// Mul scales v by s.
func (v Vector2d) Mul(s float64) Vector2d {
	return fromPoint(v.Point().Mul(s))
}

// Div divides v by s.
func (v Vector2d) Div(s float64) Vector2d {
	return Vector2d{X: v.X / s, Y: v.Y / s}
}

// Neg returns -v.
func (v Vector2d) Neg() Vector2d {
	return Vector2d{X: -v.X, Y: -v.Y}
}

// Dot returns the dot product of v and o.
func (v Vector2d) Dot(o Vector2d) float64 {
	return v.Point().Dot(o.Point())
}

// Cross returns the z component of the 3d cross product of v and o.
func (v Vector2d) Cross(o Vector2d) float64 {
	return v.Point().Cross(o.Point())
}

// Norm returns the magnitude of v.
func (v Vector2d) Norm() float64 {
	return v.Point().Norm()
}

// Angle returns the normalized angle of v, in radians.
func (v Vector2d) Angle() float64 {
	return NormalizeAngle(math.Atan2(v.Y, v.X))
}

// AngleBetween returns the unsigned angle between v and o, in radians.
func (v Vector2d) AngleBetween(o Vector2d) float64 {
	c := v.Dot(o) / (v.Norm() * o.Norm())
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Rotated rotates v counter-clockwise by angle radians.
func (v Vector2d) Rotated(angle float64) Vector2d {
	sin, cos := math.Sincos(angle)
	return Vector2d{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// Ortho returns v rotated by 90 degrees counter-clockwise.
func (v Vector2d) Ortho() Vector2d {
	return Vector2d{X: -v.Y, Y: v.X}
}

// DistTo returns the distance between v and o.
func (v Vector2d) DistTo(o Vector2d) float64 {
	return v.Sub(o).Norm()
}

// ProjectOnto returns the projection of v onto o.
func (v Vector2d) ProjectOnto(o Vector2d) Vector2d {
	return o.Mul(v.Dot(o) / o.Dot(o))
}

// AlmostEqual reports whether every component of v is within eps of o.
func (v Vector2d) AlmostEqual(o Vector2d, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

func (v Vector2d) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", v.X, v.Y)
}
