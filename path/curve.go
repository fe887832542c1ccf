// Package path describes geometric paths parametrized by arc length and the heading strategies
// layered on top of them.
package path

import (
	"go.viam.com/drivetrain/spatialmath"
)

// ParametricCurve is a planar curve parametrized by arc length s in [0, Length()]. Derivatives are
// taken with respect to s, so Deriv is a unit tangent. Implementations are immutable.
type ParametricCurve interface {
	Length() float64
	Get(s float64) spatialmath.Vector2d
	Deriv(s float64) spatialmath.Vector2d
	SecondDeriv(s float64) spatialmath.Vector2d
	TangentAngle(s float64) float64
	// TangentAngleDeriv is the signed curvature at s.
	TangentAngleDeriv(s float64) float64
	TangentAngleSecondDeriv(s float64) float64
	// Reparam maps arc length to the curve's internal parameter t in [0, 1].
	Reparam(s float64) float64
}

// LineSegment is a straight curve between two points.
type LineSegment struct {
	start  spatialmath.Vector2d
	dir    spatialmath.Vector2d
	length float64
}

// NewLineSegment returns the straight curve from start to end.
func NewLineSegment(start, end spatialmath.Vector2d) *LineSegment {
	diff := end.Sub(start)
	length := diff.Norm()
	l := &LineSegment{start: start, length: length}
	if length > 0 {
		l.dir = diff.Div(length)
	}
	return l
}

// Length returns the arc length of the segment.
func (l *LineSegment) Length() float64 { return l.length }

// Get returns the point at arc length s.
func (l *LineSegment) Get(s float64) spatialmath.Vector2d {
	return l.start.Add(l.dir.Mul(s))
}

// Deriv returns the unit direction of the segment.
func (l *LineSegment) Deriv(s float64) spatialmath.Vector2d { return l.dir }

// SecondDeriv is always zero.
func (l *LineSegment) SecondDeriv(s float64) spatialmath.Vector2d { return spatialmath.Vector2d{} }

// TangentAngle returns the direction of the segment.
func (l *LineSegment) TangentAngle(s float64) float64 { return l.dir.Angle() }

// TangentAngleDeriv is always zero.
func (l *LineSegment) TangentAngleDeriv(s float64) float64 { return 0 }

// TangentAngleSecondDeriv is always zero.
func (l *LineSegment) TangentAngleSecondDeriv(s float64) float64 { return 0 }

// Reparam returns s / Length().
func (l *LineSegment) Reparam(s float64) float64 {
	if l.length == 0 {
		return 0
	}
	return s / l.length
}
