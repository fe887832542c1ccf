package path

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/spatialmath"
)

// HeadingKind enumerates the heading strategies.
type HeadingKind int

// The closed set of heading strategies.
const (
	HeadingTangent HeadingKind = iota
	HeadingConstant
	HeadingLinear
	HeadingSpline
)

func (k HeadingKind) String() string {
	switch k {
	case HeadingTangent:
		return "tangent"
	case HeadingConstant:
		return "constant"
	case HeadingLinear:
		return "linear"
	case HeadingSpline:
		return "spline"
	default:
		return "unknown"
	}
}

// HeadingInterpolation describes how the robot heading evolves along a curve. The set of
// implementations is closed to this package.
type HeadingInterpolation interface {
	Kind() HeadingKind
	isHeadingInterpolation()
}

// ValueHeading is a heading strategy that carries a mutable end heading.
type ValueHeading interface {
	HeadingInterpolation
	TargetHeading() float64
	SetTargetHeading(target float64)
}

// TangentHeading keeps the robot facing along the curve, or directly away from it when Reversed.
type TangentHeading struct {
	Reversed bool
}

// ConstantHeading holds the heading the segment starts with.
type ConstantHeading struct{}

// LinearHeading turns linearly in arc length toward Target, taking the shorter way around.
type LinearHeading struct {
	Target float64
}

// SplineHeading turns toward Target along a quintic that matches the curve's tangent rates at
// both ends.
type SplineHeading struct {
	Target float64
}

func (TangentHeading) Kind() HeadingKind  { return HeadingTangent }
func (ConstantHeading) Kind() HeadingKind { return HeadingConstant }
func (*LinearHeading) Kind() HeadingKind  { return HeadingLinear }
func (*SplineHeading) Kind() HeadingKind  { return HeadingSpline }

func (TangentHeading) isHeadingInterpolation()  {}
func (ConstantHeading) isHeadingInterpolation() {}
func (*LinearHeading) isHeadingInterpolation()  {}
func (*SplineHeading) isHeadingInterpolation()  {}

// TargetHeading returns the end heading.
func (h *LinearHeading) TargetHeading() float64 { return h.Target }

// SetTargetHeading changes the end heading.
func (h *LinearHeading) SetTargetHeading(target float64) { h.Target = target }

// TargetHeading returns the end heading.
func (h *SplineHeading) TargetHeading() float64 { return h.Target }

// SetTargetHeading changes the end heading.
func (h *SplineHeading) SetTargetHeading(target float64) { h.Target = target }

// HeadingInterpolator evaluates a heading strategy bound to one curve. Get is normalized; the
// derivatives are with respect to arc length.
type HeadingInterpolator interface {
	Get(s float64) float64
	Deriv(s float64) float64
	SecondDeriv(s float64) float64
	Start() float64
	End() float64
}

// NewHeadingInterpolator binds a heading strategy to a curve that begins at startHeading. The
// target of a ValueHeading is read once here.
func NewHeadingInterpolator(h HeadingInterpolation, curve ParametricCurve, startHeading float64) (HeadingInterpolator, error) {
	startHeading = spatialmath.NormalizeAngle(startHeading)
	switch v := h.(type) {
	case TangentHeading:
		offset := 0.0
		if v.Reversed {
			offset = math.Pi
		}
		return &tangentInterpolator{curve: curve, offset: offset}, nil
	case ConstantHeading:
		return &constantInterpolator{curve: curve, heading: startHeading}, nil
	case *LinearHeading:
		if v == nil {
			return nil, errors.New("nil linear heading")
		}
		return &linearInterpolator{
			curve: curve,
			start: startHeading,
			delta: spatialmath.AngleDelta(v.Target, startHeading),
		}, nil
	case *SplineHeading:
		if v == nil {
			return nil, errors.New("nil spline heading")
		}
		return newSplineInterpolator(curve, startHeading, v.Target), nil
	default:
		return nil, errors.Errorf("unknown heading interpolation %T", h)
	}
}

type tangentInterpolator struct {
	curve  ParametricCurve
	offset float64
}

func (i *tangentInterpolator) Get(s float64) float64 {
	return spatialmath.NormalizeAngle(i.curve.TangentAngle(s) + i.offset)
}
func (i *tangentInterpolator) Deriv(s float64) float64       { return i.curve.TangentAngleDeriv(s) }
func (i *tangentInterpolator) SecondDeriv(s float64) float64 { return i.curve.TangentAngleSecondDeriv(s) }
func (i *tangentInterpolator) Start() float64                { return i.Get(0) }
func (i *tangentInterpolator) End() float64                  { return i.Get(i.curve.Length()) }

type constantInterpolator struct {
	curve   ParametricCurve
	heading float64
}

func (i *constantInterpolator) Get(s float64) float64         { return i.heading }
func (i *constantInterpolator) Deriv(s float64) float64       { return 0 }
func (i *constantInterpolator) SecondDeriv(s float64) float64 { return 0 }
func (i *constantInterpolator) Start() float64                { return i.heading }
func (i *constantInterpolator) End() float64                  { return i.heading }

type linearInterpolator struct {
	curve ParametricCurve
	start float64
	delta float64
}

func (i *linearInterpolator) Get(s float64) float64 {
	l := i.curve.Length()
	if l == 0 {
		return i.start
	}
	return spatialmath.NormalizeAngle(i.start + i.delta*s/l)
}

func (i *linearInterpolator) Deriv(s float64) float64 {
	l := i.curve.Length()
	if l == 0 {
		return 0
	}
	return i.delta / l
}

func (i *linearInterpolator) SecondDeriv(s float64) float64 { return 0 }
func (i *linearInterpolator) Start() float64                { return i.start }
func (i *linearInterpolator) End() float64 {
	if i.curve.Length() == 0 {
		return i.start
	}
	return spatialmath.NormalizeAngle(i.start + i.delta)
}

type splineInterpolator struct {
	curve  ParametricCurve
	start  float64
	delta  float64
	length float64
	poly   QuinticPolynomial
}

func newSplineInterpolator(curve ParametricCurve, start, target float64) *splineInterpolator {
	l := curve.Length()
	delta := spatialmath.AngleDelta(target, start)
	return &splineInterpolator{
		curve:  curve,
		start:  start,
		delta:  delta,
		length: l,
		poly: NewQuinticPolynomial(
			0,
			curve.TangentAngleDeriv(0)*l,
			curve.TangentAngleSecondDeriv(0)*l*l,
			delta,
			curve.TangentAngleDeriv(l)*l,
			curve.TangentAngleSecondDeriv(l)*l*l,
		),
	}
}

func (i *splineInterpolator) Get(s float64) float64 {
	if i.length == 0 {
		return i.start
	}
	return spatialmath.NormalizeAngle(i.start + i.poly.Get(s/i.length))
}

func (i *splineInterpolator) Deriv(s float64) float64 {
	if i.length == 0 {
		return 0
	}
	return i.poly.Deriv(s/i.length) / i.length
}

func (i *splineInterpolator) SecondDeriv(s float64) float64 {
	if i.length == 0 {
		return 0
	}
	return i.poly.SecondDeriv(s/i.length) / (i.length * i.length)
}

func (i *splineInterpolator) Start() float64 { return i.start }
func (i *splineInterpolator) End() float64   { return i.Get(i.length) }
