package path

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"

	"go.viam.com/drivetrain/spatialmath"
)

const (
	// arcLengthIntervals is the number of t intervals tabulated for reparametrization.
	arcLengthIntervals = 256
	// quadraturePoints is the Gauss-Legendre order used on each interval.
	quadraturePoints = 8
)

// QuinticPolynomial is a quintic in t on [0, 1] matching value, first and second derivatives at
// both ends.
type QuinticPolynomial struct {
	a, b, c, d, e, f float64
}

// NewQuinticPolynomial solves for the Hermite quintic through the given boundary conditions.
func NewQuinticPolynomial(start, startDeriv, startSecondDeriv, end, endDeriv, endSecondDeriv float64) QuinticPolynomial {
	return QuinticPolynomial{
		a: -6*start - 3*startDeriv - 0.5*startSecondDeriv + 0.5*endSecondDeriv - 3*endDeriv + 6*end,
		b: 15*start + 8*startDeriv + 1.5*startSecondDeriv - endSecondDeriv + 7*endDeriv - 15*end,
		c: -10*start - 6*startDeriv - 1.5*startSecondDeriv + 0.5*endSecondDeriv - 4*endDeriv + 10*end,
		d: 0.5 * startSecondDeriv,
		e: startDeriv,
		f: start,
	}
}

// Get evaluates the polynomial at t.
func (q QuinticPolynomial) Get(t float64) float64 {
	return ((((q.a*t+q.b)*t+q.c)*t+q.d)*t+q.e)*t + q.f
}

// Deriv evaluates the first derivative at t.
func (q QuinticPolynomial) Deriv(t float64) float64 {
	return (((5*q.a*t+4*q.b)*t+3*q.c)*t+2*q.d)*t + q.e
}

// SecondDeriv evaluates the second derivative at t.
func (q QuinticPolynomial) SecondDeriv(t float64) float64 {
	return ((20*q.a*t+12*q.b)*t+6*q.c)*t + 2*q.d
}

// ThirdDeriv evaluates the third derivative at t.
func (q QuinticPolynomial) ThirdDeriv(t float64) float64 {
	return (60*q.a*t+24*q.b)*t + 6*q.c
}

// Knot is a spline boundary condition: a position and its first and second derivatives with
// respect to the spline parameter.
type Knot struct {
	Pos         spatialmath.Vector2d
	Deriv       spatialmath.Vector2d
	SecondDeriv spatialmath.Vector2d
}

// NewKnot returns a knot at pos whose tangent points along tangentAngle with the given magnitude.
func NewKnot(pos spatialmath.Vector2d, tangentAngle, magnitude float64) Knot {
	return Knot{Pos: pos, Deriv: spatialmath.Polar(magnitude, tangentAngle)}
}

// QuinticSpline is a curve built from one quintic polynomial per axis, reparametrized by arc
// length through a tabulated integral of its speed.
type QuinticSpline struct {
	x, y QuinticPolynomial

	// sTable[i] is the arc length at t = i / arcLengthIntervals.
	sTable []float64
	length float64
}

// NewQuinticSpline builds the spline joining two knots.
func NewQuinticSpline(start, end Knot) (*QuinticSpline, error) {
	if start.Pos.DistTo(end.Pos) == 0 && start.Deriv.Norm() == 0 && end.Deriv.Norm() == 0 {
		return nil, errors.New("degenerate spline: endpoints coincide and tangents are zero")
	}
	spl := &QuinticSpline{
		x: NewQuinticPolynomial(start.Pos.X, start.Deriv.X, start.SecondDeriv.X, end.Pos.X, end.Deriv.X, end.SecondDeriv.X),
		y: NewQuinticPolynomial(start.Pos.Y, start.Deriv.Y, start.SecondDeriv.Y, end.Pos.Y, end.Deriv.Y, end.SecondDeriv.Y),
	}

	pieces := make([]float64, arcLengthIntervals+1)
	for i := 1; i <= arcLengthIntervals; i++ {
		t0 := float64(i-1) / arcLengthIntervals
		t1 := float64(i) / arcLengthIntervals
		pieces[i] = spl.arcLength(t0, t1)
	}
	spl.sTable = floats.CumSum(make([]float64, len(pieces)), pieces)
	spl.length = spl.sTable[arcLengthIntervals]
	if spl.length == 0 {
		return nil, errors.New("degenerate spline: zero arc length")
	}
	return spl, nil
}

func (spl *QuinticSpline) speed(t float64) float64 {
	return math.Hypot(spl.x.Deriv(t), spl.y.Deriv(t))
}

func (spl *QuinticSpline) arcLength(t0, t1 float64) float64 {
	switch {
	case t1 == t0:
		return 0
	case t1 < t0:
		return -spl.arcLength(t1, t0)
	}
	return quad.Fixed(spl.speed, t0, t1, quadraturePoints, nil, 0)
}

// Length returns the arc length of the spline.
func (spl *QuinticSpline) Length() float64 { return spl.length }

// Reparam maps arc length s to the spline parameter t by table lookup refined with Newton steps.
func (spl *QuinticSpline) Reparam(s float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= spl.length {
		return 1
	}
	i := sort.SearchFloat64s(spl.sTable, s)
	if i == 0 {
		return 0
	}
	lo, hi := spl.sTable[i-1], spl.sTable[i]
	t0 := float64(i-1) / arcLengthIntervals
	t := t0 + (s-lo)/(hi-lo)/arcLengthIntervals
	for iter := 0; iter < 2; iter++ {
		v := spl.speed(t)
		if v == 0 {
			break
		}
		t -= (lo + spl.arcLength(t0, t) - s) / v
	}
	return math.Max(0, math.Min(1, t))
}

type splineDerivs struct {
	d1, d2, d3 spatialmath.Vector2d
}

func (spl *QuinticSpline) derivs(t float64) splineDerivs {
	return splineDerivs{
		d1: spatialmath.NewVector2d(spl.x.Deriv(t), spl.y.Deriv(t)),
		d2: spatialmath.NewVector2d(spl.x.SecondDeriv(t), spl.y.SecondDeriv(t)),
		d3: spatialmath.NewVector2d(spl.x.ThirdDeriv(t), spl.y.ThirdDeriv(t)),
	}
}

// Get returns the point at arc length s.
func (spl *QuinticSpline) Get(s float64) spatialmath.Vector2d {
	t := spl.Reparam(s)
	return spatialmath.NewVector2d(spl.x.Get(t), spl.y.Get(t))
}

// Deriv returns the unit tangent at s.
func (spl *QuinticSpline) Deriv(s float64) spatialmath.Vector2d {
	d := spl.derivs(spl.Reparam(s))
	return d.d1.Div(d.d1.Norm())
}

// SecondDeriv returns d²p/ds² at s.
func (spl *QuinticSpline) SecondDeriv(s float64) spatialmath.Vector2d {
	d := spl.derivs(spl.Reparam(s))
	q2 := d.d1.Dot(d.d1)
	return d.d2.Div(q2).Sub(d.d1.Mul(d.d1.Dot(d.d2) / (q2 * q2)))
}

// TangentAngle returns the direction of travel at s.
func (spl *QuinticSpline) TangentAngle(s float64) float64 {
	return spl.derivs(spl.Reparam(s)).d1.Angle()
}

// TangentAngleDeriv returns the signed curvature at s.
func (spl *QuinticSpline) TangentAngleDeriv(s float64) float64 {
	d := spl.derivs(spl.Reparam(s))
	q := d.d1.Norm()
	return d.d1.Cross(d.d2) / (q * q * q)
}

// TangentAngleSecondDeriv returns the derivative of curvature with respect to s.
func (spl *QuinticSpline) TangentAngleSecondDeriv(s float64) float64 {
	d := spl.derivs(spl.Reparam(s))
	q2 := d.d1.Dot(d.d1)
	return d.d1.Cross(d.d3)/(q2*q2) - 3*d.d1.Cross(d.d2)*d.d1.Dot(d.d2)/(q2*q2*q2)
}
