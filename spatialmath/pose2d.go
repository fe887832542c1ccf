package spatialmath

import (
	"fmt"
	"math"
)

// Pose2d is a planar position plus heading. It is also used for velocities and accelerations, in
// either the field or the robot frame; the frame is tracked by the caller. Arithmetic treats the
// heading as a plain scalar, error computations normalize it.
type Pose2d struct {
	X       float64
	Y       float64
	Heading float64
}

// NewPose2d creates a pose from its components.
func NewPose2d(x, y, heading float64) Pose2d {
	return Pose2d{X: x, Y: y, Heading: heading}
}

// NewPose2dFromVec creates a pose from a position and a heading.
func NewPose2dFromVec(pos Vector2d, heading float64) Pose2d {
	return Pose2d{X: pos.X, Y: pos.Y, Heading: heading}
}

// Vec returns the translational part of p.
func (p Pose2d) Vec() Vector2d {
	return Vector2d{X: p.X, Y: p.Y}
}

// HeadingVec returns the unit vector pointing along p's heading.
func (p Pose2d) HeadingVec() Vector2d {
	return Polar(1, p.Heading)
}

// Add returns p + o, component-wise.
func (p Pose2d) Add(o Pose2d) Pose2d {
	return Pose2d{X: p.X + o.X, Y: p.Y + o.Y, Heading: p.Heading + o.Heading}
}

// Sub returns p - o, component-wise.
func (p Pose2d) Sub(o Pose2d) Pose2d {
	return Pose2d{X: p.X - o.X, Y: p.Y - o.Y, Heading: p.Heading - o.Heading}
}

// Mul scales every component of p by s.
func (p Pose2d) Mul(s float64) Pose2d {
	return Pose2d{X: p.X * s, Y: p.Y * s, Heading: p.Heading * s}
}

// Div divides every component of p by s.
func (p Pose2d) Div(s float64) Pose2d {
	return Pose2d{X: p.X / s, Y: p.Y / s, Heading: p.Heading / s}
}

// Neg returns -p.
func (p Pose2d) Neg() Pose2d {
	return Pose2d{X: -p.X, Y: -p.Y, Heading: -p.Heading}
}

// AlmostEqual compares every component, heading included, as plain scalars.
func (p Pose2d) AlmostEqual(o Pose2d, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps && math.Abs(p.Heading-o.Heading) <= eps
}

// AlmostEqualHeading is like AlmostEqual but compares headings with wraparound.
func (p Pose2d) AlmostEqualHeading(o Pose2d, eps float64) bool {
	return p.Vec().AlmostEqual(o.Vec(), eps) && AlmostEqualAngle(p.Heading, o.Heading, eps)
}

func (p Pose2d) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f°)", p.X, p.Y, RadToDeg(p.Heading))
}
