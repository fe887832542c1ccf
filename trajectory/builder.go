package trajectory

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/spatialmath"
)

// Constraints are the numeric motion limits of a robot. A zero limit is treated as absent.
type Constraints struct {
	MaxVel      float64
	MaxAccel    float64
	MaxAngVel   float64
	MaxAngAccel float64
	// Drive optionally adds a drivetrain-specific limit, such as a wheel speed constraint.
	Drive VelocityConstraint
}

// VelocityConstraint returns the combined velocity limit.
func (c Constraints) VelocityConstraint() VelocityConstraint {
	var all []VelocityConstraint
	if c.MaxVel > 0 {
		all = append(all, TranslationalVelocityConstraint{MaxVel: c.MaxVel})
	}
	if c.MaxAngVel > 0 {
		all = append(all, AngularVelocityConstraint{MaxAngVel: c.MaxAngVel})
	}
	return NewMinVelocityConstraint(append(all, c.Drive)...)
}

// AccelerationConstraint returns the combined acceleration limit.
func (c Constraints) AccelerationConstraint() AccelerationConstraint {
	var all []AccelerationConstraint
	if c.MaxAccel > 0 {
		all = append(all, TranslationalAccelerationConstraint{MaxAccel: c.MaxAccel})
	}
	if c.MaxAngAccel > 0 {
		all = append(all, AngularAccelerationConstraint{MaxAngAccel: c.MaxAngAccel})
	}
	return NewMinAccelerationConstraint(all...)
}

// Builder assembles a trajectory from lines, splines, turns and waits. Consecutive lines and
// splines form one path profiled from rest to rest. The first error stops further building and
// is returned by Build.
type Builder struct {
	constraints Constraints
	opts        []ProfileOption

	pose     spatialmath.Pose2d
	tangent  float64
	pending  *path.PathBuilder
	segments []Segment
	err      error
}

// NewBuilder starts a trajectory at start.
func NewBuilder(start spatialmath.Pose2d, constraints Constraints, opts ...ProfileOption) *Builder {
	return &Builder{
		constraints: constraints,
		opts:        opts,
		pose:        start,
		tangent:     start.Heading,
	}
}

func (b *Builder) pathBuilder() *path.PathBuilder {
	if b.pending == nil {
		b.pending = path.NewPathBuilderWithTangent(b.pose, b.tangent)
	}
	return b.pending
}

// flush profiles the pending path, if any.
func (b *Builder) flush() {
	if b.err != nil || b.pending == nil || b.pending.Len() == 0 {
		return
	}
	p, err := b.pending.Build()
	if err != nil {
		b.err = err
		return
	}
	seg, err := NewPathSegment(p, b.constraints.VelocityConstraint(), b.constraints.AccelerationConstraint(), b.opts...)
	if err != nil {
		b.err = errors.Wrapf(err, "segment %d", len(b.segments))
		return
	}
	b.segments = append(b.segments, seg)
	b.pose = seg.End()
	b.tangent = b.pending.Tangent()
	b.pending = nil
}

// LineTo drives in a straight line to end.
func (b *Builder) LineTo(end spatialmath.Vector2d, h path.HeadingInterpolation) *Builder {
	if b.err == nil {
		b.pathBuilder().LineTo(end, h)
	}
	return b
}

// SplineTo drives along a spline to end, arriving along endTangent.
func (b *Builder) SplineTo(end spatialmath.Vector2d, endTangent float64, h path.HeadingInterpolation) *Builder {
	if b.err == nil {
		b.pathBuilder().SplineTo(end, endTangent, h)
	}
	return b
}

// Turn rotates in place by angle radians, counter-clockwise positive.
func (b *Builder) Turn(angle float64) *Builder {
	b.flush()
	if b.err != nil {
		return b
	}
	maxAngVel, maxAngAccel := b.constraints.MaxAngVel, b.constraints.MaxAngAccel
	seg, err := NewTurnSegment(b.pose, angle, maxAngVel, maxAngAccel)
	if err != nil {
		b.err = errors.Wrapf(err, "segment %d", len(b.segments))
		return b
	}
	b.segments = append(b.segments, seg)
	b.pose = seg.End()
	b.tangent = b.pose.Heading
	return b
}

// Wait holds the current pose for seconds.
func (b *Builder) Wait(seconds float64) *Builder {
	b.flush()
	if b.err != nil {
		return b
	}
	seg, err := NewWaitSegment(b.pose, seconds)
	if err != nil {
		b.err = errors.Wrapf(err, "segment %d", len(b.segments))
		return b
	}
	b.segments = append(b.segments, seg)
	return b
}

// Build returns the finished trajectory.
func (b *Builder) Build() (*Trajectory, error) {
	b.flush()
	if b.err != nil {
		return nil, b.err
	}
	if len(b.segments) == 0 {
		return nil, errors.New("trajectory builder has no segments")
	}
	return NewTrajectory(b.segments...)
}

// TurnDuration returns the time a rest-to-rest turn of angle takes under c, or +Inf when c has no
// angular limits.
func (c Constraints) TurnDuration(angle float64) float64 {
	seg, err := NewTurnSegment(spatialmath.Pose2d{}, angle, c.MaxAngVel, c.MaxAngAccel)
	if err != nil {
		return math.Inf(1)
	}
	return seg.Duration()
}
