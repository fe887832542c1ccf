package path

import (
	"github.com/pkg/errors"

	"go.viam.com/drivetrain/spatialmath"
)

// PathBuilder appends lines and splines to a path, keeping position, tangent and heading
// continuous between pieces. The first error stops further building and is returned by Build.
type PathBuilder struct {
	pos      spatialmath.Vector2d
	tangent  float64
	heading  float64
	segments []PathSegment
	err      error
}

// NewPathBuilder starts a path at start, leaving along its heading.
func NewPathBuilder(start spatialmath.Pose2d) *PathBuilder {
	return NewPathBuilderWithTangent(start, start.Heading)
}

// NewPathBuilderWithTangent starts a path at start, leaving along tangent.
func NewPathBuilderWithTangent(start spatialmath.Pose2d, tangent float64) *PathBuilder {
	return &PathBuilder{
		pos:     start.Vec(),
		tangent: spatialmath.NormalizeAngle(tangent),
		heading: spatialmath.NormalizeAngle(start.Heading),
	}
}

func (b *PathBuilder) add(curve ParametricCurve, h HeadingInterpolation) {
	interp, err := NewHeadingInterpolator(h, curve, b.heading)
	if err != nil {
		b.err = errors.Wrapf(err, "segment %d", len(b.segments))
		return
	}
	b.segments = append(b.segments, PathSegment{Curve: curve, Heading: interp})
	b.pos = curve.Get(curve.Length())
	b.heading = interp.End()
	if curve.Length() > 0 {
		b.tangent = curve.TangentAngle(curve.Length())
	}
}

// LineTo appends a straight segment to end.
func (b *PathBuilder) LineTo(end spatialmath.Vector2d, h HeadingInterpolation) *PathBuilder {
	if b.err != nil {
		return b
	}
	b.add(NewLineSegment(b.pos, end), h)
	return b
}

// SplineTo appends a quintic spline to end arriving along endTangent. Both tangent magnitudes
// are the chord length.
func (b *PathBuilder) SplineTo(end spatialmath.Vector2d, endTangent float64, h HeadingInterpolation) *PathBuilder {
	mag := b.pos.DistTo(end)
	return b.SplineToWithMagnitudes(end, endTangent, mag, mag, h)
}

// SplineToWithMagnitudes appends a quintic spline with explicit tangent magnitudes.
func (b *PathBuilder) SplineToWithMagnitudes(
	end spatialmath.Vector2d, endTangent, startMag, endMag float64, h HeadingInterpolation,
) *PathBuilder {
	if b.err != nil {
		return b
	}
	spl, err := NewQuinticSpline(NewKnot(b.pos, b.tangent, startMag), NewKnot(end, endTangent, endMag))
	if err != nil {
		b.err = errors.Wrapf(err, "segment %d", len(b.segments))
		return b
	}
	b.add(spl, h)
	return b
}

// Pose returns the pose at the current end of the path.
func (b *PathBuilder) Pose() spatialmath.Pose2d {
	return spatialmath.NewPose2dFromVec(b.pos, b.heading)
}

// Tangent returns the direction of travel at the current end of the path.
func (b *PathBuilder) Tangent() float64 {
	return b.tangent
}

// Len returns the number of segments added so far.
func (b *PathBuilder) Len() int {
	return len(b.segments)
}

// Build returns the finished path.
func (b *PathBuilder) Build() (*Path, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewPath(b.segments...)
}
