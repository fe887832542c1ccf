package path

import (
	"github.com/pkg/errors"

	"go.viam.com/drivetrain/spatialmath"
)

// PathSegment is one curve with its bound heading interpolator.
type PathSegment struct {
	Curve   ParametricCurve
	Heading HeadingInterpolator
}

// Length returns the arc length of the segment.
func (seg PathSegment) Length() float64 {
	return seg.Curve.Length()
}

// Path is an ordered sequence of segments addressed by total arc length. Queries outside
// [0, Length()] are clamped.
type Path struct {
	segments []PathSegment
	length   float64
}

// NewPath returns the path made of the given segments.
func NewPath(segments ...PathSegment) (*Path, error) {
	if len(segments) == 0 {
		return nil, errors.New("path needs at least one segment")
	}
	p := &Path{segments: segments}
	for _, seg := range segments {
		p.length += seg.Length()
	}
	return p, nil
}

// NewPointPath returns a zero-length path that holds pose.
func NewPointPath(pose spatialmath.Pose2d) *Path {
	curve := NewLineSegment(pose.Vec(), pose.Vec())
	return &Path{segments: []PathSegment{{
		Curve:   curve,
		Heading: &constantInterpolator{curve: curve, heading: spatialmath.NormalizeAngle(pose.Heading)},
	}}}
}

// Length returns the total arc length.
func (p *Path) Length() float64 {
	return p.length
}

// Segments returns the segments of the path.
func (p *Path) Segments() []PathSegment {
	return p.segments
}

func (p *Path) locate(s float64) (PathSegment, float64) {
	if s <= 0 {
		return p.segments[0], 0
	}
	for _, seg := range p.segments {
		if s <= seg.Length() {
			return seg, s
		}
		s -= seg.Length()
	}
	last := p.segments[len(p.segments)-1]
	return last, last.Length()
}

// Get returns the field-frame pose at arc length s.
func (p *Path) Get(s float64) spatialmath.Pose2d {
	seg, local := p.locate(s)
	return spatialmath.NewPose2dFromVec(seg.Curve.Get(local), seg.Heading.Get(local))
}

// Deriv returns dPose/ds at s.
func (p *Path) Deriv(s float64) spatialmath.Pose2d {
	seg, local := p.locate(s)
	return spatialmath.NewPose2dFromVec(seg.Curve.Deriv(local), seg.Heading.Deriv(local))
}

// SecondDeriv returns d²Pose/ds² at s.
func (p *Path) SecondDeriv(s float64) spatialmath.Pose2d {
	seg, local := p.locate(s)
	return spatialmath.NewPose2dFromVec(seg.Curve.SecondDeriv(local), seg.Heading.SecondDeriv(local))
}

// Curvature returns the signed curvature of the underlying curve at s.
func (p *Path) Curvature(s float64) float64 {
	seg, local := p.locate(s)
	return seg.Curve.TangentAngleDeriv(local)
}

// Start returns the pose at the beginning of the path.
func (p *Path) Start() spatialmath.Pose2d {
	return p.Get(0)
}

// End returns the pose at the end of the path.
func (p *Path) End() spatialmath.Pose2d {
	return p.Get(p.length)
}
