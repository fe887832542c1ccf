package trajectory

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/control"
	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/spatialmath"
)

// Segment is one timed piece of a trajectory. Times are local to the segment and clamped to
// [0, Duration()]; all values are in the field frame.
type Segment interface {
	Duration() float64
	Get(t float64) spatialmath.Pose2d
	Velocity(t float64) spatialmath.Pose2d
	Acceleration(t float64) spatialmath.Pose2d
	Start() spatialmath.Pose2d
	End() spatialmath.Pose2d
	// sampleTimes returns the times at which the segment's motion changes character.
	sampleTimes() []float64
}

func clampTime(t, duration float64) float64 {
	return math.Max(0, math.Min(t, duration))
}

// PathSegment follows a path under a velocity profile.
type PathSegment struct {
	path    *path.Path
	samples []profileSample
}

// NewPathSegment profiles p under the given constraints.
func NewPathSegment(
	p *path.Path, velC VelocityConstraint, accelC AccelerationConstraint, opts ...ProfileOption,
) (*PathSegment, error) {
	samples, err := generateSamples(p, velC, accelC, newProfileOptions(opts))
	if err != nil {
		return nil, err
	}
	return &PathSegment{path: p, samples: samples}, nil
}

// Path returns the profiled path.
func (seg *PathSegment) Path() *path.Path {
	return seg.path
}

// Duration implements Segment.
func (seg *PathSegment) Duration() float64 {
	return seg.samples[len(seg.samples)-1].t
}

// motionAt returns the arc length, path speed and path acceleration at t, assuming constant
// acceleration between samples.
func (seg *PathSegment) motionAt(t float64) (s, v, a float64) {
	t = clampTime(t, seg.Duration())
	i := sort.Search(len(seg.samples), func(i int) bool { return seg.samples[i].t > t }) - 1
	if i < 0 {
		i = 0
	}
	sample := seg.samples[i]
	dt := t - sample.t
	v = math.Max(0, sample.v+sample.a*dt)
	s = sample.s + sample.v*dt + 0.5*sample.a*dt*dt
	if i+1 < len(seg.samples) {
		s = math.Min(s, seg.samples[i+1].s)
	}
	return s, v, sample.a
}

// Get implements Segment.
func (seg *PathSegment) Get(t float64) spatialmath.Pose2d {
	s, _, _ := seg.motionAt(t)
	return seg.path.Get(s)
}

// Velocity implements Segment.
func (seg *PathSegment) Velocity(t float64) spatialmath.Pose2d {
	s, v, _ := seg.motionAt(t)
	return seg.path.Deriv(s).Mul(v)
}

// Acceleration implements Segment.
func (seg *PathSegment) Acceleration(t float64) spatialmath.Pose2d {
	s, v, a := seg.motionAt(t)
	return seg.path.SecondDeriv(s).Mul(v * v).Add(seg.path.Deriv(s).Mul(a))
}

// Start implements Segment.
func (seg *PathSegment) Start() spatialmath.Pose2d { return seg.path.Start() }

// End implements Segment.
func (seg *PathSegment) End() spatialmath.Pose2d { return seg.path.End() }

func (seg *PathSegment) sampleTimes() []float64 {
	times := make([]float64, len(seg.samples))
	for i, sample := range seg.samples {
		times[i] = sample.t
	}
	return times
}

// TurnSegment turns in place under a trapezoidal angular profile.
type TurnSegment struct {
	start   spatialmath.Pose2d
	profile *control.TrapezoidProfile
}

// NewTurnSegment turns by angle radians (counter-clockwise positive) from start.
func NewTurnSegment(start spatialmath.Pose2d, angle, maxAngVel, maxAngAccel float64) (*TurnSegment, error) {
	profile, err := control.NewTrapezoidProfile(angle, maxAngVel, maxAngAccel)
	if err != nil {
		return nil, errors.Wrap(err, "turn")
	}
	return &TurnSegment{start: start, profile: profile}, nil
}

// Duration implements Segment.
func (seg *TurnSegment) Duration() float64 { return seg.profile.Duration() }

// Get implements Segment.
func (seg *TurnSegment) Get(t float64) spatialmath.Pose2d {
	state := seg.profile.Get(t)
	return spatialmath.NewPose2d(seg.start.X, seg.start.Y, spatialmath.NormalizeAngle(seg.start.Heading+state.X))
}

// Velocity implements Segment.
func (seg *TurnSegment) Velocity(t float64) spatialmath.Pose2d {
	return spatialmath.NewPose2d(0, 0, seg.profile.Get(t).V)
}

// Acceleration implements Segment.
func (seg *TurnSegment) Acceleration(t float64) spatialmath.Pose2d {
	return spatialmath.NewPose2d(0, 0, seg.profile.Get(t).A)
}

// Start implements Segment.
func (seg *TurnSegment) Start() spatialmath.Pose2d { return seg.Get(0) }

// End implements Segment.
func (seg *TurnSegment) End() spatialmath.Pose2d { return seg.Get(seg.Duration()) }

func (seg *TurnSegment) sampleTimes() []float64 {
	return []float64{0, seg.Duration()}
}

// WaitSegment holds a pose for a fixed time.
type WaitSegment struct {
	pose     spatialmath.Pose2d
	duration float64
}

// NewWaitSegment holds pose for duration seconds.
func NewWaitSegment(pose spatialmath.Pose2d, duration float64) (*WaitSegment, error) {
	if duration < 0 {
		return nil, errors.Errorf("wait duration must not be negative, got %v", duration)
	}
	return &WaitSegment{pose: pose, duration: duration}, nil
}

// Duration implements Segment.
func (seg *WaitSegment) Duration() float64 { return seg.duration }

// Get implements Segment.
func (seg *WaitSegment) Get(t float64) spatialmath.Pose2d { return seg.pose }

// Velocity is always zero.
func (seg *WaitSegment) Velocity(t float64) spatialmath.Pose2d { return spatialmath.Pose2d{} }

// Acceleration is always zero.
func (seg *WaitSegment) Acceleration(t float64) spatialmath.Pose2d { return spatialmath.Pose2d{} }

// Start implements Segment.
func (seg *WaitSegment) Start() spatialmath.Pose2d { return seg.pose }

// End implements Segment.
func (seg *WaitSegment) End() spatialmath.Pose2d { return seg.pose }

func (seg *WaitSegment) sampleTimes() []float64 { return []float64{0, seg.duration} }

// Sample is the state of a trajectory at time T, in the field frame.
type Sample struct {
	T     float64
	Pose  spatialmath.Pose2d
	Vel   spatialmath.Pose2d
	Accel spatialmath.Pose2d
}

// Trajectory is a sequence of segments played back to back. Query times are clamped to
// [0, Duration()].
type Trajectory struct {
	segments []Segment
	// offsets[i] is the start time of segments[i].
	offsets  []float64
	duration float64
}

// NewTrajectory joins segments into a trajectory.
func NewTrajectory(segments ...Segment) (*Trajectory, error) {
	if len(segments) == 0 {
		return nil, errors.New("trajectory needs at least one segment")
	}
	traj := &Trajectory{segments: segments, offsets: make([]float64, len(segments))}
	for i, seg := range segments {
		traj.offsets[i] = traj.duration
		traj.duration += seg.Duration()
	}
	return traj, nil
}

// Duration returns the total time of the trajectory.
func (traj *Trajectory) Duration() float64 {
	return traj.duration
}

// Segments returns the segments of the trajectory.
func (traj *Trajectory) Segments() []Segment {
	return traj.segments
}

func (traj *Trajectory) locate(t float64) (Segment, float64) {
	t = clampTime(t, traj.duration)
	i := sort.Search(len(traj.offsets), func(i int) bool { return traj.offsets[i] > t }) - 1
	if i < 0 {
		i = 0
	}
	return traj.segments[i], t - traj.offsets[i]
}

// Get returns the pose at t.
func (traj *Trajectory) Get(t float64) spatialmath.Pose2d {
	seg, local := traj.locate(t)
	return seg.Get(local)
}

// Velocity returns the field-frame velocity at t.
func (traj *Trajectory) Velocity(t float64) spatialmath.Pose2d {
	seg, local := traj.locate(t)
	return seg.Velocity(local)
}

// Acceleration returns the field-frame acceleration at t.
func (traj *Trajectory) Acceleration(t float64) spatialmath.Pose2d {
	seg, local := traj.locate(t)
	return seg.Acceleration(local)
}

// Start returns the pose at the beginning of the trajectory.
func (traj *Trajectory) Start() spatialmath.Pose2d {
	return traj.segments[0].Start()
}

// End returns the pose at the end of the trajectory.
func (traj *Trajectory) End() spatialmath.Pose2d {
	return traj.segments[len(traj.segments)-1].End()
}

func (traj *Trajectory) sampleAt(t float64) Sample {
	return Sample{T: t, Pose: traj.Get(t), Vel: traj.Velocity(t), Accel: traj.Acceleration(t)}
}

// Samples returns the trajectory at every profile sample and segment boundary, in time order.
func (traj *Trajectory) Samples() []Sample {
	var out []Sample
	for i, seg := range traj.segments {
		for _, local := range seg.sampleTimes() {
			t := traj.offsets[i] + local
			if len(out) > 0 && t <= out[len(out)-1].T {
				continue
			}
			out = append(out, Sample{
				T:     t,
				Pose:  seg.Get(local),
				Vel:   seg.Velocity(local),
				Accel: seg.Acceleration(local),
			})
		}
	}
	if len(out) == 0 {
		out = append(out, traj.sampleAt(0))
	}
	return out
}

// SampleEvery returns the trajectory at a fixed period, always including the final time.
func (traj *Trajectory) SampleEvery(period float64) ([]Sample, error) {
	if period <= 0 {
		return nil, errors.Errorf("sample period must be positive, got %v", period)
	}
	n := int(math.Floor(traj.duration / period))
	out := make([]Sample, 0, n+2)
	for i := 0; i <= n; i++ {
		out = append(out, traj.sampleAt(float64(i)*period))
	}
	if last := out[len(out)-1].T; last < traj.duration {
		out = append(out, traj.sampleAt(traj.duration))
	}
	return out, nil
}
