package trajectory

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/spatialmath"
)

// Sampling defaults, in path length units and radians.
const (
	DefaultResolution     = 0.25
	DefaultMaxSagitta     = 0.005
	DefaultMaxHeadingStep = math.Pi / 36
)

// minStepFraction bounds the adaptive step from below as a fraction of the resolution.
const minStepFraction = 1e-3

type profileOptions struct {
	resolution     float64
	maxSagitta     float64
	maxHeadingStep float64
	startVel       float64
	endVel         float64
	baseRobotVel   spatialmath.Pose2d
	logger         logging.Logger
}

// ProfileOption configures GenerateProfile.
type ProfileOption func(*profileOptions)

// WithResolution sets the largest arc length step between samples.
func WithResolution(ds float64) ProfileOption {
	return func(o *profileOptions) { o.resolution = ds }
}

// WithMaxSagitta bounds the distance between the path and the chord joining two samples, which
// shortens the step on tight curves.
func WithMaxSagitta(sagitta float64) ProfileOption {
	return func(o *profileOptions) { o.maxSagitta = sagitta }
}

// WithMaxHeadingStep bounds the heading change between two samples.
func WithMaxHeadingStep(radians float64) ProfileOption {
	return func(o *profileOptions) { o.maxHeadingStep = radians }
}

// WithStartVelocity starts the profile at the given path speed instead of rest.
func WithStartVelocity(v float64) ProfileOption {
	return func(o *profileOptions) { o.startVel = v }
}

// WithEndVelocity ends the profile at the given path speed instead of rest.
func WithEndVelocity(v float64) ProfileOption {
	return func(o *profileOptions) { o.endVel = v }
}

// WithBaseRobotVelocity sets robot-frame motion the drive carries on top of the path, such as a
// constant spin while translating. Wheel constraints reserve wheel speed for it and fail with
// ErrUnsatisfiableConstraint when it alone saturates a wheel.
func WithBaseRobotVelocity(vel spatialmath.Pose2d) ProfileOption {
	return func(o *profileOptions) { o.baseRobotVel = vel }
}

// WithLogger sets the logger used to report generated profiles.
func WithLogger(logger logging.Logger) ProfileOption {
	return func(o *profileOptions) { o.logger = logger }
}

func newProfileOptions(opts []ProfileOption) profileOptions {
	o := profileOptions{
		resolution:     DefaultResolution,
		maxSagitta:     DefaultMaxSagitta,
		maxHeadingStep: DefaultMaxHeadingStep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewBlankLogger("profile")
	}
	return o
}

// profileSample is one point of a profiled path. a is the constant acceleration used from this
// sample to the next.
type profileSample struct {
	s, v, a, t float64
}

// GenerateProfile profiles p under the given constraints and returns a single segment trajectory.
func GenerateProfile(
	p *path.Path, velC VelocityConstraint, accelC AccelerationConstraint, opts ...ProfileOption,
) (*Trajectory, error) {
	seg, err := NewPathSegment(p, velC, accelC, opts...)
	if err != nil {
		return nil, err
	}
	return NewTrajectory(seg)
}

// stepAt returns the arc length step to take from s.
func (o profileOptions) stepAt(p *path.Path, s float64) float64 {
	ds := o.resolution
	if k := math.Abs(p.Curvature(s)); k > 0 && o.maxSagitta > 0 {
		ds = math.Min(ds, math.Sqrt(8*o.maxSagitta/k))
	}
	if w := math.Abs(p.Deriv(s).Heading); w > 0 && o.maxHeadingStep > 0 {
		ds = math.Min(ds, o.maxHeadingStep/w)
	}
	return math.Max(ds, minStepFraction*o.resolution)
}

func (o profileOptions) sampleArcLengths(p *path.Path) []float64 {
	length := p.Length()
	s := []float64{0}
	for last := 0.0; last < length; {
		last = math.Min(length, last+o.stepAt(p, last))
		s = append(s, last)
	}
	return s
}

func atArcLength(err error, kind ConstraintKind, s float64) error {
	if !errors.Is(err, ErrUnsatisfiableConstraint) {
		err = errors.Wrap(ErrUnsatisfiableConstraint, err.Error())
	}
	return errors.Wrapf(err, "%s at s=%.4f", kind, s)
}

// speedSquared is the squared path speed as an affine function of arc length on one sample
// interval: v² = at + slope*(s - from).
type speedSquared struct {
	from, at, slope float64
}

func (l speedSquared) eval(s float64) float64 {
	return l.at + l.slope*(s-l.from)
}

func (l speedSquared) finite() bool {
	return !math.IsInf(l.at, 0) && !math.IsInf(l.slope, 0) && !math.IsNaN(l.at) && !math.IsNaN(l.slope)
}

// breakpoints returns the arc lengths strictly inside (s0, s1) where the lower envelope of lines
// may change from one line to another, with the envelope speed there. Between consecutive
// breakpoints the envelope is affine in s, so constant acceleration is exact on it.
func breakpoints(s0, s1 float64, lines []speedSquared) []profileSample {
	lines = lo.Filter(lines, func(l speedSquared, _ int) bool { return l.finite() })
	eps := 1e-9 * (s1 - s0)
	var out []profileSample
	for i := range lines {
		for j := i + 1; j < len(lines); j++ {
			dSlope := lines[i].slope - lines[j].slope
			if dSlope == 0 {
				continue
			}
			s := s0 + (lines[j].eval(s0)-lines[i].eval(s0))/dSlope
			if s <= s0+eps || s >= s1-eps {
				continue
			}
			out = append(out, profileSample{s: s})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].s < out[j].s })
	for i := range out {
		vv := lo.Min(lo.Map(lines, func(l speedSquared, _ int) float64 { return l.eval(out[i].s) }))
		out[i].v = math.Sqrt(math.Max(0, vv))
	}
	return out
}

// generateSamples runs the forward and backward passes over the sampled path.
func generateSamples(
	p *path.Path, velC VelocityConstraint, accelC AccelerationConstraint, o profileOptions,
) ([]profileSample, error) {
	if o.resolution <= 0 {
		return nil, errors.Errorf("profile resolution must be positive, got %v", o.resolution)
	}
	if p.Length() == 0 {
		return []profileSample{{}}, nil
	}

	arc := o.sampleArcLengths(p)
	n := len(arc)
	states := make([]ConstraintState, n)
	maxVel := make([]float64, n)
	for i, s := range arc {
		states[i] = ConstraintState{Pose: p.Get(s), Deriv: p.Deriv(s), BaseRobotVel: o.baseRobotVel}
		if i > 0 {
			states[i].LastDeriv = states[i-1].Deriv
			states[i].Ds = s - arc[i-1]
		} else {
			states[i].LastDeriv = states[i].Deriv
		}
		v, err := velC.MaxVelocity(states[i])
		if err != nil {
			return nil, atArcLength(err, velC.Kind(), s)
		}
		if !(v > 0) {
			return nil, errors.Wrapf(ErrUnsatisfiableConstraint, "%s bound is %v at s=%.4f", velC.Kind(), v, s)
		}
		maxVel[i] = v
	}

	maxAccel := func(i int, vel float64) (float64, error) {
		state := states[i]
		state.Vel = vel
		a, err := accelC.MaxAcceleration(state)
		if err != nil {
			return 0, atArcLength(err, accelC.Kind(), arc[i])
		}
		return a, nil
	}

	// forwardAccel[i] is the acceleration used leaving sample i, backwardAccel[i] the
	// deceleration used arriving at it.
	forward := make([]float64, n)
	forwardAccel := make([]float64, n)
	forward[0] = math.Min(o.startVel, maxVel[0])
	for i := 1; i < n; i++ {
		a, err := maxAccel(i-1, forward[i-1])
		if err != nil {
			return nil, err
		}
		forwardAccel[i-1] = a
		forward[i] = math.Min(maxVel[i], math.Sqrt(forward[i-1]*forward[i-1]+2*a*(arc[i]-arc[i-1])))
	}

	backward := make([]float64, n)
	backwardAccel := make([]float64, n)
	backward[n-1] = math.Min(o.endVel, maxVel[n-1])
	for i := n - 2; i >= 0; i-- {
		a, err := maxAccel(i+1, backward[i+1])
		if err != nil {
			return nil, err
		}
		backwardAccel[i+1] = a
		backward[i] = math.Min(maxVel[i], math.Sqrt(backward[i+1]*backward[i+1]+2*a*(arc[i+1]-arc[i])))
	}

	samples := make([]profileSample, 0, n)
	for i := range arc {
		v := math.Min(forward[i], backward[i])
		if math.IsInf(v, 1) {
			return nil, errors.Wrapf(ErrUnboundedProfile, "at s=%.4f", arc[i])
		}
		samples = append(samples, profileSample{s: arc[i], v: v})
		if i == n-1 {
			break
		}
		// Within an interval the speed is bounded by accelerating out of sample i, braking into
		// sample i+1 and the velocity limit interpolated between the two. Their crossings are
		// the points where the motion switches phase.
		ds := arc[i+1] - arc[i]
		for _, bp := range breakpoints(arc[i], arc[i+1], []speedSquared{
			{from: arc[i], at: forward[i] * forward[i], slope: 2 * forwardAccel[i]},
			{from: arc[i], at: backward[i+1]*backward[i+1] + 2*backwardAccel[i+1]*ds, slope: -2 * backwardAccel[i+1]},
			{from: arc[i], at: maxVel[i] * maxVel[i], slope: (maxVel[i+1]*maxVel[i+1] - maxVel[i]*maxVel[i]) / ds},
		}) {
			state := ConstraintState{
				Pose:         p.Get(bp.s),
				Deriv:        p.Deriv(bp.s),
				LastDeriv:    states[i].Deriv,
				Ds:           bp.s - arc[i],
				BaseRobotVel: o.baseRobotVel,
			}
			limit, err := velC.MaxVelocity(state)
			if err != nil {
				return nil, atArcLength(err, velC.Kind(), bp.s)
			}
			bp.v = math.Min(bp.v, limit)
			samples = append(samples, bp)
		}
	}

	n = len(samples)
	dts := make([]float64, n)
	for i := 0; i < n-1; i++ {
		ds := samples[i+1].s - samples[i].s
		vSum := samples[i].v + samples[i+1].v
		if vSum <= 0 {
			return nil, errors.Wrapf(ErrUnsatisfiableConstraint, "profile stalls at s=%.4f", samples[i].s)
		}
		samples[i].a = (samples[i+1].v*samples[i+1].v - samples[i].v*samples[i].v) / (2 * ds)
		dts[i+1] = 2 * ds / vSum
	}
	samples[n-1].a = samples[n-2].a

	times := floats.CumSum(make([]float64, n), dts)
	for i := range samples {
		samples[i].t = times[i]
	}
	o.logger.Debugw("generated profile", "length", p.Length(), "samples", n, "duration", times[n-1])
	return samples, nil
}
