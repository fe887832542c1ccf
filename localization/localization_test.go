package localization

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
)

type fakeEncoders struct {
	positions  []float64
	velocities []float64
	err        error
}

func (f *fakeEncoders) Positions(ctx context.Context) ([]float64, error) {
	return f.positions, f.err
}

func (f *fakeEncoders) Velocities(ctx context.Context) ([]float64, error) {
	if f.velocities == nil {
		return nil, ErrUnavailable
	}
	return f.velocities, nil
}

type fakeHeading struct {
	heading float64
	rate    *float64
}

func (f *fakeHeading) Heading(ctx context.Context) (float64, error) {
	return f.heading, nil
}

func (f *fakeHeading) AngularVelocity(ctx context.Context) (float64, error) {
	if f.rate == nil {
		return 0, ErrUnavailable
	}
	return *f.rate, nil
}

type fakeModules struct {
	orientations []float64
}

func (f *fakeModules) Orientations(ctx context.Context) ([]float64, error) {
	return f.orientations, nil
}

type fakeGears struct {
	rotations []float64
}

func (f *fakeGears) Rotations(ctx context.Context) ([]float64, error) {
	return f.rotations, nil
}

func scale(xs []float64, k float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * k
	}
	return out
}

func TestTankStraightLine(t *testing.T) {
	ctx := context.Background()
	enc := &fakeEncoders{positions: []float64{0, 0}}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(0.5), enc, nil, logging.NewTestLogger(t))

	for i := 0; i <= 30; i++ {
		d := 0.1 * float64(i)
		enc.positions = []float64{d, d}
		test.That(t, loc.Update(ctx), test.ShouldBeNil)
	}
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(3, 0, 0), 1e-9), test.ShouldBeTrue)
}

func TestTankRotationInPlace(t *testing.T) {
	ctx := context.Background()
	const trackWidth, theta = 0.5, 4.0
	enc := &fakeEncoders{positions: []float64{0, 0}}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(trackWidth), enc, nil, logging.NewTestLogger(t))

	const ticks = 40
	for i := 0; i <= ticks; i++ {
		arc := theta * trackWidth / 2 * float64(i) / ticks
		enc.positions = []float64{-arc, arc}
		test.That(t, loc.Update(ctx), test.ShouldBeNil)
	}
	pose := loc.PoseEstimate()
	test.That(t, pose.Vec().AlmostEqual(spatialmath.Vector2d{}, 1e-9), test.ShouldBeTrue)
	test.That(t, pose.Heading, test.ShouldAlmostEqual, spatialmath.NormalizeAngle(theta), 1e-9)
}

func TestExternalHeadingOverride(t *testing.T) {
	ctx := context.Background()
	enc := &fakeEncoders{positions: []float64{0, 0}}
	heading := &fakeHeading{heading: 3.1}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(0.5), enc, heading, logging.NewTestLogger(t))
	loc.SetPoseEstimate(spatialmath.NewPose2d(0, 0, 3.1))

	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	// the wheels report no rotation but the sensor crosses the ±π boundary
	heading.heading = -3.1
	enc.positions = []float64{0.1, 0.1}
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	test.That(t, loc.PoseEstimate().Heading, test.ShouldAlmostEqual, -3.1, 1e-9)
}

func TestSetPoseEstimateClearsHistory(t *testing.T) {
	ctx := context.Background()
	enc := &fakeEncoders{positions: []float64{0, 0}, velocities: []float64{1, 1}}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(0.5), enc, nil, logging.NewTestLogger(t))

	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	enc.positions = []float64{1, 1}
	test.That(t, loc.Update(ctx), test.ShouldBeNil)

	loc.SetPoseEstimate(spatialmath.NewPose2d(5, 5, math.Pi/2))
	enc.positions = []float64{100, 100}
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(5, 5, math.Pi/2), 1e-12), test.ShouldBeTrue)

	enc.positions = []float64{101, 101}
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(5, 6, math.Pi/2), 1e-9), test.ShouldBeTrue)
}

func TestVelocityEstimate(t *testing.T) {
	ctx := context.Background()
	enc := &fakeEncoders{positions: []float64{0, 0}, velocities: []float64{1, 2}}
	heading := &fakeHeading{}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(0.5), enc, heading, logging.NewTestLogger(t))

	_, ok := loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	_, ok = loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	vel, ok := loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, vel.AlmostEqual(spatialmath.NewPose2d(1.5, 0, 2), 1e-12), test.ShouldBeTrue)

	rate := 0.25
	heading.rate = &rate
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	vel, ok = loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, vel.AlmostEqual(spatialmath.NewPose2d(1.5, 0, 0.25), 1e-12), test.ShouldBeTrue)

	enc.velocities = nil
	test.That(t, loc.Update(ctx), test.ShouldBeNil)
	_, ok = loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestLocalizerErrors(t *testing.T) {
	ctx := context.Background()
	enc := &fakeEncoders{positions: []float64{0, 0, 0}}
	loc := NewTankLocalizer(kinematics.NewTankKinematics(0.5), enc, nil, logging.NewTestLogger(t))
	test.That(t, loc.Update(ctx), test.ShouldNotBeNil)

	enc.positions = []float64{0, 0}
	enc.err = errors.New("bus fault")
	err := loc.Update(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bus fault")
}

func TestMecanumStrafe(t *testing.T) {
	ctx := context.Background()
	k, err := kinematics.NewMecanumKinematics(0.4, 0.3, 1.1)
	test.That(t, err, test.ShouldBeNil)
	strafe := k.RobotToWheelVelocities(spatialmath.NewPose2d(0, 1, 0))

	enc := &fakeEncoders{positions: make([]float64, 4)}
	loc := NewMecanumLocalizer(k, enc, nil, logging.NewTestLogger(t))
	for i := 0; i <= 20; i++ {
		enc.positions = scale(strafe, 0.1*float64(i))
		test.That(t, loc.Update(ctx), test.ShouldBeNil)
	}
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(0, 2, 0), 1e-9), test.ShouldBeTrue)
}

func TestSwerveLocalizer(t *testing.T) {
	ctx := context.Background()
	k := kinematics.NewRectangularSwerveKinematics(0.5, 0.5)
	enc := &fakeEncoders{positions: make([]float64, 4), velocities: []float64{1, 1, 1, 1}}
	modules := &fakeModules{orientations: []float64{math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 2}}
	loc := NewSwerveLocalizer(k, enc, modules, nil, logging.NewTestLogger(t))

	for i := 0; i <= 10; i++ {
		d := 0.2 * float64(i)
		enc.positions = []float64{d, d, d, d}
		test.That(t, loc.Update(ctx), test.ShouldBeNil)
	}
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(0, 2, 0), 1e-9), test.ShouldBeTrue)
	vel, ok := loc.PoseVelocity()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, vel.AlmostEqual(spatialmath.NewPose2d(0, 1, 0), 1e-9), test.ShouldBeTrue)

	modules.orientations = []float64{0}
	test.That(t, loc.Update(ctx), test.ShouldNotBeNil)
}

func TestDiffSwerveLocalizer(t *testing.T) {
	ctx := context.Background()
	k := kinematics.NewDiffSwerveKinematics(0.4)
	gears := &fakeEncoders{positions: make([]float64, 4)}
	// both modules steered to 0 by equal top and bottom rotations
	rotations := &fakeGears{rotations: []float64{0.3, -0.3, 0.3, -0.3}}
	loc := NewDiffSwerveLocalizerFromGears(k, gears, rotations, nil, logging.NewTestLogger(t))

	for i := 0; i <= 10; i++ {
		d := 0.1 * float64(i)
		gears.positions = []float64{d, -d, d, -d}
		test.That(t, loc.Update(ctx), test.ShouldBeNil)
	}
	test.That(t, loc.PoseEstimate().AlmostEqual(spatialmath.NewPose2d(1, 0, 0), 1e-9), test.ShouldBeTrue)

	var _ Localizer = loc
}
