package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/drivetrain/control"
	"go.viam.com/drivetrain/followers"
	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/localization"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

func TestTankBaseIntegratesArcs(t *testing.T) {
	ctx := context.Background()
	base := NewTankBase(kinematics.NewTankKinematics(0.5), spatialmath.Pose2d{})
	for i := 0; i < 100; i++ {
		base.Step(spatialmath.NewPose2d(1, 0.5, 0.5), 0.01)
	}

	expected := spatialmath.NewPose2d(2*math.Sin(0.5), 2*(1-math.Cos(0.5)), 0.5)
	test.That(t, base.Pose().AlmostEqual(expected, 1e-9), test.ShouldBeTrue)
	test.That(t, base.Velocity().AlmostEqual(spatialmath.NewPose2d(1, 0, 0.5), 1e-12), test.ShouldBeTrue)

	positions, err := base.Positions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldHaveLength, 2)
	test.That(t, positions[0], test.ShouldAlmostEqual, 0.875, 1e-9)
	test.That(t, positions[1], test.ShouldAlmostEqual, 1.125, 1e-9)

	heading, err := base.Heading(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, heading, test.ShouldAlmostEqual, 0.5, 1e-9)
	rate, err := base.AngularVelocity(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rate, test.ShouldAlmostEqual, 0.5)
}

func TestSwerveBaseOrientations(t *testing.T) {
	ctx := context.Background()
	base := NewSwerveBase(kinematics.NewRectangularSwerveKinematics(0.5, 0.5), spatialmath.Pose2d{})

	base.Step(spatialmath.NewPose2d(0, 1, 0), 1)
	orientations, err := base.Orientations(ctx)
	test.That(t, err, test.ShouldBeNil)
	for _, o := range orientations {
		test.That(t, o, test.ShouldAlmostEqual, math.Pi/2, 1e-12)
	}

	// stopping keeps the modules where they were
	base.Step(spatialmath.Pose2d{}, 1)
	orientations, err = base.Orientations(ctx)
	test.That(t, err, test.ShouldBeNil)
	for _, o := range orientations {
		test.That(t, o, test.ShouldAlmostEqual, math.Pi/2, 1e-12)
	}
	test.That(t, base.Pose().AlmostEqual(spatialmath.NewPose2d(0, 1, 0), 1e-12), test.ShouldBeTrue)
}

func TestDiffSwerveBaseGears(t *testing.T) {
	ctx := context.Background()
	base, err := NewDiffSwerveBase(kinematics.NewDiffSwerveKinematics(0.4), spatialmath.Pose2d{})
	test.That(t, err, test.ShouldBeNil)

	base.Step(spatialmath.NewPose2d(1, 0, 0), 1)
	gears, err := base.Positions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gears, test.ShouldHaveLength, 4)
	for i, want := range []float64{1, -1, 1, -1} {
		test.That(t, gears[i], test.ShouldAlmostEqual, want, 1e-12)
	}

	base.Step(spatialmath.NewPose2d(0, 1, 0), 1)
	rotations, err := base.Rotations(ctx)
	test.That(t, err, test.ShouldBeNil)
	modules, err := kinematics.GearToModuleOrientations(rotations)
	test.That(t, err, test.ShouldBeNil)
	wheels, err := kinematics.GearToWheelVelocities(rotations)
	test.That(t, err, test.ShouldBeNil)
	for i := range modules {
		test.That(t, modules[i], test.ShouldAlmostEqual, math.Pi/2, 1e-12)
		test.That(t, wheels[i], test.ShouldAlmostEqual, 2, 1e-12)
	}

	vels, err := base.Velocities(ctx)
	test.That(t, err, test.ShouldBeNil)
	wheelVels, err := kinematics.GearToWheelVelocities(vels)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wheelVels[0], test.ShouldAlmostEqual, 1, 1e-12)
}

func demoTrajectory(t *testing.T) *trajectory.Trajectory {
	t.Helper()
	constraints := trajectory.Constraints{MaxVel: 1, MaxAccel: 1, MaxAngVel: 2, MaxAngAccel: 2}
	traj, err := trajectory.NewBuilder(spatialmath.Pose2d{}, constraints).
		LineTo(spatialmath.NewVector2d(2, 0), path.TangentHeading{}).
		Turn(math.Pi/2).
		LineTo(spatialmath.NewVector2d(2, 1.5), path.TangentHeading{}).
		Build()
	test.That(t, err, test.ShouldBeNil)
	return traj
}

func TestClosedLoop(t *testing.T) {
	gains := control.PIDCoefficients{Kp: 5}
	admissible := spatialmath.NewPose2d(0.02, 0.02, 0.02)

	mecanum, err := kinematics.NewMecanumKinematics(0.4, 0.3, 1)
	test.That(t, err, test.ShouldBeNil)
	diffSwerve := kinematics.NewDiffSwerveKinematics(0.4)
	swerve := kinematics.NewRectangularSwerveKinematics(0.4, 0.3)
	tank := kinematics.NewTankKinematics(0.4)

	for _, tc := range []struct {
		name  string
		setup func(t *testing.T, clk clock.Clock, logger logging.Logger) (*Base, localization.Localizer, followers.Follower)
	}{
		{
			"tank",
			func(t *testing.T, clk clock.Clock, logger logging.Logger) (*Base, localization.Localizer, followers.Follower) {
				base := NewTankBase(tank, spatialmath.Pose2d{})
				return base,
					localization.NewTankLocalizer(tank, base, base, logger),
					followers.NewTankPIDVAFollower(gains, gains, admissible, time.Second, clk, logger)
			},
		},
		{
			"mecanum",
			func(t *testing.T, clk clock.Clock, logger logging.Logger) (*Base, localization.Localizer, followers.Follower) {
				base := NewMecanumBase(mecanum, spatialmath.Pose2d{})
				return base,
					localization.NewMecanumLocalizer(mecanum, base, nil, logger),
					followers.NewHolonomicPIDVAFollower(gains, gains, gains, admissible, time.Second, clk, logger)
			},
		},
		{
			"swerve",
			func(t *testing.T, clk clock.Clock, logger logging.Logger) (*Base, localization.Localizer, followers.Follower) {
				base := NewSwerveBase(swerve, spatialmath.Pose2d{})
				return base,
					localization.NewSwerveLocalizer(swerve, base, base, base, logger),
					followers.NewHolonomicPIDVAFollower(gains, gains, gains, admissible, time.Second, clk, logger)
			},
		},
		{
			"diff swerve",
			func(t *testing.T, clk clock.Clock, logger logging.Logger) (*Base, localization.Localizer, followers.Follower) {
				base, err := NewDiffSwerveBase(diffSwerve, spatialmath.Pose2d{})
				test.That(t, err, test.ShouldBeNil)
				return base,
					localization.NewDiffSwerveLocalizerFromGears(diffSwerve, base, base, nil, logger),
					followers.NewHolonomicPIDVAFollower(gains, gains, gains, admissible, time.Second, clk, logger)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clk := clock.NewMock()
			logger := logging.NewTestLogger(t)
			base, localizer, follower := tc.setup(t, clk, logger)
			traj := demoTrajectory(t)

			s := &Simulation{Base: base, Localizer: localizer, Follower: follower, Clock: clk, Logger: logger}
			result, err := s.Run(context.Background(), traj)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, result.Finished, test.ShouldBeTrue)
			test.That(t, result.Elapsed.Seconds(), test.ShouldBeGreaterThanOrEqualTo, traj.Duration()-DefaultPeriod.Seconds())
			test.That(t, result.PositionError.Max, test.ShouldBeLessThan, 0.05)
			test.That(t, result.PositionError.Mean, test.ShouldBeLessThanOrEqualTo, result.PositionError.Max)
			test.That(t, result.FinalError.Vec().Norm(), test.ShouldBeLessThan, 0.05)
			test.That(t, result.FinalEstimate.AlmostEqual(result.FinalPose, 1e-6), test.ShouldBeTrue)
			test.That(t, result.MaxWheelSpeed, test.ShouldBeGreaterThan, 0)
		})
	}
}

func newWaitSimulation(t *testing.T, clk clock.Clock, seconds float64) (*Simulation, *trajectory.Trajectory) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	tank := kinematics.NewTankKinematics(0.4)
	base := NewTankBase(tank, spatialmath.Pose2d{})
	gains := control.PIDCoefficients{Kp: 1}
	seg, err := trajectory.NewWaitSegment(spatialmath.Pose2d{}, seconds)
	test.That(t, err, test.ShouldBeNil)
	traj, err := trajectory.NewTrajectory(seg)
	test.That(t, err, test.ShouldBeNil)
	return &Simulation{
		Base:      base,
		Localizer: localization.NewTankLocalizer(tank, base, nil, logger),
		Follower:  followers.NewTankPIDVAFollower(gains, gains, spatialmath.Pose2d{}, 0, clk, logger),
		Clock:     clk,
		Logger:    logger,
	}, traj
}

func TestRealtimeClock(t *testing.T) {
	s, traj := newWaitSimulation(t, clock.New(), 0.05)
	result, err := s.Run(context.Background(), traj)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Finished, test.ShouldBeTrue)
	test.That(t, result.Elapsed, test.ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
}

func TestRunStops(t *testing.T) {
	t.Run("tick limit", func(t *testing.T) {
		s, traj := newWaitSimulation(t, clock.NewMock(), 1)
		s.MaxTicks = 3
		_, err := s.Run(context.Background(), traj)
		test.That(t, errors.Is(err, ErrTickLimit), test.ShouldBeTrue)
	})
	t.Run("canceled", func(t *testing.T) {
		s, traj := newWaitSimulation(t, clock.NewMock(), 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Run(ctx, traj)
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	})
}
