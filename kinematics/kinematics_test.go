package kinematics

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/drivetrain/control"
	"go.viam.com/drivetrain/spatialmath"
)

var robotVelocities = []spatialmath.Pose2d{
	spatialmath.NewPose2d(1, 0, 0),
	spatialmath.NewPose2d(0, 0, 2),
	spatialmath.NewPose2d(0.5, -0.3, 1.1),
	spatialmath.NewPose2d(-2, 1.5, -0.7),
}

func TestTankRoundTrip(t *testing.T) {
	for _, perSide := range []int{1, 2} {
		k := &TankKinematics{TrackWidth: 0.4, WheelsPerSide: perSide}
		for _, vel := range robotVelocities {
			wheels := k.RobotToWheelVelocities(vel)
			test.That(t, len(wheels), test.ShouldEqual, k.NumWheels())
			got, err := k.WheelToRobotVelocities(wheels)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got.X, test.ShouldAlmostEqual, vel.X, 1e-12)
			test.That(t, got.Y, test.ShouldEqual, 0.)
			test.That(t, got.Heading, test.ShouldAlmostEqual, vel.Heading, 1e-12)
		}
	}

	k := NewTankKinematics(0.5)
	test.That(t, k.RobotToWheelVelocities(spatialmath.NewPose2d(1, 0, 2)), test.ShouldResemble, []float64{0.5, 1.5})
	test.That(t, k.RobotToWheelAccelerations(spatialmath.NewPose2d(0, 0, 1)), test.ShouldResemble, []float64{-0.25, 0.25})

	_, err := k.WheelToRobotVelocities([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMecanum(t *testing.T) {
	k, err := NewMecanumKinematics(0.4, 0.3, 1.2)
	test.That(t, err, test.ShouldBeNil)

	wheels := k.RobotToWheelVelocities(spatialmath.NewPose2d(1, 0.5, 0.2))
	// k = (0.4 + 0.3) / 2
	test.That(t, wheels[0], test.ShouldAlmostEqual, 1-1.2*0.5-0.35*0.2, 1e-12)
	test.That(t, wheels[1], test.ShouldAlmostEqual, 1+1.2*0.5-0.35*0.2, 1e-12)
	test.That(t, wheels[2], test.ShouldAlmostEqual, 1-1.2*0.5+0.35*0.2, 1e-12)
	test.That(t, wheels[3], test.ShouldAlmostEqual, 1+1.2*0.5+0.35*0.2, 1e-12)

	for _, vel := range robotVelocities {
		got, err := k.WheelToRobotVelocities(k.RobotToWheelVelocities(vel))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.AlmostEqual(vel, 1e-9), test.ShouldBeTrue)
	}

	_, err = k.WheelToRobotVelocities([]float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSwerveRoundTrip(t *testing.T) {
	offset, err := NewSwerveKinematics([]spatialmath.Vector2d{{X: 1, Y: 0.5}, {X: 0.2, Y: 0.7}, {X: 0.4, Y: -0.3}})
	test.That(t, err, test.ShouldBeNil)

	for _, k := range []*SwerveKinematics{NewRectangularSwerveKinematics(0.5, 0.4), offset} {
		for _, vel := range robotVelocities {
			got, err := k.WheelToRobotVelocities(k.RobotToWheelVelocities(vel), k.RobotToModuleOrientations(vel))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got.AlmostEqual(vel, 1e-9), test.ShouldBeTrue)
		}
	}

	_, err = NewSwerveKinematics([]spatialmath.Vector2d{{X: 1}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = offset.WheelToRobotVelocities([]float64{1}, []float64{0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSwerveModules(t *testing.T) {
	k := NewRectangularSwerveKinematics(0.5, 0.4)
	test.That(t, k.ModulePositions()[0], test.ShouldResemble, spatialmath.NewVector2d(0.2, 0.25))

	// pure rotation points every module along its tangent
	orientations := k.RobotToModuleOrientations(spatialmath.NewPose2d(0, 0, 1))
	test.That(t, orientations[0], test.ShouldAlmostEqual, math.Atan2(0.2, -0.25), 1e-12)
	speeds := k.RobotToWheelVelocities(spatialmath.NewPose2d(0, 0, 1))
	for _, s := range speeds {
		test.That(t, s, test.ShouldAlmostEqual, math.Hypot(0.2, 0.25), 1e-12)
	}

	accels := k.RobotToWheelAccelerations(spatialmath.NewPose2d(1, 0, 0), spatialmath.NewPose2d(2, 0, 0))
	test.That(t, accels, test.ShouldResemble, []float64{2., 2., 2., 2.})
	accels = k.RobotToWheelAccelerations(spatialmath.Pose2d{}, spatialmath.NewPose2d(2, 0, 0))
	test.That(t, accels, test.ShouldResemble, []float64{0., 0., 0., 0.})

	rates := k.RobotToModuleAngularVelocities(spatialmath.NewPose2d(1, 0, 0), spatialmath.NewPose2d(0, 1, 0))
	for _, r := range rates {
		test.That(t, r, test.ShouldAlmostEqual, 1, 1e-12)
	}
}

func TestDiffSwerveGears(t *testing.T) {
	orientations, err := GearToModuleOrientations([]float64{0.2, 0.4, -0.1, -0.3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, orientations[0], test.ShouldAlmostEqual, 0.3, 1e-12)
	test.That(t, orientations[1], test.ShouldAlmostEqual, -0.2, 1e-12)

	wheels, err := GearToWheelVelocities([]float64{3, 1, 2, -2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wheels, test.ShouldResemble, []float64{1., 2.})

	_, err = GearToWheelVelocities([]float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)

	k := NewDiffSwerveKinematics(0.4)
	for _, vel := range robotVelocities {
		got, err := k.WheelToRobotVelocities(k.RobotToWheelVelocities(vel), k.RobotToModuleOrientations(vel))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.AlmostEqual(vel, 1e-9), test.ShouldBeTrue)
	}
}

func TestFacingDirection(t *testing.T) {
	test.That(t, FacingDirection(math.Pi/2, 0), test.ShouldEqual, 1.)
	test.That(t, FacingDirection(math.Pi/2+0.1, 0), test.ShouldEqual, -1.)
	test.That(t, FacingDirection(-3, 3), test.ShouldEqual, 1.)
	test.That(t, FacingDirection(0, math.Pi), test.ShouldEqual, -1.)
}

func TestDiffSwerveController(t *testing.T) {
	c := NewDiffSwerveController(
		NewDiffSwerveKinematics(0.4),
		control.PIDCoefficients{Kp: 1},
		control.FeedforwardCoefficients{KV: 1},
	)
	c.SetDriveSignal(DriveSignal{Vel: spatialmath.NewPose2d(1, 0, 0)})
	test.That(t, c.TargetOrientations(), test.ShouldResemble, []float64{0., 0.})

	t.Run("aligned", func(t *testing.T) {
		cmd, err := c.Update([]float64{0, 0, 0, 0}, 10*time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmd.Velocities, test.ShouldResemble, []float64{1., -1., 1., -1.})
		test.That(t, cmd.Powers, test.ShouldResemble, []float64{1., -1., 1., -1.})
	})

	t.Run("flipped", func(t *testing.T) {
		c := NewDiffSwerveController(NewDiffSwerveKinematics(0.4), control.PIDCoefficients{Kp: 1}, control.FeedforwardCoefficients{KV: 1})
		c.SetDriveSignal(DriveSignal{Vel: spatialmath.NewPose2d(1, 0, 0)})
		cmd, err := c.Update([]float64{math.Pi, math.Pi, math.Pi, math.Pi}, 10*time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		for i, want := range []float64{-1, 1, -1, 1} {
			test.That(t, cmd.Velocities[i], test.ShouldAlmostEqual, want, 1e-9)
		}
	})

	t.Run("steering", func(t *testing.T) {
		c := NewDiffSwerveController(NewDiffSwerveKinematics(0.4), control.PIDCoefficients{Kp: 1}, control.FeedforwardCoefficients{KV: 1})
		c.SetDriveSignal(DriveSignal{Vel: spatialmath.NewPose2d(1, 0, 0), Accel: spatialmath.NewPose2d(0.5, 0, 0)})
		cmd, err := c.Update([]float64{0.2, 0.2, 0.2, 0.2}, 10*time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		for i, want := range []float64{0.8, -1.2, 0.8, -1.2} {
			test.That(t, cmd.Velocities[i], test.ShouldAlmostEqual, want, 1e-9)
		}
		test.That(t, cmd.Accelerations, test.ShouldResemble, []float64{0.5, -0.5, 0.5, -0.5})
	})

	t.Run("stopped modules hold orientation", func(t *testing.T) {
		c := NewDiffSwerveController(NewDiffSwerveKinematics(0.4), control.PIDCoefficients{Kp: 1}, control.FeedforwardCoefficients{KV: 1})
		c.SetDriveSignal(DriveSignal{Vel: spatialmath.NewPose2d(0, 1, 0)})
		test.That(t, c.TargetOrientations()[0], test.ShouldAlmostEqual, math.Pi/2, 1e-12)
		test.That(t, c.TargetOrientations()[1], test.ShouldAlmostEqual, math.Pi/2, 1e-12)

		c.SetDriveSignal(DriveSignal{})
		test.That(t, c.TargetOrientations()[0], test.ShouldAlmostEqual, math.Pi/2, 1e-12)
		test.That(t, c.TargetOrientations()[1], test.ShouldAlmostEqual, math.Pi/2, 1e-12)

		// modules already at the held orientation get no command
		cmd, err := c.Update([]float64{math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 2}, 10*time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range cmd.Velocities {
			test.That(t, v, test.ShouldAlmostEqual, 0, 1e-9)
		}
	})

	_, err := c.Update([]float64{0}, time.Millisecond)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFrameTransforms(t *testing.T) {
	pose := spatialmath.NewPose2d(3, 4, math.Pi/2)
	robotVel := FieldToRobotVelocity(pose, spatialmath.NewPose2d(0, 1, 0.5))
	test.That(t, robotVel.AlmostEqual(spatialmath.NewPose2d(1, 0, 0.5), 1e-12), test.ShouldBeTrue)
	test.That(t, RobotToFieldVelocity(pose, robotVel).AlmostEqual(spatialmath.NewPose2d(0, 1, 0.5), 1e-12), test.ShouldBeTrue)

	robotErr := CalculateRobotPoseError(spatialmath.NewPose2d(1, 1, 0.1), spatialmath.NewPose2d(0, 0, math.Pi/2))
	test.That(t, robotErr.AlmostEqual(spatialmath.NewPose2d(1, -1, 0.1-math.Pi/2), 1e-12), test.ShouldBeTrue)

	fieldErr := CalculateFieldPoseError(spatialmath.NewPose2d(0, 0, math.Pi-0.1), spatialmath.NewPose2d(0, 0, -math.Pi+0.1))
	test.That(t, fieldErr.Heading, test.ShouldAlmostEqual, -0.2, 1e-12)
}

func TestFieldToRobotAcceleration(t *testing.T) {
	heading0, omega := 0.3, 0.8
	vel0 := spatialmath.NewVector2d(1.2, -0.4)
	accel := spatialmath.NewVector2d(0.5, 0.25)

	robotVelAt := func(dt float64) spatialmath.Pose2d {
		h := heading0 + omega*dt
		v := vel0.Add(accel.Mul(dt))
		return FieldToRobotVelocity(spatialmath.NewPose2d(0, 0, h), spatialmath.NewPose2dFromVec(v, omega))
	}
	const h = 1e-6
	numeric := robotVelAt(h).Sub(robotVelAt(-h)).Div(2 * h)

	got := FieldToRobotAcceleration(
		spatialmath.NewPose2d(0, 0, heading0),
		spatialmath.NewPose2dFromVec(vel0, omega),
		spatialmath.NewPose2dFromVec(accel, 0),
	)
	test.That(t, got.AlmostEqual(numeric, 1e-6), test.ShouldBeTrue)
}

func TestRelativeOdometryUpdate(t *testing.T) {
	straight := RelativeOdometryUpdate(spatialmath.NewPose2d(0, 0, math.Pi/2), spatialmath.NewPose2d(1, 0, 0))
	test.That(t, straight.AlmostEqual(spatialmath.NewPose2d(0, 1, math.Pi/2), 1e-12), test.ShouldBeTrue)

	// a quarter turn along a unit circle
	arc := RelativeOdometryUpdate(spatialmath.Pose2d{}, spatialmath.NewPose2d(math.Pi/2, 0, math.Pi/2))
	test.That(t, arc.AlmostEqual(spatialmath.NewPose2d(1, 1, math.Pi/2), 1e-12), test.ShouldBeTrue)

	tiny := RelativeOdometryUpdate(spatialmath.Pose2d{}, spatialmath.NewPose2d(1, 0, 1e-9))
	test.That(t, tiny.AlmostEqual(spatialmath.NewPose2d(1, 5e-10, 1e-9), 1e-12), test.ShouldBeTrue)

	wrapped := RelativeOdometryUpdate(spatialmath.NewPose2d(0, 0, 3), spatialmath.NewPose2d(0, 0, 0.5))
	test.That(t, wrapped.Heading, test.ShouldAlmostEqual, 3.5-2*math.Pi, 1e-12)
}
