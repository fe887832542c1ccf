// Package localization estimates a robot's field pose and velocity from wheel odometry and an
// optional heading sensor.
package localization

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
)

// ErrUnavailable is returned by a sensor that does not provide an optional reading. Localizers
// treat it as an absent value rather than a failure.
var ErrUnavailable = errors.New("reading unavailable")

// Encoders report wheel (or gear) positions and velocities in linear distance units.
type Encoders interface {
	Positions(ctx context.Context) ([]float64, error)
	Velocities(ctx context.Context) ([]float64, error)
}

// HeadingSensor reports an absolute heading in radians and its rate.
type HeadingSensor interface {
	Heading(ctx context.Context) (float64, error)
	AngularVelocity(ctx context.Context) (float64, error)
}

// ModuleSensors report the steering angle of each swerve module.
type ModuleSensors interface {
	Orientations(ctx context.Context) ([]float64, error)
}

// GearSensors report the total rotation of each differential swerve gear.
type GearSensors interface {
	Rotations(ctx context.Context) ([]float64, error)
}

// A Localizer tracks the robot pose. Update must be called once per control tick before the pose
// is read.
type Localizer interface {
	PoseEstimate() spatialmath.Pose2d
	// SetPoseEstimate overwrites the pose and discards the previous readings.
	SetPoseEstimate(pose spatialmath.Pose2d)
	// PoseVelocity returns the robot-frame velocity, if one has been measured.
	PoseVelocity() (spatialmath.Pose2d, bool)
	Update(ctx context.Context) error
}

func optional(v float64, err error) (*float64, error) {
	if errors.Is(err, ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// wheelReading is one set of wheel positions.
type wheelReading struct {
	positions []float64
}

// odometry is the update protocol shared by every drivetrain.
type odometry struct {
	logger  logging.Logger
	heading HeadingSensor

	pose        spatialmath.Pose2d
	vel         *spatialmath.Pose2d
	lastWheels  *wheelReading
	lastHeading *float64
}

func (o *odometry) PoseEstimate() spatialmath.Pose2d {
	return o.pose
}

func (o *odometry) SetPoseEstimate(pose spatialmath.Pose2d) {
	o.lastWheels = nil
	o.lastHeading = nil
	o.pose = spatialmath.NewPose2d(pose.X, pose.Y, spatialmath.NormalizeAngle(pose.Heading))
	o.logger.Debugw("pose estimate reset", "pose", o.pose.String())
}

func (o *odometry) PoseVelocity() (spatialmath.Pose2d, bool) {
	if o.vel == nil {
		return spatialmath.Pose2d{}, false
	}
	return *o.vel, true
}

// step runs one tick given the current wheel positions. toRobot converts wheel deltas to a
// robot-frame pose delta; velocity returns the wheel-derived robot velocity or nil when the wheel
// velocities are unavailable.
func (o *odometry) step(
	ctx context.Context,
	positions []float64,
	toRobot func(deltas []float64) (spatialmath.Pose2d, error),
	velocity func() (*spatialmath.Pose2d, error),
) error {
	var extHeading, extHeadingVel *float64
	if o.heading != nil {
		var err error
		if extHeading, err = optional(o.heading.Heading(ctx)); err != nil {
			return errors.Wrap(err, "reading heading")
		}
		if extHeadingVel, err = optional(o.heading.AngularVelocity(ctx)); err != nil {
			return errors.Wrap(err, "reading angular velocity")
		}
	}

	if o.lastWheels != nil {
		last := o.lastWheels.positions
		if len(last) != len(positions) {
			return errors.Errorf("got %d wheel positions, previous tick had %d", len(positions), len(last))
		}
		deltas := lo.ZipBy2(positions, last, func(cur, prev float64) float64 { return cur - prev })
		delta, err := toRobot(deltas)
		if err != nil {
			return err
		}
		if extHeading != nil && o.lastHeading != nil {
			delta.Heading = spatialmath.AngleDelta(*extHeading, *o.lastHeading)
		}
		o.pose = kinematics.RelativeOdometryUpdate(o.pose, delta)

		vel, err := velocity()
		if err != nil {
			return errors.Wrap(err, "reading wheel velocities")
		}
		if vel != nil && extHeadingVel != nil {
			vel.Heading = *extHeadingVel
		}
		o.vel = vel
	}

	o.lastWheels = &wheelReading{positions: append([]float64(nil), positions...)}
	o.lastHeading = extHeading
	o.logger.CDebugw(ctx, "odometry update", "pose", o.pose.String())
	return nil
}

func checkCount(what string, values []float64, want int) error {
	if len(values) != want {
		return errors.Errorf("expected %d %s, got %d", want, what, len(values))
	}
	return nil
}

// wheelVelocities reads optional encoder velocities.
func wheelVelocities(ctx context.Context, encoders Encoders, want int) ([]float64, error) {
	vels, err := encoders.Velocities(ctx)
	if errors.Is(err, ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := checkCount("wheel velocities", vels, want); err != nil {
		return nil, err
	}
	return vels, nil
}
