package localization

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
)

// gearOrientations derives module orientations from gear rotations.
type gearOrientations struct {
	gears GearSensors
}

func (g gearOrientations) Orientations(ctx context.Context) ([]float64, error) {
	rotations, err := g.gears.Rotations(ctx)
	if err != nil {
		return nil, err
	}
	return kinematics.GearToModuleOrientations(rotations)
}

// DiffSwerveLocalizer tracks a differential swerve drive. Its encoders report the four gear
// positions and velocities in gear order.
type DiffSwerveLocalizer struct {
	odometry
	kinematics *kinematics.DiffSwerveKinematics
	gears      Encoders
	modules    ModuleSensors
}

// NewDiffSwerveLocalizer returns a localizer that reads module orientations from dedicated
// sensors. heading may be nil.
func NewDiffSwerveLocalizer(
	k *kinematics.DiffSwerveKinematics, gears Encoders, modules ModuleSensors, heading HeadingSensor, logger logging.Logger,
) *DiffSwerveLocalizer {
	return &DiffSwerveLocalizer{
		odometry:   odometry{logger: logger.Sublogger("diff_swerve"), heading: heading},
		kinematics: k,
		gears:      gears,
		modules:    modules,
	}
}

// NewDiffSwerveLocalizerFromGears returns a localizer that derives module orientations from the
// gear rotations. heading may be nil.
func NewDiffSwerveLocalizerFromGears(
	k *kinematics.DiffSwerveKinematics, gears Encoders, rotations GearSensors, heading HeadingSensor, logger logging.Logger,
) *DiffSwerveLocalizer {
	return NewDiffSwerveLocalizer(k, gears, gearOrientations{gears: rotations}, heading, logger)
}

// Update reads the gears, module orientations and heading sensor and advances the estimate.
func (l *DiffSwerveLocalizer) Update(ctx context.Context) error {
	gearPositions, err := l.gears.Positions(ctx)
	if err != nil {
		return errors.Wrap(err, "reading gear positions")
	}
	wheelPositions, err := kinematics.GearToWheelVelocities(gearPositions)
	if err != nil {
		return err
	}
	orientations, err := l.modules.Orientations(ctx)
	if err != nil {
		return errors.Wrap(err, "reading module orientations")
	}
	if err := checkCount("module orientations", orientations, 2); err != nil {
		return err
	}

	toRobot := func(deltas []float64) (spatialmath.Pose2d, error) {
		return l.kinematics.WheelToRobotVelocities(deltas, orientations)
	}
	velocity := func() (*spatialmath.Pose2d, error) {
		gearVels, err := wheelVelocities(ctx, l.gears, 4)
		if err != nil || gearVels == nil {
			return nil, err
		}
		wheelVels, err := kinematics.GearToWheelVelocities(gearVels)
		if err != nil {
			return nil, err
		}
		vel, err := l.kinematics.WheelToRobotVelocities(wheelVels, orientations)
		if err != nil {
			return nil, err
		}
		return &vel, nil
	}
	return l.step(ctx, wheelPositions, toRobot, velocity)
}
