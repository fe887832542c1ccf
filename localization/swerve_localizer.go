package localization

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
)

// SwerveLocalizer tracks a swerve drive from wheel positions and module orientations.
type SwerveLocalizer struct {
	odometry
	kinematics *kinematics.SwerveKinematics
	encoders   Encoders
	modules    ModuleSensors
}

// NewSwerveLocalizer returns a localizer for a swerve drive. heading may be nil.
func NewSwerveLocalizer(
	k *kinematics.SwerveKinematics, encoders Encoders, modules ModuleSensors, heading HeadingSensor, logger logging.Logger,
) *SwerveLocalizer {
	return &SwerveLocalizer{
		odometry:   odometry{logger: logger.Sublogger("swerve"), heading: heading},
		kinematics: k,
		encoders:   encoders,
		modules:    modules,
	}
}

// Update reads the encoders, module sensors and heading sensor and advances the estimate.
func (l *SwerveLocalizer) Update(ctx context.Context) error {
	n := l.kinematics.NumModules()
	positions, err := l.encoders.Positions(ctx)
	if err != nil {
		return errors.Wrap(err, "reading wheel positions")
	}
	if err := checkCount("wheel positions", positions, n); err != nil {
		return err
	}
	orientations, err := l.modules.Orientations(ctx)
	if err != nil {
		return errors.Wrap(err, "reading module orientations")
	}
	if err := checkCount("module orientations", orientations, n); err != nil {
		return err
	}
	return l.step(ctx, positions, swerveToRobot(l.kinematics, orientations), swerveVelocity(ctx, l.encoders, l.kinematics, orientations))
}

func swerveToRobot(k *kinematics.SwerveKinematics, orientations []float64) func([]float64) (spatialmath.Pose2d, error) {
	return func(deltas []float64) (spatialmath.Pose2d, error) {
		return k.WheelToRobotVelocities(deltas, orientations)
	}
}

func swerveVelocity(
	ctx context.Context, encoders Encoders, k *kinematics.SwerveKinematics, orientations []float64,
) func() (*spatialmath.Pose2d, error) {
	return func() (*spatialmath.Pose2d, error) {
		vels, err := wheelVelocities(ctx, encoders, k.NumModules())
		if err != nil || vels == nil {
			return nil, err
		}
		vel, err := k.WheelToRobotVelocities(vels, orientations)
		if err != nil {
			return nil, err
		}
		return &vel, nil
	}
}
