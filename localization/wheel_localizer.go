package localization

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
)

// WheelLocalizer tracks a drive whose wheels are fixed to the chassis, such as a tank or mecanum
// drive.
type WheelLocalizer struct {
	odometry
	kinematics kinematics.WheelKinematics
	encoders   Encoders
}

// NewWheelLocalizer returns a localizer for any fixed-wheel drive. heading may be nil.
func NewWheelLocalizer(
	k kinematics.WheelKinematics, encoders Encoders, heading HeadingSensor, logger logging.Logger,
) *WheelLocalizer {
	return &WheelLocalizer{
		odometry:   odometry{logger: logger, heading: heading},
		kinematics: k,
		encoders:   encoders,
	}
}

// NewTankLocalizer returns a localizer for a tank drive. heading may be nil.
func NewTankLocalizer(
	k *kinematics.TankKinematics, encoders Encoders, heading HeadingSensor, logger logging.Logger,
) *WheelLocalizer {
	return NewWheelLocalizer(k, encoders, heading, logger.Sublogger("tank"))
}

// NewMecanumLocalizer returns a localizer for a mecanum drive. heading may be nil.
func NewMecanumLocalizer(
	k *kinematics.MecanumKinematics, encoders Encoders, heading HeadingSensor, logger logging.Logger,
) *WheelLocalizer {
	return NewWheelLocalizer(k, encoders, heading, logger.Sublogger("mecanum"))
}

// Update reads the encoders and heading sensor and advances the estimate.
func (l *WheelLocalizer) Update(ctx context.Context) error {
	n := l.kinematics.NumWheels()
	positions, err := l.encoders.Positions(ctx)
	if err != nil {
		return errors.Wrap(err, "reading wheel positions")
	}
	if err := checkCount("wheel positions", positions, n); err != nil {
		return err
	}
	return l.step(ctx, positions, l.kinematics.WheelToRobotVelocities, func() (*spatialmath.Pose2d, error) {
		vels, err := wheelVelocities(ctx, l.encoders, n)
		if err != nil || vels == nil {
			return nil, err
		}
		vel, err := l.kinematics.WheelToRobotVelocities(vels)
		if err != nil {
			return nil, err
		}
		return &vel, nil
	})
}
