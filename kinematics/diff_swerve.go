package kinematics

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/control"
	"go.viam.com/drivetrain/spatialmath"
)

// Gear order for differential swerve drives.
const (
	LeftTopGear = iota
	LeftBottomGear
	RightTopGear
	RightBottomGear
	numGears
)

// DiffSwerveKinematics describes two steerable modules on the robot's lateral axis, each driven
// by a top and a bottom gear. Turning both gears the same way steers the module; turning them
// opposite ways drives the wheel. Module values are ordered left, right.
type DiffSwerveKinematics struct {
	TrackWidth float64
	swerve     *SwerveKinematics
}

// NewDiffSwerveKinematics places the modules at (0, ±trackWidth/2).
func NewDiffSwerveKinematics(trackWidth float64) *DiffSwerveKinematics {
	swerve, err := NewSwerveKinematics([]spatialmath.Vector2d{
		{Y: trackWidth / 2},
		{Y: -trackWidth / 2},
	})
	if err != nil {
		swerve = &SwerveKinematics{modulePositions: make([]spatialmath.Vector2d, 2)}
	}
	return &DiffSwerveKinematics{TrackWidth: trackWidth, swerve: swerve}
}

// RobotToWheelVelocities returns the left and right wheel speeds.
func (k *DiffSwerveKinematics) RobotToWheelVelocities(robotVel spatialmath.Pose2d) []float64 {
	return k.swerve.RobotToWheelVelocities(robotVel)
}

// RobotToWheelAccelerations returns the left and right wheel accelerations.
func (k *DiffSwerveKinematics) RobotToWheelAccelerations(robotVel, robotAccel spatialmath.Pose2d) []float64 {
	return k.swerve.RobotToWheelAccelerations(robotVel, robotAccel)
}

// RobotToModuleOrientations returns the left and right steering angles.
func (k *DiffSwerveKinematics) RobotToModuleOrientations(robotVel spatialmath.Pose2d) []float64 {
	return k.swerve.RobotToModuleOrientations(robotVel)
}

// RobotToModuleAngularVelocities returns the left and right steering rates.
func (k *DiffSwerveKinematics) RobotToModuleAngularVelocities(robotVel, robotAccel spatialmath.Pose2d) []float64 {
	return k.swerve.RobotToModuleAngularVelocities(robotVel, robotAccel)
}

// WheelToRobotVelocities recovers the robot velocity from wheel speeds and module orientations.
func (k *DiffSwerveKinematics) WheelToRobotVelocities(wheelVelocities, moduleOrientations []float64) (spatialmath.Pose2d, error) {
	return k.swerve.WheelToRobotVelocities(wheelVelocities, moduleOrientations)
}

// GearToModuleOrientation returns the steering angle produced by a gear pair.
func GearToModuleOrientation(topGearRotation, bottomGearRotation float64) float64 {
	return spatialmath.NormalizeAngle((topGearRotation + bottomGearRotation) / 2)
}

// GearToWheelVelocity returns the wheel speed produced by a gear pair. It applies equally to
// positions.
func GearToWheelVelocity(topGearVelocity, bottomGearVelocity float64) float64 {
	return (topGearVelocity - bottomGearVelocity) / 2
}

// GearToModuleOrientations converts four gear rotations into the two module orientations.
func GearToModuleOrientations(gearRotations []float64) ([]float64, error) {
	if len(gearRotations) != numGears {
		return nil, errors.Errorf("differential swerve drive needs %d gear rotations, got %d", numGears, len(gearRotations))
	}
	return []float64{
		GearToModuleOrientation(gearRotations[LeftTopGear], gearRotations[LeftBottomGear]),
		GearToModuleOrientation(gearRotations[RightTopGear], gearRotations[RightBottomGear]),
	}, nil
}

// GearToWheelVelocities converts four gear velocities (or positions) into the two wheel values.
func GearToWheelVelocities(gearVelocities []float64) ([]float64, error) {
	if len(gearVelocities) != numGears {
		return nil, errors.Errorf("differential swerve drive needs %d gear values, got %d", numGears, len(gearVelocities))
	}
	return []float64{
		GearToWheelVelocity(gearVelocities[LeftTopGear], gearVelocities[LeftBottomGear]),
		GearToWheelVelocity(gearVelocities[RightTopGear], gearVelocities[RightBottomGear]),
	}, nil
}

// GearCommand is the per-gear output of a DiffSwerveController, in gear order.
type GearCommand struct {
	Velocities    []float64
	Accelerations []float64
	Powers        []float64
}

// DiffSwerveController turns drive signals into gear commands, steering each module with its own
// orientation controller.
type DiffSwerveController struct {
	kinematics  *DiffSwerveKinematics
	feedforward control.FeedforwardCoefficients
	modules     [2]*control.PIDFController

	wheelVel   [2]float64
	wheelAccel [2]float64
}

// NewDiffSwerveController returns a controller for the given geometry.
func NewDiffSwerveController(
	k *DiffSwerveKinematics,
	orientationPID control.PIDCoefficients,
	feedforward control.FeedforwardCoefficients,
) *DiffSwerveController {
	c := &DiffSwerveController{kinematics: k, feedforward: feedforward}
	for i := range c.modules {
		pid := control.NewPIDFController(orientationPID)
		// a module pointing backwards drives the same line, so orientation only matters mod π
		pid.SetInputBounds(-math.Pi/2, math.Pi/2)
		c.modules[i] = pid
	}
	return c
}

// SetDriveSignal sets the target wheel speeds and module orientations. A module whose wheel is
// commanded to stop keeps its previous orientation target.
func (c *DiffSwerveController) SetDriveSignal(signal DriveSignal) {
	vels := c.kinematics.RobotToWheelVelocities(signal.Vel)
	accels := c.kinematics.RobotToWheelAccelerations(signal.Vel, signal.Accel)
	orientations := c.kinematics.RobotToModuleOrientations(signal.Vel)
	for i := range c.modules {
		c.wheelVel[i] = vels[i]
		c.wheelAccel[i] = accels[i]
		if vels[i] != 0 {
			c.modules[i].TargetPosition = orientations[i]
		}
	}
}

// TargetOrientations returns the current left and right orientation targets.
func (c *DiffSwerveController) TargetOrientations() []float64 {
	return []float64{c.modules[0].TargetPosition, c.modules[1].TargetPosition}
}

// FacingDirection is +1 when the module can reach target by turning at most a quarter turn and
// -1 when the wheel should instead be driven backwards from the opposite orientation.
func FacingDirection(target, current float64) float64 {
	if math.Abs(spatialmath.AngleDelta(target, current)) <= math.Pi/2 {
		return 1
	}
	return -1
}

// Update reads the gear rotations, steps the orientation controllers and returns the gear
// commands.
func (c *DiffSwerveController) Update(gearRotations []float64, dt time.Duration) (GearCommand, error) {
	orientations, err := GearToModuleOrientations(gearRotations)
	if err != nil {
		return GearCommand{}, err
	}

	var steer, direction [2]float64
	for i, pid := range c.modules {
		steer[i] = pid.Update(orientations[i], dt)
		direction[i] = FacingDirection(pid.TargetPosition, orientations[i])
	}

	cmd := GearCommand{
		Velocities: []float64{
			c.wheelVel[0]*direction[0] + steer[0],
			-c.wheelVel[0]*direction[0] + steer[0],
			c.wheelVel[1]*direction[1] + steer[1],
			-c.wheelVel[1]*direction[1] + steer[1],
		},
		Accelerations: []float64{
			c.wheelAccel[0] * direction[0],
			-c.wheelAccel[0] * direction[0],
			c.wheelAccel[1] * direction[1],
			-c.wheelAccel[1] * direction[1],
		},
	}
	cmd.Powers, err = control.CalculateMotorFeedforward(cmd.Velocities, cmd.Accelerations, c.feedforward)
	if err != nil {
		return GearCommand{}, err
	}
	return cmd, nil
}
