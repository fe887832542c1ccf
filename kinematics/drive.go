// Package kinematics converts between robot-frame motion and wheel or module motion for tank,
// mecanum, swerve and differential swerve drivetrains, and provides the frame transforms shared
// by localization and following.
package kinematics

import (
	"math"

	"go.viam.com/drivetrain/spatialmath"
)

// smallAngle is the heading change below which odometry composition uses its series expansion.
const smallAngle = 1e-6

// DriveSignal is a commanded robot-frame velocity and acceleration.
type DriveSignal struct {
	Vel   spatialmath.Pose2d
	Accel spatialmath.Pose2d
}

// FieldToRobotVelocity rotates a field-frame velocity into the frame of a robot at fieldPose.
func FieldToRobotVelocity(fieldPose, fieldVel spatialmath.Pose2d) spatialmath.Pose2d {
	return spatialmath.NewPose2dFromVec(fieldVel.Vec().Rotated(-fieldPose.Heading), fieldVel.Heading)
}

// RobotToFieldVelocity rotates a robot-frame velocity into the field frame.
func RobotToFieldVelocity(fieldPose, robotVel spatialmath.Pose2d) spatialmath.Pose2d {
	return spatialmath.NewPose2dFromVec(robotVel.Vec().Rotated(fieldPose.Heading), robotVel.Heading)
}

// FieldToRobotAcceleration converts a field-frame acceleration into the robot frame, including
// the term introduced by the rotating frame.
func FieldToRobotAcceleration(fieldPose, fieldVel, fieldAccel spatialmath.Pose2d) spatialmath.Pose2d {
	sin, cos := math.Sincos(fieldPose.Heading)
	rotating := spatialmath.Pose2d{
		X: -fieldVel.X*sin + fieldVel.Y*cos,
		Y: -fieldVel.X*cos - fieldVel.Y*sin,
	}.Mul(fieldVel.Heading)
	return spatialmath.NewPose2dFromVec(fieldAccel.Vec().Rotated(-fieldPose.Heading), fieldAccel.Heading).Add(rotating)
}

// CalculateFieldPoseError returns target - current in the field frame with a wrapped heading.
func CalculateFieldPoseError(targetFieldPose, currentFieldPose spatialmath.Pose2d) spatialmath.Pose2d {
	return spatialmath.NewPose2dFromVec(
		targetFieldPose.Vec().Sub(currentFieldPose.Vec()),
		spatialmath.AngleDelta(targetFieldPose.Heading, currentFieldPose.Heading),
	)
}

// CalculateRobotPoseError returns target - current expressed in the frame of the current pose.
func CalculateRobotPoseError(targetFieldPose, currentFieldPose spatialmath.Pose2d) spatialmath.Pose2d {
	errorInFieldFrame := CalculateFieldPoseError(targetFieldPose, currentFieldPose)
	return spatialmath.NewPose2dFromVec(
		errorInFieldFrame.Vec().Rotated(-currentFieldPose.Heading),
		errorInFieldFrame.Heading,
	)
}

// RelativeOdometryUpdate composes a robot-frame pose delta onto a field pose assuming constant
// curvature over the step.
func RelativeOdometryUpdate(fieldPose, robotPoseDelta spatialmath.Pose2d) spatialmath.Pose2d {
	dtheta := robotPoseDelta.Heading
	var sineTerm, cosTerm float64
	if math.Abs(dtheta) < smallAngle {
		sineTerm = 1 - dtheta*dtheta/6
		cosTerm = dtheta / 2
	} else {
		sineTerm = math.Sin(dtheta) / dtheta
		cosTerm = (1 - math.Cos(dtheta)) / dtheta
	}

	fieldPositionDelta := spatialmath.NewVector2d(
		sineTerm*robotPoseDelta.X-cosTerm*robotPoseDelta.Y,
		cosTerm*robotPoseDelta.X+sineTerm*robotPoseDelta.Y,
	).Rotated(fieldPose.Heading)

	return spatialmath.NewPose2dFromVec(
		fieldPose.Vec().Add(fieldPositionDelta),
		spatialmath.NormalizeAngle(fieldPose.Heading+dtheta),
	)
}

// WheelKinematics is a drivetrain whose wheels are fixed to the chassis, so every wheel quantity
// is a linear function of the robot-frame motion. The inverse applies equally to wheel position
// deltas.
type WheelKinematics interface {
	RobotToWheelVelocities(robotVel spatialmath.Pose2d) []float64
	RobotToWheelAccelerations(robotAccel spatialmath.Pose2d) []float64
	WheelToRobotVelocities(wheelVelocities []float64) (spatialmath.Pose2d, error)
	NumWheels() int
}
