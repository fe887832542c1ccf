package kinematics

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/drivetrain/spatialmath"
)

// TankKinematics describes a differential drive. Wheels are ordered left side first, then right
// side; each side may have any number of wheels.
type TankKinematics struct {
	TrackWidth float64
	// WheelsPerSide defaults to one.
	WheelsPerSide int
}

// NewTankKinematics returns a tank drive with one wheel per side.
func NewTankKinematics(trackWidth float64) *TankKinematics {
	return &TankKinematics{TrackWidth: trackWidth, WheelsPerSide: 1}
}

func (k *TankKinematics) perSide() int {
	if k.WheelsPerSide < 1 {
		return 1
	}
	return k.WheelsPerSide
}

// NumWheels returns the total wheel count.
func (k *TankKinematics) NumWheels() int {
	return 2 * k.perSide()
}

func (k *TankKinematics) sides(v, omega float64) []float64 {
	left := v - omega*k.TrackWidth/2
	right := v + omega*k.TrackWidth/2
	return append(lo.Times(k.perSide(), func(int) float64 { return left }),
		lo.Times(k.perSide(), func(int) float64 { return right })...)
}

// RobotToWheelVelocities returns v ∓ ω·trackWidth/2 for the left and right wheels.
func (k *TankKinematics) RobotToWheelVelocities(robotVel spatialmath.Pose2d) []float64 {
	return k.sides(robotVel.X, robotVel.Heading)
}

// RobotToWheelAccelerations is RobotToWheelVelocities applied to an acceleration.
func (k *TankKinematics) RobotToWheelAccelerations(robotAccel spatialmath.Pose2d) []float64 {
	return k.sides(robotAccel.X, robotAccel.Heading)
}

// WheelToRobotVelocities averages each side and recovers (v, 0, ω).
func (k *TankKinematics) WheelToRobotVelocities(wheelVelocities []float64) (spatialmath.Pose2d, error) {
	if len(wheelVelocities) == 0 || len(wheelVelocities)%2 != 0 {
		return spatialmath.Pose2d{}, errors.Errorf("tank drive needs an even, non-zero number of wheels, got %d", len(wheelVelocities))
	}
	halves := lo.Chunk(wheelVelocities, len(wheelVelocities)/2)
	left := lo.Sum(halves[0]) / float64(len(halves[0]))
	right := lo.Sum(halves[1]) / float64(len(halves[1]))
	return spatialmath.NewPose2d((left+right)/2, 0, (right-left)/k.TrackWidth), nil
}
