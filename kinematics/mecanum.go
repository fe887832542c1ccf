package kinematics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/drivetrain/spatialmath"
)

const mecanumWheels = 4

// MecanumKinematics describes a four wheel mecanum drive, wheels ordered front-left, rear-left,
// rear-right, front-right. LateralMultiplier scales strafing to account for roller slip.
type MecanumKinematics struct {
	TrackWidth        float64
	WheelBase         float64
	LateralMultiplier float64

	forward *mat.Dense
	inverse *mat.Dense
}

// NewMecanumKinematics builds the forward model and its least-squares inverse.
func NewMecanumKinematics(trackWidth, wheelBase, lateralMultiplier float64) (*MecanumKinematics, error) {
	k := (trackWidth + wheelBase) / 2
	l := lateralMultiplier
	forward := mat.NewDense(mecanumWheels, 3, []float64{
		1, -l, -k,
		1, l, -k,
		1, -l, k,
		1, l, k,
	})

	var inverse mat.Dense
	if err := inverse.Solve(forward, eye(mecanumWheels)); err != nil {
		return nil, errors.Wrapf(err, "mecanum geometry (track width %v, wheel base %v, lateral multiplier %v) is degenerate",
			trackWidth, wheelBase, lateralMultiplier)
	}
	return &MecanumKinematics{
		TrackWidth:        trackWidth,
		WheelBase:         wheelBase,
		LateralMultiplier: lateralMultiplier,
		forward:           forward,
		inverse:           &inverse,
	}, nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// NumWheels returns four.
func (m *MecanumKinematics) NumWheels() int {
	return mecanumWheels
}

func (m *MecanumKinematics) apply(p spatialmath.Pose2d) []float64 {
	var out mat.VecDense
	out.MulVec(m.forward, mat.NewVecDense(3, []float64{p.X, p.Y, p.Heading}))
	return out.RawVector().Data
}

// RobotToWheelVelocities returns the four wheel velocities for a robot-frame velocity.
func (m *MecanumKinematics) RobotToWheelVelocities(robotVel spatialmath.Pose2d) []float64 {
	return m.apply(robotVel)
}

// RobotToWheelAccelerations returns the four wheel accelerations for a robot-frame acceleration.
func (m *MecanumKinematics) RobotToWheelAccelerations(robotAccel spatialmath.Pose2d) []float64 {
	return m.apply(robotAccel)
}

// WheelToRobotVelocities returns the least-squares robot velocity for the wheel velocities.
func (m *MecanumKinematics) WheelToRobotVelocities(wheelVelocities []float64) (spatialmath.Pose2d, error) {
	if len(wheelVelocities) != mecanumWheels {
		return spatialmath.Pose2d{}, errors.Errorf("mecanum drive needs %d wheels, got %d", mecanumWheels, len(wheelVelocities))
	}
	var out mat.VecDense
	out.MulVec(m.inverse, mat.NewVecDense(mecanumWheels, append([]float64(nil), wheelVelocities...)))
	return spatialmath.NewPose2d(out.AtVec(0), out.AtVec(1), out.AtVec(2)), nil
}
