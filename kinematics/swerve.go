package kinematics

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/drivetrain/spatialmath"
)

// SwerveKinematics describes independently steered modules at fixed robot-frame offsets.
type SwerveKinematics struct {
	modulePositions []spatialmath.Vector2d
	centroid        spatialmath.Vector2d
	// moment is the sum of squared module distances from the centroid.
	moment float64
}

// NewSwerveKinematics returns the kinematics for modules at the given robot-frame positions. At
// least two distinct positions are needed to recover rotation.
func NewSwerveKinematics(modulePositions []spatialmath.Vector2d) (*SwerveKinematics, error) {
	if len(modulePositions) < 2 {
		return nil, errors.Errorf("swerve drive needs at least 2 modules, got %d", len(modulePositions))
	}
	centroid := lo.Reduce(modulePositions, func(acc spatialmath.Vector2d, p spatialmath.Vector2d, _ int) spatialmath.Vector2d {
		return acc.Add(p)
	}, spatialmath.Vector2d{}).Div(float64(len(modulePositions)))
	moment := lo.SumBy(modulePositions, func(p spatialmath.Vector2d) float64 {
		d := p.Sub(centroid)
		return d.Dot(d)
	})
	if moment == 0 {
		return nil, errors.New("swerve module positions must not all coincide")
	}
	return &SwerveKinematics{
		modulePositions: append([]spatialmath.Vector2d(nil), modulePositions...),
		centroid:        centroid,
		moment:          moment,
	}, nil
}

// NewRectangularSwerveKinematics places four modules at the corners of a trackWidth by wheelBase
// rectangle: front-left, rear-left, rear-right, front-right.
func NewRectangularSwerveKinematics(trackWidth, wheelBase float64) *SwerveKinematics {
	x := wheelBase / 2
	y := trackWidth / 2
	k, err := NewSwerveKinematics([]spatialmath.Vector2d{
		{X: x, Y: y},
		{X: -x, Y: y},
		{X: -x, Y: -y},
		{X: x, Y: -y},
	})
	if err != nil {
		// only reachable with zero track width and wheel base
		return &SwerveKinematics{modulePositions: make([]spatialmath.Vector2d, 4)}
	}
	return k
}

// ModulePositions returns the module offsets.
func (k *SwerveKinematics) ModulePositions() []spatialmath.Vector2d {
	return k.modulePositions
}

// NumModules returns the module count.
func (k *SwerveKinematics) NumModules() int {
	return len(k.modulePositions)
}

// RobotToModuleVelocityVectors evaluates the rigid-body velocity field v + ω × r at each module.
func (k *SwerveKinematics) RobotToModuleVelocityVectors(robotVel spatialmath.Pose2d) []spatialmath.Vector2d {
	return lo.Map(k.modulePositions, func(r spatialmath.Vector2d, _ int) spatialmath.Vector2d {
		return robotVel.Vec().Add(r.Ortho().Mul(robotVel.Heading))
	})
}

// RobotToModuleAccelerationVectors evaluates the same field for a robot-frame acceleration.
func (k *SwerveKinematics) RobotToModuleAccelerationVectors(robotAccel spatialmath.Pose2d) []spatialmath.Vector2d {
	return k.RobotToModuleVelocityVectors(robotAccel)
}

// RobotToWheelVelocities returns the speed of each module.
func (k *SwerveKinematics) RobotToWheelVelocities(robotVel spatialmath.Pose2d) []float64 {
	return lo.Map(k.RobotToModuleVelocityVectors(robotVel), func(v spatialmath.Vector2d, _ int) float64 {
		return v.Norm()
	})
}

// RobotToModuleOrientations returns the steering angle of each module.
func (k *SwerveKinematics) RobotToModuleOrientations(robotVel spatialmath.Pose2d) []float64 {
	return lo.Map(k.RobotToModuleVelocityVectors(robotVel), func(v spatialmath.Vector2d, _ int) float64 {
		return v.Angle()
	})
}

// RobotToWheelAccelerations returns the rate of change of each module's speed: the component of
// its acceleration along its velocity. A stationary module reports zero.
func (k *SwerveKinematics) RobotToWheelAccelerations(robotVel, robotAccel spatialmath.Pose2d) []float64 {
	vels := k.RobotToModuleVelocityVectors(robotVel)
	accels := k.RobotToModuleAccelerationVectors(robotAccel)
	return lo.ZipBy2(vels, accels, func(v, a spatialmath.Vector2d) float64 {
		norm := v.Norm()
		if norm == 0 {
			return 0
		}
		return v.Dot(a) / norm
	})
}

// RobotToModuleAngularVelocities returns the rate of change of each module's steering angle.
func (k *SwerveKinematics) RobotToModuleAngularVelocities(robotVel, robotAccel spatialmath.Pose2d) []float64 {
	vels := k.RobotToModuleVelocityVectors(robotVel)
	accels := k.RobotToModuleAccelerationVectors(robotAccel)
	return lo.ZipBy2(vels, accels, func(v, a spatialmath.Vector2d) float64 {
		norm2 := v.Dot(v)
		if norm2 == 0 {
			return 0
		}
		return v.Cross(a) / norm2
	})
}

// WheelToRobotVelocities recovers the least-squares rigid-body velocity from module speeds and
// steering angles. It applies equally to wheel position deltas.
func (k *SwerveKinematics) WheelToRobotVelocities(wheelVelocities, moduleOrientations []float64) (spatialmath.Pose2d, error) {
	n := len(k.modulePositions)
	if len(wheelVelocities) != n || len(moduleOrientations) != n {
		return spatialmath.Pose2d{}, errors.Errorf("swerve drive has %d modules, got %d wheel values and %d orientations",
			n, len(wheelVelocities), len(moduleOrientations))
	}
	moduleVels := lo.ZipBy2(wheelVelocities, moduleOrientations, func(v, theta float64) spatialmath.Vector2d {
		return spatialmath.Polar(v, theta)
	})

	var mean spatialmath.Vector2d
	var torque float64
	for i, m := range moduleVels {
		mean = mean.Add(m)
		torque += k.modulePositions[i].Sub(k.centroid).Ortho().Dot(m)
	}
	mean = mean.Div(float64(n))
	omega := torque / k.moment
	v := mean.Sub(k.centroid.Ortho().Mul(omega))
	return spatialmath.NewPose2dFromVec(v, omega), nil
}
