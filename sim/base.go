// Package sim implements simulated drivetrains and a closed-loop harness that ticks a localizer
// and a follower against them.
package sim

import (
	"context"
	"math"
	"sync"

	"github.com/samber/lo"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/spatialmath"
)

// drive maps a commanded robot velocity to what the simulated hardware does with it.
type drive interface {
	// actual returns the robot velocity the drivetrain can realize from the command.
	actual(cmd spatialmath.Pose2d) spatialmath.Pose2d
	wheelVelocities(vel spatialmath.Pose2d) []float64
	// moduleVectors returns per-module velocity vectors, or nil for fixed wheels.
	moduleVectors(vel spatialmath.Pose2d) []spatialmath.Vector2d
}

type fixedWheels struct {
	k kinematics.WheelKinematics
}

func (d fixedWheels) actual(cmd spatialmath.Pose2d) spatialmath.Pose2d {
	vel, err := d.k.WheelToRobotVelocities(d.k.RobotToWheelVelocities(cmd))
	if err != nil {
		// the wheel count always matches the kinematics that produced it
		panic(err)
	}
	return vel
}

func (d fixedWheels) wheelVelocities(vel spatialmath.Pose2d) []float64 {
	return d.k.RobotToWheelVelocities(vel)
}

func (d fixedWheels) moduleVectors(spatialmath.Pose2d) []spatialmath.Vector2d {
	return nil
}

type steeredModules struct {
	k *kinematics.SwerveKinematics
}

func (d steeredModules) actual(cmd spatialmath.Pose2d) spatialmath.Pose2d {
	return cmd
}

func (d steeredModules) wheelVelocities(vel spatialmath.Pose2d) []float64 {
	return d.k.RobotToWheelVelocities(vel)
}

func (d steeredModules) moduleVectors(vel spatialmath.Pose2d) []spatialmath.Vector2d {
	return d.k.RobotToModuleVelocityVectors(vel)
}

// Base is a simulated drivetrain that integrates commanded velocities exactly, assuming each
// command is held for the whole step. It implements the localization sensor interfaces.
type Base struct {
	mu    sync.Mutex
	drive drive
	gears bool

	pose           spatialmath.Pose2d
	vel            spatialmath.Pose2d
	wheelPositions []float64
	wheelVels      []float64
	// orientations are unwrapped so that gear rotations stay continuous.
	orientations []float64
}

func newBase(d drive, numWheels int, gears bool, start spatialmath.Pose2d) *Base {
	b := &Base{
		drive:          d,
		gears:          gears,
		pose:           start,
		wheelPositions: make([]float64, numWheels),
		wheelVels:      make([]float64, numWheels),
	}
	if vectors := d.moduleVectors(spatialmath.Pose2d{}); vectors != nil {
		b.orientations = make([]float64, len(vectors))
	}
	return b
}

// NewTankBase returns a simulated tank drive. Commanded lateral velocity is lost, as it would be
// on a real tank drive.
func NewTankBase(k *kinematics.TankKinematics, start spatialmath.Pose2d) *Base {
	return newBase(fixedWheels{k: k}, k.NumWheels(), false, start)
}

// NewMecanumBase returns a simulated mecanum drive.
func NewMecanumBase(k *kinematics.MecanumKinematics, start spatialmath.Pose2d) *Base {
	return newBase(fixedWheels{k: k}, k.NumWheels(), false, start)
}

// NewSwerveBase returns a simulated swerve drive whose modules steer instantly.
func NewSwerveBase(k *kinematics.SwerveKinematics, start spatialmath.Pose2d) *Base {
	return newBase(steeredModules{k: k}, k.NumModules(), false, start)
}

// NewDiffSwerveBase returns a simulated differential swerve drive. Its encoders report gear
// positions, with a gear pair's sum giving twice the module orientation and its difference twice
// the wheel position.
func NewDiffSwerveBase(k *kinematics.DiffSwerveKinematics, start spatialmath.Pose2d) (*Base, error) {
	modules, err := kinematics.NewSwerveKinematics([]spatialmath.Vector2d{
		spatialmath.NewVector2d(0, k.TrackWidth/2),
		spatialmath.NewVector2d(0, -k.TrackWidth/2),
	})
	if err != nil {
		return nil, err
	}
	return newBase(steeredModules{k: modules}, 2, true, start), nil
}

// Step applies a robot-frame velocity command for dt seconds.
func (b *Base) Step(cmd spatialmath.Pose2d, dt float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vel := b.drive.actual(cmd)
	for i, v := range b.drive.moduleVectors(vel) {
		if v.Norm() == 0 {
			continue
		}
		b.orientations[i] += spatialmath.AngleDelta(v.Angle(), b.orientations[i])
	}
	b.vel = vel
	b.wheelVels = b.drive.wheelVelocities(vel)
	for i, v := range b.wheelVels {
		b.wheelPositions[i] += v * dt
	}
	b.pose = kinematics.RelativeOdometryUpdate(b.pose, vel.Mul(dt))
}

// Pose returns the true field pose of the base.
func (b *Base) Pose() spatialmath.Pose2d {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// Velocity returns the robot-frame velocity realized on the last step.
func (b *Base) Velocity() spatialmath.Pose2d {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vel
}

func gearPair(orientation, wheel float64) []float64 {
	return []float64{orientation + wheel, orientation - wheel}
}

// Positions returns the wheel positions, or the gear positions of a differential swerve drive.
func (b *Base) Positions(ctx context.Context) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gears {
		return lo.Flatten(lo.ZipBy2(b.orientations, b.wheelPositions, gearPair)), nil
	}
	return append([]float64(nil), b.wheelPositions...), nil
}

// Velocities returns the wheel velocities, or the gear velocities of a differential swerve drive.
func (b *Base) Velocities(ctx context.Context) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gears {
		// modules are not steering within a step
		return lo.FlatMap(b.wheelVels, func(v float64, _ int) []float64 { return gearPair(0, v) }), nil
	}
	return append([]float64(nil), b.wheelVels...), nil
}

// Rotations returns the gear rotations of a differential swerve drive.
func (b *Base) Rotations(ctx context.Context) ([]float64, error) {
	return b.Positions(ctx)
}

// Orientations returns the module orientations in (-π, π].
func (b *Base) Orientations(ctx context.Context) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Map(b.orientations, func(o float64, _ int) float64 { return spatialmath.NormalizeAngle(o) }), nil
}

// Heading returns the true heading, as a perfect gyro would.
func (b *Base) Heading(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose.Heading, nil
}

// AngularVelocity returns the true angular velocity.
func (b *Base) AngularVelocity(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vel.Heading, nil
}

// wheelSpeed is the largest wheel speed seen on the last step.
func (b *Base) wheelSpeed() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Reduce(b.wheelVels, func(m, v float64, _ int) float64 { return math.Max(m, math.Abs(v)) }, 0)
}
