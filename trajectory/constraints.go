// Package trajectory turns paths into time-parameterized trajectories under velocity and
// acceleration constraints.
package trajectory

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/spatialmath"
)

var (
	// ErrUnsatisfiableConstraint means no non-negative speed or acceleration satisfies a
	// constraint somewhere on the path.
	ErrUnsatisfiableConstraint = errors.New("unsatisfiable constraint")
	// ErrUnboundedProfile means the constraints leave the path speed unbounded.
	ErrUnboundedProfile = errors.New("profile has no finite velocity bound")
)

// ConstraintState is what a constraint sees at one sample of a path.
type ConstraintState struct {
	// Pose is the field-frame pose at the sample.
	Pose spatialmath.Pose2d
	// Deriv is dPose/ds at the sample and LastDeriv the same at the previous sample.
	Deriv     spatialmath.Pose2d
	LastDeriv spatialmath.Pose2d
	// Ds is the arc length between the previous sample and this one.
	Ds float64
	// BaseRobotVel is robot-frame motion independent of the path speed.
	BaseRobotVel spatialmath.Pose2d
	// Vel is the current path speed. Only acceleration constraints read it.
	Vel float64
}

// robotDeriv is the robot-frame velocity produced by unit path speed.
func (s ConstraintState) robotDeriv() spatialmath.Pose2d {
	return kinematics.FieldToRobotVelocity(s.Pose, s.Deriv)
}

// ConstraintKind enumerates the constraint variants.
type ConstraintKind int

// The closed set of constraints.
const (
	TranslationalVelocity ConstraintKind = iota
	AngularVelocity
	TankVelocity
	MecanumVelocity
	SwerveVelocity
	DiffSwerveVelocity
	MinVelocity
	TranslationalAcceleration
	AngularAcceleration
	MinAcceleration
)

var constraintKindNames = map[ConstraintKind]string{
	TranslationalVelocity:     "translational velocity",
	AngularVelocity:           "angular velocity",
	TankVelocity:              "tank velocity",
	MecanumVelocity:           "mecanum velocity",
	SwerveVelocity:            "swerve velocity",
	DiffSwerveVelocity:        "differential swerve velocity",
	MinVelocity:               "min velocity",
	TranslationalAcceleration: "translational acceleration",
	AngularAcceleration:       "angular acceleration",
	MinAcceleration:           "min acceleration",
}

func (k ConstraintKind) String() string {
	if name, ok := constraintKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// VelocityConstraint bounds the path speed at a sample. The set of implementations is closed to
// this package.
type VelocityConstraint interface {
	Kind() ConstraintKind
	MaxVelocity(state ConstraintState) (float64, error)
	isVelocityConstraint()
}

// AccelerationConstraint bounds the magnitude of the path acceleration at a sample given the
// current speed.
type AccelerationConstraint interface {
	Kind() ConstraintKind
	MaxAcceleration(state ConstraintState) (float64, error)
	isAccelerationConstraint()
}

func unsatisfiable(kind ConstraintKind, format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsatisfiableConstraint, "%s: "+format, append([]interface{}{kind}, args...)...)
}

// boundByRate returns limit / |rate|, or +Inf when rate is zero.
func boundByRate(limit, rate float64) float64 {
	if rate == 0 {
		return math.Inf(1)
	}
	return limit / math.Abs(rate)
}

// TranslationalVelocityConstraint limits the robot's linear speed.
type TranslationalVelocityConstraint struct {
	MaxVel float64
}

// AngularVelocityConstraint limits the robot's turning rate.
type AngularVelocityConstraint struct {
	MaxAngVel float64
}

// TankVelocityConstraint limits every wheel speed of a tank drive.
type TankVelocityConstraint struct {
	Kinematics  *kinematics.TankKinematics
	MaxWheelVel float64
}

// MecanumVelocityConstraint limits every wheel speed of a mecanum drive.
type MecanumVelocityConstraint struct {
	Kinematics  *kinematics.MecanumKinematics
	MaxWheelVel float64
}

// SwerveVelocityConstraint limits every module speed of a swerve drive.
type SwerveVelocityConstraint struct {
	Kinematics  *kinematics.SwerveKinematics
	MaxWheelVel float64
}

// DiffSwerveVelocityConstraint limits both wheel speeds of a differential swerve drive.
type DiffSwerveVelocityConstraint struct {
	Kinematics  *kinematics.DiffSwerveKinematics
	MaxWheelVel float64
}

// MinVelocityConstraint is the tightest of its constraints.
type MinVelocityConstraint struct {
	Constraints []VelocityConstraint
}

// NewMinVelocityConstraint combines constraints, dropping nil entries.
func NewMinVelocityConstraint(constraints ...VelocityConstraint) *MinVelocityConstraint {
	return &MinVelocityConstraint{Constraints: lo.Filter(constraints, func(c VelocityConstraint, _ int) bool {
		return c != nil
	})}
}

func (TranslationalVelocityConstraint) Kind() ConstraintKind { return TranslationalVelocity }
func (AngularVelocityConstraint) Kind() ConstraintKind       { return AngularVelocity }
func (*TankVelocityConstraint) Kind() ConstraintKind         { return TankVelocity }
func (*MecanumVelocityConstraint) Kind() ConstraintKind      { return MecanumVelocity }
func (*SwerveVelocityConstraint) Kind() ConstraintKind       { return SwerveVelocity }
func (*DiffSwerveVelocityConstraint) Kind() ConstraintKind   { return DiffSwerveVelocity }
func (*MinVelocityConstraint) Kind() ConstraintKind          { return MinVelocity }

func (TranslationalVelocityConstraint) isVelocityConstraint() {}
func (AngularVelocityConstraint) isVelocityConstraint()       {}
func (*TankVelocityConstraint) isVelocityConstraint()         {}
func (*MecanumVelocityConstraint) isVelocityConstraint()      {}
func (*SwerveVelocityConstraint) isVelocityConstraint()       {}
func (*DiffSwerveVelocityConstraint) isVelocityConstraint()   {}
func (*MinVelocityConstraint) isVelocityConstraint()          {}

// MaxVelocity implements VelocityConstraint.
func (c TranslationalVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	return boundByRate(c.MaxVel, state.Deriv.Vec().Norm()), nil
}

// MaxVelocity implements VelocityConstraint.
func (c AngularVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	return boundByRate(c.MaxAngVel, state.Deriv.Heading), nil
}

// MaxVelocity implements VelocityConstraint.
func (c *TankVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	return linearWheelLimit(c.Kind(), c.Kinematics, state, c.MaxWheelVel)
}

// MaxVelocity implements VelocityConstraint.
func (c *MecanumVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	return linearWheelLimit(c.Kind(), c.Kinematics, state, c.MaxWheelVel)
}

// MaxVelocity implements VelocityConstraint.
func (c *SwerveVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	return moduleLimit(
		c.Kind(),
		c.Kinematics.RobotToModuleVelocityVectors(state.BaseRobotVel),
		c.Kinematics.RobotToModuleVelocityVectors(state.robotDeriv()),
		c.MaxWheelVel,
	)
}

// MaxVelocity implements VelocityConstraint. Each wheel drives at the speed of its module, so the
// limit is the swerve one applied to the two modules.
func (c *DiffSwerveVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	swerve := c.Kinematics
	base := lo.ZipBy2(
		swerve.RobotToWheelVelocities(state.BaseRobotVel),
		swerve.RobotToModuleOrientations(state.BaseRobotVel),
		spatialmath.Polar,
	)
	perUnit := lo.ZipBy2(
		swerve.RobotToWheelVelocities(state.robotDeriv()),
		swerve.RobotToModuleOrientations(state.robotDeriv()),
		spatialmath.Polar,
	)
	return moduleLimit(c.Kind(), base, perUnit, c.MaxWheelVel)
}

// MaxVelocity implements VelocityConstraint.
func (c *MinVelocityConstraint) MaxVelocity(state ConstraintState) (float64, error) {
	bound := math.Inf(1)
	for _, sub := range c.Constraints {
		v, err := sub.MaxVelocity(state)
		if err != nil {
			return 0, err
		}
		bound = math.Min(bound, v)
	}
	return bound, nil
}

// linearWheelLimit handles drives whose wheel speeds are linear in the robot velocity: the wheel
// speeds at path speed v are base + perUnit*v.
func linearWheelLimit(
	kind ConstraintKind, k kinematics.WheelKinematics, state ConstraintState, maxWheelVel float64,
) (float64, error) {
	base := k.RobotToWheelVelocities(state.BaseRobotVel)
	if lo.Max(lo.Map(base, func(w float64, _ int) float64 { return math.Abs(w) })) >= maxWheelVel {
		return 0, unsatisfiable(kind, "base velocity already saturates a wheel")
	}
	perUnit := k.RobotToWheelVelocities(state.robotDeriv())
	bound := math.Inf(1)
	for i, w := range perUnit {
		if w == 0 {
			continue
		}
		bound = math.Min(bound, math.Max((maxWheelVel-base[i])/w, (-maxWheelVel-base[i])/w))
	}
	return bound, nil
}

// moduleLimit finds the largest v with |base_i + perUnit_i*v| <= maxWheelVel for every module.
func moduleLimit(
	kind ConstraintKind, base, perUnit []spatialmath.Vector2d, maxWheelVel float64,
) (float64, error) {
	bound := math.Inf(1)
	for i, b := range perUnit {
		a := base[i]
		if a.Norm() >= maxWheelVel {
			return 0, unsatisfiable(kind, "base velocity already saturates module %d", i)
		}
		bb := b.Dot(b)
		if bb == 0 {
			continue
		}
		ab := a.Dot(b)
		disc := ab*ab - bb*(a.Dot(a)-maxWheelVel*maxWheelVel)
		bound = math.Min(bound, (-ab+math.Sqrt(disc))/bb)
	}
	return bound, nil
}

// TranslationalAccelerationConstraint limits the robot's linear acceleration along the path.
type TranslationalAccelerationConstraint struct {
	MaxAccel float64
}

// AngularAccelerationConstraint limits the robot's angular acceleration. Because heading changes
// along a curved path produce angular acceleration even at constant speed, the bound shrinks as
// the speed grows.
type AngularAccelerationConstraint struct {
	MaxAngAccel float64
}

// MinAccelerationConstraint is the tightest of its constraints.
type MinAccelerationConstraint struct {
	Constraints []AccelerationConstraint
}

// NewMinAccelerationConstraint combines constraints, dropping nil entries.
func NewMinAccelerationConstraint(constraints ...AccelerationConstraint) *MinAccelerationConstraint {
	return &MinAccelerationConstraint{Constraints: lo.Filter(constraints, func(c AccelerationConstraint, _ int) bool {
		return c != nil
	})}
}

func (TranslationalAccelerationConstraint) Kind() ConstraintKind { return TranslationalAcceleration }
func (AngularAccelerationConstraint) Kind() ConstraintKind       { return AngularAcceleration }
func (*MinAccelerationConstraint) Kind() ConstraintKind          { return MinAcceleration }

func (TranslationalAccelerationConstraint) isAccelerationConstraint() {}
func (AngularAccelerationConstraint) isAccelerationConstraint()       {}
func (*MinAccelerationConstraint) isAccelerationConstraint()          {}

// MaxAcceleration implements AccelerationConstraint.
func (c TranslationalAccelerationConstraint) MaxAcceleration(state ConstraintState) (float64, error) {
	return boundByRate(c.MaxAccel, state.Deriv.Vec().Norm()), nil
}

// MaxAcceleration implements AccelerationConstraint. The heading's second derivative is estimated
// from the change in Deriv over Ds.
func (c AngularAccelerationConstraint) MaxAcceleration(state ConstraintState) (float64, error) {
	if state.Deriv.Heading == 0 {
		return math.Inf(1), nil
	}
	var secondDeriv float64
	if state.Ds > 0 {
		secondDeriv = (state.Deriv.Heading - state.LastDeriv.Heading) / state.Ds
	}
	remaining := c.MaxAngAccel - math.Abs(secondDeriv)*state.Vel*state.Vel
	if remaining <= 0 {
		// holding speed is all that is left
		return 0, nil
	}
	return boundByRate(remaining, state.Deriv.Heading), nil
}

// MaxAcceleration implements AccelerationConstraint.
func (c *MinAccelerationConstraint) MaxAcceleration(state ConstraintState) (float64, error) {
	bound := math.Inf(1)
	for _, sub := range c.Constraints {
		a, err := sub.MaxAcceleration(state)
		if err != nil {
			return 0, err
		}
		bound = math.Min(bound, a)
	}
	return bound, nil
}
