package config

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/drivetrain/followers"
	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/localization"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/sim"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// Drive is the kinematics built from a DriveConfig. Exactly one of its fields is set.
type Drive struct {
	Type       DriveType
	Tank       *kinematics.TankKinematics
	Mecanum    *kinematics.MecanumKinematics
	Swerve     *kinematics.SwerveKinematics
	DiffSwerve *kinematics.DiffSwerveKinematics

	config DriveConfig
}

// Build returns the kinematics for the configured drivetrain.
func (cfg *DriveConfig) Build() (*Drive, error) {
	d := &Drive{Type: cfg.Type, config: *cfg}
	switch cfg.Type {
	case TankDrive:
		d.Tank = &kinematics.TankKinematics{TrackWidth: cfg.TrackWidth, WheelsPerSide: cfg.WheelsPerSide}
	case MecanumDrive:
		lateral := cfg.LateralMultiplier
		if lateral == 0 {
			lateral = 1
		}
		k, err := kinematics.NewMecanumKinematics(cfg.TrackWidth, cfg.WheelBase, lateral)
		if err != nil {
			return nil, err
		}
		d.Mecanum = k
	case SwerveDrive:
		d.Swerve = kinematics.NewRectangularSwerveKinematics(cfg.TrackWidth, cfg.WheelBase)
	case DiffSwerveDrive:
		d.DiffSwerve = kinematics.NewDiffSwerveKinematics(cfg.TrackWidth)
	default:
		return nil, errors.Errorf("unknown drive type %q", cfg.Type)
	}
	return d, nil
}

// WheelConstraint returns the per-wheel velocity constraint, or nil when max_wheel_vel is unset.
func (d *Drive) WheelConstraint() trajectory.VelocityConstraint {
	maxWheelVel := d.config.MaxWheelVel
	if maxWheelVel <= 0 {
		return nil
	}
	switch {
	case d.Tank != nil:
		return &trajectory.TankVelocityConstraint{Kinematics: d.Tank, MaxWheelVel: maxWheelVel}
	case d.Mecanum != nil:
		return &trajectory.MecanumVelocityConstraint{Kinematics: d.Mecanum, MaxWheelVel: maxWheelVel}
	case d.Swerve != nil:
		return &trajectory.SwerveVelocityConstraint{Kinematics: d.Swerve, MaxWheelVel: maxWheelVel}
	case d.DiffSwerve != nil:
		return &trajectory.DiffSwerveVelocityConstraint{Kinematics: d.DiffSwerve, MaxWheelVel: maxWheelVel}
	default:
		return nil
	}
}

// Sensors are the hardware readings a localizer may consume. Which fields are required depends
// on the drivetrain: swerve needs Modules, differential swerve needs Modules or Gears.
type Sensors struct {
	Encoders localization.Encoders
	Heading  localization.HeadingSensor
	Modules  localization.ModuleSensors
	Gears    localization.GearSensors
}

// NewLocalizer returns the localizer for the drivetrain. The heading sensor is only used when
// use_heading_sensor is set.
func (d *Drive) NewLocalizer(sensors Sensors, logger logging.Logger) (localization.Localizer, error) {
	if sensors.Encoders == nil {
		return nil, errors.New("localizer needs encoders")
	}
	var heading localization.HeadingSensor
	if d.config.UseHeadingSensor {
		if sensors.Heading == nil {
			return nil, errors.New("use_heading_sensor is set but no heading sensor was given")
		}
		heading = sensors.Heading
	}
	switch {
	case d.Tank != nil:
		return localization.NewTankLocalizer(d.Tank, sensors.Encoders, heading, logger), nil
	case d.Mecanum != nil:
		return localization.NewMecanumLocalizer(d.Mecanum, sensors.Encoders, heading, logger), nil
	case d.Swerve != nil:
		if sensors.Modules == nil {
			return nil, errors.New("swerve localizer needs module sensors")
		}
		return localization.NewSwerveLocalizer(d.Swerve, sensors.Encoders, sensors.Modules, heading, logger), nil
	case d.DiffSwerve != nil:
		if sensors.Modules != nil {
			return localization.NewDiffSwerveLocalizer(d.DiffSwerve, sensors.Encoders, sensors.Modules, heading, logger), nil
		}
		if sensors.Gears == nil {
			return nil, errors.New("differential swerve localizer needs module or gear sensors")
		}
		return localization.NewDiffSwerveLocalizerFromGears(d.DiffSwerve, sensors.Encoders, sensors.Gears, heading, logger), nil
	default:
		return nil, errors.New("drive has no kinematics")
	}
}

// NewDiffSwerveController returns the gear controller of a differential swerve drive.
func (d *Drive) NewDiffSwerveController() (*kinematics.DiffSwerveController, error) {
	if d.DiffSwerve == nil {
		return nil, errors.Errorf("%s drive has no gear controller", d.Type)
	}
	return kinematics.NewDiffSwerveController(d.DiffSwerve, d.config.ModuleOrientationPID, d.config.Feedforward), nil
}

// NewSimBase returns a simulated base with the drive's kinematics, along with the sensors it
// provides.
func (d *Drive) NewSimBase(start spatialmath.Pose2d) (*sim.Base, Sensors, error) {
	var base *sim.Base
	switch {
	case d.Tank != nil:
		base = sim.NewTankBase(d.Tank, start)
	case d.Mecanum != nil:
		base = sim.NewMecanumBase(d.Mecanum, start)
	case d.Swerve != nil:
		base = sim.NewSwerveBase(d.Swerve, start)
	case d.DiffSwerve != nil:
		var err error
		if base, err = sim.NewDiffSwerveBase(d.DiffSwerve, start); err != nil {
			return nil, Sensors{}, err
		}
		return base, Sensors{Encoders: base, Heading: base, Gears: base}, nil
	default:
		return nil, Sensors{}, errors.New("drive has no kinematics")
	}
	return base, Sensors{Encoders: base, Heading: base, Modules: base}, nil
}

// TrajectoryConstraints returns the robot-level limits combined with the drive's wheel
// constraint.
func (cfg *Config) TrajectoryConstraints(d *Drive) trajectory.Constraints {
	return trajectory.Constraints{
		MaxVel:      cfg.Constraints.MaxVel,
		MaxAccel:    cfg.Constraints.MaxAccel,
		MaxAngVel:   cfg.Constraints.MaxAngVel,
		MaxAngAccel: cfg.Constraints.MaxAngAccel,
		Drive:       d.WheelConstraint(),
	}
}

// ProfileOptions returns the profile sampling options.
func (cfg *Config) ProfileOptions(logger logging.Logger) []trajectory.ProfileOption {
	opts := []trajectory.ProfileOption{trajectory.WithLogger(logger)}
	if cfg.Constraints.Resolution > 0 {
		opts = append(opts, trajectory.WithResolution(cfg.Constraints.Resolution))
	}
	if cfg.Constraints.MaxSagitta > 0 {
		opts = append(opts, trajectory.WithMaxSagitta(cfg.Constraints.MaxSagitta))
	}
	return opts
}

// NewTrajectoryBuilder returns a trajectory builder using the configured constraints.
func (cfg *Config) NewTrajectoryBuilder(d *Drive, start spatialmath.Pose2d, logger logging.Logger) *trajectory.Builder {
	return trajectory.NewBuilder(start, cfg.TrajectoryConstraints(d), cfg.ProfileOptions(logger)...)
}

// NewFollower returns the follower suited to the drive: a tank follower for tank drives and a
// holonomic follower otherwise. A nil clock uses the wall clock.
func (cfg *Config) NewFollower(d *Drive, clk clock.Clock, logger logging.Logger) followers.Follower {
	admissible := spatialmath.NewPose2d(
		cfg.Follower.AdmissibleError.X,
		cfg.Follower.AdmissibleError.Y,
		spatialmath.DegToRad(cfg.Follower.AdmissibleError.HeadingDeg),
	)
	timeout := time.Duration(cfg.Follower.TimeoutSec * float64(time.Second))
	if d.Tank != nil {
		return followers.NewTankPIDVAFollower(cfg.Follower.Axial, cfg.Follower.Lateral, admissible, timeout, clk, logger)
	}
	return followers.NewHolonomicPIDVAFollower(
		cfg.Follower.Axial, cfg.Follower.Lateral, cfg.Follower.Heading, admissible, timeout, clk, logger)
}
