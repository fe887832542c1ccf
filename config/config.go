// Package config defines the JSON configuration of a drivetrain, its trajectory constraints and
// its follower, and builds the corresponding components.
package config

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/drivetrain/control"
)

// DriveType names a drivetrain layout.
type DriveType string

// The supported drivetrains.
const (
	TankDrive       DriveType = "tank"
	MecanumDrive    DriveType = "mecanum"
	SwerveDrive     DriveType = "swerve"
	DiffSwerveDrive DriveType = "diff_swerve"
)

// DriveConfig describes the drivetrain geometry. Distances share one unit, which is also the
// unit of every velocity and acceleration.
type DriveConfig struct {
	Type       DriveType `json:"type" jsonschema:"enum=tank,enum=mecanum,enum=swerve,enum=diff_swerve"`
	TrackWidth float64   `json:"track_width"`
	// WheelBase is required by mecanum and swerve drives.
	WheelBase         float64 `json:"wheel_base,omitempty"`
	LateralMultiplier float64 `json:"lateral_multiplier,omitempty"`
	WheelsPerSide     int     `json:"wheels_per_side,omitempty"`
	// MaxWheelVel adds a per-wheel velocity constraint when positive.
	MaxWheelVel          float64                         `json:"max_wheel_vel,omitempty"`
	Feedforward          control.FeedforwardCoefficients `json:"feedforward"`
	ModuleOrientationPID control.PIDCoefficients         `json:"module_orientation_pid"`
	UseHeadingSensor     bool                            `json:"use_heading_sensor,omitempty"`
}

// ConstraintsConfig holds the robot-level motion limits and the profile sampling settings. The
// angular limits are optional; turns require both.
type ConstraintsConfig struct {
	MaxVel      float64 `json:"max_vel"`
	MaxAccel    float64 `json:"max_accel"`
	MaxAngVel   float64 `json:"max_ang_vel,omitempty"`
	MaxAngAccel float64 `json:"max_ang_accel,omitempty"`
	Resolution  float64 `json:"resolution,omitempty"`
	MaxSagitta  float64 `json:"max_sagitta,omitempty"`
}

// AdmissibleError is the pose error within which a follower may finish.
type AdmissibleError struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingDeg float64 `json:"heading_deg"`
}

// FollowerConfig configures the trajectory follower. A tank drive uses Lateral as its
// cross-track gains and ignores Heading.
type FollowerConfig struct {
	Axial           control.PIDCoefficients `json:"axial"`
	Lateral         control.PIDCoefficients `json:"lateral"`
	Heading         control.PIDCoefficients `json:"heading"`
	AdmissibleError AdmissibleError         `json:"admissible_error"`
	TimeoutSec      float64                 `json:"timeout_sec,omitempty"`
}

// Config is the complete motion configuration of one robot.
type Config struct {
	Drive       DriveConfig       `json:"drive"`
	Constraints ConstraintsConfig `json:"constraints"`
	Follower    FollowerConfig    `json:"follower"`
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// positive checks a required, strictly positive field.
func positive(path, field string, v float64) error {
	switch {
	case v == 0:
		return utils.NewConfigValidationFieldRequiredError(path, field)
	case v < 0 || math.IsNaN(v) || math.IsInf(v, 0):
		return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", field, v))
	default:
		return nil
	}
}

// nonNegative checks an optional field.
func nonNegative(path, field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("%s must not be negative, got %v", field, v))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (cfg *DriveConfig) Validate(path string) error {
	var err error
	switch cfg.Type {
	case TankDrive, DiffSwerveDrive:
	case MecanumDrive, SwerveDrive:
		err = multierr.Append(err, positive(path, "wheel_base", cfg.WheelBase))
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown drive type %q", cfg.Type))
	}
	if cfg.WheelsPerSide < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("wheels_per_side must not be negative, got %d", cfg.WheelsPerSide)))
	}
	return multierr.Combine(
		err,
		positive(path, "track_width", cfg.TrackWidth),
		nonNegative(path, "lateral_multiplier", cfg.LateralMultiplier),
		nonNegative(path, "max_wheel_vel", cfg.MaxWheelVel),
	)
}

// Validate ensures all parts of the config are valid.
func (cfg *ConstraintsConfig) Validate(path string) error {
	err := multierr.Combine(
		positive(path, "max_vel", cfg.MaxVel),
		positive(path, "max_accel", cfg.MaxAccel),
		nonNegative(path, "max_ang_vel", cfg.MaxAngVel),
		nonNegative(path, "max_ang_accel", cfg.MaxAngAccel),
		nonNegative(path, "resolution", cfg.Resolution),
		nonNegative(path, "max_sagitta", cfg.MaxSagitta),
	)
	if (cfg.MaxAngVel > 0) != (cfg.MaxAngAccel > 0) {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.New("max_ang_vel and max_ang_accel must be set together")))
	}
	return err
}

// Validate ensures all parts of the config are valid.
func (cfg *FollowerConfig) Validate(path string) error {
	errorPath := joinPath(path, "admissible_error")
	return multierr.Combine(
		nonNegative(errorPath, "x", cfg.AdmissibleError.X),
		nonNegative(errorPath, "y", cfg.AdmissibleError.Y),
		nonNegative(errorPath, "heading_deg", cfg.AdmissibleError.HeadingDeg),
		nonNegative(path, "timeout_sec", cfg.TimeoutSec),
	)
}

// Validate ensures all parts of the config are valid. Every invalid field is reported.
func (cfg *Config) Validate(path string) error {
	return multierr.Combine(
		cfg.Drive.Validate(joinPath(path, "drive")),
		cfg.Constraints.Validate(joinPath(path, "constraints")),
		cfg.Follower.Validate(joinPath(path, "follower")),
	)
}

// Default returns a conservative mecanum configuration, used when no config file is given.
func Default() *Config {
	gains := control.PIDCoefficients{Kp: 5}
	return &Config{
		Drive: DriveConfig{
			Type:              MecanumDrive,
			TrackWidth:        0.4,
			WheelBase:         0.3,
			LateralMultiplier: 1,
			MaxWheelVel:       1.5,
		},
		Constraints: ConstraintsConfig{MaxVel: 1, MaxAccel: 1, MaxAngVel: 2, MaxAngAccel: 2},
		Follower: FollowerConfig{
			Axial:           gains,
			Lateral:         gains,
			Heading:         gains,
			AdmissibleError: AdmissibleError{X: 0.02, Y: 0.02, HeadingDeg: 2},
			TimeoutSec:      1,
		},
	}
}
