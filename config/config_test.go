package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/drivetrain/followers"
	"go.viam.com/drivetrain/localization"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/sim"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

func readData(t *testing.T, name string) *Config {
	t.Helper()
	cfg, err := ReadFile(filepath.Join("data", name))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

func TestReadDataFiles(t *testing.T) {
	cfg := readData(t, "mecanum.json")
	test.That(t, cfg.Drive.Type, test.ShouldEqual, MecanumDrive)
	test.That(t, cfg.Drive.LateralMultiplier, test.ShouldEqual, 1.1)
	test.That(t, cfg.Constraints.Resolution, test.ShouldEqual, 0.1)
	test.That(t, cfg.Follower.Heading.Kp, test.ShouldEqual, 5.0)
	test.That(t, cfg.Follower.AdmissibleError.HeadingDeg, test.ShouldEqual, 2.0)

	cfg = readData(t, "diff_swerve.json")
	test.That(t, cfg.Drive.Feedforward.KV, test.ShouldEqual, 0.5)
	test.That(t, cfg.Drive.ModuleOrientationPID.Kp, test.ShouldEqual, 2.0)

	for _, name := range []string{"tank.json", "swerve.json"} {
		readData(t, name)
	}
}

func TestReadFileExpandsEnvironment(t *testing.T) {
	t.Setenv("DRIVETRAIN_TRACK_WIDTH", "0.55")
	dir := t.TempDir()
	file := filepath.Join(dir, "robot.json")
	contents := `{
		"drive": {"type": "tank", "track_width": ${DRIVETRAIN_TRACK_WIDTH}},
		"constraints": {"max_vel": 1, "max_accel": 1}
	}`
	test.That(t, os.WriteFile(file, []byte(contents), 0o600), test.ShouldBeNil)

	cfg, err := ReadFile(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Drive.TrackWidth, test.ShouldEqual, 0.55)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadRejectsUnknownFields(t *testing.T) {
	_, err := Read(strings.NewReader(`{"drive": {"type": "tank", "track_width": 1, "colour": "red"}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "colour")
}

func TestValidate(t *testing.T) {
	t.Run("reports every problem", func(t *testing.T) {
		cfg := Config{
			Drive:       DriveConfig{Type: SwerveDrive, TrackWidth: -1},
			Constraints: ConstraintsConfig{MaxVel: 1, MaxAngVel: 2},
			Follower:    FollowerConfig{AdmissibleError: AdmissibleError{X: -0.1}},
		}
		err := cfg.Validate("robot")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, multierr.Errors(err), test.ShouldHaveLength, 5)
		for _, field := range []string{"wheel_base", "track_width", "max_accel", "max_ang_accel", "robot.follower.admissible_error"} {
			test.That(t, err.Error(), test.ShouldContainSubstring, field)
		}
	})
	t.Run("type", func(t *testing.T) {
		cfg := DriveConfig{TrackWidth: 1}
		test.That(t, cfg.Validate("drive"), test.ShouldNotBeNil)
		cfg.Type = "hovercraft"
		err := cfg.Validate("drive")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "hovercraft")
	})
	t.Run("default", func(t *testing.T) {
		test.That(t, Default().Validate(""), test.ShouldBeNil)
	})
	t.Run("valid", func(t *testing.T) {
		cfg := Config{
			Drive:       DriveConfig{Type: TankDrive, TrackWidth: 0.5},
			Constraints: ConstraintsConfig{MaxVel: 1, MaxAccel: 1},
		}
		test.That(t, cfg.Validate(""), test.ShouldBeNil)
	})
}

func TestFromAttributes(t *testing.T) {
	attrs := AttributeMap{
		"drive": map[string]interface{}{
			"type":        "swerve",
			"track_width": 1,
			"wheel_base":  0.5,
		},
		"constraints": map[string]interface{}{
			"max_vel":   2,
			"max_accel": 1.5,
		},
		"follower": map[string]interface{}{
			"axial":            map[string]interface{}{"kp": 3},
			"admissible_error": map[string]interface{}{"x": 0.1},
		},
	}
	cfg, err := FromAttributes(attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Drive.Type, test.ShouldEqual, SwerveDrive)
	test.That(t, cfg.Drive.TrackWidth, test.ShouldEqual, 1.0)
	test.That(t, cfg.Constraints.MaxVel, test.ShouldEqual, 2.0)
	test.That(t, cfg.Follower.Axial.Kp, test.ShouldEqual, 3.0)
	test.That(t, cfg.Follower.AdmissibleError.X, test.ShouldEqual, 0.1)

	attrs["extra"] = true
	_, err = FromAttributes(attrs)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromAttributes(AttributeMap{"drive": map[string]interface{}{"type": "tank"}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildDrives(t *testing.T) {
	for _, tc := range []struct {
		file       string
		constraint trajectory.VelocityConstraint
	}{
		{"tank.json", &trajectory.TankVelocityConstraint{}},
		{"mecanum.json", &trajectory.MecanumVelocityConstraint{}},
		{"swerve.json", &trajectory.SwerveVelocityConstraint{}},
		{"diff_swerve.json", &trajectory.DiffSwerveVelocityConstraint{}},
	} {
		t.Run(tc.file, func(t *testing.T) {
			cfg := readData(t, tc.file)
			drive, err := cfg.Drive.Build()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, drive.Type, test.ShouldEqual, cfg.Drive.Type)
			test.That(t, drive.WheelConstraint().Kind(), test.ShouldEqual, tc.constraint.Kind())

			constraints := cfg.TrajectoryConstraints(drive)
			test.That(t, constraints.MaxVel, test.ShouldEqual, cfg.Constraints.MaxVel)
			test.That(t, constraints.Drive, test.ShouldNotBeNil)

			base, sensors, err := drive.NewSimBase(spatialmath.Pose2d{})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, base, test.ShouldNotBeNil)
			localizer, err := drive.NewLocalizer(sensors, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, localizer.Update(context.Background()), test.ShouldBeNil)

			_, err = drive.NewDiffSwerveController()
			test.That(t, err == nil, test.ShouldEqual, cfg.Drive.Type == DiffSwerveDrive)
		})
	}
}

func TestWheelConstraintOptional(t *testing.T) {
	cfg := DriveConfig{Type: TankDrive, TrackWidth: 0.5}
	drive, err := cfg.Build()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drive.WheelConstraint(), test.ShouldBeNil)
}

func TestNewLocalizerNeedsSensors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	swerveCfg := DriveConfig{Type: SwerveDrive, TrackWidth: 0.5, WheelBase: 0.5}
	swerve, err := swerveCfg.Build()
	test.That(t, err, test.ShouldBeNil)
	base := sim.NewSwerveBase(swerve.Swerve, spatialmath.Pose2d{})
	_, err = swerve.NewLocalizer(Sensors{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = swerve.NewLocalizer(Sensors{Encoders: base}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	tankCfg := DriveConfig{Type: TankDrive, TrackWidth: 0.5, UseHeadingSensor: true}
	tank, err := tankCfg.Build()
	test.That(t, err, test.ShouldBeNil)
	_, err = tank.NewLocalizer(Sensors{Encoders: base}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	var localizer localization.Localizer
	localizer, err = tank.NewLocalizer(Sensors{Encoders: sim.NewTankBase(tank.Tank, spatialmath.Pose2d{}), Heading: base}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, localizer, test.ShouldNotBeNil)
}

func TestNewFollower(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()

	tankCfg := readData(t, "tank.json")
	tank, err := tankCfg.Drive.Build()
	test.That(t, err, test.ShouldBeNil)
	_, ok := tankCfg.NewFollower(tank, clk, logger).(*followers.TankPIDVAFollower)
	test.That(t, ok, test.ShouldBeTrue)

	mecanumCfg := readData(t, "mecanum.json")
	mecanum, err := mecanumCfg.Drive.Build()
	test.That(t, err, test.ShouldBeNil)
	follower := mecanumCfg.NewFollower(mecanum, clk, logger)
	_, ok = follower.(*followers.HolonomicPIDVAFollower)
	test.That(t, ok, test.ShouldBeTrue)

	traj, err := mecanumCfg.NewTrajectoryBuilder(mecanum, spatialmath.Pose2d{}, logger).
		LineTo(spatialmath.NewVector2d(1, 0), path.TangentHeading{}).
		Build()
	test.That(t, err, test.ShouldBeNil)
	follower.FollowTrajectory(traj)

	// within the configured 2 degree tolerance at the end
	clk.Add(time.Duration(traj.Duration()*float64(time.Second)) + time.Millisecond)
	_, err = follower.Update(spatialmath.NewPose2d(1, 0, spatialmath.DegToRad(1.5)), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, follower.IsFinished(), test.ShouldBeTrue)
}

func TestSchema(t *testing.T) {
	schema, err := SchemaJSON()
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{"track_width", "admissible_error", "max_ang_accel", "diff_swerve"} {
		test.That(t, string(schema), test.ShouldContainSubstring, field)
	}
}
