package cli

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/drivetrain/config"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/sim"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// session is what every command needs: the config, its drive and a logger.
type session struct {
	cfg    *config.Config
	drive  *config.Drive
	logger logging.Logger
}

func newSession(c *cli.Context) (*session, error) {
	logger := logging.NewBlankLogger("trajtool")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	cfg := config.Default()
	if file := c.String(flagConfig); file != "" {
		var err error
		if cfg, err = config.ReadFile(file); err != nil {
			return nil, err
		}
	}
	drive, err := cfg.Drive.Build()
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, drive: drive, logger: logger}, nil
}

func (s *session) trajectory(c *cli.Context) (*trajectory.Trajectory, error) {
	steps, err := parseRoute(c.String(flagRoute))
	if err != nil {
		return nil, err
	}
	traj, err := buildRoute(s.cfg.NewTrajectoryBuilder(s.drive, spatialmath.Pose2d{}, s.logger), steps)
	if err != nil {
		return nil, errors.Wrap(err, "building trajectory")
	}
	return traj, nil
}

func formatPose(p spatialmath.Pose2d) string {
	return fmt.Sprintf("X:%.3f, Y:%.3f, θ:%.1f°", p.X, p.Y, spatialmath.RadToDeg(p.Heading))
}

// GenerateAction prints a table of trajectory samples.
func GenerateAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	traj, err := s.trajectory(c)
	if err != nil {
		return err
	}
	samples, err := traj.SampleEvery(c.Float64(flagPeriod))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Time", "Pose", "Velocity", "Acceleration"})
	for i, sample := range samples {
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.2f", sample.T),
			formatPose(sample.Pose),
			formatPose(sample.Vel),
			formatPose(sample.Accel),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%.2f", traj.Duration()), formatPose(traj.End()), "", ""})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// SimulateAction follows the route with a simulated base of the configured drive and prints the
// tracking statistics.
func SimulateAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	traj, err := s.trajectory(c)
	if err != nil {
		return err
	}
	base, sensors, err := s.drive.NewSimBase(traj.Start())
	if err != nil {
		return err
	}
	localizer, err := s.drive.NewLocalizer(sensors, s.logger)
	if err != nil {
		return err
	}
	clk := clock.NewMock()
	simulation := &sim.Simulation{
		Base:      base,
		Localizer: localizer,
		Follower:  s.cfg.NewFollower(s.drive, clk, s.logger),
		Clock:     clk,
		Period:    c.Duration(flagPeriod),
		Logger:    s.logger,
	}
	ctx := c.Context
	if c.Bool(flagTrace) {
		ctx = logging.EnableDebugMode(ctx, "sim")
	}
	result, err := simulation.Run(ctx, traj)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Drive", s.cfg.Drive.Type},
		{"Trajectory duration", fmt.Sprintf("%.2fs", traj.Duration())},
		{"Elapsed", result.Elapsed},
		{"Ticks", result.Ticks},
		{"Final pose", formatPose(result.FinalPose)},
		{"Final error", formatPose(result.FinalError)},
		{"Max wheel speed", fmt.Sprintf("%.3f", result.MaxWheelSpeed)},
	})
	t.AppendSeparator()
	for _, row := range []struct {
		name  string
		stats sim.ErrorStats
		scale float64
	}{
		{"Position error", result.PositionError, 1},
		{"Heading error (deg)", result.HeadingError, spatialmath.RadToDeg(1)},
	} {
		t.AppendRow(table.Row{row.name, fmt.Sprintf("mean %.4f, p95 %.4f, max %.4f, sd %.4f",
			row.stats.Mean*row.scale, row.stats.P95*row.scale, row.stats.Max*row.scale, row.stats.StdDev*row.scale)})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// SchemaAction prints the configuration schema.
func SchemaAction(c *cli.Context) error {
	schema, err := config.SchemaJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(schema))
	return nil
}
