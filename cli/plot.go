package cli

import (
	"image/color"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/drivetrain/trajectory"
)

const plotPeriod = 0.02

var (
	speedColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	angularColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func addLine(p *plot.Plot, name string, c color.Color, pts plotter.XYs) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "plotting %s", name)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// velocityPlot plots the translational speed and angular velocity over time.
func velocityPlot(samples []trajectory.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Velocity profile"
	p.X.Label.Text = "time (s)"
	p.Add(plotter.NewGrid())

	speed := lo.Map(samples, func(s trajectory.Sample, _ int) plotter.XY {
		return plotter.XY{X: s.T, Y: s.Vel.Vec().Norm()}
	})
	angular := lo.Map(samples, func(s trajectory.Sample, _ int) plotter.XY {
		return plotter.XY{X: s.T, Y: s.Vel.Heading}
	})
	if err := addLine(p, "speed", speedColor, speed); err != nil {
		return nil, err
	}
	if err := addLine(p, "angular velocity", angularColor, angular); err != nil {
		return nil, err
	}
	return p, nil
}

// pathPlot plots the field positions of the trajectory.
func pathPlot(samples []trajectory.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Path"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	pts := lo.Map(samples, func(s trajectory.Sample, _ int) plotter.XY {
		return plotter.XY{X: s.Pose.X, Y: s.Pose.Y}
	})
	if err := addLine(p, "path", speedColor, pts); err != nil {
		return nil, err
	}
	return p, nil
}

// PlotAction writes the velocity profile, and optionally the path, as PNG files.
func PlotAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	traj, err := s.trajectory(c)
	if err != nil {
		return err
	}
	samples, err := traj.SampleEvery(plotPeriod)
	if err != nil {
		return err
	}

	p, err := velocityPlot(samples)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, c.String(flagOut)); err != nil {
		return err
	}
	if out := c.String(flagPath); out != "" {
		p, err := pathPlot(samples)
		if err != nil {
			return err
		}
		if err := p.Save(6*vg.Inch, 6*vg.Inch, out); err != nil {
			return err
		}
	}
	s.logger.Infow("plots written", "velocity", c.String(flagOut), "path", c.String(flagPath))
	return nil
}
