// Package cli contains the trajtool command line tool, which generates, simulates and plots
// trajectories for a configured drivetrain.
package cli

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagRoute  = "route"
	flagPeriod = "period"
	flagOut    = "out"
	flagPath   = "path-out"
	flagTrace  = "trace-ticks"
)

var routeFlag = &cli.StringFlag{
	Name:  flagRoute,
	Value: defaultRoute,
	Usage: "route to follow, e.g. `line:2,0;turn:90;spline:4,2,90;wait:1`",
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "trajtool",
		Usage:           "generate, simulate and plot drivetrain trajectories",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "profile a route and print its samples",
				Flags: []cli.Flag{
					routeFlag,
					&cli.Float64Flag{
						Name:  flagPeriod,
						Value: 0.25,
						Usage: "sample period in seconds",
					},
				},
				Action: GenerateAction,
			},
			{
				Name:  "simulate",
				Usage: "follow a route with a simulated drivetrain and report the tracking error",
				Flags: []cli.Flag{
					routeFlag,
					&cli.DurationFlag{
						Name:  flagPeriod,
						Value: 10 * time.Millisecond,
						Usage: "control period",
					},
					&cli.BoolFlag{
						Name:  flagTrace,
						Usage: "log every control tick without enabling debug logging elsewhere",
					},
				},
				Action: SimulateAction,
			},
			{
				Name:  "plot",
				Usage: "plot the velocity profile of a route to a PNG file",
				Flags: []cli.Flag{
					routeFlag,
					&cli.StringFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "write the velocity plot to `FILE`",
					},
					&cli.StringFlag{
						Name:  flagPath,
						Usage: "also write the field path to `FILE`",
					},
				},
				Action: PlotAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the configuration",
				Action: SchemaAction,
			},
		},
	}
}
