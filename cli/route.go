package cli

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/drivetrain/path"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// defaultRoute drives forward, turns left in place and drives along the new heading.
const defaultRoute = "line:2,0;turn:90;line:2,1.5"

// routeStep applies one parsed step to a builder.
type routeStep func(b *trajectory.Builder) *trajectory.Builder

// parseRoute reads a route such as "line:2,0;spline:4,2,90;turn:-90;wait:0.5". Coordinates are
// field positions and angles are in degrees:
//
//	line:x,y             straight line, heading follows the tangent
//	strafe:x,y           straight line, heading held constant
//	spline:x,y,tangent   quintic spline ending with the given tangent, heading follows the tangent
//	turn:angle           turn in place
//	wait:seconds         hold position
func parseRoute(route string) ([]routeStep, error) {
	var steps []routeStep
	for i, raw := range strings.Split(route, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		kind, argList, _ := strings.Cut(raw, ":")
		var args []float64
		for _, field := range strings.Split(argList, ",") {
			if field = strings.TrimSpace(field); field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "route step %d (%q)", i, raw)
			}
			args = append(args, v)
		}
		step, err := newRouteStep(kind, args)
		if err != nil {
			return nil, errors.Wrapf(err, "route step %d (%q)", i, raw)
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, errors.New("route has no steps")
	}
	return steps, nil
}

func newRouteStep(kind string, args []float64) (routeStep, error) {
	want := map[string]int{"line": 2, "strafe": 2, "spline": 3, "turn": 1, "wait": 1}
	n, ok := want[kind]
	if !ok {
		return nil, errors.Errorf("unknown step %q", kind)
	}
	if len(args) != n {
		return nil, errors.Errorf("%s takes %d arguments, got %d", kind, n, len(args))
	}
	switch kind {
	case "line":
		return func(b *trajectory.Builder) *trajectory.Builder {
			return b.LineTo(spatialmath.NewVector2d(args[0], args[1]), path.TangentHeading{})
		}, nil
	case "strafe":
		return func(b *trajectory.Builder) *trajectory.Builder {
			return b.LineTo(spatialmath.NewVector2d(args[0], args[1]), path.ConstantHeading{})
		}, nil
	case "spline":
		return func(b *trajectory.Builder) *trajectory.Builder {
			return b.SplineTo(spatialmath.NewVector2d(args[0], args[1]), spatialmath.DegToRad(args[2]), path.TangentHeading{})
		}, nil
	case "turn":
		return func(b *trajectory.Builder) *trajectory.Builder {
			return b.Turn(spatialmath.DegToRad(args[0]))
		}, nil
	default:
		return func(b *trajectory.Builder) *trajectory.Builder {
			return b.Wait(args[0])
		}, nil
	}
}

// buildRoute applies every step and builds the trajectory.
func buildRoute(b *trajectory.Builder, steps []routeStep) (*trajectory.Trajectory, error) {
	for _, step := range steps {
		b = step(b)
	}
	return b.Build()
}
