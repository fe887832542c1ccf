package sim

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/drivetrain/followers"
	"go.viam.com/drivetrain/localization"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// DefaultPeriod is the control period used when a Simulation leaves it unset.
const DefaultPeriod = 10 * time.Millisecond

// ErrTickLimit is returned when the follower has not finished within the tick limit.
var ErrTickLimit = errors.New("simulation reached its tick limit")

// Simulation closes the loop between a simulated base, a localizer reading it and a follower
// commanding it. The follower must share Clock.
type Simulation struct {
	Base      *Base
	Localizer localization.Localizer
	Follower  followers.Follower
	// Clock is advanced by Period every tick when it is a *clock.Mock; otherwise each tick waits
	// for Period of wall time.
	Clock    clock.Clock
	Period   time.Duration
	MaxTicks int
	Logger   logging.Logger
}

// ErrorStats summarizes one tracking-error series.
type ErrorStats struct {
	Mean   float64
	StdDev float64
	P95    float64
	Max    float64
}

// Result is the outcome of a simulated run.
type Result struct {
	Ticks    int
	Elapsed  time.Duration
	Finished bool
	// FinalPose is the true pose of the base, FinalEstimate what the localizer believed.
	FinalPose     spatialmath.Pose2d
	FinalEstimate spatialmath.Pose2d
	// FinalError is the true pose error to the trajectory end.
	FinalError spatialmath.Pose2d

	PositionError ErrorStats
	HeadingError  ErrorStats
	MaxWheelSpeed float64
}

func summarize(series []float64) (ErrorStats, error) {
	if len(series) == 0 {
		return ErrorStats{}, nil
	}
	mean, err1 := stats.Mean(series)
	stdDev, err2 := stats.StandardDeviation(series)
	p95, err3 := stats.Percentile(series, 95)
	maximum, err4 := stats.Max(series)
	if err := multierr.Combine(err1, err2, err3, err4); err != nil {
		return ErrorStats{}, err
	}
	return ErrorStats{Mean: mean, StdDev: stdDev, P95: p95, Max: maximum}, nil
}

// Run follows traj until the follower finishes. The localizer is first reset to the base's true
// pose.
func (s *Simulation) Run(ctx context.Context, traj *trajectory.Trajectory) (*Result, error) {
	period := s.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	maxTicks := s.MaxTicks
	if maxTicks <= 0 {
		// generous headroom past the trajectory end
		maxTicks = int((traj.Duration()+10)/period.Seconds()) + 1
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("sim")
	}
	mock, isMock := s.Clock.(*clock.Mock)

	s.Localizer.SetPoseEstimate(s.Base.Pose())
	start := s.Clock.Now()
	s.Follower.FollowTrajectory(traj)

	var positionErrors, headingErrors []float64
	result := &Result{}
	for !s.Follower.IsFinished() {
		if result.Ticks >= maxTicks {
			return nil, errors.Wrapf(ErrTickLimit, "after %d ticks", result.Ticks)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Localizer.Update(ctx); err != nil {
			return nil, errors.Wrap(err, "updating localizer")
		}
		var velocity *spatialmath.Pose2d
		if vel, ok := s.Localizer.PoseVelocity(); ok {
			velocity = &vel
		}
		signal, err := s.Follower.Update(s.Localizer.PoseEstimate(), velocity)
		if err != nil {
			return nil, errors.Wrap(err, "updating follower")
		}
		result.Ticks++

		poseError := s.Follower.LastError()
		positionErrors = append(positionErrors, poseError.Vec().Norm())
		headingErrors = append(headingErrors, math.Abs(poseError.Heading))
		if s.Follower.IsFinished() {
			break
		}

		s.Base.Step(signal.Vel, period.Seconds())
		result.MaxWheelSpeed = math.Max(result.MaxWheelSpeed, s.Base.wheelSpeed())
		if isMock {
			mock.Add(period)
		} else if !utils.SelectContextOrWait(ctx, period) {
			return nil, ctx.Err()
		}
		logger.CDebugw(ctx, "sim tick", "tick", result.Ticks, "pose", s.Base.Pose().String(), "cmd", signal.Vel.String())
	}

	result.Finished = true
	result.Elapsed = s.Clock.Since(start)
	result.FinalPose = s.Base.Pose()
	result.FinalEstimate = s.Localizer.PoseEstimate()
	result.FinalError = spatialmath.NewPose2dFromVec(
		traj.End().Vec().Sub(result.FinalPose.Vec()),
		spatialmath.AngleDelta(traj.End().Heading, result.FinalPose.Heading),
	)

	var err1, err2 error
	result.PositionError, err1 = summarize(positionErrors)
	result.HeadingError, err2 = summarize(headingErrors)
	if err := multierr.Combine(err1, err2); err != nil {
		return nil, err
	}
	logger.Debugw("simulation finished",
		"ticks", result.Ticks,
		"elapsed", result.Elapsed,
		"final_error", result.FinalError.String(),
	)
	return result, nil
}
