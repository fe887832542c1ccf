// Package followers drives a robot along a trajectory by combining the trajectory's velocity
// feedforward with feedback on the robot-frame pose error.
package followers

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// ErrNoTrajectory is returned by Update when no trajectory has been given to the follower.
var ErrNoTrajectory = errors.New("follower has no trajectory")

// State is where a follower is in its lifecycle.
type State int

// The follower states. A follower starts Idle, moves to Following on FollowTrajectory and to
// Finished once the termination condition holds. FollowTrajectory may be called again from any
// state.
const (
	Idle State = iota
	Following
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Following:
		return "following"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// A Follower is ticked once per control loop iteration, after the localizer has been updated.
type Follower interface {
	FollowTrajectory(traj *trajectory.Trajectory)
	// Update returns the drive signal for the current tick. currentRobotVel may be nil when no
	// velocity estimate is available. A finished follower returns a zero signal.
	Update(currentPose spatialmath.Pose2d, currentRobotVel *spatialmath.Pose2d) (kinematics.DriveSignal, error)
	State() State
	IsFollowing() bool
	IsFinished() bool
	// LastError is the robot-frame pose error computed on the most recent update.
	LastError() spatialmath.Pose2d
	Trajectory() *trajectory.Trajectory
}

// tick carries what a concrete follower needs to compute its command on one update.
type tick struct {
	t         float64
	dt        time.Duration
	target    spatialmath.Pose2d
	poseError spatialmath.Pose2d
}

// follower holds the timing and termination logic shared by every follower.
type follower struct {
	clock           clock.Clock
	logger          logging.Logger
	admissibleError spatialmath.Pose2d
	timeout         time.Duration

	traj       *trajectory.Trajectory
	state      State
	start      time.Time
	lastUpdate time.Time
	hasUpdated bool
	lastError  spatialmath.Pose2d
}

func newFollower(admissibleError spatialmath.Pose2d, timeout time.Duration, clk clock.Clock, logger logging.Logger) follower {
	if clk == nil {
		clk = clock.New()
	}
	return follower{
		clock:           clk,
		logger:          logger,
		admissibleError: admissibleError,
		timeout:         timeout,
	}
}

func (f *follower) follow(traj *trajectory.Trajectory) {
	f.traj = traj
	f.state = Following
	f.start = f.clock.Now()
	f.hasUpdated = false
	f.lastError = spatialmath.Pose2d{}
	f.logger.Debugw("following trajectory", "duration", traj.Duration(), "end", traj.End().String())
}

// begin starts an update. It reports done when the follower has finished, in which case the
// caller returns a zero signal.
func (f *follower) begin(currentPose spatialmath.Pose2d) (tick, bool, error) {
	if f.traj == nil {
		return tick{}, false, ErrNoTrajectory
	}
	if f.state == Finished {
		return tick{}, true, nil
	}

	now := f.clock.Now()
	var dt time.Duration
	if f.hasUpdated {
		dt = now.Sub(f.lastUpdate)
	}
	f.lastUpdate = now
	f.hasUpdated = true

	t := now.Sub(f.start).Seconds()
	target := f.traj.Get(t)
	poseError := kinematics.CalculateRobotPoseError(target, currentPose)
	f.lastError = poseError

	duration := f.traj.Duration()
	if (t >= duration && f.admissible(poseError)) || t >= duration+f.timeout.Seconds() {
		f.state = Finished
		f.logger.Debugw("trajectory finished", "elapsed", t, "error", poseError.String())
		return tick{}, true, nil
	}
	return tick{t: t, dt: dt, target: target, poseError: poseError}, false, nil
}

func (f *follower) admissible(poseError spatialmath.Pose2d) bool {
	return math.Abs(poseError.X) <= f.admissibleError.X &&
		math.Abs(poseError.Y) <= f.admissibleError.Y &&
		math.Abs(poseError.Heading) <= f.admissibleError.Heading
}

func (f *follower) State() State {
	return f.state
}

func (f *follower) IsFollowing() bool {
	return f.state == Following
}

func (f *follower) IsFinished() bool {
	return f.state == Finished
}

func (f *follower) LastError() spatialmath.Pose2d {
	return f.lastError
}

func (f *follower) Trajectory() *trajectory.Trajectory {
	return f.traj
}

// targetRobotMotion returns the trajectory velocity and acceleration at t in the frame of the
// target pose.
func (f *follower) targetRobotMotion(tk tick) (spatialmath.Pose2d, spatialmath.Pose2d) {
	fieldVel := f.traj.Velocity(tk.t)
	fieldAccel := f.traj.Acceleration(tk.t)
	return kinematics.FieldToRobotVelocity(tk.target, fieldVel),
		kinematics.FieldToRobotAcceleration(tk.target, fieldVel, fieldAccel)
}
