package followers

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/drivetrain/control"
	"go.viam.com/drivetrain/kinematics"
	"go.viam.com/drivetrain/logging"
	"go.viam.com/drivetrain/spatialmath"
	"go.viam.com/drivetrain/trajectory"
)

// TankPIDVAFollower follows trajectories on a tank drive, which cannot move sideways. Lateral
// error is corrected by steering: the cross-track controller output is applied as a heading
// rate, signed by the direction of travel.
type TankPIDVAFollower struct {
	follower
	axial      *control.PIDFController
	crossTrack *control.PIDFController
}

// NewTankPIDVAFollower returns an idle follower. A nil clock uses the wall clock.
func NewTankPIDVAFollower(
	axial, crossTrack control.PIDCoefficients,
	admissibleError spatialmath.Pose2d,
	timeout time.Duration,
	clk clock.Clock,
	logger logging.Logger,
) *TankPIDVAFollower {
	return &TankPIDVAFollower{
		follower:   newFollower(admissibleError, timeout, clk, logger.Sublogger("tank_follower")),
		axial:      control.NewPIDFController(axial),
		crossTrack: control.NewPIDFController(crossTrack),
	}
}

// FollowTrajectory starts following traj from the current clock time.
func (f *TankPIDVAFollower) FollowTrajectory(traj *trajectory.Trajectory) {
	f.axial.Reset()
	f.crossTrack.Reset()
	f.follow(traj)
}

// Update computes the drive signal for the current pose.
func (f *TankPIDVAFollower) Update(
	currentPose spatialmath.Pose2d, currentRobotVel *spatialmath.Pose2d,
) (kinematics.DriveSignal, error) {
	tk, done, err := f.begin(currentPose)
	if err != nil || done {
		return kinematics.DriveSignal{}, err
	}
	targetRobotVel, targetRobotAccel := f.targetRobotMotion(tk)

	axialCorrection := correct(f.axial, tk.poseError.X, targetRobotVel.X, currentRobotVel,
		func(p spatialmath.Pose2d) float64 { return p.X }, tk.dt)
	headingCorrection := math.Copysign(1, targetRobotVel.X) * correct(
		f.crossTrack, tk.poseError.Y, targetRobotVel.Y, currentRobotVel,
		func(p spatialmath.Pose2d) float64 { return p.Y }, tk.dt)

	return kinematics.DriveSignal{
		Vel:   targetRobotVel.Add(spatialmath.NewPose2d(axialCorrection, 0, headingCorrection)),
		Accel: targetRobotAccel,
	}, nil
}
