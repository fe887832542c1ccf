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

// HolonomicPIDVAFollower follows trajectories on drivetrains that can move in any direction
// (mecanum, swerve). It runs independent axial, lateral and heading controllers on the pose
// error and adds their corrections to the target robot-frame velocity.
type HolonomicPIDVAFollower struct {
	follower
	axial   *control.PIDFController
	lateral *control.PIDFController
	heading *control.PIDFController
}

// NewHolonomicPIDVAFollower returns an idle follower. A nil clock uses the wall clock.
func NewHolonomicPIDVAFollower(
	axial, lateral, heading control.PIDCoefficients,
	admissibleError spatialmath.Pose2d,
	timeout time.Duration,
	clk clock.Clock,
	logger logging.Logger,
) *HolonomicPIDVAFollower {
	headingController := control.NewPIDFController(heading)
	headingController.SetInputBounds(-math.Pi, math.Pi)
	return &HolonomicPIDVAFollower{
		follower: newFollower(admissibleError, timeout, clk, logger.Sublogger("holonomic_follower")),
		axial:    control.NewPIDFController(axial),
		lateral:  control.NewPIDFController(lateral),
		heading:  headingController,
	}
}

// FollowTrajectory starts following traj from the current clock time.
func (f *HolonomicPIDVAFollower) FollowTrajectory(traj *trajectory.Trajectory) {
	f.axial.Reset()
	f.lateral.Reset()
	f.heading.Reset()
	f.follow(traj)
}

// Update computes the drive signal for the current pose.
func (f *HolonomicPIDVAFollower) Update(
	currentPose spatialmath.Pose2d, currentRobotVel *spatialmath.Pose2d,
) (kinematics.DriveSignal, error) {
	tk, done, err := f.begin(currentPose)
	if err != nil || done {
		return kinematics.DriveSignal{}, err
	}
	targetRobotVel, targetRobotAccel := f.targetRobotMotion(tk)

	correction := spatialmath.NewPose2d(
		correct(f.axial, tk.poseError.X, targetRobotVel.X, currentRobotVel, func(p spatialmath.Pose2d) float64 { return p.X }, tk.dt),
		correct(f.lateral, tk.poseError.Y, targetRobotVel.Y, currentRobotVel, func(p spatialmath.Pose2d) float64 { return p.Y }, tk.dt),
		correct(f.heading, tk.poseError.Heading, targetRobotVel.Heading, currentRobotVel,
			func(p spatialmath.Pose2d) float64 { return p.Heading }, tk.dt),
	)
	return kinematics.DriveSignal{
		Vel:   targetRobotVel.Add(correction),
		Accel: targetRobotAccel,
	}, nil
}

// correct runs one controller with the pose error as its setpoint and zero as the measurement.
// When the robot velocity is known its component is used for the derivative term.
func correct(
	c *control.PIDFController,
	poseError, targetVel float64,
	currentRobotVel *spatialmath.Pose2d,
	component func(spatialmath.Pose2d) float64,
	dt time.Duration,
) float64 {
	c.TargetPosition = poseError
	c.TargetVelocity = targetVel
	if currentRobotVel == nil {
		return c.Update(0, dt)
	}
	return c.UpdateWithVelocity(0, component(*currentRobotVel), dt)
}
