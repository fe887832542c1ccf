// Package control implements the feedback and feedforward building blocks used by the followers
// and the differential swerve module controllers.
package control

import (
	"math"
	"time"
)

// PIDCoefficients configures a PIDFController.
type PIDCoefficients struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki,omitempty"`
	Kd float64 `json:"kd,omitempty"`
}

// PIDFController is a PID controller with velocity/acceleration feedforward. The position error
// can be wrapped into a bounded input range (e.g. ±π for headings) and the output can be clamped.
// It is not safe for concurrent use.
type PIDFController struct {
	pid         PIDCoefficients
	feedforward FeedforwardCoefficients

	TargetPosition     float64
	TargetVelocity     float64
	TargetAcceleration float64

	inputBounded bool
	minInput     float64
	maxInput     float64

	outputBounded bool
	minOutput     float64
	maxOutput     float64

	errorSum  float64
	lastError float64
	hasLast   bool
	lastOut   float64
}

// NewPIDFController returns a controller with the given feedback gains and no feedforward.
func NewPIDFController(pid PIDCoefficients) *PIDFController {
	return &PIDFController{pid: pid}
}

// NewPIDFControllerWithFeedforward returns a controller with feedback gains plus kV/kA/kStatic
// feedforward applied to the target velocity and acceleration.
func NewPIDFControllerWithFeedforward(pid PIDCoefficients, ff FeedforwardCoefficients) *PIDFController {
	return &PIDFController{pid: pid, feedforward: ff}
}

// SetInputBounds makes the controller treat the measured input as periodic over [min, max]; the
// position error is wrapped into half of that range.
func (c *PIDFController) SetInputBounds(min, max float64) {
	if min < max {
		c.inputBounded = true
		c.minInput = min
		c.maxInput = max
	}
}

// SetOutputBounds clamps the controller output to [min, max].
func (c *PIDFController) SetOutputBounds(min, max float64) {
	if min < max {
		c.outputBounded = true
		c.minOutput = min
		c.maxOutput = max
	}
}

// ClearOutputBounds removes any output clamping.
func (c *PIDFController) ClearOutputBounds() {
	c.outputBounded = false
}

// PositionError returns the (possibly wrapped) difference between the target and measured position.
func (c *PIDFController) PositionError(measured float64) float64 {
	err := c.TargetPosition - measured
	if !c.inputBounded {
		return err
	}
	inputRange := c.maxInput - c.minInput
	for math.Abs(err) > inputRange/2 {
		err -= math.Copysign(inputRange, err)
	}
	return err
}

// Update runs one controller step against the measured position. dt is the time since the previous
// step; the first step after a reset, or any non-positive dt, contributes no integral or
// derivative term.
func (c *PIDFController) Update(measured float64, dt time.Duration) float64 {
	return c.update(measured, 0, false, dt)
}

// UpdateWithVelocity is like Update but uses targetVelocity - measuredVelocity as the derivative
// term instead of differentiating the position error.
func (c *PIDFController) UpdateWithVelocity(measured, measuredVelocity float64, dt time.Duration) float64 {
	return c.update(measured, measuredVelocity, true, dt)
}

func (c *PIDFController) update(measured, measuredVelocity float64, haveVelocity bool, dt time.Duration) float64 {
	posErr := c.PositionError(measured)
	dtS := dt.Seconds()

	var velErr float64
	if c.hasLast && dtS > 0 {
		c.errorSum += 0.5 * (posErr + c.lastError) * dtS
		velErr = (posErr - c.lastError) / dtS
	}
	if haveVelocity {
		velErr = c.TargetVelocity - measuredVelocity
	}
	c.lastError = posErr
	c.hasLast = true

	out := c.pid.Kp*posErr + c.pid.Ki*c.errorSum + c.pid.Kd*velErr +
		c.feedforward.Calculate(c.TargetVelocity, c.TargetAcceleration)
	if c.outputBounded {
		out = math.Max(c.minOutput, math.Min(out, c.maxOutput))
	}
	c.lastOut = out
	return out
}

// LastError returns the position error seen on the most recent update.
func (c *PIDFController) LastError() float64 {
	return c.lastError
}

// Output returns the most recent controller output.
func (c *PIDFController) Output() float64 {
	return c.lastOut
}

// Reset clears the integral and derivative history. Targets and bounds are kept.
func (c *PIDFController) Reset() {
	c.errorSum = 0
	c.lastError = 0
	c.hasLast = false
	c.lastOut = 0
}
