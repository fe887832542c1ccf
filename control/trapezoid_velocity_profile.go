package control

import (
	"math"

	"github.com/pkg/errors"
)

// MotionState is the position, velocity and acceleration of a 1-d profile at some time.
type MotionState struct {
	X float64
	V float64
	A float64
}

// TrapezoidProfile is a rest-to-rest 1-d motion over a signed distance under symmetric velocity and
// acceleration limits. When the distance is too short to reach maxVel the profile is triangular.
type TrapezoidProfile struct {
	distance float64
	dir      float64
	vPeak    float64
	maxAcc   float64
	tAccel   float64
	tCruise  float64
}

// NewTrapezoidProfile computes the profile covering distance (may be negative).
func NewTrapezoidProfile(distance, maxVel, maxAcc float64) (*TrapezoidProfile, error) {
	if maxVel <= 0 {
		return nil, errors.Errorf("trapezoid profile needs a positive max velocity, got %v", maxVel)
	}
	if maxAcc <= 0 {
		return nil, errors.Errorf("trapezoid profile needs a positive max acceleration, got %v", maxAcc)
	}
	d := math.Abs(distance)
	p := &TrapezoidProfile{distance: distance, dir: 1, maxAcc: maxAcc}
	if distance < 0 {
		p.dir = -1
	}
	p.vPeak = math.Min(math.Sqrt(d*maxAcc), maxVel)
	p.tAccel = p.vPeak / maxAcc
	if p.vPeak > 0 {
		p.tCruise = (d - p.vPeak*p.tAccel) / p.vPeak
	}
	return p, nil
}

// Duration is the total time of the profile.
func (p *TrapezoidProfile) Duration() float64 {
	return 2*p.tAccel + p.tCruise
}

// Distance is the signed distance covered by the profile.
func (p *TrapezoidProfile) Distance() float64 {
	return p.distance
}

// Get returns the state at time t, clamped to [0, Duration()].
func (p *TrapezoidProfile) Get(t float64) MotionState {
	t = math.Max(0, math.Min(t, p.Duration()))
	var s MotionState
	switch {
	case t < p.tAccel:
		s = MotionState{X: 0.5 * p.maxAcc * t * t, V: p.maxAcc * t, A: p.maxAcc}
	case t < p.tAccel+p.tCruise:
		dt := t - p.tAccel
		s = MotionState{X: 0.5*p.vPeak*p.tAccel + p.vPeak*dt, V: p.vPeak}
	default:
		remaining := p.Duration() - t
		s = MotionState{
			X: math.Abs(p.distance) - 0.5*p.maxAcc*remaining*remaining,
			V: p.maxAcc * remaining,
			A: -p.maxAcc,
		}
		if remaining == 0 {
			s.A = 0
		}
	}
	return MotionState{X: p.dir * s.X, V: p.dir * s.V, A: p.dir * s.A}
}
