package control

import (
	"math"

	"github.com/pkg/errors"
)

// feedforwardEpsilon is the speed below which kStatic is not applied.
const feedforwardEpsilon = 1e-6

// FeedforwardCoefficients map a desired velocity and acceleration to a motor command
// (normalized voltage): kV*v + kA*a + kStatic*sign(v).
type FeedforwardCoefficients struct {
	KV      float64 `json:"kv"`
	KA      float64 `json:"ka,omitempty"`
	KStatic float64 `json:"kstatic,omitempty"`
}

// Calculate returns the feedforward command for the given velocity and acceleration.
func (ff FeedforwardCoefficients) Calculate(vel, accel float64) float64 {
	base := ff.KV*vel + ff.KA*accel
	if math.Abs(vel) > feedforwardEpsilon {
		base += math.Copysign(ff.KStatic, vel)
	}
	return base
}

// CalculateMotorFeedforward applies the feedforward to every (velocity, acceleration) pair.
func CalculateMotorFeedforward(vels, accels []float64, ff FeedforwardCoefficients) ([]float64, error) {
	if len(vels) != len(accels) {
		return nil, errors.Errorf("got %d velocities but %d accelerations", len(vels), len(accels))
	}
	out := make([]float64, len(vels))
	for i := range vels {
		out[i] = ff.Calculate(vels[i], accels[i])
	}
	return out, nil
}
