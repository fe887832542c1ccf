package control

import (
	"testing"

	"go.viam.com/test"
)

func TestTrapezoidProfile(t *testing.T) {
	for _, tc := range []struct {
		name             string
		distance         float64
		maxVel, maxAcc   float64
		expectedDuration float64
		peak             float64
	}{
		// reaches max velocity: 2*v/a + (d - v*v/a)/v
		{"trapezoid", 10, 2, 1, 2*2 + (10-4)/2.0, 2},
		{"trapezoid reverse", -10, 2, 1, 2*2 + (10-4)/2.0, -2},
		// too short to cruise: 2*sqrt(d/a)
		{"triangle", 1, 2, 1, 2, 1},
		{"empty", 0, 2, 1, 0, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewTrapezoidProfile(tc.distance, tc.maxVel, tc.maxAcc)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, p.Duration(), test.ShouldAlmostEqual, tc.expectedDuration, 1e-9)
			test.That(t, p.Get(p.Duration()/2).V, test.ShouldAlmostEqual, tc.peak, 1e-9)

			end := p.Get(p.Duration() + 1)
			test.That(t, end.X, test.ShouldAlmostEqual, tc.distance, 1e-9)
			test.That(t, end.V, test.ShouldAlmostEqual, 0, 1e-9)
			test.That(t, p.Get(-1).X, test.ShouldAlmostEqual, 0)
		})
	}
}

func TestTrapezoidProfileInvalid(t *testing.T) {
	_, err := NewTrapezoidProfile(1, 0, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewTrapezoidProfile(1, 1, -1)
	test.That(t, err, test.ShouldNotBeNil)
}
