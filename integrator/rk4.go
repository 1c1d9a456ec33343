// Package integrator propagates first order ODE systems with a fixed step Runge-Kutta scheme.
package integrator

// minStep is the shortest partial step (in the unit of t) worth taking at the end of a propagation.
const minStep = 1e-9

// System is a first order ODE y' = f(t, y).
type System interface {
	// Derivatives returns f(t, y) in a new slice and must not modify y.
	Derivatives(t float64, y []float64) []float64
}

// SystemFunc adapts a function to a System.
type SystemFunc func(t float64, y []float64) []float64

// Derivatives implements System.
func (f SystemFunc) Derivatives(t float64, y []float64) []float64 { return f(t, y) }

// RK4 is the classical fourth order Runge-Kutta integrator with a fixed nominal step.
type RK4 struct {
	step float64
	sys  System
}

// NewRK4 returns an RK4 integrator of the system. It panics if the step is not positive or the
// system is nil.
func NewRK4(step float64, sys System) *RK4 {
	if step <= 0 {
		panic("integrator: step must be positive")
	}
	if sys == nil {
		panic("integrator: nil system")
	}
	return &RK4{step: step, sys: sys}
}

// Step advances y in place from t by h.
func (r *RK4) Step(t, h float64, y []float64) {
	n := len(y)
	tmp := make([]float64, n)
	k1 := r.sys.Derivatives(t, y)
	for i := range tmp {
		tmp[i] = y[i] + h/2*k1[i]
	}
	k2 := r.sys.Derivatives(t+h/2, tmp)
	for i := range tmp {
		tmp[i] = y[i] + h/2*k2[i]
	}
	k3 := r.sys.Derivatives(t+h/2, tmp)
	for i := range tmp {
		tmp[i] = y[i] + h*k3[i]
	}
	k4 := r.sys.Derivatives(t+h, tmp)
	for i := range y {
		y[i] += h / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
}

// Propagate integrates y in place from t0 over duration with nominal steps, finishing with a
// shorter step when duration is not a multiple of the step. observe, if not nil, is called after
// every step. It returns the number of steps taken.
func (r *RK4) Propagate(t0, duration float64, y []float64, observe func(t float64, y []float64)) int {
	steps := 0
	t := t0
	end := t0 + duration
	for end-t > minStep {
		h := r.step
		if end-t < h {
			h = end - t
		}
		r.Step(t, h, y)
		steps++
		// Count steps rather than accumulating h to avoid drift.
		if h == r.step {
			t = t0 + float64(steps)*r.step
		} else {
			t = end
		}
		if observe != nil {
			observe(t, y)
		}
	}
	return steps
}
