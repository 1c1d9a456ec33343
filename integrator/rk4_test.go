package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// cooling is the radiating ball example from Chapra: T' = -2.2067e-12 (T^4 - 81e8).
var cooling = SystemFunc(func(t float64, y []float64) []float64 {
	return []float64{-2.2067e-12 * (math.Pow(y[0], 4) - 81e8)}
})

func TestRK4Cooling(t *testing.T) {
	y := []float64{1200}
	var last float64
	steps := NewRK4(30, cooling).Propagate(0, 480, y, func(t float64, _ []float64) { last = t })
	if steps != 16 || last != 480 {
		t.Fatalf("%d steps ending at %f", steps, last)
	}
	// Chapra's true solution at 480 s is 647.57 K.
	if !scalar.EqualWithinAbs(y[0], 647.57, 0.5) {
		t.Fatalf("T(480) = %f", y[0])
	}
}

func TestRK4Order(t *testing.T) {
	decay := SystemFunc(func(t float64, y []float64) []float64 { return []float64{-y[0]} })
	errAt := func(h float64) float64 {
		y := []float64{1}
		NewRK4(h, decay).Propagate(0, 1, y, nil)
		return math.Abs(y[0] - math.Exp(-1))
	}
	if e := errAt(0.01); e > 1e-9 {
		t.Fatalf("error with h=0.01 is %e", e)
	}
	// Halving the step divides the error by about 2^4.
	if ratio := errAt(0.1) / errAt(0.05); ratio < 14 || ratio > 18 {
		t.Fatalf("convergence ratio %f", ratio)
	}
}

func TestRK4PartialStep(t *testing.T) {
	// y' = 1 is integrated exactly, whatever the step.
	unit := SystemFunc(func(t float64, y []float64) []float64 { return []float64{1} })
	y := []float64{0}
	var times []float64
	steps := NewRK4(10, unit).Propagate(5, 25, y, func(t float64, _ []float64) { times = append(times, t) })
	if steps != 3 || !floats.Equal(times, []float64{15, 25, 30}) {
		t.Fatalf("%d steps at %v", steps, times)
	}
	if y[0] != 25 {
		t.Fatalf("y = %f", y[0])
	}
	if NewRK4(10, unit).Propagate(0, 0, y, nil) != 0 {
		t.Fatal("null duration should not step")
	}
}

func TestRK4Panics(t *testing.T) {
	for name, f := range map[string]func(){
		"null step": func() { NewRK4(0, cooling) },
		"nil":       func() { NewRK4(1, nil) },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("%s: expected a panic", name)
				}
			}()
			f()
		}()
	}
}
