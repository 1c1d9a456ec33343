package gmat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const testε = 1e-6

func floatEqual(a, b float64) (bool, error) {
	if !scalar.EqualWithinRel(a, b, testε) {
		return false, fmt.Errorf("difference of %3.10f", math.Abs(a-b))
	}
	return true, nil
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if ok, _ := floatEqual(a[i], b[i]); !ok {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in radians are equal modulo 2π.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Abs(a - b)
	if diff < testε || math.Abs(diff-2*math.Pi) < testε {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10fπ", diff/math.Pi)
}
