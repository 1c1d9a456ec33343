package gmat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	deg2rad = math.Pi / 180
	r2d     = 180 / math.Pi
)

// Norm returns the norm of a given vector which is supposed to be 3x1.
func Norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Unit returns the unit vector of a given vector.
func Unit(a []float64) (b []float64) {
	n := Norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// Dot performs the inner product via BLAS.
func Dot(a, b []float64) float64 {
	return mat.Dot(mat.NewVecDense(len(a), a), mat.NewVecDense(len(b), b))
}

// Cross performs the cross product.
func Cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// Angle is the built-in script function returning the angle in degrees at p2 of the triangle
// p1-p2-p3, where each point is a 3D position.
func Angle(p1, p2, p3 []float64) (float64, error) {
	if len(p1) != 3 || len(p2) != 3 || len(p3) != 3 {
		return 0, fmt.Errorf("%w: Angle requires three 3-vectors", ErrInvalidArgument)
	}
	a := []float64{p1[0] - p2[0], p1[1] - p2[1], p1[2] - p2[2]}
	b := []float64{p3[0] - p2[0], p3[1] - p2[1], p3[2] - p2[2]}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("%w: Angle vertex coincides with an end point", ErrInvalidArgument)
	}
	cosθ := Dot(a, b) / (na * nb)
	if math.Abs(cosθ) > 1 {
		cosθ = sign(cosθ)
	}
	return math.Acos(cosθ) * r2d, nil
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// DenseIdentity returns an n-by-n identity matrix.
func DenseIdentity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
