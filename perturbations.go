package gmat

import (
	"math"
)

// Perturbations defines which forces beyond the point mass gravity are modeled.
type Perturbations struct {
	Jn uint8 // Zonal harmonics to be used (only up to 3 supported)
}

// Acceleration returns the acceleration (km/s^2) of a spacecraft at R (km) about the origin,
// in the mean-of-J2000 equatorial axes of that origin.
func (p Perturbations) Acceleration(R []float64, origin CelestialObject) []float64 {
	r := Norm(R)
	bodyAcc := -origin.μ / math.Pow(r, 3)
	acc := []float64{bodyAcc * R[0], bodyAcc * R[1], bodyAcc * R[2]}
	if p.Jn < 2 {
		return acc
	}
	x := R[0]
	y := R[1]
	z := R[2]
	z2 := math.Pow(R[2], 2)
	z3 := math.Pow(R[2], 3)
	r2 := r * r
	r252 := math.Pow(r2, 5/2.)
	r272 := math.Pow(r2, 7/2.)
	// J2 (computed via SageMath: https://cloud.sagemath.com/projects/1fb6b227-1832-4f82-a05c-7e45614c00a2/files/j2perts.sagews)
	accJ2 := (3 / 2.) * origin.J(2) * math.Pow(origin.Radius, 2) * origin.μ
	acc[0] += accJ2 * (5*x*z2/r272 - x/r252)
	acc[1] += accJ2 * (5*y*z2/r272 - y/r252)
	acc[2] += accJ2 * (5*z3/r272 - 3*z/r252)
	if p.Jn >= 3 {
		r292 := math.Pow(r2, 9/2.)
		z4 := math.Pow(R[2], 4)
		accJ3 := origin.J(3) * math.Pow(origin.Radius, 3) * origin.μ
		acc[0] += (5 / 2.) * accJ3 * (7*x*z3/r292 - 3*x*z/r272)
		acc[1] += (5 / 2.) * accJ3 * (7*y*z3/r292 - 3*y*z/r272)
		acc[2] += 0.5 * accJ3 * (35*z4/r292 - 30*z2/r272 + 3/r252)
	}
	return acc
}
