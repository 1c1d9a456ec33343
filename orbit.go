package gmat

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
)

// Orbit defines an orbit via its Cartesian state with respect to an origin, expressed in the
// mean-of-J2000 equatorial axes of that origin.
type Orbit struct {
	rVec, vVec []float64
	Origin     CelestialObject // Orbit origin
}

// RV returns copies of the radius and velocity vectors.
func (o Orbit) RV() ([]float64, []float64) {
	R := make([]float64, 3)
	V := make([]float64, 3)
	copy(R, o.rVec)
	copy(V, o.vVec)
	return R, V
}

// R returns the radius vector.
func (o Orbit) R() (R []float64) {
	R, _ = o.RV()
	return R
}

// V returns the velocity vector.
func (o Orbit) V() (V []float64) {
	_, V = o.RV()
	return V
}

// RNorm returns the norm of the radius vector.
func (o Orbit) RNorm() float64 {
	return Norm(o.rVec)
}

// VNorm returns the norm of the velocity vector.
func (o Orbit) VNorm() float64 {
	return Norm(o.vVec)
}

// Energyξ returns the specific mechanical energy ξ.
func (o Orbit) Energyξ() float64 {
	v := o.VNorm()
	return v*v/2 - o.Origin.μ/o.RNorm()
}

// SMA returns the semi major axis.
func (o Orbit) SMA() float64 {
	return -o.Origin.μ / (2 * o.Energyξ())
}

// Period returns the period of this orbit.
func (o Orbit) Period() time.Duration {
	seconds := 2 * math.Pi * math.Sqrt(math.Pow(o.SMA(), 3)/o.Origin.μ)
	return time.Duration(seconds * float64(time.Second))
}

// Elements returns the classical orbital elements, angles in radians.
// From Vallado's RV2COE, page 113.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	R, V := o.rVec, o.vVec
	μ := o.Origin.μ
	hVec := Cross(R, V)
	n := Cross([]float64{0, 0, 1}, hVec)
	v := Norm(V)
	r := Norm(R)
	a = o.SMA()
	eVec := make([]float64, 3)
	for j := 0; j < 3; j++ {
		eVec[j] = ((v*v-μ/r)*R[j] - Dot(R, V)*V[j]) / μ
	}
	e = Norm(eVec)
	i = math.Acos(hVec[2] / Norm(hVec))
	if Norm(n) > 0 {
		Ω = math.Acos(n[0] / Norm(n))
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
		if e > eccentricityε {
			ω = math.Acos(floats.Max([]float64{-1, floats.Min([]float64{1, Dot(n, eVec) / (Norm(n) * e)})}))
			if eVec[2] < 0 {
				ω = 2*math.Pi - ω
			}
		}
	}
	if e > eccentricityε {
		cosν := Dot(eVec, R) / (e * r)
		if abscosν := math.Abs(cosν); abscosν > 1 && scalar.EqualWithinAbs(abscosν, 1, 1e-12) {
			// Welcome to the edge case which took about 1.5 hours of my time.
			cosν = sign(cosν)
		}
		ν = math.Acos(cosν)
		if Dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	} else {
		// Circular orbits: ν is the argument of latitude (or true longitude when equatorial).
		ref := n
		if Norm(n) == 0 {
			ref = []float64{1, 0, 0}
		}
		ν = math.Acos(Dot(ref, R) / (Norm(ref) * r))
		if R[2] < 0 {
			ν = 2*math.Pi - ν
		}
	}
	return
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit) String() string {
	a, e, i, Ω, ω, ν := o.Elements()
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", a, e, Rad2deg(i), Rad2deg(Ω), Rad2deg(ω), Rad2deg(ν))
}

// NewOrbitFromOE creates an orbit from the orbital elements.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64, c CelestialObject) *Orbit {
	// Making an approximation for circular and equatorial orbits.
	if e < eccentricityε {
		e = eccentricityε
	}
	if i < angleε*r2d {
		i = angleε * r2d
	}
	iR, ΩR, ωR, νR := Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν)
	p := a * (1 - e*e)
	sinν, cosν := math.Sincos(νR)
	R := []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν), 0}
	V := []float64{-math.Sqrt(c.μ/p) * sinν, math.Sqrt(c.μ/p) * (e + cosν), 0}
	return NewOrbitFromRV(PQW2ECI(iR, ωR, ΩR, R), PQW2ECI(iR, ωR, ΩR, V), c)
}

// NewOrbitFromRV returns an orbit from the R and V vectors, which are copied.
func NewOrbitFromRV(R, V []float64, c CelestialObject) *Orbit {
	o := Orbit{make([]float64, 3), make([]float64, 3), c}
	copy(o.rVec, R)
	copy(o.vVec, V)
	return &o
}
