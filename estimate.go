package gmat

import (
	"fmt"
	"math"

	"github.com/ChristopherRabotin/gmat/integrator"
	"github.com/ChristopherRabotin/gmat/timesys"
	"gonum.org/v1/gonum/mat"
)

// PropagateTo propagates the orbit and the full STM of the spacecraft until the provided A1 epoch.
// Only forward propagation is supported.
func (sc *Spacecraft) PropagateTo(target timesys.PreciseEpoch) error {
	if sc.Step <= 0 {
		return fmt.Errorf("%w: %s has a non positive step", ErrConfiguration, sc.name)
	}
	Δt := target.Sub(sc.Epoch)
	if Δt < -epochε {
		return fmt.Errorf("%w: cannot propagate %s backward by %fs", ErrInvalidArgument, sc.name, -Δt)
	}
	if Δt > epochε {
		dyn := &stmPropagation{sc.Perts, sc.Orbit.Origin, sc.Φ.RawMatrix().Rows}
		y := dyn.pack(sc.Orbit, sc.Φ)
		integrator.NewRK4(sc.Step.Seconds(), dyn).Propagate(0, Δt, y, nil)
		sc.Orbit, sc.Φ = dyn.unpack(y)
	}
	// Snap to avoid accumulating round-off in the epoch.
	sc.Epoch = target
	sc.logger.Log("level", "debug", "subsys", "astro", "epoch", sc.Epoch, "orbit", sc.Orbit)
	return nil
}

// stmPropagation is the integrator.System of a spacecraft state and its n-by-n STM:
// y = [\vec{r} \vec{v} Φ] with Φ stored row major.
type stmPropagation struct {
	perts  Perturbations
	origin CelestialObject
	n      int
}

func (e *stmPropagation) pack(o *Orbit, Φ *mat.Dense) []float64 {
	y := make([]float64, 6, 6+e.n*e.n)
	R, V := o.RV()
	copy(y[0:3], R)
	copy(y[3:6], V)
	for i := 0; i < e.n; i++ {
		y = append(y, Φ.RawRowView(i)...)
	}
	return y
}

func (e *stmPropagation) unpack(y []float64) (*Orbit, *mat.Dense) {
	return NewOrbitFromRV(y[0:3], y[3:6], e.origin), mat.NewDense(e.n, e.n, append([]float64(nil), y[6:]...))
}

// Derivatives implements integrator.System.
func (e *stmPropagation) Derivatives(t float64, f []float64) []float64 {
	fDot := make([]float64, 6+e.n*e.n)
	R := f[0:3]
	// d\vec{R}/dt
	copy(fDot[0:3], f[3:6])
	// d\vec{V}/dt
	copy(fDot[3:6], e.perts.Acceleration(R, e.origin))

	// A is zero outside the orbital block: other solve-fors are constant.
	A := mat.NewDense(e.n, e.n, nil)
	// Top right is Identity 3x3
	A.Set(0, 3, 1)
	A.Set(1, 4, 1)
	A.Set(2, 5, 1)
	// Bottom left is the gravity gradient.
	A.Slice(3, 6, 0, 3).(*mat.Dense).Copy(gravityGradient(R, e.origin, e.perts.Jn))

	Φ := mat.NewDense(e.n, e.n, f[6:])
	ΦDot := mat.NewDense(e.n, e.n, fDot[6:])
	ΦDot.Mul(A, Φ)
	return fDot
}

// gravityGradient returns ∂a/∂r, including zonal harmonics up to J3.
func gravityGradient(R []float64, origin CelestialObject, jn uint8) *mat.Dense {
	μ := origin.μ
	x := R[0]
	y := R[1]
	z := R[2]
	x2 := x * x
	y2 := y * y
	z2 := z * z
	r2 := x2 + y2 + z2
	r232 := math.Pow(r2, 3/2.)
	r252 := math.Pow(r2, 5/2.)

	G := mat.NewDense(3, 3, []float64{
		3*μ*x2/r252 - μ/r232, 3 * μ * x * y / r252, 3 * μ * x * z / r252,
		3 * μ * x * y / r252, 3*μ*y2/r252 - μ/r232, 3 * μ * y * z / r252,
		3 * μ * x * z / r252, 3 * μ * y * z / r252, 3*μ*z2/r252 - μ/r232,
	})
	if jn < 2 {
		return G
	}
	// Notation simplification
	z3 := z2 * z
	z4 := z2 * z2
	// Adding those fractions to avoid forgetting the trailing period which makes them floats.
	f32 := 3 / 2.
	f152 := 15 / 2.
	r272 := math.Pow(r2, 7/2.)
	r292 := math.Pow(r2, 9/2.)
	// G[i][j] is \partial a_i / \partial r_j.
	j2fact := origin.J(2) * math.Pow(origin.Radius, 2) * μ
	dJ2 := []float64{
		-f32 * j2fact * (35*x2*z2/r292 - 5*x2/r272 - 5*z2/r272 + 1/r252), -f152 * j2fact * (7*x*y*z2/r292 - x*y/r272), -f152 * j2fact * (7*x*z3/r292 - 3*x*z/r272),
		-f152 * j2fact * (7*x*y*z2/r292 - x*y/r272), -f32 * j2fact * (35*y2*z2/r292 - 5*y2/r272 - 5*z2/r272 + 1/r252), -f152 * j2fact * (7*y*z3/r292 - 3*y*z/r272),
		-f152 * j2fact * (7*x*z3/r292 - 3*x*z/r272), -f152 * j2fact * (7*y*z3/r292 - 3*y*z/r272), -f32 * j2fact * (35*z4/r292 - 30*z2/r272 + 3/r252),
	}
	G.Add(G, mat.NewDense(3, 3, dJ2))
	if jn < 3 {
		return G
	}
	z5 := z4 * z
	r2112 := math.Pow(r2, 11/2.)
	f52 := 5 / 2.
	f1052 := 105 / 2.
	j3fact := origin.J(3) * math.Pow(origin.Radius, 3) * μ
	dJ3 := []float64{
		-f52 * j3fact * (63*x2*z3/r2112 - 21*x2*z/r292 - 7*z3/r292 + 3*z/r272), -f1052 * j3fact * (3*x*y*z3/r2112 - x*y*z/r292), -f152 * j3fact * (21*x*z4/r2112 - 14*x*z2/r292 + x/r272),
		-f1052 * j3fact * (3*x*y*z3/r2112 - x*y*z/r292), -f52 * j3fact * (63*y2*z3/r2112 - 21*y2*z/r292 - 7*z3/r292 + 3*z/r272), -f152 * j3fact * (21*y*z4/r2112 - 14*y*z2/r292 + y/r272),
		-f152 * j3fact * (21*x*z4/r2112 - 14*x*z2/r292 + x/r272), -f152 * j3fact * (21*y*z4/r2112 - 14*y*z2/r292 + y/r272), -f52 * j3fact * (63*z5/r2112 - 70*z3/r292 + 15*z/r272),
	}
	G.Add(G, mat.NewDense(3, 3, dJ3))
	return G
}
