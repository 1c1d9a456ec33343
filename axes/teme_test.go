package axes

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/timesys"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func isRotation(t *testing.T, R *mat.Dense) {
	var RRt mat.Dense
	RRt.Mul(R, R.T())
	if !mat.EqualApprox(&RRt, gmat.DenseIdentity(3), 1e-9) {
		t.Fatalf("R·Rᵀ != I\n%v", mat.Formatted(&RRt))
	}
	if det := mat.Det(R); !scalar.EqualWithinAbs(det, 1, 1e-9) {
		t.Fatalf("det(R) = %f", det)
	}
}

func TestTEMEToJ2000(t *testing.T) {
	// Vallado, 4th edition, example 3-15.
	dt := time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC)
	epoch := timesys.FromTime(dt, timesys.A1)
	rTEME := []float64{5094.18016210, 6127.64465950, 6380.34453270}
	rJ2000Exp := []float64{5102.5096, 6123.0115, 6378.1363}
	// ΔAT is 32s, so TT is 07:52:32.570009 and T_TT = 0.0426236319.
	if tTT := timesys.Convert(epoch, timesys.A1, timesys.TT).Centuries(); !scalar.EqualWithinAbs(tTT, 0.0426236319, 1e-10) {
		t.Fatalf("T_TT = %.10f", tTT)
	}

	teme := NewTEME(nil)
	R := teme.RotationMatrix(epoch, false)
	isRotation(t, R)
	rJ2000 := gmat.MxV33(R, rTEME)
	if !floats.EqualApprox(rJ2000, rJ2000Exp, 0.05) {
		t.Fatalf("incorrect J2000 position\ngot: %+v\nexp: %+v", rJ2000, rJ2000Exp)
	}
	// And back.
	vTEME := []float64{-4.746131487, 0.785818041, 5.531931288}
	rJ, vJ := teme.ToMJ2000(epoch, rTEME, vTEME)
	rT, vT := teme.FromMJ2000(epoch, rJ, vJ)
	if !floats.EqualApprox(rT, rTEME, 1e-8) || !floats.EqualApprox(vT, vTEME, 1e-11) {
		t.Fatalf("round trip failed\nr: %+v\nv: %+v", rT, vT)
	}
}

func TestRotationsAreOrthonormal(t *testing.T) {
	for _, kind := range []Kind{MeanOfDate, TrueOfDate, TEME} {
		a, err := New(kind, Config{Origin: gmat.Earth, UpdateInterval: DefaultUpdateInterval}, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, year := range []int{1980, 2000, 2017, 2035} {
			epoch := timesys.FromTime(time.Date(year, 7, 14, 3, 0, 0, 0, time.UTC), timesys.A1)
			isRotation(t, a.RotationMatrix(epoch, true))
		}
	}
}

func TestKindsDiffer(t *testing.T) {
	epoch := timesys.FromTime(time.Date(2015, 2, 3, 0, 0, 0, 0, time.UTC), timesys.A1)
	rotations := make(map[Kind]*mat.Dense)
	for _, kind := range []Kind{MeanOfDate, TrueOfDate, TEME} {
		a, _ := New(kind, Config{Origin: gmat.Earth}, nil)
		rotations[kind] = a.RotationMatrix(epoch, false)
	}
	if mat.EqualApprox(rotations[MeanOfDate], rotations[TEME], 1e-12) {
		t.Fatal("TEME should include the nutation in obliquity")
	}
	if mat.EqualApprox(rotations[TrueOfDate], rotations[TEME], 1e-12) {
		t.Fatal("TEME should use the mean equinox")
	}
	// All three are within a few arcminutes of each other.
	var diff mat.Dense
	diff.Sub(rotations[MeanOfDate], rotations[TEME])
	if n := mat.Norm(&diff, math.Inf(1)); n > 1e-3 {
		t.Fatalf("MOD and TEME too far apart: %e", n)
	}
}

func TestUpdateInterval(t *testing.T) {
	epoch := timesys.FromTime(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), timesys.A1)
	sec := 1 / timesys.SecondsPerDay
	teme := NewTEME(nil)
	if teme.LastRotation() != nil {
		t.Fatal("no rotation should be cached yet")
	}
	first := teme.RotationMatrix(epoch, false)
	if teme.Recomputations() != 1 {
		t.Fatalf("expected one computation, got %d", teme.Recomputations())
	}
	held := teme.RotationMatrix(epoch+timesys.Epoch(30*sec), false)
	if teme.Recomputations() != 1 {
		t.Fatal("rotation recomputed within the update interval")
	}
	if !mat.Equal(first, held) {
		t.Fatal("held rotation differs from the cached one")
	}
	teme.RotationMatrix(epoch+timesys.Epoch(61*sec), false)
	if teme.Recomputations() != 2 {
		t.Fatal("rotation not recomputed after the update interval")
	}
	teme.RotationMatrix(epoch+timesys.Epoch(62*sec), true)
	if teme.Recomputations() != 3 {
		t.Fatal("forced computation ignored")
	}
	// The returned matrix is a copy.
	first.Set(0, 0, 42)
	if teme.LastRotation().At(0, 0) == 42 {
		t.Fatal("cached rotation was modified through the returned matrix")
	}
}

func TestOverrideOriginInterval(t *testing.T) {
	origin := gmat.Earth
	origin.NutationUpdateInterval = 3600
	epoch := timesys.FromTime(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), timesys.A1)
	sec := 1 / timesys.SecondsPerDay

	a, err := New(TEME, Config{Origin: origin, UpdateInterval: 0, OverrideOriginInterval: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.RotationMatrix(epoch, false)
	a.RotationMatrix(epoch+timesys.Epoch(120*sec), false)
	if a.Recomputations() != 1 {
		t.Fatalf("origin interval not used: %d computations", a.Recomputations())
	}

	b, _ := New(TEME, Config{Origin: origin, UpdateInterval: 0}, nil)
	b.RotationMatrix(epoch, false)
	b.RotationMatrix(epoch+timesys.Epoch(120*sec), false)
	if b.Recomputations() != 2 {
		t.Fatalf("zero interval should always recompute: %d computations", b.Recomputations())
	}
}

func TestRotationDotMatrix(t *testing.T) {
	if !mat.Equal(NewTEME(nil).RotationDotMatrix(), mat.NewDense(3, 3, nil)) {
		t.Fatal("rotation derivative should be zero")
	}
}

func TestConfigValidate(t *testing.T) {
	for _, cfg := range []Config{
		{Origin: gmat.Earth, NutationModel: "IAU2000"},
		{Origin: gmat.Earth, UpdateInterval: -1},
	} {
		if _, err := New(TEME, cfg, nil); !errors.Is(err, gmat.ErrConfiguration) {
			t.Fatalf("expected a configuration error for %+v, got %v", cfg, err)
		}
	}
	if _, err := New(Kind(12), Config{Origin: gmat.Earth}, nil); !errors.Is(err, gmat.ErrConfiguration) {
		t.Fatal("unknown kind accepted")
	}
	if _, err := New(TEME, Config{Origin: gmat.Earth, NutationModel: "iau1980"}, nil); err != nil {
		t.Fatalf("IAU1980 should be accepted: %s", err)
	}
}

func TestNutationAngles(t *testing.T) {
	// Meeus example 22.a: 1987 April 10, 0h TD.
	jde := 2446895.5
	tTDB := (jde - 2451545.0) / 36525
	_, angles := NutationMatrix(tTDB)
	if !scalar.EqualWithinAbs(angles.Δψ/arcsec2rad, -3.788, 0.5) {
		t.Fatalf("Δψ = %f\"", angles.Δψ/arcsec2rad)
	}
	if !scalar.EqualWithinAbs(angles.Δε/arcsec2rad, 9.443, 0.5) {
		t.Fatalf("Δε = %f\"", angles.Δε/arcsec2rad)
	}
	if deg := angles.MeanObliquity * 180 / math.Pi; !scalar.EqualWithinAbs(deg, 23.440946, 1e-5) {
		t.Fatalf("ε̄ = %f°", deg)
	}
}
