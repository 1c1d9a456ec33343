package axes

import (
	"fmt"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/timesys"
	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the axes of date.
type Kind uint8

const (
	// MeanOfDate axes: mean equator and mean equinox of date.
	MeanOfDate Kind = iota + 1
	// TrueOfDate axes: true equator and true equinox of date.
	TrueOfDate
	// TEME axes: true equator and mean equinox, as used by SGP4.
	TEME
)

func (k Kind) String() string {
	switch k {
	case MeanOfDate:
		return "MOD"
	case TrueOfDate:
		return "TOD"
	case TEME:
		return "TEME"
	default:
		return "unknown"
	}
}

// Axes rotates vectors expressed in an equator/equinox-of-date frame into mean-of-J2000 vectors.
type Axes struct {
	kind Kind
	dynamicAxes
	rot *mat.Dense
}

// New returns new axes of the provided kind.
func New(kind Kind, cfg Config, logger kitlog.Logger) (*Axes, error) {
	if kind < MeanOfDate || kind > TEME {
		return nil, fmt.Errorf("%w: unknown axes kind %d", gmat.ErrConfiguration, kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	a := &Axes{kind: kind}
	a.cfg = cfg
	a.logger = kitlog.With(logger, "axes", kind.String())
	return a, nil
}

// NewTEME returns TEME axes centered on Earth, recomputed at most every DefaultUpdateInterval.
func NewTEME(logger kitlog.Logger) *Axes {
	a, _ := New(TEME, Config{Origin: gmat.Earth, UpdateInterval: DefaultUpdateInterval}, logger)
	return a
}

// Kind returns the kind of these axes.
func (a *Axes) Kind() Kind { return a.kind }

// RotationMatrix returns the matrix which rotates vectors from these axes to mean-of-J2000 at the
// provided A1 modified Julian date. Unless force is set, the precession and nutation are only
// recomputed when the epoch moved by at least the update interval.
func (a *Axes) RotationMatrix(epoch timesys.Epoch, force bool) *mat.Dense {
	tt := timesys.Convert(epoch, timesys.A1, timesys.TT)
	// TDB and TT differ by under 2ms, which is negligible on the precession angles.
	tTDB := tt.Centuries()

	prec := a.ComputePrecessionMatrix(tTDB, epoch, force)
	if a.kind == MeanOfDate {
		a.rot = mat.DenseCopyOf(prec.T())
		return mat.DenseCopyOf(a.rot)
	}
	nut, angles := a.ComputeNutationMatrix(tTDB, epoch, force)
	if a.kind == TrueOfDate {
		a.rot = gmat.Chain(prec.T(), nut.T())
		return mat.DenseCopyOf(a.rot)
	}
	// Equation of the equinoxes, IAU-1980 form without the lunar node terms.
	eq := angles.Δψ * angles.CosMeanObliquity()
	a.rot = gmat.Chain(prec.T(), nut.T(), gmat.R3(-eq))
	return mat.DenseCopyOf(a.rot)
}

// RotationDotMatrix returns the time derivative of the rotation, which is neglected.
func (a *Axes) RotationDotMatrix() *mat.Dense {
	return mat.NewDense(3, 3, nil)
}

// LastRotation returns a copy of the last computed rotation matrix, or nil.
func (a *Axes) LastRotation() *mat.Dense {
	if a.rot == nil {
		return nil
	}
	return mat.DenseCopyOf(a.rot)
}

// Recomputations returns how many times the precession and nutation were recomputed.
func (a *Axes) Recomputations() uint64 {
	return a.recomputed
}

// ToMJ2000 rotates a position and velocity expressed in these axes to mean-of-J2000.
func (a *Axes) ToMJ2000(epoch timesys.Epoch, R, V []float64) ([]float64, []float64) {
	rot := a.RotationMatrix(epoch, false)
	return gmat.MxV33(rot, R), gmat.MxV33(rot, V)
}

// FromMJ2000 rotates a mean-of-J2000 position and velocity into these axes.
func (a *Axes) FromMJ2000(epoch timesys.Epoch, R, V []float64) ([]float64, []float64) {
	rot := a.RotationMatrix(epoch, false).T()
	return gmat.MxV33(rot, R), gmat.MxV33(rot, V)
}
