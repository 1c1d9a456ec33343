package gmat

import (
	"fmt"
	"math"
	"time"

	"github.com/ChristopherRabotin/gmat/timesys"
	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	// DefaultStep is the default integration step of a spacecraft.
	DefaultStep = 10 * time.Second
	// epochε is the tolerance (seconds) under which two epochs are the same.
	epochε = 1e-6
)

var spacecraftParameters = parameterTable{
	names: []string{ParamCartesianState, ParamCd, ParamCr, ParamDryMass, ParamDragArea, ParamSRPArea},
	sizes: []int{6, 1, 1, 1, 1, 1},
}

// Spacecraft is an estimation participant flying a single orbit.
type Spacecraft struct {
	name  string
	Orbit *Orbit
	Epoch timesys.PreciseEpoch // A1
	Perts Perturbations
	Step  time.Duration // integration step
	// Ballistic and mass parameters.
	Cd, Cr, DryMass, DragArea, SRPArea float64
	Φ                                  *mat.Dense    // full STM from the initial epoch
	p0                                 *mat.SymDense // orbit error covariance at the initial epoch
	logger                             kitlog.Logger
}

// NewSpacecraft returns a spacecraft with an identity 6x6 STM and no covariance.
// The epoch must be in the A1 time system.
func NewSpacecraft(name string, o *Orbit, epoch timesys.PreciseEpoch) *Spacecraft {
	return &Spacecraft{
		name: name, Orbit: o, Epoch: epoch, Step: DefaultStep,
		Cd: 2.2, Cr: 1.8, DryMass: 850, DragArea: 15, SRPArea: 1,
		Φ:      DenseIdentity(6),
		logger: kitlog.NewNopLogger(),
	}
}

// SetLogger sets the logger of this spacecraft.
func (sc *Spacecraft) SetLogger(logger kitlog.Logger) {
	sc.logger = kitlog.With(logger, "spacecraft", sc.name)
}

// Name implements the Object interface.
func (sc *Spacecraft) Name() string { return sc.name }

// Type implements the Object interface.
func (sc *Spacecraft) Type() ObjectType { return SpacecraftObject }

// IsOfType implements the Object interface.
func (sc *Spacecraft) IsOfType(t ObjectType) bool { return t == SpacecraftObject }

// ParameterID implements the Object interface.
func (sc *Spacecraft) ParameterID(name string) (int, error) {
	return spacecraftParameters.id(sc.name, name)
}

// ParameterName implements the Object interface.
func (sc *Spacecraft) ParameterName(id int) (string, error) {
	return spacecraftParameters.name(sc.name, id)
}

// ParameterSize implements the Object interface.
func (sc *Spacecraft) ParameterSize(id int) int {
	if id < 0 || id >= len(spacecraftParameters.sizes) {
		return 0
	}
	return spacecraftParameters.sizes[id]
}

// Parameter implements the Object interface.
func (sc *Spacecraft) Parameter(id int) ([]float64, error) {
	name, err := sc.ParameterName(id)
	if err != nil {
		return nil, err
	}
	switch name {
	case ParamCartesianState:
		R, V := sc.Orbit.RV()
		return append(R, V...), nil
	case ParamCd:
		return []float64{sc.Cd}, nil
	case ParamCr:
		return []float64{sc.Cr}, nil
	case ParamDryMass:
		return []float64{sc.DryMass}, nil
	case ParamDragArea:
		return []float64{sc.DragArea}, nil
	default:
		return []float64{sc.SRPArea}, nil
	}
}

// SetParameter implements the Object interface.
func (sc *Spacecraft) SetParameter(id int, vals []float64) error {
	name, err := sc.ParameterName(id)
	if err != nil {
		return err
	}
	if len(vals) != sc.ParameterSize(id) {
		return fmt.Errorf("%w: %s.%s expects %d values, got %d", ErrInvalidArgument, sc.name, name, sc.ParameterSize(id), len(vals))
	}
	switch name {
	case ParamCartesianState:
		sc.Orbit = NewOrbitFromRV(vals[0:3], vals[3:6], sc.Orbit.Origin)
	case ParamCd:
		sc.Cd = vals[0]
	case ParamCr:
		sc.Cr = vals[0]
	case ParamDryMass:
		sc.DryMass = vals[0]
	case ParamDragArea:
		sc.DragArea = vals[0]
	default:
		sc.SRPArea = vals[0]
	}
	return nil
}

// StringArrayParameter implements the Object interface; spacecraft have none.
func (sc *Spacecraft) StringArrayParameter(name string) ([]string, error) {
	return nil, fmt.Errorf("%w: %s has no string array `%s`", ErrUnknownParameter, sc.name, name)
}

// RmatrixParameter implements the Object interface and returns copies of the STM or covariance.
func (sc *Spacecraft) RmatrixParameter(name string) (*mat.Dense, error) {
	switch name {
	case ParamFullSTM:
		return mat.DenseCopyOf(sc.Φ), nil
	case ParamOrbitErrorCovariance:
		if sc.p0 == nil {
			return nil, fmt.Errorf("%w: %s has no orbit error covariance", ErrConfiguration, sc.name)
		}
		return mat.DenseCopyOf(sc.p0), nil
	}
	return nil, fmt.Errorf("%w: %s has no matrix `%s`", ErrUnknownParameter, sc.name, name)
}

// SetCovariance sets the orbit error covariance at the initial epoch.
func (sc *Spacecraft) SetCovariance(P *mat.SymDense) error {
	n := P.SymmetricDim()
	if n == 0 || n > 6 {
		return fmt.Errorf("%w: %s covariance must be at most 6x6, got %dx%d", ErrInvalidArgument, sc.name, n, n)
	}
	sc.p0 = mat.NewSymDense(n, nil)
	sc.p0.CopySym(P)
	return nil
}

// ResizeSTM resets the STM to an n-by-n identity, n being the number of solve-for elements.
func (sc *Spacecraft) ResizeSTM(n int) error {
	if n < 6 {
		return fmt.Errorf("%w: %s STM must be at least 6x6", ErrInvalidArgument, sc.name)
	}
	sc.Φ = DenseIdentity(n)
	return nil
}

// Acceleration returns the acceleration of the spacecraft at the provided A1 epoch. If the epoch
// differs from the spacecraft epoch, a copy of the spacecraft is propagated there first.
func (sc *Spacecraft) Acceleration(at timesys.PreciseEpoch) ([]float64, error) {
	if math.Abs(at.Sub(sc.Epoch)) < epochε {
		return sc.Perts.Acceleration(sc.Orbit.R(), sc.Orbit.Origin), nil
	}
	tmp := &Spacecraft{name: sc.name, Orbit: sc.Orbit, Epoch: sc.Epoch, Perts: sc.Perts, Step: sc.Step, Φ: DenseIdentity(6), logger: sc.logger}
	if err := tmp.PropagateTo(at); err != nil {
		return nil, err
	}
	return tmp.Perts.Acceleration(tmp.Orbit.R(), tmp.Orbit.Origin), nil
}

// Disperse draws a Cartesian state from the orbit error covariance around the current state.
func (sc *Spacecraft) Disperse() ([]float64, error) {
	if sc.p0 == nil {
		return nil, fmt.Errorf("%w: %s has no orbit error covariance", ErrConfiguration, sc.name)
	}
	n := sc.p0.SymmetricDim()
	mean, _ := sc.Parameter(0)
	normal, ok := distmv.NewNormal(make([]float64, n), sc.p0, nil)
	if !ok {
		return nil, fmt.Errorf("%w: %s covariance is not positive definite", ErrConfiguration, sc.name)
	}
	δ := normal.Rand(nil)
	for i := 0; i < n; i++ {
		mean[i] += δ[i]
	}
	return mean, nil
}

func (sc *Spacecraft) String() string {
	return fmt.Sprintf("%s@%s (%s)", sc.name, sc.Epoch, sc.Orbit)
}
