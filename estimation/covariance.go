package estimation

import (
	"fmt"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/timesys"
	"gonum.org/v1/gonum/mat"
)

// CovariancePolicy selects how the published covariance is obtained from the initial one.
type CovariancePolicy uint8

const (
	// HoldInitialCovariance publishes the epoch-zero covariance unchanged (Pt = P0).
	HoldInitialCovariance CovariancePolicy = iota
	// TransitionMatrix publishes Φ·P0·Φᵀ.
	TransitionMatrix
)

func (p CovariancePolicy) String() string {
	if p == TransitionMatrix {
		return "TransitionMatrix"
	}
	return "HoldInitial"
}

// PublishedPerSpacecraft is the number of values published per spacecraft: the lower triangle
// of the 6x6 orbit covariance followed by the three acceleration components.
const PublishedPerSpacecraft = 21 + 3

var accelerationSuffixes = [3]string{"AccX", "AccY", "AccZ"}

// SetCovariancePolicy sets the covariance propagation policy; the default is HoldInitialCovariance.
func (sm *StateManager) SetCovariancePolicy(p CovariancePolicy) {
	sm.policy = p
}

// Spacecraft returns the unique spacecraft of the participants, in order, with formations
// expanded into their members.
func (sm *StateManager) Spacecraft() ([]*gmat.Spacecraft, error) {
	var unique []*gmat.Spacecraft
	seen := make(map[*gmat.Spacecraft]bool)
	add := func(obj gmat.Object) error {
		sc, ok := obj.(*gmat.Spacecraft)
		if !ok || !obj.IsOfType(gmat.SpacecraftObject) {
			return fmt.Errorf("%w: %s is not a spacecraft", gmat.ErrInvalidArgument, obj.Name())
		}
		if !seen[sc] {
			seen[sc] = true
			unique = append(unique, sc)
		}
		return nil
	}
	for _, obj := range sm.objects {
		if !obj.IsOfType(gmat.FormationObject) {
			if err := add(obj); err != nil {
				return nil, err
			}
			continue
		}
		if f, ok := obj.(*gmat.Formation); ok {
			for _, m := range f.Members() {
				if err := add(m); err != nil {
					return nil, err
				}
			}
			continue
		}
		members, err := obj.StringArrayParameter(gmat.ParamMemberList)
		if err != nil {
			return nil, err
		}
		for _, name := range members {
			member, err := sm.registry.Get(name)
			if err != nil {
				return nil, err
			}
			if err := add(member); err != nil {
				return nil, err
			}
		}
	}
	return unique, nil
}

// CovarianceInfoToPublish returns the names of the values written by
// PublishCovarianceAndAcceleration, in order.
func (sm *StateManager) CovarianceInfoToPublish() ([]Record, error) {
	scs, err := sm.Spacecraft()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, PublishedPerSpacecraft*len(scs))
	for _, sc := range scs {
		for i := 0; i < 6; i++ {
			for j := 0; j <= i; j++ {
				records = append(records, Record{sc.Name(), fmt.Sprintf("%s.Cov_%d_%d", sc.Name(), i+1, j+1)})
			}
		}
		for _, suffix := range accelerationSuffixes {
			records = append(records, Record{sc.Name(), sc.Name() + "." + suffix})
		}
	}
	return records, nil
}

// PublishCovarianceAndAcceleration writes, for each unique spacecraft, the lower triangle of its
// covariance and its acceleration at the provided A1 epoch into out, starting at offset. If
// precise is false, the epoch is first reduced to a single float. It returns the index following
// the last written value. Nothing is written if any value cannot be computed or if the values do
// not all fit in out.
func (sm *StateManager) PublishCovarianceAndAcceleration(out []float64, offset int, at timesys.PreciseEpoch, precise bool) (int, error) {
	scs, err := sm.Spacecraft()
	if err != nil {
		return offset, err
	}
	end := offset + PublishedPerSpacecraft*len(scs)
	if offset < 0 || end > len(out) {
		sm.metrics.capacityViolation()
		return offset, fmt.Errorf("%w: writing %d values at %d in a buffer of %d", gmat.ErrCapacity, end-offset, offset, len(out))
	}
	vals := make([]float64, 0, end-offset)
	for _, sc := range scs {
		Pt, err := sm.covariance(sc)
		if err != nil {
			return offset, err
		}
		for i := 0; i < 6; i++ {
			for j := 0; j <= i; j++ {
				vals = append(vals, Pt.At(i, j))
			}
		}
		acc, err := Acceleration(sc, at, precise)
		if err != nil {
			return offset, err
		}
		vals = append(vals, acc...)
	}
	copy(out[offset:end], vals)
	return end, nil
}

// covariance returns the covariance of the spacecraft at its current epoch, padded to the size of
// its STM and no smaller than 6x6.
func (sm *StateManager) covariance(sc *gmat.Spacecraft) (*mat.Dense, error) {
	Φ, err := sc.RmatrixParameter(gmat.ParamFullSTM)
	if err != nil {
		return nil, err
	}
	P0, err := sc.RmatrixParameter(gmat.ParamOrbitErrorCovariance)
	if err != nil {
		return nil, err
	}
	n, _ := Φ.Dims()
	k, _ := P0.Dims()
	if k > n {
		return nil, fmt.Errorf("%w: %s covariance is %dx%d but its STM is %dx%d", gmat.ErrConfiguration, sc.Name(), k, k, n, n)
	}
	if n < 6 {
		n = 6
	}
	P := mat.NewDense(n, n, nil)
	P.Slice(0, k, 0, k).(*mat.Dense).Copy(P0)
	if sm.policy != TransitionMatrix {
		return P, nil
	}
	if r, _ := Φ.Dims(); r != n {
		return nil, fmt.Errorf("%w: %s STM is not %dx%d", gmat.ErrConfiguration, sc.Name(), n, n)
	}
	var Pt mat.Dense
	Pt.Product(Φ, P, Φ.T())
	return &Pt, nil
}

// Acceleration returns the acceleration of a spacecraft at the provided A1 epoch, in the frame of
// its orbit. If precise is false, the epoch is first reduced to a single float.
func Acceleration(obj gmat.Object, at timesys.PreciseEpoch, precise bool) ([]float64, error) {
	sc, ok := obj.(*gmat.Spacecraft)
	if !ok || !obj.IsOfType(gmat.SpacecraftObject) {
		name := "<nil>"
		if obj != nil {
			name = obj.Name()
		}
		return nil, fmt.Errorf("%w: acceleration requested for %s which is not a spacecraft", gmat.ErrInvalidArgument, name)
	}
	if !precise {
		at = at.Epoch().Precise()
	}
	return sc.Acceleration(at)
}
