package gmat

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Formation groups spacecraft which are estimated together.
// Its Cartesian state is the concatenation of the member states, 6 elements per member.
type Formation struct {
	name    string
	members []*Spacecraft
}

// NewFormation returns a new formation of the provided spacecraft, in order.
func NewFormation(name string, members ...*Spacecraft) *Formation {
	return &Formation{name, append([]*Spacecraft(nil), members...)}
}

// Add appends a spacecraft to the formation, unless it already is a member.
func (f *Formation) Add(sc *Spacecraft) {
	for _, m := range f.members {
		if m == sc {
			return
		}
	}
	f.members = append(f.members, sc)
}

// Members returns the members of the formation.
func (f *Formation) Members() []*Spacecraft {
	return append([]*Spacecraft(nil), f.members...)
}

// Name implements the Object interface.
func (f *Formation) Name() string { return f.name }

// Type implements the Object interface.
func (f *Formation) Type() ObjectType { return FormationObject }

// IsOfType implements the Object interface.
func (f *Formation) IsOfType(t ObjectType) bool { return t == FormationObject }

// ParameterID implements the Object interface. Only the Cartesian state is supported.
func (f *Formation) ParameterID(name string) (int, error) {
	if name == ParamCartesianState {
		return 0, nil
	}
	return -1, fmt.Errorf("%w: %s has no parameter `%s`", ErrUnknownParameter, f.name, name)
}

// ParameterName implements the Object interface.
func (f *Formation) ParameterName(id int) (string, error) {
	if id == 0 {
		return ParamCartesianState, nil
	}
	return "", fmt.Errorf("%w: %s has no parameter #%d", ErrUnknownParameter, f.name, id)
}

// ParameterSize implements the Object interface.
func (f *Formation) ParameterSize(id int) int {
	if id == 0 {
		return 6 * len(f.members)
	}
	return 0
}

// Parameter implements the Object interface.
func (f *Formation) Parameter(id int) ([]float64, error) {
	if _, err := f.ParameterName(id); err != nil {
		return nil, err
	}
	vals := make([]float64, 0, 6*len(f.members))
	for _, m := range f.members {
		R, V := m.Orbit.RV()
		vals = append(vals, R...)
		vals = append(vals, V...)
	}
	return vals, nil
}

// SetParameter implements the Object interface.
func (f *Formation) SetParameter(id int, vals []float64) error {
	if _, err := f.ParameterName(id); err != nil {
		return err
	}
	if len(vals) != 6*len(f.members) {
		return fmt.Errorf("%w: %s.%s expects %d values, got %d", ErrInvalidArgument, f.name, ParamCartesianState, 6*len(f.members), len(vals))
	}
	for i, m := range f.members {
		m.Orbit = NewOrbitFromRV(vals[6*i:6*i+3], vals[6*i+3:6*i+6], m.Orbit.Origin)
	}
	return nil
}

// StringArrayParameter implements the Object interface: "Add" returns the member names.
func (f *Formation) StringArrayParameter(name string) ([]string, error) {
	if name != ParamMemberList {
		return nil, fmt.Errorf("%w: %s has no string array `%s`", ErrUnknownParameter, f.name, name)
	}
	names := make([]string, len(f.members))
	for i, m := range f.members {
		names[i] = m.Name()
	}
	return names, nil
}

// RmatrixParameter implements the Object interface; formations hold no matrix.
func (f *Formation) RmatrixParameter(name string) (*mat.Dense, error) {
	return nil, fmt.Errorf("%w: %s has no matrix `%s`", ErrUnknownParameter, f.name, name)
}
