package gmat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrCapacity is returned when an output buffer is too small for what must be written to it.
	ErrCapacity = errors.New("capacity violation")
	// ErrInvalidArgument is returned when an operation is called with an object or value it cannot use.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfiguration is returned when a component is configured in an unsupported way.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownParameter is returned when an object does not have the requested parameter.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrUnknownObject is returned when a lookup by name fails.
	ErrUnknownObject = errors.New("unknown object")
)

// Parameter names shared by the estimation participants.
const (
	ParamCartesianState       = "CartesianState"
	ParamCd                   = "Cd"
	ParamCr                   = "Cr"
	ParamDryMass              = "DryMass"
	ParamDragArea             = "DragArea"
	ParamSRPArea              = "SRPArea"
	ParamFullSTM              = "FullSTM"
	ParamOrbitErrorCovariance = "OrbitErrorCovariance"
	ParamMemberList           = "Add"
)

// CartesianSuffixes are the names of the six components of a Cartesian state, in order.
var CartesianSuffixes = [6]string{"X", "Y", "Z", "Vx", "Vy", "Vz"}

// ObjectType is the kind of an Object.
type ObjectType uint8

const (
	// UnknownObject is the zero value.
	UnknownObject ObjectType = iota
	// SpacecraftObject is a single vehicle.
	SpacecraftObject
	// FormationObject is a group of spacecraft.
	FormationObject
)

func (t ObjectType) String() string {
	switch t {
	case SpacecraftObject:
		return "Spacecraft"
	case FormationObject:
		return "Formation"
	}
	return "Unknown"
}

// Object is the set of capabilities estimation participants expose.
type Object interface {
	Name() string
	Type() ObjectType
	IsOfType(t ObjectType) bool
	// ParameterID returns the identifier of the named parameter.
	ParameterID(name string) (int, error)
	// ParameterName is the inverse of ParameterID.
	ParameterName(id int) (string, error)
	// ParameterSize returns the number of reals held by the parameter.
	ParameterSize(id int) int
	// Parameter returns a copy of the real values of the parameter.
	Parameter(id int) ([]float64, error)
	// SetParameter sets the real values of the parameter.
	SetParameter(id int, vals []float64) error
	StringArrayParameter(name string) ([]string, error)
	RmatrixParameter(name string) (*mat.Dense, error)
}

// parameterTable maps parameter names to IDs and sizes for a concrete object type.
type parameterTable struct {
	names []string
	sizes []int
}

func (p parameterTable) id(owner, name string) (int, error) {
	for i, n := range p.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s has no parameter `%s`", ErrUnknownParameter, owner, name)
}

func (p parameterTable) name(owner string, id int) (string, error) {
	if id < 0 || id >= len(p.names) {
		return "", fmt.Errorf("%w: %s has no parameter #%d", ErrUnknownParameter, owner, id)
	}
	return p.names[id], nil
}
