// Package estimation assembles the estimation state vector from its participants and publishes
// it, along with the covariance and acceleration of each spacecraft, to flat output buffers.
package estimation

import (
	"fmt"

	"github.com/ChristopherRabotin/gmat"
	kitlog "github.com/go-kit/kit/log"
)

// StateElement describes one scalar slot of the state vector.
type StateElement struct {
	Object      gmat.Object
	ObjectName  string
	ElementName string
	ElementID   int
	Subelement  int // 1-based index within the element
	Length      int // length of the whole element
}

func (e StateElement) String() string {
	return fmt.Sprintf("%s.%s[%d/%d]", e.ObjectName, e.ElementName, e.Subelement, e.Length)
}

// StateManager builds and maintains the estimation state vector.
// It is not safe for concurrent use.
type StateManager struct {
	registry *gmat.Registry
	objects  []gmat.Object
	elements map[string][]string // element names per object name, in registration order
	stateMap []StateElement
	state    []float64
	policy   CovariancePolicy
	metrics  *Collector
	logger   kitlog.Logger
}

// NewStateManager returns a new state manager which resolves objects through the provided
// registry. Both the logger and the metrics may be nil.
func NewStateManager(reg *gmat.Registry, logger kitlog.Logger, metrics *Collector) *StateManager {
	if reg == nil {
		reg = gmat.NewRegistry()
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &StateManager{
		registry: reg,
		elements: make(map[string][]string),
		metrics:  metrics,
		logger:   kitlog.With(logger, "subsys", "estimation"),
	}
}

// SetObject registers an estimation participant. Registering the same object twice is a no-op.
func (sm *StateManager) SetObject(obj gmat.Object) error {
	if obj == nil {
		return fmt.Errorf("%w: nil participant", gmat.ErrInvalidArgument)
	}
	if !obj.IsOfType(gmat.SpacecraftObject) && !obj.IsOfType(gmat.FormationObject) {
		return fmt.Errorf("%w: %s is a %s and cannot be estimated", gmat.ErrInvalidArgument, obj.Name(), obj.Type())
	}
	for _, o := range sm.objects {
		if o == obj {
			return nil
		}
		if o.Name() == obj.Name() {
			return fmt.Errorf("%w: another participant is named `%s`", gmat.ErrInvalidArgument, obj.Name())
		}
	}
	if err := sm.registry.Add(obj); err != nil {
		return err
	}
	// Members are resolved by name when the covariance is published.
	if f, ok := obj.(*gmat.Formation); ok {
		for _, m := range f.Members() {
			if err := sm.registry.Add(m); err != nil {
				return err
			}
		}
	}
	sm.objects = append(sm.objects, obj)
	sm.logger.Log("level", "debug", "participant", obj.Name(), "type", obj.Type())
	return nil
}

// SetProperty registers an element of a participant for estimation, e.g. "CartesianState".
func (sm *StateManager) SetProperty(objName, element string) error {
	obj := sm.participant(objName)
	if obj == nil {
		return fmt.Errorf("%w: `%s` is not a participant", gmat.ErrUnknownObject, objName)
	}
	if _, err := obj.ParameterID(element); err != nil {
		return err
	}
	for _, e := range sm.elements[objName] {
		if e == element {
			return nil
		}
	}
	sm.elements[objName] = append(sm.elements[objName], element)
	return nil
}

func (sm *StateManager) participant(name string) gmat.Object {
	for _, o := range sm.objects {
		if o.Name() == name {
			return o
		}
	}
	return nil
}

// BuildState builds the state map and fills the state vector from the participants.
func (sm *StateManager) BuildState() error {
	var stateMap []StateElement
	var state []float64
	for _, obj := range sm.objects {
		for _, element := range sm.elements[obj.Name()] {
			id, err := obj.ParameterID(element)
			if err != nil {
				return err
			}
			size := obj.ParameterSize(id)
			if size == 0 {
				continue
			}
			vals, err := obj.Parameter(id)
			if err != nil {
				return err
			}
			if len(vals) != size {
				return fmt.Errorf("%w: %s.%s has %d values but a size of %d", gmat.ErrInvalidArgument, obj.Name(), element, len(vals), size)
			}
			for k := 1; k <= size; k++ {
				stateMap = append(stateMap, StateElement{
					Object: obj, ObjectName: obj.Name(), ElementName: element, ElementID: id,
					Subelement: k, Length: size,
				})
			}
			state = append(state, vals...)
		}
	}
	sm.stateMap = stateMap
	sm.state = state
	sm.metrics.stateSize(len(state))
	sm.logger.Log("level", "info", "state", "built", "size", len(state), "participants", len(sm.objects))
	return nil
}

// MapObjectsToVector reads the current values of every element into the state vector.
func (sm *StateManager) MapObjectsToVector() error {
	for i := 0; i < len(sm.stateMap); i += sm.stateMap[i].Length {
		item := sm.stateMap[i]
		vals, err := item.Object.Parameter(item.ElementID)
		if err != nil {
			return err
		}
		if len(vals) != item.Length {
			return fmt.Errorf("%w: %s.%s changed size since the state was built", gmat.ErrInvalidArgument, item.ObjectName, item.ElementName)
		}
		copy(sm.state[i:i+item.Length], vals)
	}
	return nil
}

// MapVectorToObjects writes the state vector back into the participants.
func (sm *StateManager) MapVectorToObjects() error {
	for i := 0; i < len(sm.stateMap); i += sm.stateMap[i].Length {
		item := sm.stateMap[i]
		if err := item.Object.SetParameter(item.ElementID, sm.state[i:i+item.Length]); err != nil {
			return err
		}
	}
	return nil
}

// State returns a copy of the state vector.
func (sm *StateManager) State() []float64 {
	return append([]float64(nil), sm.state...)
}

// SetState replaces the values of the state vector, whose length cannot change.
func (sm *StateManager) SetState(vals []float64) error {
	if len(vals) != len(sm.state) {
		return fmt.Errorf("%w: state has %d elements, got %d", gmat.ErrInvalidArgument, len(sm.state), len(vals))
	}
	copy(sm.state, vals)
	return nil
}

// StateMap returns a copy of the state map.
func (sm *StateManager) StateMap() []StateElement {
	return append([]StateElement(nil), sm.stateMap...)
}

// Participants returns the registered participants in registration order.
func (sm *StateManager) Participants() []gmat.Object {
	return append([]gmat.Object(nil), sm.objects...)
}
