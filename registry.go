package gmat

import (
	"fmt"
	"sort"
)

// Registry is a name indexed table of objects, handed to the components which must resolve
// objects by name.
type Registry struct {
	objects map[string]Object
}

// NewRegistry returns a registry holding the provided objects.
func NewRegistry(objs ...Object) *Registry {
	r := &Registry{make(map[string]Object)}
	for _, o := range objs {
		r.objects[o.Name()] = o
	}
	return r
}

// Add registers an object; names must be unique.
func (r *Registry) Add(o Object) error {
	if o == nil {
		return fmt.Errorf("%w: nil object", ErrInvalidArgument)
	}
	if prev, exists := r.objects[o.Name()]; exists && prev != o {
		return fmt.Errorf("%w: an object named `%s` is already registered", ErrInvalidArgument, o.Name())
	}
	r.objects[o.Name()] = o
	return nil
}

// Get returns the object of that name.
func (r *Registry) Get(name string) (Object, error) {
	if o, exists := r.objects[name]; exists {
		return o, nil
	}
	return nil, fmt.Errorf("%w: `%s`", ErrUnknownObject, name)
}

// Names returns the sorted names of the registered objects.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
