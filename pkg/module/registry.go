package module

import (
	"fmt"
	"sort"
)

// Registry is a set of descriptors addressed by id. It's not safe for
// concurrent registration, descriptors are expected to be registered on
// startup.
type Registry struct {
	modules map[string]Descriptor
}

// NewRegistry creates a registry with the given descriptors.
func NewRegistry(ds ...Descriptor) (*Registry, error) {
	r := &Registry{modules: make(map[string]Descriptor, len(ds))}
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a descriptor, ids must be unique.
func (r *Registry) Register(d Descriptor) error {
	id := d.ID()
	if id == "" {
		return fmt.Errorf("module with empty id")
	}
	if _, ok := r.modules[id]; ok {
		return fmt.Errorf("module %s is already registered", id)
	}
	r.modules[id] = d
	return nil
}

// Get returns a descriptor by id.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return d, nil
}

// IDs returns sorted ids of all registered modules.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
