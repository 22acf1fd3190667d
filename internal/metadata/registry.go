package metadata

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateEntity is returned when two descriptions share a name.
var ErrDuplicateEntity = errors.New("duplicate entity")

// Registry holds entity descriptions keyed by name. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	entities map[string]Entity
}

// NewRegistry builds a registry from the given descriptions.
func NewRegistry(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if e.Name == "" {
			return nil, errors.New("entity name is required")
		}
		if _, exists := r.entities[e.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, e.Name)
		}
		if e.Attachment != nil && e.Attachment.Field == "" {
			return nil, fmt.Errorf("entity %s: attachment field is required", e.Name)
		}
		r.entities[e.Name] = e.clone()
	}
	return r, nil
}

// Lookup returns the description for name. Unknown names, and a nil registry,
// yield an empty description with no constraints.
func (r *Registry) Lookup(name string) Entity {
	if r == nil {
		return Entity{Name: name}
	}
	e, ok := r.entities[name]
	if !ok {
		return Entity{Name: name}
	}
	return e.clone()
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.entities[name]
	return ok
}

// List returns every description sorted by name for stable output.
func (r *Registry) List() []Entity {
	if r == nil {
		return []Entity{}
	}
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
