package record

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownKind is returned when a record kind has no destination index.
var ErrUnknownKind = errors.New("unknown record kind")

// DefaultIndices maps the built-in record kinds to their index names.
var DefaultIndices = map[string]string{
	"sample": "sample",
	"person": "person",
}

// Registry maps a record kind to the index its records are written to.
type Registry struct {
	indices map[string]string
}

// NewRegistry returns a registry seeded with DefaultIndices and then overrides.
func NewRegistry(overrides map[string]string) *Registry {
	r := &Registry{indices: make(map[string]string, len(DefaultIndices)+len(overrides))}
	for kind, index := range DefaultIndices {
		r.indices[kind] = index
	}
	for kind, index := range overrides {
		r.Register(kind, index)
	}
	return r
}

// Register sets the destination index for a kind. An empty index removes the kind.
func (r *Registry) Register(kind, index string) {
	if index == "" {
		delete(r.indices, kind)
		return
	}
	r.indices[kind] = index
}

// Resolve returns the destination index for a kind.
func (r *Registry) Resolve(kind string) (string, error) {
	index, ok := r.indices[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, r.Kinds())
	}
	return index, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.indices))
	for kind := range r.indices {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
