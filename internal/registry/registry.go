// Package registry maps filter names to live filters.
//
// The name table is a sharded concurrent map, so lookups and creations on
// different names never contend. The registry owns no filter internals;
// per-filter locking lives in the domain layer.
package registry

import (
	"sort"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
	"github.com/yndnr/bloomgate-go/pkg/cmap"
)

// Registry is the authoritative set of named filters.
type Registry struct {
	filters *cmap.Map[*domain.Filter]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{filters: cmap.New[*domain.Filter]()}
}

// Create builds a filter sized for capacity and fpp and binds it to name.
// Returns ErrFilterExists when the name is already bound; the existing
// filter is left untouched. Returns ErrInvalidParameter when the sizing
// math rejects the inputs.
func (r *Registry) Create(name string, capacity uint64, fpp float64) (*domain.Filter, error) {
	f, err := domain.NewFilter(name, capacity, fpp)
	if err != nil {
		return nil, err
	}
	if !r.filters.SetIfAbsent(name, f) {
		return nil, domain.ErrFilterExists.WithDetails("name=" + name)
	}
	return f, nil
}

// Get returns the filter bound to name, or ErrFilterNotFound.
func (r *Registry) Get(name string) (*domain.Filter, error) {
	f, ok := r.filters.Get(name)
	if !ok {
		return nil, domain.ErrFilterNotFound.WithDetails("name=" + name)
	}
	return f, nil
}

// Restore binds a filter rebuilt from snapshot state, replacing any
// existing binding. Used only during recovery, before the server accepts
// connections.
func (r *Registry) Restore(f *domain.Filter) {
	r.filters.Set(f.Name(), f)
}

// Remove unbinds name. It reports whether a filter was bound. The filter
// itself is untouched; callers holding a reference can keep using it.
func (r *Registry) Remove(name string) bool {
	_, ok := r.filters.Pop(name)
	return ok
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	return r.filters.Count()
}

// Names returns all filter names in lexical order.
func (r *Registry) Names() []string {
	names := r.filters.Keys()
	sort.Strings(names)
	return names
}

// List returns all filters ordered by name. The slice is a point-in-time
// copy; concurrent creations and removals may not be reflected.
func (r *Registry) List() []*domain.Filter {
	out := make([]*domain.Filter, 0, r.filters.Count())
	r.filters.Range(func(_ string, f *domain.Filter) bool {
		out = append(out, f)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
