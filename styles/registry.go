// Package styles caches component stylesheets by content identity and
// tracks which documents have adopted them, so a sheet shared by many
// component instances is materialized once per document.
//
// The registry is an explicit dependency: it is constructed once at
// startup and passed by reference to whatever mounts components. There
// is no package-level instance.
package styles

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

// Registry is a process-wide stylesheet cache keyed by the xxhash of the
// style text. It is confined to a single goroutine, matching the
// runtime's cooperative execution model.
type Registry struct {
	sheets  map[uint64]string
	order   []uint64
	adopted map[any]mapset.Set[uint64]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sheets:  make(map[uint64]string),
		adopted: make(map[any]mapset.Set[uint64]),
	}
}

// Register stores css under its content identity and returns the identity
// key. Registering the same text twice returns the same key and keeps a
// single entry.
func (r *Registry) Register(css string) uint64 {
	id := xxhash.Sum64String(css)
	if _, ok := r.sheets[id]; !ok {
		r.sheets[id] = css
		r.order = append(r.order, id)
	}
	return id
}

// Text returns the stored style text for id.
func (r *Registry) Text(id uint64) (string, bool) {
	css, ok := r.sheets[id]
	return css, ok
}

// Len reports the number of distinct sheets registered.
func (r *Registry) Len() int {
	return len(r.sheets)
}

// Adopt marks id as adopted by target. It returns true the first time a
// given target adopts a given sheet and false on repeat adoptions or for
// an unregistered id, so callers can skip re-injecting a sheet a
// document already carries.
func (r *Registry) Adopt(target any, id uint64) bool {
	if _, ok := r.sheets[id]; !ok {
		return false
	}
	set, ok := r.adopted[target]
	if !ok {
		set = mapset.NewThreadUnsafeSet[uint64]()
		r.adopted[target] = set
	}
	return set.Add(id)
}

// AdoptedBy returns the ids adopted by target in registration order.
func (r *Registry) AdoptedBy(target any) []uint64 {
	set, ok := r.adopted[target]
	if !ok {
		return nil
	}
	var ids []uint64
	for _, id := range r.order {
		if set.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Render concatenates the style text of every sheet target has adopted,
// in registration order.
func (r *Registry) Render(target any) string {
	var b strings.Builder
	for i, id := range r.AdoptedBy(target) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.sheets[id])
	}
	return b.String()
}
