package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// Entity is anything in a scene that references a material and needs the interned index of it.
type Entity interface {
	// MaterialHandle returns the referenced material, or material.NoHandle.
	MaterialHandle() material.Handle

	// ResolvedIndex returns the index into the interned material list, or material.Unresolved.
	ResolvedIndex() int

	// SetResolvedIndex stores the interned index.
	SetResolvedIndex(i int)
}

// Registry interns materials by identity. Each Handle maps to the index where it was first seen.
type Registry struct {
	index     map[material.Handle]int
	materials []material.Material
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[material.Handle]int)}
}

// InternAll walks the containers in order and assigns every entity the index of its material,
// appending materials the registry has not seen before. Entities referencing material.NoHandle are
// skipped and keep their current index.
//
// Parameters:
//   - arena: the arena the handles were issued by
//   - containers: entity lists walked in the given order
//
// Returns:
//   - []material.Material: the deduplicated materials in first-seen order
//   - error: if an entity references a handle the arena does not own
func (r *Registry) InternAll(arena *material.Arena, containers ...[]Entity) ([]material.Material, error) {
	for ci, container := range containers {
		for ei, e := range container {
			h := e.MaterialHandle()
			if h == material.NoHandle {
				continue
			}
			idx, ok := r.index[h]
			if !ok {
				m, found := arena.Get(h)
				if !found {
					return nil, fmt.Errorf("container %d entity %d: material handle %d not in arena", ci, ei, h)
				}
				idx = len(r.materials)
				r.index[h] = idx
				r.materials = append(r.materials, m)
			}
			e.SetResolvedIndex(idx)
		}
	}
	out := make([]material.Material, len(r.materials))
	copy(out, r.materials)
	return out, nil
}

// Len returns the number of interned materials.
func (r *Registry) Len() int {
	return len(r.materials)
}

// Reset forgets every interned material so the next InternAll starts from index 0.
func (r *Registry) Reset() {
	r.index = make(map[material.Handle]int)
	r.materials = nil
}

// Entities converts a typed entity slice into the []Entity InternAll consumes.
func Entities[T Entity](items []T) []Entity {
	out := make([]Entity, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
