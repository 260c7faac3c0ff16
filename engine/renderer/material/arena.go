package material

import "sync"

// Handle is an opaque reference to a material instance owned by an Arena.
// Two handles compare equal only when they were returned by the same Add call.
type Handle uint32

const (
	// NoHandle marks an entity that references no material.
	NoHandle Handle = 0

	// Unresolved is the resolved index carried by an entity before interning.
	Unresolved = -1
)

// Arena owns every material of a scene. Identity is per Add call, so two materials with equal field values
// added separately get distinct handles.
type Arena struct {
	mu        sync.RWMutex
	materials []Material
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add stores m and returns a new handle for it.
//
// Parameters:
//   - m: the material value to own
//
// Returns:
//   - Handle: a handle distinct from every previously returned one
func (a *Arena) Add(m Material) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.materials = append(a.materials, m)
	return Handle(len(a.materials))
}

// Get looks up the material behind h.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - Material: the material value, zero if not found
//   - bool: false if h is NoHandle or was not issued by this arena
func (a *Arena) Get(h Handle) (Material, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if h == NoHandle || int(h) > len(a.materials) {
		return Material{}, false
	}
	return a.materials[h-1], true
}

// Len returns the number of materials owned by the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.materials)
}

// Ref is the material reference embedded by every scene entity. It pairs the Handle with the index assigned
// by interning, which stays Unresolved until the registry runs.
type Ref struct {
	handle Handle
	index  int
}

// NewRef creates an unresolved reference to h.
//
// Parameters:
//   - h: the material handle, NoHandle for entities without a material
//
// Returns:
//   - Ref: the reference with its index set to Unresolved
func NewRef(h Handle) Ref {
	return Ref{handle: h, index: Unresolved}
}

// MaterialHandle returns the referenced handle.
func (r *Ref) MaterialHandle() Handle {
	return r.handle
}

// SetMaterialHandle replaces the referenced handle and clears the resolved index.
func (r *Ref) SetMaterialHandle(h Handle) {
	r.handle = h
	r.index = Unresolved
}

// ResolvedIndex returns the index into the interned material list, or Unresolved.
func (r *Ref) ResolvedIndex() int {
	return r.index
}

// SetResolvedIndex stores the index assigned by interning.
func (r *Ref) SetResolvedIndex(i int) {
	r.index = i
}
