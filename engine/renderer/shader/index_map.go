package shader

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// DefaultIndex is the shader index reserved for the kernel's built-in Phong shading.
const DefaultIndex = 0

// IndexMap maps surface shading module identifiers to their dispatch index. Module i in
// Names() has index i+1. The zero value resolves nothing and has length 0.
type IndexMap struct {
	names []string
	index map[string]int
}

var _ material.ShaderIndexResolver = IndexMap{}

// NewIndexMap assigns indices 1..N to names in the order given.
func NewIndexMap(names []string) IndexMap {
	m := IndexMap{
		names: slices.Clone(names),
		index: make(map[string]int, len(names)),
	}
	for i, n := range m.names {
		m.index[n] = i + 1
	}
	return m
}

// Resolve returns the index of the module with the given identifier. The identifier is
// the module's file name; a path is reduced to its base name first, and the extension
// may be omitted.
func (m IndexMap) Resolve(identifier string) (int, bool) {
	if identifier == "" || m.index == nil {
		return DefaultIndex, false
	}
	base := filepath.Base(identifier)
	if idx, ok := m.index[base]; ok {
		return idx, true
	}
	for i, n := range m.names {
		if strings.TrimSuffix(n, filepath.Ext(n)) == base {
			return i + 1, true
		}
	}
	return DefaultIndex, false
}

// Len returns the number of linked modules, excluding the default shader.
func (m IndexMap) Len() int {
	return len(m.names)
}

// Names returns the module identifiers in index order.
func (m IndexMap) Names() []string {
	return slices.Clone(m.names)
}
