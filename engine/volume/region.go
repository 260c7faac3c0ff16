package volume

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// regionImpl is the implementation of the Region interface.
type regionImpl struct {
	material.Ref
	field *Field
}

// Region defines the interface for a scene entity that places a density Field in the world and shades it
// with a volumetric material.
type Region interface {
	// Field returns the density field rendered by this region.
	//
	// Returns:
	//   - *Field: the field
	Field() *Field

	// MaterialHandle returns the material referenced by the region.
	//
	// Returns:
	//   - material.Handle: the handle
	MaterialHandle() material.Handle

	// ResolvedIndex returns the interned material index, or material.Unresolved before interning.
	//
	// Returns:
	//   - int: the index
	ResolvedIndex() int

	// SetResolvedIndex stores the interned material index.
	//
	// Parameters:
	//   - i: the index assigned by the registry
	SetResolvedIndex(i int)

	// ToGPU packs the region into its GPU record. It has no side effects.
	//
	// Returns:
	//   - GPUVolumetricData: the packed record
	ToGPU() GPUVolumetricData
}

var _ Region = &regionImpl{}

// NewRegion creates a Region rendering f with the material behind h.
//
// Parameters:
//   - f: the density field
//   - h: the material handle
//
// Returns:
//   - Region: a new Region instance
func NewRegion(f *Field, h material.Handle) Region {
	return &regionImpl{
		Ref:   material.NewRef(h),
		field: f,
	}
}

func (r *regionImpl) Field() *Field {
	return r.field
}

func (r *regionImpl) ToGPU() GPUVolumetricData {
	f := r.field
	return GPUVolumetricData{
		Position:      f.position,
		Scale:         f.scale,
		V0:            f.v0,
		ResolutionX:   int32(f.resolution[0]),
		V1:            f.v1,
		ResolutionY:   int32(f.resolution[1]),
		ResolutionZ:   int32(f.resolution[2]),
		MaterialIndex: int32(r.ResolvedIndex()),
	}
}
