// Package primitive provides the implicit surfaces the compute kernel intersects analytically.
package primitive

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// sphereImpl is the implementation of the Sphere interface.
type sphereImpl struct {
	material.Ref
	center common.Vec3
	radius float32
}

// Sphere defines the interface for an analytic sphere primitive.
type Sphere interface {
	// Center returns the world-space center of the sphere.
	//
	// Returns:
	//   - common.Vec3: the center
	Center() common.Vec3

	// Radius returns the sphere radius.
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// SetCenter moves the sphere.
	//
	// Parameters:
	//   - c: the new center
	SetCenter(c common.Vec3)

	// MaterialHandle returns the material referenced by the sphere.
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

	// ToGPU packs the sphere into its GPU record. It has no side effects; before interning the material
	// index is material.Unresolved.
	//
	// Returns:
	//   - GPUSphere: the packed record
	ToGPU() GPUSphere
}

var _ Sphere = &sphereImpl{}

// NewSphere creates a sphere referencing the material behind h.
//
// Parameters:
//   - center: the world-space center
//   - radius: the radius
//   - h: the material handle
//
// Returns:
//   - Sphere: a new Sphere instance
func NewSphere(center common.Vec3, radius float32, h material.Handle) Sphere {
	return &sphereImpl{
		Ref:    material.NewRef(h),
		center: center,
		radius: radius,
	}
}

func (s *sphereImpl) Center() common.Vec3 {
	return s.center
}

func (s *sphereImpl) Radius() float32 {
	return s.radius
}

func (s *sphereImpl) SetCenter(c common.Vec3) {
	s.center = c
}

func (s *sphereImpl) ToGPU() GPUSphere {
	return GPUSphere{
		Center:        s.center,
		Radius:        s.radius,
		MaterialIndex: int32(s.ResolvedIndex()),
	}
}
