package primitive

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// ellipsoidImpl is the implementation of the Ellipsoid interface.
type ellipsoidImpl struct {
	material.Ref
	center   common.Vec3
	radii    common.Vec3
	color    common.Vec3
	rotation [4]float32
}

// Ellipsoid defines the interface for an analytic ellipsoid primitive.
//
// The ellipsoid is the unit sphere scaled by Radii, rotated by the Rotation quaternion and translated to
// Center. Color tints the material albedo so one material can serve several differently colored shapes.
type Ellipsoid interface {
	// Center returns the world-space center of the ellipsoid.
	//
	// Returns:
	//   - common.Vec3: the center
	Center() common.Vec3

	// Radii returns the semi-axis lengths along the local x, y and z axes.
	//
	// Returns:
	//   - common.Vec3: the radii
	Radii() common.Vec3

	// Color returns the per-shape tint.
	//
	// Returns:
	//   - common.Vec3: the tint color
	Color() common.Vec3

	// Rotation returns the orientation quaternion as (x, y, z, w).
	//
	// Returns:
	//   - [4]float32: the quaternion
	Rotation() [4]float32

	// SetCenter moves the ellipsoid.
	//
	// Parameters:
	//   - c: the new center
	SetCenter(c common.Vec3)

	// SetRotation replaces the orientation quaternion. The quaternion is normalized before storing.
	//
	// Parameters:
	//   - q: the quaternion as (x, y, z, w)
	SetRotation(q [4]float32)

	// MaterialHandle returns the material referenced by the ellipsoid.
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

	// ToGPU packs the ellipsoid into its GPU record. It has no side effects.
	//
	// Returns:
	//   - GPUEllipsoid: the packed record
	ToGPU() GPUEllipsoid
}

var _ Ellipsoid = &ellipsoidImpl{}

// NewEllipsoid creates an ellipsoid referencing the material behind h and applies the provided options.
//
// Parameters:
//   - center: the world-space center
//   - radii: the semi-axis lengths
//   - h: the material handle
//   - options: variadic list of EllipsoidBuilderOption functions
//
// Returns:
//   - Ellipsoid: a new Ellipsoid instance with a white tint and identity rotation unless configured otherwise
func NewEllipsoid(center, radii common.Vec3, h material.Handle, options ...EllipsoidBuilderOption) Ellipsoid {
	e := &ellipsoidImpl{
		Ref:      material.NewRef(h),
		center:   center,
		radii:    radii,
		color:    common.Vec3{1, 1, 1},
		rotation: [4]float32{0, 0, 0, 1},
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *ellipsoidImpl) Center() common.Vec3 {
	return e.center
}

func (e *ellipsoidImpl) Radii() common.Vec3 {
	return e.radii
}

func (e *ellipsoidImpl) Color() common.Vec3 {
	return e.color
}

func (e *ellipsoidImpl) Rotation() [4]float32 {
	return e.rotation
}

func (e *ellipsoidImpl) SetCenter(c common.Vec3) {
	e.center = c
}

func (e *ellipsoidImpl) SetRotation(q [4]float32) {
	e.rotation = normalizeQuat(q)
}

func (e *ellipsoidImpl) ToGPU() GPUEllipsoid {
	return GPUEllipsoid{
		Center:        e.center,
		Radii:         e.radii,
		MaterialIndex: int32(e.ResolvedIndex()),
		Color:         e.color,
		Rotation:      e.rotation,
	}
}
