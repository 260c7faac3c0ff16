// Package light provides the point lights the compute kernel samples for direct illumination.
package light

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	material.Ref
	position  common.Vec3
	color     common.Vec3
	intensity float32
}

// Light defines the interface for a point light in the scene.
//
// Lights are marshaled into the lights storage buffer once per scene upload. A light may reference a
// material so emissive shading modules can sample it; lights without one keep NoHandle and are skipped
// by material interning.
type Light interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - common.Vec3: position as (x, y, z)
	Position() common.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - common.Vec3: the light color in the 0-1 range
	Color() common.Vec3

	// Intensity returns the scalar multiplier applied to the light color.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// SetPosition moves the light.
	//
	// Parameters:
	//   - p: the new world-space position
	SetPosition(p common.Vec3)

	// MaterialHandle returns the material referenced by the light, or NoHandle.
	//
	// Returns:
	//   - material.Handle: the handle
	MaterialHandle() material.Handle

	// ResolvedIndex returns the interned material index, or material.Unresolved.
	//
	// Returns:
	//   - int: the index
	ResolvedIndex() int

	// SetResolvedIndex stores the interned material index.
	//
	// Parameters:
	//   - i: the index assigned by the registry
	SetResolvedIndex(i int)

	// ToGPU packs the light into its GPU record. It has no side effects.
	//
	// Returns:
	//   - GPULight: the packed record
	ToGPU() GPULight
}

var _ Light = &lightImpl{}

// NewLight creates a new white point light at the origin configured with the provided options.
//
// Parameters:
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		Ref:       material.NewRef(material.NoHandle),
		color:     common.Vec3{1, 1, 1},
		intensity: 1,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) Position() common.Vec3 {
	return l.position
}

func (l *lightImpl) Color() common.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) SetPosition(p common.Vec3) {
	l.position = p
}

func (l *lightImpl) ToGPU() GPULight {
	return GPULight{
		Position:  l.position,
		Intensity: l.intensity,
		Color:     l.color,
	}
}
