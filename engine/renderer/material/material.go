// Package material holds the surface description shared by every primitive in a scene, the arena that gives
// each material instance a stable identity, and the packed GPU record the compute kernel reads.
package material

// Material is a plain value describing how a surface responds to light.
// Entities never hold a Material directly; they reference one through a Handle issued by an Arena.
type Material struct {
	// Color is the linear RGB albedo of the surface.
	Color [3]float32

	// Ambient, Diffuse and Specular are the Phong lighting coefficients.
	Ambient  float32
	Diffuse  float32
	Specular float32

	// Shininess is the specular exponent.
	Shininess float32

	// Reflectivity is the fraction of radiance taken from the mirrored ray, in [0, 1].
	Reflectivity float32

	// Transparency is the fraction of radiance taken from the transmitted ray, in [0, 1].
	Transparency float32

	// Emissive is the linear RGB color emitted by the surface, scaled by EmissiveStrength.
	Emissive         [3]float32
	EmissiveStrength float32

	// ScatterColor and AbsorptionCoeff drive the ray march through a density volume.
	ScatterColor    [3]float32
	AbsorptionCoeff float32

	// SurfaceShader names the shading module (its file name) used for this material.
	// An empty string selects the built-in default shading model.
	SurfaceShader string
}

// New creates a Material starting from the Default values and applies the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the configured material
func New(options ...MaterialBuilderOption) Material {
	m := Default()
	for _, opt := range options {
		opt(&m)
	}
	return m
}

// Default returns the neutral white Phong material.
func Default() Material {
	return Material{
		Color:     [3]float32{1, 1, 1},
		Ambient:   0.1,
		Diffuse:   0.5,
		Specular:  0.5,
		Shininess: 32,
	}
}

// Diffuse creates a mostly matte material.
//
// Parameters:
//   - color: the albedo
//   - diffuse: the diffuse coefficient
//   - ambient: the ambient coefficient
//   - options: further options applied after the named values
//
// Returns:
//   - Material: the configured material
func Diffuse(color [3]float32, diffuse, ambient float32, options ...MaterialBuilderOption) Material {
	m := Default()
	m.Color = color
	m.Diffuse = diffuse
	m.Ambient = ambient
	m.Specular = 0.1
	m.Shininess = 16
	return apply(m, options)
}

// SpecularMat creates a glossy material. The name avoids clashing with the Specular field.
//
// Parameters:
//   - color: the albedo
//   - specular: the specular coefficient
//   - shininess: the specular exponent
//   - reflectivity: the mirrored fraction
//   - options: further options applied after the named values
//
// Returns:
//   - Material: the configured material
func SpecularMat(color [3]float32, specular, shininess, reflectivity float32, options ...MaterialBuilderOption) Material {
	m := Default()
	m.Color = color
	m.Specular = specular
	m.Shininess = shininess
	m.Reflectivity = reflectivity
	return apply(m, options)
}

// Mirror creates a highly reflective material.
//
// Parameters:
//   - color: the tint applied to reflected light
//   - reflectivity: the mirrored fraction
//   - options: further options applied after the named values
//
// Returns:
//   - Material: the configured material
func Mirror(color [3]float32, reflectivity float32, options ...MaterialBuilderOption) Material {
	m := Default()
	m.Color = color
	m.Reflectivity = reflectivity
	m.Diffuse = 0.2
	m.Specular = 0.8
	m.Shininess = 128
	return apply(m, options)
}

// Emissive creates a light emitting material with no ambient or diffuse response.
//
// Parameters:
//   - color: the albedo; the kernel emits color scaled by strength
//   - strength: the emission multiplier
//   - options: further options applied after the named values
//
// Returns:
//   - Material: the configured material
func Emissive(color [3]float32, strength float32, options ...MaterialBuilderOption) Material {
	m := Default()
	m.Color = color
	m.EmissiveStrength = strength
	m.Ambient = 0
	m.Diffuse = 0
	return apply(m, options)
}

// Volumetric creates a participating medium material for density volumes.
//
// Parameters:
//   - scatter: the scatter color
//   - absorption: the absorption coefficient
//   - options: further options applied after the named values
//
// Returns:
//   - Material: the configured material
func Volumetric(scatter [3]float32, absorption float32, options ...MaterialBuilderOption) Material {
	m := Default()
	m.ScatterColor = scatter
	m.AbsorptionCoeff = absorption
	return apply(m, options)
}

func apply(m Material, options []MaterialBuilderOption) Material {
	for _, opt := range options {
		opt(&m)
	}
	return m
}
