package material

// MaterialBuilderOption is a function that configures a Material during construction.
type MaterialBuilderOption func(*Material)

// WithColor is an option builder that sets the albedo of the material.
//
// Parameters:
//   - color: the linear RGB albedo
//
// Returns:
//   - MaterialBuilderOption: a function that applies the color option to a material
func WithColor(color [3]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Color = color
	}
}

// WithAmbient is an option builder that sets the ambient coefficient.
func WithAmbient(ambient float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Ambient = ambient
	}
}

// WithDiffuse is an option builder that sets the diffuse coefficient.
func WithDiffuse(diffuse float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Diffuse = diffuse
	}
}

// WithSpecular is an option builder that sets the specular coefficient.
func WithSpecular(specular float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Specular = specular
	}
}

// WithShininess is an option builder that sets the specular exponent.
func WithShininess(shininess float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Shininess = shininess
	}
}

// WithReflectivity is an option builder that sets the mirrored fraction of outgoing radiance.
func WithReflectivity(reflectivity float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Reflectivity = reflectivity
	}
}

// WithTransparency is an option builder that sets the transmitted fraction of outgoing radiance.
func WithTransparency(transparency float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Transparency = transparency
	}
}

// WithEmissive is an option builder that sets the emitted color and its strength.
//
// Parameters:
//   - color: the emitted linear RGB color
//   - strength: the emission multiplier
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emission option to a material
func WithEmissive(color [3]float32, strength float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Emissive = color
		m.EmissiveStrength = strength
	}
}

// WithScatter is an option builder that sets the volumetric scatter color and absorption coefficient.
func WithScatter(color [3]float32, absorption float32) MaterialBuilderOption {
	return func(m *Material) {
		m.ScatterColor = color
		m.AbsorptionCoeff = absorption
	}
}

// WithSurfaceShader is an option builder that selects a shading module by its file name.
//
// Parameters:
//   - name: the module identifier, e.g. "toon.wgsl"; empty selects default shading
//
// Returns:
//   - MaterialBuilderOption: a function that applies the surface shader option to a material
func WithSurfaceShader(name string) MaterialBuilderOption {
	return func(m *Material) {
		m.SurfaceShader = name
	}
}
