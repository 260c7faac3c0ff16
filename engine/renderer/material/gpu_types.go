package material

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"unsafe"
)

// GPUMaterialSource is the canonical WGSL definition of the Material struct.
// Matches GPUMaterial layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// ShaderIndexResolver maps a shading module identifier to the index the compute kernel dispatches on.
type ShaderIndexResolver interface {
	// Resolve looks up the kernel index of a shading module.
	//
	// Parameters:
	//   - identifier: the module file name
	//
	// Returns:
	//   - int: the dispatch index, 1..N
	//   - bool: false if no module by that name was linked
	Resolve(identifier string) (int, bool)
}

// GPUMaterial is the GPU-aligned record for a single material in the materials storage buffer.
// Matches the WGSL Material struct layout exactly (see GPUMaterialSource).
// Size: 80 bytes (five vec4 groups).
type GPUMaterial struct {
	Color            [3]float32 // offset 0: albedo (12 bytes)
	Ambient          float32    // offset 12
	Diffuse          float32    // offset 16
	Specular         float32    // offset 20
	Shininess        float32    // offset 24
	Reflectivity     float32    // offset 28
	Transparency     float32    // offset 32
	EmissiveStrength float32    // offset 36
	ShaderIndex      float32    // offset 40: shading module index stored as float
	_pad0            float32    // offset 44
	Emissive         [3]float32 // offset 48
	_pad1            float32    // offset 60
	ScatterColor     [3]float32 // offset 64
	AbsorptionCoeff  float32    // offset 76
}

// Pack converts a Material into its GPU record, resolving the surface shader through r.
// An empty identifier packs index 0. An identifier r cannot resolve also packs 0 and logs a warning.
//
// Parameters:
//   - m: the material to pack
//   - r: the resolver built by the shader linker, may be nil when no modules were linked
//
// Returns:
//   - GPUMaterial: the packed record
func Pack(m Material, r ShaderIndexResolver) GPUMaterial {
	return PackWithLogger(m, r, log.Default())
}

// PackWithLogger is Pack with the unknown-shader warning written to logger.
// A nil logger falls back to log.Default().
func PackWithLogger(m Material, r ShaderIndexResolver, logger *log.Logger) GPUMaterial {
	if logger == nil {
		logger = log.Default()
	}
	idx := 0
	if m.SurfaceShader != "" {
		resolved, ok := 0, false
		if r != nil {
			resolved, ok = r.Resolve(m.SurfaceShader)
		}
		if ok {
			idx = resolved
		} else {
			logger.Printf("[Material] unknown surface shader %q, using default shading", m.SurfaceShader)
		}
	}
	return GPUMaterial{
		Color:            m.Color,
		Ambient:          m.Ambient,
		Diffuse:          m.Diffuse,
		Specular:         m.Specular,
		Shininess:        m.Shininess,
		Reflectivity:     m.Reflectivity,
		Transparency:     m.Transparency,
		EmissiveStrength: m.EmissiveStrength,
		ShaderIndex:      float32(idx),
		Emissive:         m.Emissive,
		ScatterColor:     m.ScatterColor,
		AbsorptionCoeff:  m.AbsorptionCoeff,
	}
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, 80)
	putVec3(buf[0:12], g.Color)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Ambient))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Diffuse))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Specular))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Shininess))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Reflectivity))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Transparency))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.EmissiveStrength))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.ShaderIndex))
	putVec3(buf[48:60], g.Emissive)
	putVec3(buf[64:76], g.ScatterColor)
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(g.AbsorptionCoeff))
	return buf
}

// UnmarshalGPUMaterial decodes one 80-byte material record the way the kernel reads it.
//
// Parameters:
//   - buf: at least 80 bytes of packed material data
//
// Returns:
//   - GPUMaterial: the decoded record
//   - error: if buf is shorter than one record
func UnmarshalGPUMaterial(buf []byte) (GPUMaterial, error) {
	if len(buf) < 80 {
		return GPUMaterial{}, fmt.Errorf("material record needs 80 bytes, got %d", len(buf))
	}
	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	return GPUMaterial{
		Color:            [3]float32{f(0), f(4), f(8)},
		Ambient:          f(12),
		Diffuse:          f(16),
		Specular:         f(20),
		Shininess:        f(24),
		Reflectivity:     f(28),
		Transparency:     f(32),
		EmissiveStrength: f(36),
		ShaderIndex:      f(40),
		Emissive:         [3]float32{f(48), f(52), f(56)},
		ScatterColor:     [3]float32{f(64), f(68), f(72)},
		AbsorptionCoeff:  f(76),
	}, nil
}

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
