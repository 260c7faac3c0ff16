package primitive

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// GPUSphereSource is the canonical WGSL definition of the Sphere struct.
// Matches GPUSphere layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// GPUEllipsoidSource is the canonical WGSL definition of the Ellipsoid struct.
// Matches GPUEllipsoid layout exactly (64 bytes, std430 aligned).
//
//go:embed assets/ellipsoid.wgsl
var GPUEllipsoidSource string

// GPUSphere is the GPU-aligned record for a single sphere in the spheres storage buffer.
// Size: 32 bytes.
type GPUSphere struct {
	Center        common.Vec3 // offset  0
	Radius        float32     // offset 12
	MaterialIndex int32       // offset 16: interned material index, -1 before interning
	_pad          [3]int32    // offset 20: padding to 32 bytes
}

// Size returns the size of the GPUSphere struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUSphere) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSphere struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUSphere) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Center[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Center[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Center[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(g.MaterialIndex))
	return buf
}

// GPUEllipsoid is the GPU-aligned record for a single ellipsoid in the ellipsoids storage buffer.
// Size: 64 bytes.
type GPUEllipsoid struct {
	Center        common.Vec3 // offset  0
	_pad0         float32     // offset 12
	Radii         common.Vec3 // offset 16
	MaterialIndex int32       // offset 28: interned material index, -1 before interning
	Color         common.Vec3 // offset 32: per-shape tint
	_pad1         float32     // offset 44
	Rotation      [4]float32  // offset 48: orientation quaternion (x, y, z, w)
}

// Size returns the size of the GPUEllipsoid struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUEllipsoid) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUEllipsoid struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPUEllipsoid) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Center[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Center[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Center[2]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Radii[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Radii[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Radii[2]))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(g.MaterialIndex))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Color[2]))
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[48+i*4:52+i*4], math.Float32bits(g.Rotation[i]))
	}
	return buf
}
