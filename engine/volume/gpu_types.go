package volume

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// GPUVolumetricDataSource is the canonical WGSL definition of the VolumetricData struct.
// Matches GPUVolumetricData layout exactly (64 bytes, std430 aligned).
//
//go:embed assets/volumetric_data.wgsl
var GPUVolumetricDataSource string

// GPUVolumetricData is the GPU-aligned record describing one density volume.
// The voxel bytes themselves live in a separate packed u32 storage buffer.
// Size: 64 bytes.
type GPUVolumetricData struct {
	Position      common.Vec3 // offset  0: grid origin
	Scale         float32     // offset 12: world scale of the slice thickness
	V0            common.Vec3 // offset 16: box minimum
	ResolutionX   int32       // offset 28
	V1            common.Vec3 // offset 32: box maximum
	ResolutionY   int32       // offset 44
	ResolutionZ   int32       // offset 48
	MaterialIndex int32       // offset 52
	_pad          [2]int32    // offset 56: padding to 64 bytes
}

// Size returns the size of the GPUVolumetricData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUVolumetricData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVolumetricData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPUVolumetricData) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Scale))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.V0[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.V0[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.V0[2]))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(g.ResolutionX))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.V1[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.V1[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.V1[2]))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(g.ResolutionY))
	binary.LittleEndian.PutUint32(buf[48:52], uint32(g.ResolutionZ))
	binary.LittleEndian.PutUint32(buf[52:56], uint32(g.MaterialIndex))
	return buf
}
