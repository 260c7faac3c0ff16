package scene

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// GPUFrameParamsSource is the canonical WGSL definition of the FrameParams struct.
// Matches GPUFrameParams layout exactly (144 bytes, uniform aligned).
//
//go:embed assets/frame_params.wgsl
var GPUFrameParamsSource string

// GPUFrameParams is the per-frame uniform block written into a frame slot before dispatch.
// Size: 144 bytes.
type GPUFrameParams struct {
	CameraMatrix  [16]float32 // offset   0: inverse view-projection (mat4x4<f32>)
	CameraPos     common.Vec3 // offset  64
	Time          float32     // offset  76
	NumSpheres    int32       // offset  80
	NumEllipsoids int32       // offset  84
	NumLights     int32       // offset  88
	NumVolumes    int32       // offset  92
	MaxDepth      int32       // offset  96
	_pad0         [3]int32    // offset 100
	BgColorTop    common.Vec3 // offset 112
	_pad1         float32     // offset 124
	BgColorBottom common.Vec3 // offset 128
	_pad2         float32     // offset 140
}

// Size returns the size of the GPUFrameParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUFrameParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameParams) Marshal() []byte {
	buf := make([]byte, 144)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.CameraMatrix[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPos[i]))
		binary.LittleEndian.PutUint32(buf[112+i*4:], math.Float32bits(g.BgColorTop[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.BgColorBottom[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Time))
	binary.LittleEndian.PutUint32(buf[80:], uint32(g.NumSpheres))
	binary.LittleEndian.PutUint32(buf[84:], uint32(g.NumEllipsoids))
	binary.LittleEndian.PutUint32(buf[88:], uint32(g.NumLights))
	binary.LittleEndian.PutUint32(buf[92:], uint32(g.NumVolumes))
	binary.LittleEndian.PutUint32(buf[96:], uint32(g.MaxDepth))
	return buf
}
