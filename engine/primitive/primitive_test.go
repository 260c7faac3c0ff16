package primitive

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphereToGPUBeforeAndAfterInterning(t *testing.T) {
	s := NewSphere(common.Vec3{0, 0, -1}, .5, material.Handle(1))
	g := s.ToGPU()
	assert.Equal(t, int32(-1), g.MaterialIndex)

	s.SetResolvedIndex(3)
	g = s.ToGPU()
	assert.Equal(t, int32(3), g.MaterialIndex)
	assert.Equal(t, 32, g.Size())

	buf := g.Marshal()
	require.Len(t, buf, 32)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[16:20]))
	assert.Equal(t, float32(.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])))
}

func TestEllipsoidDefaultsAndLayout(t *testing.T) {
	e := NewEllipsoid(common.Vec3{-2, .8, -1}, common.Vec3{.5, .8, .3}, material.Handle(2),
		WithColor(common.Vec3{.8, .4, .8}))
	assert.Equal(t, [4]float32{0, 0, 0, 1}, e.Rotation())

	e.SetResolvedIndex(1)
	g := e.ToGPU()
	assert.Equal(t, 64, g.Size())
	buf := g.Marshal()
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(.5), f(16))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[28:32]))
	assert.Equal(t, float32(.4), f(36))
	assert.Equal(t, float32(1), f(60))
}

func TestEllipsoidRotationNormalized(t *testing.T) {
	e := NewEllipsoid(common.Vec3{}, common.Vec3{1, 1, 1}, material.NoHandle, WithRotation([4]float32{0, 0, 2, 0}))
	assert.Equal(t, [4]float32{0, 0, 1, 0}, e.Rotation())

	e.SetRotation([4]float32{})
	assert.Equal(t, [4]float32{0, 0, 0, 1}, e.Rotation())

	r := NewEllipsoid(common.Vec3{}, common.Vec3{1, 1, 1}, material.NoHandle,
		WithAxisAngle(common.Vec3{0, 1, 0}, math.Pi)).Rotation()
	assert.InDelta(t, 1, r[1], 1e-6)
	assert.InDelta(t, 0, r[3], 1e-6)
}
