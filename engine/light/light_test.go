package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/stretchr/testify/assert"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight()
	assert.Equal(t, common.Vec3{1, 1, 1}, l.Color())
	assert.Equal(t, float32(1), l.Intensity())
	assert.Equal(t, material.NoHandle, l.MaterialHandle())
	assert.Equal(t, material.Unresolved, l.ResolvedIndex())
}

func TestLightMarshalLayout(t *testing.T) {
	l := NewLight(WithPosition(2, 2, 1), WithColor(1, .9, .8), WithIntensity(3))
	g := l.ToGPU()
	assert.Equal(t, 32, g.Size())

	buf := g.Marshal()
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(2), f(0))
	assert.Equal(t, float32(1), f(8))
	assert.Equal(t, float32(3), f(12))
	assert.Equal(t, float32(.9), f(20))
	assert.Equal(t, float32(0), f(28))
}
