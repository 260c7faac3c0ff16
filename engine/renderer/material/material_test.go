package material

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]int

func (r mapResolver) Resolve(id string) (int, bool) {
	i, ok := r[id]
	return i, ok
}

func TestNamedConstructors(t *testing.T) {
	d := Default()
	assert.Equal(t, [3]float32{1, 1, 1}, d.Color)
	assert.Equal(t, float32(32), d.Shininess)

	red := Diffuse([3]float32{.8, .2, .2}, .7, .1, WithSpecular(.3), WithShininess(32))
	assert.Equal(t, float32(.7), red.Diffuse)
	assert.Equal(t, float32(.1), red.Ambient)
	assert.Equal(t, float32(.3), red.Specular)
	assert.Equal(t, float32(32), red.Shininess)

	mirror := Mirror([3]float32{.9, .9, .9}, .9)
	assert.Equal(t, float32(.2), mirror.Diffuse)
	assert.Equal(t, float32(.8), mirror.Specular)
	assert.Equal(t, float32(128), mirror.Shininess)

	glow := Emissive([3]float32{.2, .8, .2}, 2)
	assert.Zero(t, glow.Ambient)
	assert.Zero(t, glow.Diffuse)
	assert.Equal(t, float32(2), glow.EmissiveStrength)

	vol := Volumetric([3]float32{.8, .6, .4}, 8)
	assert.Equal(t, float32(8), vol.AbsorptionCoeff)

	spec := SpecularMat([3]float32{1, 1, 1}, .9, 64, .4)
	assert.Equal(t, float32(.4), spec.Reflectivity)
}

func TestArenaIdentity(t *testing.T) {
	a := NewArena()
	h1 := a.Add(Default())
	h2 := a.Add(Default())
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, NoHandle, h1)
	assert.Equal(t, 2, a.Len())

	m, ok := a.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, Default(), m)

	_, ok = a.Get(NoHandle)
	assert.False(t, ok)
	_, ok = a.Get(Handle(42))
	assert.False(t, ok)
}

func TestPackRoundTrip(t *testing.T) {
	m := New(
		WithColor([3]float32{.1, .2, .3}),
		WithAmbient(.4),
		WithDiffuse(.5),
		WithSpecular(.6),
		WithShininess(7),
		WithReflectivity(.8),
		WithTransparency(.9),
		WithEmissive([3]float32{1, .5, .25}, 3),
		WithScatter([3]float32{.7, .6, .5}, 11),
		WithSurfaceShader("toon.wgsl"),
	)
	g := Pack(m, mapResolver{"checker.wgsl": 1, "toon.wgsl": 2})
	assert.Equal(t, 80, g.Size())

	buf := g.Marshal()
	require.Len(t, buf, 80)

	dev, err := UnmarshalGPUMaterial(buf)
	require.NoError(t, err)
	assert.InDeltaSlice(t, m.Color[:], dev.Color[:], 1e-6)
	assert.InDelta(t, m.Ambient, dev.Ambient, 1e-6)
	assert.InDelta(t, m.Diffuse, dev.Diffuse, 1e-6)
	assert.InDelta(t, m.Specular, dev.Specular, 1e-6)
	assert.InDelta(t, m.Shininess, dev.Shininess, 1e-6)
	assert.InDelta(t, m.Reflectivity, dev.Reflectivity, 1e-6)
	assert.InDelta(t, m.Transparency, dev.Transparency, 1e-6)
	assert.InDeltaSlice(t, m.Emissive[:], dev.Emissive[:], 1e-6)
	assert.InDelta(t, m.EmissiveStrength, dev.EmissiveStrength, 1e-6)
	assert.InDeltaSlice(t, m.ScatterColor[:], dev.ScatterColor[:], 1e-6)
	assert.InDelta(t, m.AbsorptionCoeff, dev.AbsorptionCoeff, 1e-6)
	assert.Equal(t, 2, int(dev.ShaderIndex))
}

func TestPackUnknownShaderFallsBack(t *testing.T) {
	var out bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&out)
	defer log.SetOutput(prev)

	g := Pack(New(WithSurfaceShader("missing.wgsl")), mapResolver{})
	assert.Equal(t, float32(0), g.ShaderIndex)
	assert.Contains(t, out.String(), "missing.wgsl")

	out.Reset()
	g = Pack(Default(), nil)
	assert.Equal(t, float32(0), g.ShaderIndex)
	assert.Empty(t, out.String())
}

func TestPackWithLoggerWritesToInjectedLogger(t *testing.T) {
	var global, injected bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&global)
	defer log.SetOutput(prev)

	g := PackWithLogger(New(WithSurfaceShader("gone.wgsl")), mapResolver{}, log.New(&injected, "", 0))
	assert.Equal(t, float32(0), g.ShaderIndex)
	assert.Equal(t, 1, strings.Count(injected.String(), "gone.wgsl"))
	assert.Empty(t, global.String())
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := UnmarshalGPUMaterial(make([]byte, 79))
	assert.Error(t, err)
}
