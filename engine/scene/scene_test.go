package scene

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/light"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAllDeduplicatesByIdentity(t *testing.T) {
	arena := material.NewArena()
	a := arena.Add(material.Diffuse([3]float32{1, 0, 0}, .7, .1))
	b := arena.Add(material.Mirror([3]float32{.9, .9, .9}, .9))
	c := arena.Add(material.Emissive([3]float32{0, 1, 0}, 2))

	spheres := []primitive.Sphere{
		primitive.NewSphere(common.Vec3{}, 1, a),
		primitive.NewSphere(common.Vec3{}, 1, b),
	}
	ellipsoids := []primitive.Ellipsoid{
		primitive.NewEllipsoid(common.Vec3{}, common.Vec3{1, 1, 1}, a),
		primitive.NewEllipsoid(common.Vec3{}, common.Vec3{1, 1, 1}, c),
	}

	r := NewRegistry()
	mats, err := r.InternAll(arena, Entities(spheres), Entities(ellipsoids))
	require.NoError(t, err)

	got := []int{
		spheres[0].ResolvedIndex(), spheres[1].ResolvedIndex(),
		ellipsoids[0].ResolvedIndex(), ellipsoids[1].ResolvedIndex(),
	}
	assert.Equal(t, []int{0, 1, 0, 2}, got)

	ma, _ := arena.Get(a)
	mb, _ := arena.Get(b)
	mc, _ := arena.Get(c)
	assert.Equal(t, []material.Material{ma, mb, mc}, mats)

	again, err := r.InternAll(arena, Entities(spheres), Entities(ellipsoids))
	require.NoError(t, err)
	assert.Equal(t, mats, again)
	assert.Equal(t, 1, spheres[1].ResolvedIndex())
}

func TestInternAllEqualValuesStayDistinct(t *testing.T) {
	arena := material.NewArena()
	h1 := arena.Add(material.Default())
	h2 := arena.Add(material.Default())
	spheres := []primitive.Sphere{
		primitive.NewSphere(common.Vec3{}, 1, h1),
		primitive.NewSphere(common.Vec3{}, 1, h2),
	}
	mats, err := NewRegistry().InternAll(arena, Entities(spheres))
	require.NoError(t, err)
	assert.Len(t, mats, 2)
	assert.Equal(t, 1, spheres[1].ResolvedIndex())
}

func TestInternAllSkipsNoHandleAndRejectsUnknown(t *testing.T) {
	arena := material.NewArena()
	lights := []light.Light{light.NewLight()}
	mats, err := NewRegistry().InternAll(arena, Entities(lights))
	require.NoError(t, err)
	assert.Empty(t, mats)
	assert.Equal(t, material.Unresolved, lights[0].ResolvedIndex())

	bad := []primitive.Sphere{primitive.NewSphere(common.Vec3{}, 1, material.Handle(9))}
	_, err = NewRegistry().InternAll(arena, Entities(bad))
	assert.Error(t, err)
}

func TestRegistryReset(t *testing.T) {
	arena := material.NewArena()
	a := arena.Add(material.Default())
	b := arena.Add(material.Default())
	r := NewRegistry()
	_, err := r.InternAll(arena, Entities([]primitive.Sphere{primitive.NewSphere(common.Vec3{}, 1, a)}))
	require.NoError(t, err)

	r.Reset()
	s := primitive.NewSphere(common.Vec3{}, 1, b)
	_, err = r.InternAll(arena, Entities([]primitive.Sphere{s}))
	require.NoError(t, err)
	assert.Equal(t, 0, s.ResolvedIndex())
	assert.Equal(t, 1, r.Len())
}

type resolver map[string]int

func (r resolver) Resolve(id string) (int, bool) {
	i, ok := r[id]
	return i, ok
}

func TestPreparePacksEveryBuffer(t *testing.T) {
	var logs bytes.Buffer
	s := NewScene(WithLogger(log.New(&logs, "", 0)), WithMarshalWorkers(2))
	red := s.AddMaterial(material.Diffuse([3]float32{.8, .2, .2}, .7, .1, material.WithSurfaceShader("toon.wgsl")))
	vol := s.AddMaterial(material.Volumetric([3]float32{.8, .6, .4}, 8))

	for i := 0; i < 600; i++ {
		s.AddSphere(primitive.NewSphere(common.Vec3{float32(i), 0, 0}, .5, red))
	}
	s.AddEllipsoid(primitive.NewEllipsoid(common.Vec3{}, common.Vec3{1, 2, 3}, red))
	s.AddLight(light.NewLight(light.WithPosition(2, 2, 1)))
	field := volume.NewField(common.Vec3{}, 1, [3]int{2, 1, 1}, [3]float32{1, 1, 1}, []byte{7, 9})
	s.AddVolume(volume.NewRegion(field, vol))

	p, err := s.Prepare(resolver{"toon.wgsl": 1})
	require.NoError(t, err)

	assert.Len(t, p.Spheres, 600*32)
	assert.Len(t, p.Ellipsoids, 64)
	assert.Len(t, p.Lights, 32)
	assert.Len(t, p.Volumes, 64)
	assert.Len(t, p.Materials, 2*80)
	assert.Equal(t, []byte{7, 9, 0, 0}, p.Voxels)
	assert.Equal(t, 600, p.NumSpheres)

	last := p.Spheres[599*32:]
	assert.Equal(t, float32(599), math.Float32frombits(binary.LittleEndian.Uint32(last[0:4])))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(last[16:20]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(p.Volumes[52:56]))

	dev, err := material.UnmarshalGPUMaterial(p.Materials[:80])
	require.NoError(t, err)
	assert.Equal(t, float32(1), dev.ShaderIndex)
	assert.Contains(t, logs.String(), "[Scene] prepared 600 spheres")
}

func TestPrepareLogsUnknownShaderToSceneLogger(t *testing.T) {
	var logs bytes.Buffer
	s := NewScene(WithLogger(log.New(&logs, "", 0)))
	h := s.AddMaterial(material.New(material.WithSurfaceShader("nowhere.wgsl")))
	s.AddSphere(primitive.NewSphere(common.Vec3{}, 1, h))

	p, err := s.Prepare(resolver{"toon.wgsl": 1})
	require.NoError(t, err)

	dev, err := material.UnmarshalGPUMaterial(p.Materials[:80])
	require.NoError(t, err)
	assert.Equal(t, float32(0), dev.ShaderIndex)
	assert.Equal(t, 1, strings.Count(logs.String(), `unknown surface shader "nowhere.wgsl"`))
}

func TestPrepareRejectsSecondField(t *testing.T) {
	s := NewScene()
	h := s.AddMaterial(material.Default())
	f1 := volume.NewField(common.Vec3{}, 1, [3]int{1, 1, 1}, [3]float32{1, 1, 1}, nil)
	f2 := volume.NewField(common.Vec3{}, 1, [3]int{1, 1, 1}, [3]float32{1, 1, 1}, nil)
	s.AddVolume(volume.NewRegion(f1, h))
	s.AddVolume(volume.NewRegion(f2, h))
	_, err := s.Prepare(nil)
	assert.Error(t, err)
}

func TestFrameParams(t *testing.T) {
	s := NewScene(WithMaxDepth(3))
	h := s.AddMaterial(material.Default())
	s.AddSphere(primitive.NewSphere(common.Vec3{}, 1, h))
	s.AddLight(light.NewLight())

	ctrl := camera.NewCameraController(camera.WithPosition(common.Vec3{0, 1.5, 6}), camera.WithTarget(common.Vec3{2, 1.5, 0}))
	cam := camera.NewCamera(camera.WithController(ctrl))

	fp := s.FrameParams(cam, 1.25)
	assert.Equal(t, 144, fp.Size())
	assert.Equal(t, int32(1), fp.NumSpheres)
	assert.Equal(t, int32(1), fp.NumLights)
	assert.Equal(t, int32(3), fp.MaxDepth)
	assert.Equal(t, cam.InverseViewProjectionMatrix(), fp.CameraMatrix)

	buf := fp.Marshal()
	require.Len(t, buf, 144)
	assert.Equal(t, float32(1.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[76:80])))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[96:100]))
	assert.Equal(t, float32(0.4), math.Float32frombits(binary.LittleEndian.Uint32(buf[112:116])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[128:132])))
}

func TestFrameParamsClampsMaxDepth(t *testing.T) {
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController()))
	cases := map[int]int32{-2: 0, 0: 0, 7: 7, MaxTraceDepth: MaxTraceDepth, 1000: MaxTraceDepth}
	for depth, want := range cases {
		s := NewScene(WithMaxDepth(depth))
		assert.Equal(t, want, s.FrameParams(cam, 0).MaxDepth, "depth %d", depth)
		assert.Equal(t, depth, s.MaxDepth())
	}
}
