package volume

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() *Field {
	return NewField(common.Vec3{-.5, -.5, -.5}, 1, [3]int{1, 1, 1}, [3]float32{1, 1, 1}, []byte{255})
}

func TestIntersectBounds(t *testing.T) {
	f := unitBox()

	tests := []struct {
		name  string
		ray   common.Ray
		hit   bool
		wantT float32
	}{
		{
			name:  "head on",
			ray:   common.Ray{Origin: common.Vec3{0, 0, -5}, Direction: common.Vec3{0, 0, 1}},
			hit:   true,
			wantT: 4.5,
		},
		{
			name: "diagonal miss",
			ray:  common.Ray{Origin: common.Vec3{0, 0, -5}, Direction: common.Vec3{1, 0, 1}.Normalize()},
		},
		{
			name: "parallel outside x slab",
			ray:  common.Ray{Origin: common.Vec3{2, -5, -5}, Direction: common.Vec3{0, 1, 1}.Normalize()},
		},
		{
			name: "behind origin",
			ray:  common.Ray{Origin: common.Vec3{0, 0, -5}, Direction: common.Vec3{0, 0, -1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := f.IntersectBounds(tt.ray, 0.001, 1000)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.InDelta(t, tt.wantT, h.T, 1e-5)
				assert.InDelta(t, -.5, h.Point[2], 1e-5)
			}
		})
	}
}

func TestIntersectBoundsRespectsTMax(t *testing.T) {
	f := unitBox()
	_, ok := f.IntersectBounds(common.Ray{Origin: common.Vec3{0, 0, -5}, Direction: common.Vec3{0, 0, 1}}, 0, 4)
	assert.False(t, ok)
}

func TestExitPointIgnoresParallelAxes(t *testing.T) {
	f := unitBox()
	ray := common.Ray{Origin: common.Vec3{0, 0, -5}, Direction: common.Vec3{0, 0, 1}}
	exit := f.ExitPoint(ray, common.Vec3{0, 0, -.5})
	assert.InDeltaSlice(t, []float32{0, 0, .5}, exit[:], 1e-5)

	// Outside the x slab the entry test rejects the ray, the exit computation still resolves.
	outside := common.Ray{Origin: common.Vec3{2, 0, -5}, Direction: common.Vec3{0, 0, 1}}
	_, ok := f.IntersectBounds(outside, 0, 1000)
	assert.False(t, ok)
	exit = f.ExitPoint(outside, common.Vec3{2, 0, -.5})
	assert.InDelta(t, .5, exit[2], 1e-5)
}

func TestDensityAtOutOfRange(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50, 60, 70, 255}
	f := NewField(common.Vec3{}, 1, [3]int{2, 2, 2}, [3]float32{1, 1, 1}, data)

	assert.InDelta(t, 1, f.DensityAt(common.Vec3{1.5, 1.5, 1.5}), 1e-6)
	assert.InDelta(t, 20.0/255, f.DensityAt(common.Vec3{1.5, .5, .5}), 1e-6)

	for _, p := range []common.Vec3{
		{-.1, .5, .5}, {.5, -.1, .5}, {.5, .5, -.1},
		{2, .5, .5}, {.5, 2, .5}, {.5, .5, 2},
	} {
		assert.Zero(t, f.DensityAt(p), "point %v", p)
	}
}

func TestNormalAt(t *testing.T) {
	f := NewField(common.Vec3{}, 1, [3]int{3, 1, 1}, [3]float32{1, 1, 1}, []byte{0, 0, 255})
	assert.Equal(t, common.Vec3{1, 0, 0}, f.NormalAt(common.Vec3{1.5, .5, .5}))

	flat := NewField(common.Vec3{}, 1, [3]int{3, 3, 3}, [3]float32{1, 1, 1}, nil)
	assert.True(t, flat.NormalAt(common.Vec3{1.5, 1.5, 1.5}).IsZero())
}

func TestNewFieldPadsAndTruncates(t *testing.T) {
	short := NewField(common.Vec3{}, 1, [3]int{2, 2, 2}, [3]float32{1, 1, 1}, []byte{1, 2, 3})
	require.Len(t, short.Data(), 8)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, short.Data())

	long := NewField(common.Vec3{}, 1, [3]int{1, 1, 2}, [3]float32{1, 1, 1}, []byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2}, long.Data())
}

func TestBoundsUseScale(t *testing.T) {
	f := NewField(common.Vec3{1.5, 1, -.5}, .001, [3]int{100, 200, 50}, [3]float32{1, 2, 4}, nil)
	v0, v1 := f.Bounds()
	assert.Equal(t, common.Vec3{1.5, 1, -.5}, v0)
	assert.InDelta(t, 1.6, v1[0], 1e-5)
	assert.InDelta(t, 1.4, v1[1], 1e-5)
	assert.InDelta(t, -.3, v1[2], 1e-5)
}

func TestPackedWords(t *testing.T) {
	f := NewField(common.Vec3{}, 1, [3]int{5, 1, 1}, [3]float32{1, 1, 1}, []byte{1, 2, 3, 4, 5})
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, f.PackedWords())

	empty := NewField(common.Vec3{}, 1, [3]int{0, 0, 0}, [3]float32{1, 1, 1}, nil)
	assert.Len(t, empty.PackedWords(), 4)
}

func TestRegionToGPU(t *testing.T) {
	f := NewField(common.Vec3{1, 2, 3}, 2, [3]int{4, 5, 6}, [3]float32{1, 1, 1}, nil)
	r := NewRegion(f, material.Handle(1))
	g := r.ToGPU()
	assert.Equal(t, int32(-1), g.MaterialIndex)
	r.SetResolvedIndex(4)
	g = r.ToGPU()
	assert.Equal(t, int32(4), g.MaterialIndex)
	assert.Equal(t, int32(6), g.ResolutionZ)
	assert.Equal(t, common.Vec3{9, 12, 15}, g.V1)
	assert.Equal(t, 64, g.Size())
	assert.Len(t, g.Marshal(), 64)
}
