// Package volume implements the voxel density field the compute kernel ray-marches, together with the
// host-side reference of the same intersection and sampling math.
package volume

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/chewxy/math32"
)

const (
	// parallelEpsilon is the direction magnitude under which a ray is treated as parallel to a slab.
	parallelEpsilon = 1e-6

	// exitFar is the initial far parameter of ExitPoint.
	exitFar = 1e10
)

// Hit describes where a ray enters the volume's bounding box.
type Hit struct {
	T      float32
	Point  common.Vec3
	Normal common.Vec3
}

// Field is an axis-aligned box of byte density samples stored z-major (z, then y, then x).
// A Field is immutable after NewField returns.
type Field struct {
	v0         common.Vec3
	v1         common.Vec3
	position   common.Vec3
	scale      float32
	resolution [3]int
	thickness  [3]float32
	data       []byte
}

// NewField builds a Field whose box starts at position and spans resolution*thickness*scale per axis.
// data is copied; fewer than X*Y*Z bytes are zero padded and extra bytes are dropped.
//
// Parameters:
//   - position: the world-space minimum corner
//   - scale: the uniform world scale applied to the slice thickness
//   - resolution: the voxel count per axis
//   - thickness: the slice thickness per axis in asset units
//   - data: the raw density bytes
//
// Returns:
//   - *Field: the constructed field
func NewField(position common.Vec3, scale float32, resolution [3]int, thickness [3]float32, data []byte) *Field {
	n := resolution[0] * resolution[1] * resolution[2]
	if n < 0 {
		n = 0
	}
	owned := make([]byte, n)
	copy(owned, data)

	return &Field{
		v0: position,
		v1: position.Add(common.Vec3{
			float32(resolution[0]) * thickness[0] * scale,
			float32(resolution[1]) * thickness[1] * scale,
			float32(resolution[2]) * thickness[2] * scale,
		}),
		position:   position,
		scale:      scale,
		resolution: resolution,
		thickness:  thickness,
		data:       owned,
	}
}

// Bounds returns the minimum and maximum corners of the box.
func (f *Field) Bounds() (common.Vec3, common.Vec3) {
	return f.v0, f.v1
}

// Position returns the world-space origin the voxel grid is anchored at.
func (f *Field) Position() common.Vec3 {
	return f.position
}

// Scale returns the world scale applied to the slice thickness.
func (f *Field) Scale() float32 {
	return f.scale
}

// Resolution returns the voxel count per axis.
func (f *Field) Resolution() [3]int {
	return f.resolution
}

// Thickness returns the slice thickness per axis.
func (f *Field) Thickness() [3]float32 {
	return f.thickness
}

// Data returns the density bytes. Callers must not modify the returned slice.
func (f *Field) Data() []byte {
	return f.data
}

// Value returns the raw density byte at voxel (x, y, z), or 0 outside the grid.
func (f *Field) Value(x, y, z int) byte {
	if x < 0 || y < 0 || z < 0 || x >= f.resolution[0] || y >= f.resolution[1] || z >= f.resolution[2] {
		return 0
	}
	return f.data[z*f.resolution[1]*f.resolution[0]+y*f.resolution[0]+x]
}

// VoxelIndex converts a world-space point to integer voxel coordinates. The result may lie outside the grid.
func (f *Field) VoxelIndex(p common.Vec3) [3]int {
	local := p.Sub(f.position)
	var idx [3]int
	for a := 0; a < 3; a++ {
		idx[a] = int(math32.Floor(local[a] / (f.thickness[a] * f.scale)))
	}
	return idx
}

// DensityAt returns the density at p in [0, 1]. Points outside the grid return 0.
func (f *Field) DensityAt(p common.Vec3) float32 {
	idx := f.VoxelIndex(p)
	return float32(f.Value(idx[0], idx[1], idx[2])) / 255
}

// NormalAt estimates the density gradient at p by central differences over the six axis neighbours.
// A flat neighbourhood yields the zero vector.
func (f *Field) NormalAt(p common.Vec3) common.Vec3 {
	i := f.VoxelIndex(p)
	x0 := float32(f.Value(i[0]-1, i[1], i[2]))
	x1 := float32(f.Value(i[0]+1, i[1], i[2]))
	y0 := float32(f.Value(i[0], i[1]-1, i[2]))
	y1 := float32(f.Value(i[0], i[1]+1, i[2]))
	z0 := float32(f.Value(i[0], i[1], i[2]-1))
	z1 := float32(f.Value(i[0], i[1], i[2]+1))
	return common.Vec3{x1 - x0, y1 - y0, z1 - z0}.Normalize()
}

// IntersectBounds intersects ray with the box using the slab method.
// An axis the ray is parallel to rejects the ray unless its origin lies within that slab.
//
// Parameters:
//   - ray: the ray to test
//   - tMin: the smallest accepted entry parameter
//   - tMax: the largest accepted entry parameter
//
// Returns:
//   - Hit: the entry parameter, point and gradient normal
//   - bool: false on a miss
func (f *Field) IntersectBounds(ray common.Ray, tMin, tMax float32) (Hit, bool) {
	t0, t1 := tMin, tMax
	for a := 0; a < 3; a++ {
		d := ray.Direction[a]
		o := ray.Origin[a]
		if math32.Abs(d) > parallelEpsilon {
			inv := 1 / d
			tNear := (f.v0[a] - o) * inv
			tFar := (f.v1[a] - o) * inv
			if inv < 0 {
				tNear, tFar = tFar, tNear
			}
			t0 = math32.Max(t0, tNear)
			t1 = math32.Min(t1, tFar)
		} else if o < f.v0[a]-parallelEpsilon || o > f.v1[a]+parallelEpsilon {
			return Hit{}, false
		}
		if t1 <= t0+parallelEpsilon {
			return Hit{}, false
		}
	}
	if t0 < tMin || t0 > tMax {
		return Hit{}, false
	}
	p := ray.At(t0)
	return Hit{T: t0, Point: p, Normal: f.NormalAt(p)}, true
}

// ExitPoint returns where ray, restarted at entry, leaves the box.
// Axes the ray is parallel to do not constrain the exit, unlike IntersectBounds which rejects them.
//
// Parameters:
//   - ray: the ray whose direction is followed
//   - entry: the point the march starts from
//
// Returns:
//   - common.Vec3: the exit point
func (f *Field) ExitPoint(ray common.Ray, entry common.Vec3) common.Vec3 {
	var t0 float32
	var t1 float32 = exitFar
	for a := 0; a < 3; a++ {
		d := ray.Direction[a]
		if math32.Abs(d) <= parallelEpsilon {
			continue
		}
		inv := 1 / d
		tNear := (f.v0[a] - entry[a]) * inv
		tFar := (f.v1[a] - entry[a]) * inv
		if inv < 0 {
			tNear, tFar = tFar, tNear
		}
		t0 = math32.Max(t0, tNear)
		t1 = math32.Min(t1, tFar)
	}
	return entry.Add(ray.Direction.Scale(t1))
}

// PackedWords returns the density bytes packed four per little-endian uint32 word, zero padded to a whole
// word, matching the array<u32> the kernel reads. An empty field yields a single zero word.
func (f *Field) PackedWords() []byte {
	n := len(f.data)
	size := (n + 3) / 4 * 4
	if size == 0 {
		size = 4
	}
	out := make([]byte, size)
	copy(out, f.data)
	return out
}
