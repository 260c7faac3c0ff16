package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/stretchr/testify/assert"
)

func TestCameraInverseViewProjection(t *testing.T) {
	ctrl := NewCameraController(
		WithPosition(common.Vec3{0, 1.5, 6}),
		WithTarget(common.Vec3{2, 1.5, 0}),
	)
	cam := NewCamera(WithFov(common.Radians(60)), WithAspect(800.0/600.0), WithController(ctrl))

	vp := cam.ViewProjectionMatrix()
	inv := cam.InverseViewProjectionMatrix()
	out := make([]float32, 16)
	common.Mul4(out, vp[:], inv[:])

	ident := make([]float32, 16)
	common.Identity(ident)
	assert.InDeltaSlice(t, ident, out, 1e-3)
	assert.Equal(t, common.Vec3{0, 1.5, 6}, cam.Position())

	ray := common.CameraRay(inv[:], cam.Position(), 0, 0)
	want := common.Vec3{2, 0, -6}.Normalize()
	assert.InDeltaSlice(t, want[:], ray.Direction[:], 1e-3)
}

func TestCameraWithoutController(t *testing.T) {
	cam := NewCamera()
	assert.Equal(t, common.Vec3{}, cam.Position())
	inv := cam.InverseViewProjectionMatrix()
	assert.Equal(t, float32(1), inv[0])
	cam.Update()
}

func TestOrbitPathAdvance(t *testing.T) {
	ctrl := NewCameraController(
		WithTarget(common.Vec3{2, 1.5, 0}),
		WithOrbitPath(common.Vec3{2, 1.5, 6}, 3, 0, 1.0/180),
	)
	assert.InDeltaSlice(t, []float32{5, 1.5, 6}, sl(ctrl.Position()), 1e-5)

	ctrl.Advance(90)
	assert.InDelta(t, 0.5, ctrl.Angle(), 1e-5)
	p := ctrl.Position()
	assert.InDelta(t, 1.5, p[1], 1e-6)
	assert.InDelta(t, 3, p.Sub(common.Vec3{2, 1.5, 6}).Length(), 1e-4)
	assert.Equal(t, common.Vec3{2, 1.5, 0}, ctrl.Target())
}

func TestStaticControllerIgnoresAdvance(t *testing.T) {
	ctrl := NewCameraController(WithPosition(common.Vec3{1, 2, 3}))
	ctrl.Advance(10)
	assert.Equal(t, common.Vec3{1, 2, 3}, ctrl.Position())
}

func sl(v common.Vec3) []float32 { return v[:] }
