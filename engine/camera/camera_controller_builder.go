package camera

import "github.com/Carmen-Shannon/oxy-trace/common"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPosition sets the initial camera position.
//
// Parameters:
//   - p: world-space position
//
// Returns:
//   - CameraControllerOption: functional option to set the position
func WithPosition(p common.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.position = p
	}
}

// WithTarget sets the look-at point.
//
// Parameters:
//   - t: world-space target
//
// Returns:
//   - CameraControllerOption: functional option to set the target
func WithTarget(t common.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = t
	}
}

// WithOrbitPath puts the controller on a horizontal circle around pivot.
// Each Advance step adds angularSpeed radians to the path angle.
//
// Parameters:
//   - pivot: the circle center; its y component is the camera height
//   - radius: the circle radius
//   - angle: the starting angle in radians
//   - angularSpeed: radians advanced per step
//
// Returns:
//   - CameraControllerOption: functional option to enable path mode
func WithOrbitPath(pivot common.Vec3, radius, angle, angularSpeed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.pivot = pivot
		cc.radius = radius
		cc.angle = angle
		cc.angularSpeed = angularSpeed
	}
}
