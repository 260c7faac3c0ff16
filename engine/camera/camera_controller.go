package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/chewxy/math32"
)

// CameraController owns the positional state of a camera. The camera reads position and target from it
// and computes its matrices.
//
// A controller either stays where it is put or follows a horizontal circular path around a pivot while
// keeping its target fixed. Path mode is enabled by a non-zero angular speed.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - common.Vec3: world-space camera position
	Position() common.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - common.Vec3: world-space target position
	Target() common.Vec3

	// SetPosition sets the camera's world-space position directly.
	//
	// Parameters:
	//   - p: world-space coordinates
	SetPosition(p common.Vec3)

	// SetTarget sets the look-at point.
	//
	// Parameters:
	//   - t: world-space coordinates
	SetTarget(t common.Vec3)

	// Angle returns the current path angle in radians.
	//
	// Returns:
	//   - float32: the angle
	Angle() float32

	// Advance moves the camera along its path by steps multiples of the angular speed.
	// Controllers without a path ignore it.
	//
	// Parameters:
	//   - steps: the number of ticks elapsed, fractional values allowed
	Advance(steps float32)
}

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3

	// Circular path state. The position is pivot + radius*(cos(angle), 0, sin(angle)).
	pivot        common.Vec3
	radius       float32
	angle        float32
	angularSpeed float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller looking down -Z from (0, 0, 5).
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:       &sync.Mutex{},
		position: common.Vec3{0, 0, 5},
	}
	for _, option := range options {
		option(cc)
	}
	if cc.angularSpeed != 0 {
		cc.updatePosition()
	}
	return cc
}

// updatePosition recomputes the position on the circular path. Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cc.position = common.Vec3{
		cc.pivot[0] + cc.radius*math32.Cos(cc.angle),
		cc.pivot[1],
		cc.pivot[2] + cc.radius*math32.Sin(cc.angle),
	}
}

func (cc *cameraControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetPosition(p common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = p
}

func (cc *cameraControllerImpl) SetTarget(t common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = t
}

func (cc *cameraControllerImpl) Angle() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.angle
}

func (cc *cameraControllerImpl) Advance(steps float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.angularSpeed == 0 {
		return
	}
	cc.angle += cc.angularSpeed * steps
	cc.updatePosition()
}
