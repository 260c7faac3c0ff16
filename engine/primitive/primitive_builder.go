package primitive

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/chewxy/math32"
)

// EllipsoidBuilderOption is a function that configures an ellipsoid during construction.
type EllipsoidBuilderOption func(*ellipsoidImpl)

// WithColor is an option builder that sets the per-shape tint of the ellipsoid.
//
// Parameters:
//   - color: the linear RGB tint
//
// Returns:
//   - EllipsoidBuilderOption: a function that applies the color option to an ellipsoid
func WithColor(color common.Vec3) EllipsoidBuilderOption {
	return func(e *ellipsoidImpl) {
		e.color = color
	}
}

// WithRotation is an option builder that sets the orientation quaternion (x, y, z, w).
// The quaternion is normalized before storing; a zero quaternion falls back to identity.
func WithRotation(q [4]float32) EllipsoidBuilderOption {
	return func(e *ellipsoidImpl) {
		e.rotation = normalizeQuat(q)
	}
}

// WithAxisAngle is an option builder that sets the orientation from a rotation axis and an angle in radians.
//
// Parameters:
//   - axis: the rotation axis, normalized internally
//   - angle: the rotation angle in radians
//
// Returns:
//   - EllipsoidBuilderOption: a function that applies the rotation option to an ellipsoid
func WithAxisAngle(axis common.Vec3, angle float32) EllipsoidBuilderOption {
	return func(e *ellipsoidImpl) {
		a := axis.Normalize()
		s := math32.Sin(angle / 2)
		e.rotation = normalizeQuat([4]float32{a[0] * s, a[1] * s, a[2] * s, math32.Cos(angle / 2)})
	}
}

func normalizeQuat(q [4]float32) [4]float32 {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l == 0 {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}
