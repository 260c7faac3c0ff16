package common

// Ray is a half-line with an origin and a direction. Direction is not required to be normalized.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// CameraRay reconstructs the world space ray through the normalized device coordinate (ndcX, ndcY)
// using the inverse of the view-projection matrix. This mirrors the unprojection the compute kernel
// performs per pixel.
//
// Parameters:
//   - invViewProj: the inverse view-projection matrix (16 elements, column-major)
//   - origin: the camera position in world space
//   - ndcX: horizontal coordinate in [-1, 1]
//   - ndcY: vertical coordinate in [-1, 1], +1 is the top of the image
//
// Returns:
//   - Ray: a ray from origin with a normalized direction
func CameraRay(invViewProj []float32, origin Vec3, ndcX, ndcY float32) Ray {
	p := MulPoint4(invViewProj, [4]float32{ndcX, ndcY, 1, 1})
	if p[3] != 0 {
		p[0], p[1], p[2] = p[0]/p[3], p[1]/p[3], p[2]/p[3]
	}
	target := Vec3{p[0], p[1], p[2]}
	return Ray{Origin: origin, Direction: target.Sub(origin).Normalize()}
}
