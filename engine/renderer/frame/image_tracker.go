package frame

import (
	"fmt"
	"sync"
)

// ImageUsage is how the output image is being accessed.
type ImageUsage int

const (
	// ImageUndefined is the usage of a freshly created image whose contents are meaningless.
	ImageUndefined ImageUsage = iota
	// ImageComputeWrite is the usage while the kernel writes pixels.
	ImageComputeWrite
	// ImageTransferSrc is the usage while the image is copied into a readback buffer.
	ImageTransferSrc
	// ImageSampled is the usage while the present blit samples the image.
	ImageSampled
)

func (u ImageUsage) String() string {
	switch u {
	case ImageUndefined:
		return "undefined"
	case ImageComputeWrite:
		return "compute-write"
	case ImageTransferSrc:
		return "transfer-src"
	case ImageSampled:
		return "sampled"
	default:
		return fmt.Sprintf("ImageUsage(%d)", int(u))
	}
}

// Barrier is one recorded usage change of the output image. WebGPU inserts the actual pipeline
// barrier itself. The record keeps the ordering checkable on the host.
type Barrier struct {
	From ImageUsage
	To   ImageUsage
	NoOp bool
}

// ImageTracker follows the usage of the single output image across frames and refuses any
// transition that would read pixels a submission is still writing.
type ImageTracker struct {
	mu     sync.Mutex
	usage  ImageUsage
	writer Fence
	count  int
}

// NewImageTracker creates a tracker for an image in the Undefined usage.
func NewImageTracker() *ImageTracker {
	return &ImageTracker{}
}

// Usage returns the current image usage.
func (t *ImageTracker) Usage() ImageUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Barriers returns how many non no-op barriers were recorded.
func (t *ImageTracker) Barriers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// SetWriter records the fence of the latest submission that writes the image.
//
// Parameters:
//   - f: the submission's fence
func (t *ImageTracker) SetWriter(f Fence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writer = f
}

// Transition moves the image to a new usage and returns the barrier to record.
// Moving to the current usage is a no-op barrier. Leaving ComputeWrite requires the writing
// submission's fence to have signaled.
//
// Parameters:
//   - to: the requested usage
//
// Returns:
//   - Barrier: the recorded usage change
//   - error: ErrInvalidTransition if the change is not allowed
func (t *ImageTracker) Transition(to ImageUsage) (Barrier, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := Barrier{From: t.usage, To: to}
	if to == ImageUndefined {
		return b, fmt.Errorf("%w: image %s -> %s", ErrInvalidTransition, t.usage, to)
	}
	if to == t.usage {
		b.NoOp = true
		return b, nil
	}
	if t.usage == ImageComputeWrite && t.writer != nil && !t.writer.Signaled() {
		return b, fmt.Errorf("%w: image %s -> %s before the writing frame completed", ErrInvalidTransition, t.usage, to)
	}

	t.usage = to
	t.count++
	return b, nil
}

// Reset returns the tracker to Undefined, used when the image is recreated.
func (t *ImageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = ImageUndefined
	t.writer = nil
	t.count = 0
}
