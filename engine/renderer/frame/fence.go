package frame

import "context"

// Fence reports when the GPU work of one submission has finished.
type Fence interface {
	// Wait blocks until the fence signals or the context ends.
	//
	// Parameters:
	//   - ctx: bounds the host-side wait, GPU work is never cancelled
	//
	// Returns:
	//   - error: the context error if the wait was abandoned
	Wait(ctx context.Context) error

	// Signaled reports whether the fence has signaled without blocking.
	//
	// Returns:
	//   - bool: true once the submission is complete
	Signaled() bool
}

// SignaledFence is a Fence that is complete from the start. It stands in for work that never
// reached the GPU.
type SignaledFence struct{}

var _ Fence = SignaledFence{}

func (SignaledFence) Wait(context.Context) error {
	return nil
}

func (SignaledFence) Signaled() bool {
	return true
}
