package frame

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Slot is one frame-in-flight position of a Ring. Resources holds whatever the slot owns on the
// device, typically its params uniform buffer and bind group.
type Slot[T any] struct {
	Index     int
	Resources T

	frame uint64
	state SlotState
	fence Fence
}

// State returns the slot's lifecycle position.
func (s *Slot[T]) State() SlotState {
	return s.state
}

// Frame returns the number of the frame that last occupied the slot.
func (s *Slot[T]) Frame() uint64 {
	return s.frame
}

// Fence returns the fence of the slot's last submission, nil before the first one.
func (s *Slot[T]) Fence() Fence {
	return s.fence
}

// RingBuilderOption configures a Ring.
type RingBuilderOption func(c *ringConfig)

type ringConfig struct {
	logger *log.Logger
}

// WithLogger sets the logger used for fence wait failures.
//
// Parameters:
//   - l: the logger, nil keeps log.Default()
//
// Returns:
//   - RingBuilderOption: a function that applies the logger
func WithLogger(l *log.Logger) RingBuilderOption {
	return func(c *ringConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Ring hands out frame slots round-robin. Frame k uses slot k mod P and only waits for the frame
// that occupied that slot before it, so up to P frames are in flight at once.
//
// Begin, Submit and Abort are called from the single goroutine that records GPU commands.
// Poll and LastWait may be called from any goroutine.
type Ring[T any] struct {
	mu       sync.Mutex
	slots    []*Slot[T]
	last     *Slot[T]
	lastWait time.Duration
	logger   *log.Logger
}

// NewRing creates a Ring with one slot per resources entry.
//
// Parameters:
//   - resources: the per-slot resources, its length is the number of frames in flight
//   - options: functional options to further configure the ring
//
// Returns:
//   - *Ring[T]: the ring with every slot Idle
//   - error: if resources is empty
func NewRing[T any](resources []T, options ...RingBuilderOption) (*Ring[T], error) {
	if len(resources) == 0 {
		return nil, errors.New("frame ring needs at least one slot")
	}
	cfg := &ringConfig{logger: log.Default()}
	for _, option := range options {
		option(cfg)
	}

	r := &Ring[T]{
		slots:  make([]*Slot[T], len(resources)),
		logger: cfg.logger,
	}
	for i, res := range resources {
		r.slots[i] = &Slot[T]{Index: i, Resources: res}
	}
	return r, nil
}

// Len returns the number of frames that can be in flight.
func (r *Ring[T]) Len() int {
	return len(r.slots)
}

// Slots returns every slot in index order.
func (r *Ring[T]) Slots() []*Slot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Slot[T](nil), r.slots...)
}

// Begin claims the slot of the given frame for recording. If the slot's previous occupant is still
// in flight, Begin blocks on that occupant's fence and nothing else.
//
// Parameters:
//   - ctx: bounds the fence wait
//   - frame: the frame number
//
// Returns:
//   - *Slot[T]: the slot, now Recording
//   - error: ErrSlotBusy if the slot is still being recorded, or the fence wait error
func (r *Ring[T]) Begin(ctx context.Context, frame uint64) (*Slot[T], error) {
	r.mu.Lock()
	slot := r.slots[frame%uint64(len(r.slots))]
	if slot.state == SlotRecording {
		r.mu.Unlock()
		return nil, fmt.Errorf("frame %d slot %d: %w", frame, slot.Index, ErrSlotBusy)
	}
	fence := slot.fence
	submitted := slot.state == SlotSubmitted
	r.mu.Unlock()

	var waited time.Duration
	if submitted {
		start := time.Now()
		if err := fence.Wait(ctx); err != nil {
			r.logger.Printf("[FrameRing] wait on slot %d (frame %d) failed: %v", slot.Index, slot.frame, err)
			return nil, fmt.Errorf("waiting for frame %d: %w", slot.frame, err)
		}
		waited = time.Since(start)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastWait = waited
	// Poll may have completed the slot while the lock was released.
	if slot.state == SlotSubmitted {
		slot.state = SlotComplete
	}
	if err := transition(&slot.state, SlotRecording); err != nil {
		return nil, err
	}
	slot.frame = frame
	return slot, nil
}

// Submit marks a Recording slot as Submitted with the fence of its submission.
//
// Parameters:
//   - slot: the slot returned by Begin
//   - fence: signals when the slot's GPU work is complete
//
// Returns:
//   - error: ErrInvalidTransition if the slot is not Recording
func (r *Ring[T]) Submit(slot *Slot[T], fence Fence) error {
	if fence == nil {
		return errors.New("submit needs a fence")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := transition(&slot.state, SlotSubmitted); err != nil {
		return err
	}
	slot.fence = fence
	r.last = slot
	return nil
}

// Abort returns a Recording slot to Idle after a failed recording. Nothing was submitted so no
// fence is kept.
//
// Parameters:
//   - slot: the slot returned by Begin
//
// Returns:
//   - error: ErrInvalidTransition if the slot is not Recording
func (r *Ring[T]) Abort(slot *Slot[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := transition(&slot.state, SlotIdle); err != nil {
		return err
	}
	slot.fence = nil
	return nil
}

// Poll moves every Submitted slot whose fence has signaled to Complete without blocking.
//
// Returns:
//   - int: the number of slots still in flight
func (r *Ring[T]) Poll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	inFlight := 0
	for _, s := range r.slots {
		if s.state != SlotSubmitted {
			continue
		}
		if s.fence.Signaled() {
			s.state = SlotComplete
			continue
		}
		inFlight++
	}
	return inFlight
}

// WaitAll blocks until every submitted slot is Complete, leaving the device idle for this ring.
//
// Parameters:
//   - ctx: bounds the fence waits
//
// Returns:
//   - error: the first fence wait error
func (r *Ring[T]) WaitAll(ctx context.Context) error {
	for _, s := range r.Slots() {
		r.mu.Lock()
		fence, submitted := s.fence, s.state == SlotSubmitted
		r.mu.Unlock()
		if !submitted {
			continue
		}

		if err := fence.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for frame %d: %w", s.frame, err)
		}

		r.mu.Lock()
		if s.state == SlotSubmitted {
			s.state = SlotComplete
		}
		r.mu.Unlock()
	}
	return nil
}

// Last returns the most recently submitted slot, nil before the first submission.
func (r *Ring[T]) Last() *Slot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// LastWait returns how long the most recent Begin blocked on a fence.
func (r *Ring[T]) LastWait() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastWait
}
