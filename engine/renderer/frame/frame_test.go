package frame

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFence struct {
	done     chan struct{}
	signaled atomic.Bool
}

func newFakeFence() *fakeFence {
	return &fakeFence{done: make(chan struct{})}
}

func (f *fakeFence) signal() {
	if f.signaled.CompareAndSwap(false, true) {
		close(f.done)
	}
}

func (f *fakeFence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFence) Signaled() bool {
	return f.signaled.Load()
}

func newTestRing(t *testing.T, n int) *Ring[int] {
	t.Helper()
	res := make([]int, n)
	for i := range res {
		res[i] = i * 10
	}
	r, err := NewRing(res, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	require.NoError(t, err)
	return r
}

// beginWithin runs Begin on another goroutine and reports whether it returned before the timeout.
func beginWithin(r *Ring[int], frame uint64, d time.Duration) (<-chan *Slot[int], bool) {
	out := make(chan *Slot[int], 1)
	go func() {
		s, err := r.Begin(context.Background(), frame)
		if err != nil {
			close(out)
			return
		}
		out <- s
	}()
	select {
	case s := <-out:
		ch := make(chan *Slot[int], 1)
		ch <- s
		return ch, true
	case <-time.After(d):
		return out, false
	}
}

func TestSlotTransitions(t *testing.T) {
	cases := []struct {
		from, to SlotState
		ok       bool
	}{
		{SlotIdle, SlotRecording, true},
		{SlotRecording, SlotSubmitted, true},
		{SlotRecording, SlotIdle, true},
		{SlotSubmitted, SlotComplete, true},
		{SlotComplete, SlotRecording, true},
		{SlotIdle, SlotSubmitted, false},
		{SlotIdle, SlotComplete, false},
		{SlotSubmitted, SlotRecording, false},
		{SlotSubmitted, SlotIdle, false},
		{SlotComplete, SlotSubmitted, false},
		{SlotRecording, SlotComplete, false},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			s := tc.from
			err := transition(&s, tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, s)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, tc.from, s)
		})
	}
}

func TestRingSlotReuseBlocksAtFramesInFlightBoundary(t *testing.T) {
	r := newTestRing(t, 2)
	ctx := context.Background()
	fences := []*fakeFence{newFakeFence(), newFakeFence()}

	s0, err := r.Begin(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s0.Index)
	require.NoError(t, r.Submit(s0, fences[0]))

	// Frame 1 uses the other slot and must not wait for frame 0.
	ch, returned := beginWithin(r, 1, time.Second)
	require.True(t, returned, "frame 1 blocked on frame 0")
	s1 := <-ch
	require.NotNil(t, s1)
	assert.Equal(t, 1, s1.Index)
	assert.Equal(t, 10, s1.Resources)
	require.NoError(t, r.Submit(s1, fences[1]))

	// Frame 2 reuses slot 0 and must wait until frame 0 signals.
	ch, returned = beginWithin(r, 2, 100*time.Millisecond)
	require.False(t, returned, "frame 2 did not wait for frame 0")
	assert.Equal(t, SlotSubmitted, s0.State())

	fences[0].signal()
	select {
	case s2 := <-ch:
		require.NotNil(t, s2)
		assert.Equal(t, 0, s2.Index)
		assert.Equal(t, uint64(2), s2.Frame())
		assert.Equal(t, SlotRecording, s2.State())
	case <-time.After(5 * time.Second):
		t.Fatal("frame 2 still blocked after frame 0 signaled")
	}
	assert.Positive(t, r.LastWait())

	// Frame 1 is still in flight and untouched.
	assert.Equal(t, SlotSubmitted, s1.State())
	assert.False(t, fences[1].Signaled())
	assert.Same(t, s1, r.Last())
}

func TestRingBeginRejectsRecordingSlot(t *testing.T) {
	r := newTestRing(t, 2)
	_, err := r.Begin(context.Background(), 4)
	require.NoError(t, err)

	_, err = r.Begin(context.Background(), 6)
	assert.True(t, errors.Is(err, ErrSlotBusy))
}

func TestRingBeginHonoursContext(t *testing.T) {
	r := newTestRing(t, 1)
	s, err := r.Begin(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, r.Submit(s, newFakeFence()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Begin(ctx, 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, SlotSubmitted, s.State())
}

func TestRingAbortAndSubmitErrors(t *testing.T) {
	r := newTestRing(t, 2)
	s, err := r.Begin(context.Background(), 0)
	require.NoError(t, err)

	assert.Error(t, r.Submit(s, nil))
	require.NoError(t, r.Abort(s))
	assert.Equal(t, SlotIdle, s.State())
	assert.Nil(t, s.Fence())

	assert.True(t, errors.Is(r.Submit(s, SignaledFence{}), ErrInvalidTransition))
	assert.True(t, errors.Is(r.Abort(s), ErrInvalidTransition))
	assert.Nil(t, r.Last())
}

func TestRingPollAndWaitAll(t *testing.T) {
	r := newTestRing(t, 3)
	ctx := context.Background()
	fences := make([]*fakeFence, 3)
	for i := range fences {
		fences[i] = newFakeFence()
		s, err := r.Begin(ctx, uint64(i))
		require.NoError(t, err)
		require.NoError(t, r.Submit(s, fences[i]))
	}

	fences[1].signal()
	assert.Equal(t, 2, r.Poll())
	assert.Equal(t, SlotComplete, r.Slots()[1].State())

	go func() {
		time.Sleep(20 * time.Millisecond)
		fences[0].signal()
		fences[2].signal()
	}()
	require.NoError(t, r.WaitAll(ctx))
	for _, s := range r.Slots() {
		assert.Equal(t, SlotComplete, s.State())
	}
	assert.Equal(t, 0, r.Poll())
	assert.Equal(t, 3, r.Len())
}

func TestNewRingNeedsSlots(t *testing.T) {
	_, err := NewRing[int](nil)
	assert.Error(t, err)
}

func TestImageTrackerTransitions(t *testing.T) {
	tr := NewImageTracker()
	assert.Equal(t, ImageUndefined, tr.Usage())

	b, err := tr.Transition(ImageComputeWrite)
	require.NoError(t, err)
	assert.Equal(t, Barrier{From: ImageUndefined, To: ImageComputeWrite}, b)

	b, err = tr.Transition(ImageComputeWrite)
	require.NoError(t, err)
	assert.True(t, b.NoOp)

	writer := newFakeFence()
	tr.SetWriter(writer)
	_, err = tr.Transition(ImageTransferSrc)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, ImageComputeWrite, tr.Usage())

	writer.signal()
	b, err = tr.Transition(ImageTransferSrc)
	require.NoError(t, err)
	assert.Equal(t, ImageComputeWrite, b.From)

	_, err = tr.Transition(ImageUndefined)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = tr.Transition(ImageSampled)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Barriers())

	tr.Reset()
	assert.Equal(t, ImageUndefined, tr.Usage())
	assert.Equal(t, 0, tr.Barriers())
}

func TestSignaledFence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, SignaledFence{}.Wait(ctx))
	assert.True(t, SignaledFence{}.Signaled())
}
