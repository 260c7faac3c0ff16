package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a slot or image is moved between states the frame
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid frame transition")

	// ErrSlotBusy is returned by Begin when the slot for a frame is still being recorded.
	ErrSlotBusy = errors.New("frame slot is still recording")
)

// SlotState is the lifecycle position of one frame-in-flight slot.
type SlotState int

const (
	// SlotIdle means the slot has never been used or its recording was aborted.
	SlotIdle SlotState = iota
	// SlotRecording means commands for the slot's frame are being recorded.
	SlotRecording
	// SlotSubmitted means the slot's commands were submitted and its fence may not have signaled yet.
	SlotSubmitted
	// SlotComplete means the slot's fence has signaled and its resources may be reused.
	SlotComplete
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	case SlotComplete:
		return "complete"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// transition validates and applies a move from *s to next.
//
// Parameters:
//   - s: the state to update in place
//   - next: the requested state
//
// Returns:
//   - error: ErrInvalidTransition wrapped with both state names
func transition(s *SlotState, next SlotState) error {
	ok := false
	switch *s {
	case SlotIdle, SlotComplete:
		ok = next == SlotRecording
	case SlotRecording:
		ok = next == SlotSubmitted || next == SlotIdle
	case SlotSubmitted:
		ok = next == SlotComplete
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, *s, next)
	}
	*s = next
	return nil
}
