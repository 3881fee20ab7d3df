package pipeline

import "context"

// Slot is a single-frame buffer with replace-on-write semantics: offering
// a frame while one is already waiting discards the waiting frame. Workers
// therefore always pick up the newest frame and the loop never builds a
// backlog behind a slow scan.
type Slot struct {
	ch chan Frame
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{ch: make(chan Frame, 1)}
}

// Offer stores the frame, replacing any undelivered one. Returns true when
// a stale frame was dropped.
func (s *Slot) Offer(f Frame) bool {
	dropped := false
	for {
		select {
		case s.ch <- f:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}

// Take blocks until a frame is available or the context is cancelled.
func (s *Slot) Take(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.ch:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}
