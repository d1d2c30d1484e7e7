package runner

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is the cancel cause recorded when a worker is stopped normally.
var ErrStopped = errors.New("worker stopped")

// Control provides cooperative execution control to a running loop.
// Loops call WaitIfPaused at every poll boundary.
type Control interface {
	WaitIfPaused(ctx context.Context) error
	Done() <-chan struct{}
	CancelCause() error
}

// ManualControl can be paused, resumed and canceled from another goroutine.
type ManualControl struct {
	mu sync.RWMutex

	paused   bool
	resumeCh chan struct{}
	doneCh   chan struct{}
	cause    error
}

func NewManualControl() *ManualControl {
	return &ManualControl{
		resumeCh: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// WaitIfPaused blocks while paused. It returns the cancel cause once the
// control is canceled, or ctx.Err() when ctx ends first.
func (c *ManualControl) WaitIfPaused(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	for {
		c.mu.RLock()
		paused := c.paused
		resume := c.resumeCh
		done := c.doneCh
		cause := c.cause
		c.mu.RUnlock()

		if !paused {
			select {
			case <-done:
				return causeOrCanceled(cause)
			default:
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return causeOrCanceled(cause)
		case <-resume:
		}
	}
}

func (c *ManualControl) Done() <-chan struct{} {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doneCh
}

func (c *ManualControl) CancelCause() error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cause
}

func (c *ManualControl) Paused() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Pause blocks future WaitIfPaused calls until Resume is called.
func (c *ManualControl) Pause() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.canceledLocked() {
		return
	}
	c.paused = true
	c.resumeCh = make(chan struct{})
}

// Resume unblocks waiters created by Pause.
func (c *ManualControl) Resume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resumeCh)
}

// Cancel marks the control as done and records cause.
func (c *ManualControl) Cancel(cause error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canceledLocked() {
		return
	}
	if cause == nil {
		cause = ErrStopped
	}
	c.cause = cause
	if c.paused {
		c.paused = false
		close(c.resumeCh)
	}
	close(c.doneCh)
}

func (c *ManualControl) canceledLocked() bool {
	select {
	case <-c.doneCh:
		return true
	default:
		return false
	}
}

func causeOrCanceled(cause error) error {
	if cause != nil {
		return cause
	}
	return context.Canceled
}
