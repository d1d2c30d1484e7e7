package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualControlPauseBlocksUntilResume(t *testing.T) {
	ctl := NewManualControl()
	ctl.Pause()

	released := make(chan error, 1)
	go func() { released <- ctl.WaitIfPaused(context.Background()) }()

	select {
	case <-released:
		t.Fatal("expected WaitIfPaused to block while paused")
	case <-time.After(20 * time.Millisecond):
	}

	ctl.Resume()
	select {
	case err := <-released:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected WaitIfPaused to return after Resume")
	}
}

func TestManualControlCancelReturnsCause(t *testing.T) {
	ctl := NewManualControl()
	ctl.Pause()
	cause := errors.New("shutdown")
	ctl.Cancel(cause)
	ctl.Cancel(errors.New("ignored"))

	assert.ErrorIs(t, ctl.WaitIfPaused(context.Background()), cause)
	assert.ErrorIs(t, ctl.CancelCause(), cause)
	assert.False(t, ctl.Paused())

	ctl.Pause()
	assert.False(t, ctl.Paused())
}

func TestManualControlHonorsContext(t *testing.T) {
	ctl := NewManualControl()
	ctl.Pause()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ctl.WaitIfPaused(ctx), context.Canceled)
}

func TestManualControlDefaultCause(t *testing.T) {
	ctl := NewManualControl()
	ctl.Cancel(nil)
	assert.ErrorIs(t, ctl.CancelCause(), ErrStopped)
}
