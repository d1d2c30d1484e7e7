package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoop(counter *atomic.Int64) Loop {
	return func(ctx context.Context, ctl Control) error {
		for {
			if err := ctl.WaitIfPaused(ctx); err != nil {
				return err
			}
			counter.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}

func TestWorkerStartStopJoins(t *testing.T) {
	var counter atomic.Int64
	w := NewWorker("counter", countingLoop(&counter), WithLogger(aif.NopLogger{}))

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return counter.Load() > 0 }, time.Second, time.Millisecond)
	assert.True(t, w.Running())

	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, w.Running())
	assert.NoError(t, w.Err())

	select {
	case <-w.Done():
	default:
		t.Fatal("expected done channel closed after Stop")
	}
}

func TestWorkerStartIsDetachedFromCallerContext(t *testing.T) {
	var counter atomic.Int64
	w := NewWorker("detached", countingLoop(&counter), WithLogger(aif.NopLogger{}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, w.Running())
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerPauseResume(t *testing.T) {
	var counter atomic.Int64
	w := NewWorker("pausable", countingLoop(&counter), WithLogger(aif.NopLogger{}))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(context.Background())

	assert.Eventually(t, func() bool { return counter.Load() > 0 }, time.Second, time.Millisecond)

	w.Pause()
	assert.True(t, w.Paused())
	time.Sleep(10 * time.Millisecond)
	frozen := counter.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, counter.Load())

	w.Resume()
	assert.False(t, w.Paused())
	assert.Eventually(t, func() bool { return counter.Load() > frozen }, time.Second, time.Millisecond)
}

func TestWorkerStopWhilePaused(t *testing.T) {
	var counter atomic.Int64
	w := NewWorker("paused-stop", countingLoop(&counter), WithLogger(aif.NopLogger{}))
	require.NoError(t, w.Start(context.Background()))
	w.Pause()

	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, w.Running())
}

func TestWorkerRestartAfterStop(t *testing.T) {
	var counter atomic.Int64
	w := NewWorker("restart", countingLoop(&counter), WithLogger(aif.NopLogger{}))

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())
	assert.Equal(t, 2, w.Runs())
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerReportsLoopError(t *testing.T) {
	var mu sync.Mutex
	var reported error
	boom := errors.New("boom")

	w := NewWorker("failing", func(context.Context, Control) error { return boom },
		WithLogger(aif.NopLogger{}),
		WithErrorHandler(func(err error) {
			mu.Lock()
			reported = err
			mu.Unlock()
		}),
	)
	require.NoError(t, w.Start(context.Background()))
	<-w.Done()

	assert.ErrorIs(t, w.Err(), boom)
	mu.Lock()
	assert.ErrorIs(t, reported, boom)
	mu.Unlock()
	assert.False(t, w.Running())
}

func TestWorkerRecoversPanics(t *testing.T) {
	var panicked atomic.Bool
	w := NewWorker("panicky", func(context.Context, Control) error { panic("kaboom") },
		WithLogger(aif.NopLogger{}),
		WithPanicLogger(func(string, any, []byte, ...map[string]any) { panicked.Store(true) }),
	)
	require.NoError(t, w.Start(context.Background()))
	<-w.Done()

	assert.True(t, panicked.Load())
	assert.Error(t, w.Err())
}

func TestWorkerStopTimesOutOnStuckLoop(t *testing.T) {
	release := make(chan struct{})
	w := NewWorker("stuck", func(context.Context, Control) error {
		<-release
		return nil
	}, WithLogger(aif.NopLogger{}))
	require.NoError(t, w.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded)

	close(release)
	<-w.Done()
}

func TestEveryTicksUntilStopped(t *testing.T) {
	var ticks atomic.Int64
	w := NewWorker("ticker", Every(time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	}), WithLogger(aif.NopLogger{}))

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, w.Stop(context.Background()))
	assert.NoError(t, w.Err())
}

func TestNilWorkerIsSafe(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop(context.Background()))
	assert.False(t, w.Running())
	w.Pause()
	w.Resume()
}
