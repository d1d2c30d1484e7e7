package aim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) func(context.Context) error {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return nil
	}
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func recordingModule(r *recorder) Funcs {
	return Funcs{
		ID:         "temp_limit",
		StartFunc:  r.record("start"),
		StopFunc:   r.record("stop"),
		PauseFunc:  r.record("pause"),
		ResumeFunc: r.record("resume"),
	}
}

func newTestAIM(t *testing.T, module Module, opts ...Option) *AIM {
	t.Helper()
	opts = append([]Option{WithLogger(aif.NopLogger{})}, opts...)
	a, err := New("AIM_TEMP_LIMIT", 1, module, opts...)
	require.NoError(t, err)
	return a
}

func TestNewValidation(t *testing.T) {
	_, err := New("", 1, Funcs{})
	assert.True(t, aif.HasCode(err, aif.ErrCodeInvalidIdentity))

	_, err = New("x", 1, nil)
	assert.True(t, aif.HasCode(err, aif.ErrCodeNilAIM))
}

func TestLifecycleFlipsActive(t *testing.T) {
	rec := &recorder{}
	a := newTestAIM(t, recordingModule(rec))
	ctx := context.Background()

	assert.False(t, a.IsAlive())
	assert.Equal(t, StateCreated, a.State())

	tests := []struct {
		verb  func(context.Context) error
		alive bool
		state State
	}{
		{verb: a.Start, alive: true, state: StateStarted},
		{verb: a.Pause, alive: false, state: StatePaused},
		{verb: a.Resume, alive: true, state: StateStarted},
		{verb: a.Stop, alive: false, state: StateStopped},
	}
	for _, tt := range tests {
		require.NoError(t, tt.verb(ctx))
		assert.Equal(t, tt.alive, a.IsAlive())
		assert.Equal(t, tt.state, a.State())
	}

	assert.Equal(t, []string{"start", "pause", "resume", "stop"}, rec.Calls())
	assert.Equal(t, aif.AIMDead, a.Status())
}

func TestPermissiveTransitionsAcceptAnyOrder(t *testing.T) {
	rec := &recorder{}
	a := newTestAIM(t, recordingModule(rec))

	require.NoError(t, a.Resume(context.Background()))
	assert.True(t, a.IsAlive())
	require.NoError(t, a.Stop(context.Background()))
	require.NoError(t, a.Stop(context.Background()))
	assert.Equal(t, []string{"resume", "stop", "stop"}, rec.Calls())
}

func TestStrictTransitions(t *testing.T) {
	rec := &recorder{}
	a := newTestAIM(t, recordingModule(rec), WithStrictTransitions())
	ctx := context.Background()

	err := a.Resume(ctx)
	assert.True(t, aif.HasCode(err, aif.ErrCodeInvalidTransition))
	assert.False(t, a.IsAlive())

	require.NoError(t, a.Start(ctx))
	assert.True(t, aif.HasCode(a.Start(ctx), aif.ErrCodeInvalidTransition))
	require.NoError(t, a.Pause(ctx))
	require.NoError(t, a.Resume(ctx))
	require.NoError(t, a.Stop(ctx))
	require.NoError(t, a.Start(ctx))

	assert.Equal(t, []string{"start", "pause", "resume", "stop", "start"}, rec.Calls())
}

func TestModuleFailureKeepsState(t *testing.T) {
	boom := errors.New("boom")
	a := newTestAIM(t, Funcs{StartFunc: func(context.Context) error { return boom }})

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, aif.HasCode(err, aif.ErrCodeLifecycleFailed))
	assert.ErrorIs(t, err, boom)
	assert.False(t, a.IsAlive())
	assert.Equal(t, StateCreated, a.State())
}

func TestNilAIMReturnsError(t *testing.T) {
	var a *AIM
	ctx := context.Background()
	for _, verb := range []func(context.Context) error{a.Start, a.Stop, a.Pause, a.Resume} {
		err := verb(ctx)
		assert.True(t, aif.HasCode(err, aif.ErrCodeNilAIM))
		assert.Equal(t, aif.ResultError, aif.CodeOf(err))
	}
	assert.True(t, aif.HasCode(a.Destroy(), aif.ErrCodeNilAIM))
	assert.False(t, a.IsAlive())
	assert.Equal(t, aif.ResultError, a.Status())
}

func TestDestroyRequiresStop(t *testing.T) {
	a := newTestAIM(t, Funcs{ID: "x"})
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	assert.True(t, aif.HasCode(a.Destroy(), aif.ErrCodeInvalidTransition))
	assert.True(t, a.IsAlive())

	require.NoError(t, a.Stop(ctx))
	require.NoError(t, a.Destroy())
	require.NoError(t, a.Destroy())
	assert.Equal(t, StateDestroyed, a.State())
	assert.Nil(t, a.Module())

	assert.True(t, aif.HasCode(a.Start(ctx), aif.ErrCodeAIMDestroyed))
}

func TestDestroyNeverStarted(t *testing.T) {
	a := newTestAIM(t, Funcs{})
	require.NoError(t, a.Destroy())
}

func TestIdentityFallsBackToName(t *testing.T) {
	a := newTestAIM(t, Funcs{})
	assert.Equal(t, "AIM_TEMP_LIMIT", a.Identity())

	b := newTestAIM(t, Funcs{ID: "temp_limit"})
	assert.Equal(t, "temp_limit", b.Identity())
	assert.Equal(t, aif.KindAIM, b.Component().Kind)
	assert.Equal(t, 1, b.WorkflowID())
}

func TestHooksReceiveEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	hook := HookFunc(func(_ context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, evt)
		return nil
	})

	a := newTestAIM(t, Funcs{}, WithHooks(hook), WithStrictTransitions())
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	_ = a.Start(ctx)
	require.NoError(t, a.Stop(ctx))
	require.NoError(t, a.Destroy())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.Equal(t, PhaseCommitted, events[0].Phase)
	assert.True(t, events[0].Alive)
	assert.Equal(t, PhaseRejected, events[1].Phase)
	assert.Equal(t, aif.ErrCodeInvalidTransition, events[1].ErrorCode)
	assert.Equal(t, StateStopped, events[2].To)
	assert.Equal(t, VerbDestroy, events[3].Verb)
}

func TestHookFailureModes(t *testing.T) {
	failing := HookFunc(func(context.Context, Event) error { return errors.New("hook down") })

	open := newTestAIM(t, Funcs{}, WithHooks(failing))
	assert.NoError(t, open.Start(context.Background()))

	closed := newTestAIM(t, Funcs{}, WithHooks(failing), WithHookFailureMode(HookFailureModeFailClosed))
	err := closed.Start(context.Background())
	assert.True(t, aif.HasCode(err, aif.ErrCodeLifecycleFailed))
	assert.True(t, closed.IsAlive())
}

func TestWorkerModuleLifecycle(t *testing.T) {
	var ticks atomic.Int64
	worker := runner.NewWorker("ticker", runner.Every(time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	}), runner.WithLogger(aif.NopLogger{}))

	a := newTestAIM(t, NewWorkerModule("ticker", worker))
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	assert.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, a.Pause(ctx))
	assert.True(t, worker.Paused())
	require.NoError(t, a.Resume(ctx))

	require.NoError(t, a.Stop(ctx))
	assert.False(t, worker.Running())
	require.NoError(t, a.Destroy())
}

func TestConcurrentVerbsAreSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	slow := func(context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	a := newTestAIM(t, Funcs{StartFunc: slow, StopFunc: slow})

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = a.Start(context.Background())
			} else {
				_ = a.Stop(context.Background())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(1), maxInFlight.Load())
}
