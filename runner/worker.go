package runner

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
)

// defaultStopTimeout bounds Stop when the caller context has no deadline.
const defaultStopTimeout = 5 * time.Second

// Loop is the body of a worker. It must call ctl.WaitIfPaused at every poll
// boundary and return once ctx is done or WaitIfPaused returns an error.
type Loop func(ctx context.Context, ctl Control) error

// Worker runs a Loop on its own goroutine with cooperative pause, resume and
// stop. Stop joins the goroutine before returning.
type Worker struct {
	mu sync.Mutex

	name         string
	loop         Loop
	logger       aif.Logger
	errorHandler func(error)
	panicLogger  aif.PanicLogger

	control *ManualControl
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	runs    int
}

// NewWorker constructs a worker, applying defaults for unset options.
func NewWorker(name string, loop Loop, opts ...Option) *Worker {
	w := &Worker{
		name:   name,
		loop:   loop,
		logger: aif.NewFmtLogger(nil),
	}
	w.errorHandler = func(err error) {
		w.logger.Error("worker %s exited: %v", w.name, err)
	}
	for _, o := range opts {
		if o != nil {
			o(w)
		}
	}
	if w.panicLogger == nil {
		w.panicLogger = aif.LoggerPanicHandler(w.logger)
	}
	return w
}

func (w *Worker) Name() string {
	if w == nil {
		return ""
	}
	return w.name
}

// Start spawns the loop goroutine. The goroutine outlives ctx cancellation;
// only Stop ends it. Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	if w == nil || w.loop == nil {
		return errors.New("runner: worker has no loop")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running() {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ctl := NewManualControl()
	done := make(chan struct{})

	w.control = ctl
	w.cancel = cancel
	w.done = done
	w.err = nil
	w.runs++

	go w.run(runCtx, ctl, done)
	return nil
}

func (w *Worker) run(ctx context.Context, ctl *ManualControl, done chan struct{}) {
	var err error
	defer func() {
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
		close(done)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("runner: loop panicked")
			w.panicLogger(w.name, r, debug.Stack(), map[string]any{"worker": w.name})
		}
	}()

	err = w.loop(ctx, ctl)
	if err != nil && !isStopError(err, ctl) {
		w.errorHandler(err)
		return
	}
	err = nil
}

// Pause asks the loop to block at its next poll boundary.
func (w *Worker) Pause() {
	if w == nil {
		return
	}
	w.mu.Lock()
	ctl := w.control
	w.mu.Unlock()
	ctl.Pause()
}

// Resume releases a paused loop.
func (w *Worker) Resume() {
	if w == nil {
		return
	}
	w.mu.Lock()
	ctl := w.control
	w.mu.Unlock()
	ctl.Resume()
}

// Stop cancels the loop and waits for it to exit. It returns ctx.Err() if
// the loop did not exit in time; the goroutine is left canceled.
func (w *Worker) Stop(ctx context.Context) error {
	if w == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w.mu.Lock()
	ctl, cancel, done := w.control, w.cancel, w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}

	ctl.Cancel(ErrStopped)
	cancel()

	if _, ok := ctx.Deadline(); !ok {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, defaultStopTimeout)
		defer stop()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("worker %s did not exit before deadline", w.name)
		return ctx.Err()
	}
}

// Running reports whether the loop goroutine is alive.
func (w *Worker) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running()
}

func (w *Worker) Paused() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.control.Paused()
}

// Done is closed when the current run exits. Nil before the first Start.
func (w *Worker) Done() <-chan struct{} {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Err returns the error the last run exited with.
func (w *Worker) Err() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Runs returns how many times the worker has been started.
func (w *Worker) Runs() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

func (w *Worker) running() bool {
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func isStopError(err error, ctl Control) bool {
	if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
		return ctl.CancelCause() != nil
	}
	return false
}

// Every builds a Loop calling fn each interval, pausing between ticks when
// requested. An error from fn ends the loop.
func Every(interval time.Duration, fn func(ctx context.Context) error) Loop {
	return func(ctx context.Context, ctl Control) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := ctl.WaitIfPaused(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ctl.Done():
				return ctl.CancelCause()
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	}
}
