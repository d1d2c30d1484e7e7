package aim

import (
	"context"

	"github.com/goliatone/go-aif/runner"
)

// Module is the capability set an AIM implementation provides.
type Module interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Identity names the module as a bus subscriber.
	Identity() string
}

// Funcs adapts plain functions to Module. Nil functions are no-ops.
type Funcs struct {
	ID         string
	StartFunc  func(context.Context) error
	StopFunc   func(context.Context) error
	PauseFunc  func(context.Context) error
	ResumeFunc func(context.Context) error
}

func (f Funcs) Start(ctx context.Context) error  { return call(ctx, f.StartFunc) }
func (f Funcs) Stop(ctx context.Context) error   { return call(ctx, f.StopFunc) }
func (f Funcs) Pause(ctx context.Context) error  { return call(ctx, f.PauseFunc) }
func (f Funcs) Resume(ctx context.Context) error { return call(ctx, f.ResumeFunc) }
func (f Funcs) Identity() string                 { return f.ID }

func call(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// WorkerModule runs an AIM body on a runner.Worker: Start spawns it, Pause
// and Resume gate it at poll boundaries, Stop cancels and joins it.
type WorkerModule struct {
	identity string
	worker   *runner.Worker
}

func NewWorkerModule(identity string, worker *runner.Worker) *WorkerModule {
	return &WorkerModule{identity: identity, worker: worker}
}

func (m *WorkerModule) Start(ctx context.Context) error {
	return m.worker.Start(ctx)
}

func (m *WorkerModule) Stop(ctx context.Context) error {
	return m.worker.Stop(ctx)
}

func (m *WorkerModule) Pause(context.Context) error {
	m.worker.Pause()
	return nil
}

func (m *WorkerModule) Resume(context.Context) error {
	m.worker.Resume()
	return nil
}

func (m *WorkerModule) Identity() string {
	return m.identity
}

func (m *WorkerModule) Worker() *runner.Worker {
	return m.worker
}
