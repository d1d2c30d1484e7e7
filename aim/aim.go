// Package aim wraps a processing module with the AIM lifecycle: start,
// stop, pause, resume and destroy, plus a liveness flag.
package aim

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
)

var fallbackLogger aif.Logger = aif.NewFmtLogger(os.Stderr)

// AIM owns one component and the module implementing it.
type AIM struct {
	// op serializes verbs; mu guards the fields read by accessors so that
	// a module can query its AIM while a verb is running.
	op sync.Mutex
	mu sync.RWMutex

	component  aif.Component
	workflowID int
	module     Module
	active     bool
	state      State

	strict   bool
	hooks    Hooks
	hookMode HookFailureMode
	logger   aif.Logger
}

// New wraps module as an AIM named name inside workflowID.
func New(name string, workflowID int, module Module, opts ...Option) (*AIM, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, aif.CloneError(aif.ErrInvalidIdentity, "aim name is required", nil, nil)
	}
	if module == nil {
		return nil, aif.CloneError(aif.ErrNilAIM, fmt.Sprintf("aim %s has no module", name), nil, nil)
	}

	a := &AIM{
		component:  aif.NewComponent(name, aif.KindAIM),
		workflowID: workflowID,
		module:     module,
		state:      StateCreated,
		hookMode:   HookFailureModeFailOpen,
		logger:     aif.NewFmtLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.logger = aif.WithFields(a.logger, map[string]any{
		"aim":         name,
		"workflow_id": workflowID,
	})
	return a, nil
}

func (a *AIM) Start(ctx context.Context) error  { return a.apply(ctx, VerbStart) }
func (a *AIM) Stop(ctx context.Context) error   { return a.apply(ctx, VerbStop) }
func (a *AIM) Pause(ctx context.Context) error  { return a.apply(ctx, VerbPause) }
func (a *AIM) Resume(ctx context.Context) error { return a.apply(ctx, VerbResume) }

// Destroy releases the module. The AIM must not be running.
func (a *AIM) Destroy() error {
	if a == nil {
		fallbackLogger.Error("cannot destroy nil aim")
		return aif.CloneError(aif.ErrNilAIM, "cannot destroy nil aim", nil, nil)
	}
	ctx := context.Background()

	a.op.Lock()
	defer a.op.Unlock()

	a.mu.RLock()
	from := a.state
	a.mu.RUnlock()

	if from == StateDestroyed {
		return nil
	}
	if !allowed(VerbDestroy, from) {
		err := aif.CloneError(aif.ErrInvalidTransition, "aim must be stopped before destroy", nil, map[string]any{
			"aim":   a.component.Name,
			"state": from.String(),
		})
		a.notify(ctx, VerbDestroy, PhaseRejected, from, from, err)
		return err
	}

	a.mu.Lock()
	a.module = nil
	a.active = false
	a.state = StateDestroyed
	a.mu.Unlock()

	a.logger.Info("AIM %s destroyed", a.component.Name)
	a.notify(ctx, VerbDestroy, PhaseCommitted, from, StateDestroyed, nil)
	return nil
}

func (a *AIM) apply(ctx context.Context, verb Verb) error {
	if a == nil {
		fallbackLogger.Error("cannot %s nil aim", verb)
		return aif.CloneError(aif.ErrNilAIM, fmt.Sprintf("cannot %s nil aim", verb), nil, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a.op.Lock()
	defer a.op.Unlock()

	a.mu.RLock()
	from, module := a.state, a.module
	a.mu.RUnlock()

	meta := map[string]any{
		"aim":         a.component.Name,
		"workflow_id": a.workflowID,
		"verb":        string(verb),
		"state":       from.String(),
	}

	if from == StateDestroyed || module == nil {
		err := aif.CloneError(aif.ErrAIMDestroyed, "", nil, meta)
		a.logger.Error("cannot %s AIM %s: destroyed", verb, a.component.Name)
		a.notify(ctx, verb, PhaseRejected, from, from, err)
		return err
	}
	if a.strict && !allowed(verb, from) {
		err := aif.CloneError(aif.ErrInvalidTransition, "", nil, meta)
		a.logger.Warn("rejected %s of AIM %s from %s", verb, a.component.Name, from)
		a.notify(ctx, verb, PhaseRejected, from, from, err)
		return err
	}

	if err := invoke(ctx, module, verb); err != nil {
		wrapped := aif.CloneError(aif.ErrLifecycleFailed, fmt.Sprintf("aim %s failed to %s", a.component.Name, verb), err, meta)
		a.logger.Error("AIM %s failed to %s: %v", a.component.Name, verb, err)
		a.notify(ctx, verb, PhaseRejected, from, from, wrapped)
		return wrapped
	}

	to := verb.target()
	a.mu.Lock()
	a.state = to
	a.active = verb.activates()
	a.mu.Unlock()

	a.logger.Info("AIM %s %s with success", a.component.Name, verb.pastTense())
	return a.notify(ctx, verb, PhaseCommitted, from, to, nil)
}

func invoke(ctx context.Context, module Module, verb Verb) error {
	switch verb {
	case VerbStart:
		return module.Start(ctx)
	case VerbStop:
		return module.Stop(ctx)
	case VerbPause:
		return module.Pause(ctx)
	case VerbResume:
		return module.Resume(ctx)
	default:
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func (a *AIM) notify(ctx context.Context, verb Verb, phase Phase, from, to State, cause error) error {
	if len(a.hooks) == 0 {
		return nil
	}
	evt := Event{
		Phase:      phase,
		WorkflowID: a.workflowID,
		AIM:        a.component.Name,
		Verb:       verb,
		From:       from,
		To:         to,
		Alive:      a.IsAlive(),
		OccurredAt: time.Now(),
	}
	if cause != nil {
		evt.ErrorCode = aif.ErrorCode(cause)
		evt.ErrorMessage = cause.Error()
	}
	return a.hooks.Notify(ctx, evt, a.hookMode, a.logger)
}

// IsAlive reports whether the last applied verb left the AIM running.
func (a *AIM) IsAlive() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// Status maps liveness to a result code.
func (a *AIM) Status() aif.ResultCode {
	if a == nil {
		return aif.ResultError
	}
	return aif.StatusOf(a.IsAlive())
}

func (a *AIM) State() State {
	if a == nil {
		return StateDestroyed
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *AIM) Name() string {
	if a == nil {
		return ""
	}
	return a.component.Name
}

func (a *AIM) Component() aif.Component {
	if a == nil {
		return aif.Component{}
	}
	return a.component
}

func (a *AIM) WorkflowID() int {
	if a == nil {
		return 0
	}
	return a.workflowID
}

// Identity is the bus subscriber identity, defaulting to the AIM name.
func (a *AIM) Identity() string {
	if a == nil {
		return ""
	}
	a.mu.RLock()
	module := a.module
	a.mu.RUnlock()
	if module != nil {
		if id := strings.TrimSpace(module.Identity()); id != "" {
			return id
		}
	}
	return a.component.Name
}

// Module returns the wrapped module, nil once destroyed.
func (a *AIM) Module() Module {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.module
}
