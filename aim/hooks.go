package aim

import (
	"context"
	"strings"
	"time"

	aif "github.com/goliatone/go-aif"
)

// Phase identifies whether a lifecycle verb took effect.
type Phase string

const (
	PhaseCommitted Phase = "committed"
	PhaseRejected  Phase = "rejected"
)

// HookFailureMode controls lifecycle-hook error behavior.
type HookFailureMode string

const (
	HookFailureModeFailOpen   HookFailureMode = "fail_open"
	HookFailureModeFailClosed HookFailureMode = "fail_closed"
)

// Event describes one lifecycle verb applied to an AIM.
type Event struct {
	Phase        Phase
	WorkflowID   int
	AIM          string
	Verb         Verb
	From         State
	To           State
	Alive        bool
	ErrorCode    string
	ErrorMessage string
	OccurredAt   time.Time
}

// Hook receives lifecycle events.
type Hook interface {
	Notify(ctx context.Context, evt Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, evt Event) error

func (f HookFunc) Notify(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Hooks fan-out collection for lifecycle hooks.
type Hooks []Hook

func normalizeHookFailureMode(mode HookFailureMode) HookFailureMode {
	switch HookFailureMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case HookFailureModeFailClosed:
		return HookFailureModeFailClosed
	default:
		return HookFailureModeFailOpen
	}
}

// Notify delivers evt to every hook. In fail-closed mode the first hook
// error is returned; otherwise failures are logged and skipped.
func (h Hooks) Notify(ctx context.Context, evt Event, mode HookFailureMode, logger aif.Logger) error {
	if len(h) == 0 {
		return nil
	}
	mode = normalizeHookFailureMode(mode)
	fields := map[string]any{
		"workflow_id": evt.WorkflowID,
		"aim":         evt.AIM,
		"verb":        string(evt.Verb),
		"phase":       string(evt.Phase),
	}
	logger = aif.WithFields(aif.NormalizeLogger(logger).WithContext(ctx), fields)

	for idx, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, evt); err != nil {
			if mode == HookFailureModeFailClosed {
				return aif.CloneError(aif.ErrLifecycleFailed, "lifecycle hook failed", err, fields)
			}
			logger.Warn("lifecycle hook failed at index=%d: %v", idx, err)
		}
	}
	return nil
}
