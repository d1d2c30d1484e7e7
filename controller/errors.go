package controller

import (
	"fmt"
	"strings"

	aif "github.com/goliatone/go-aif"
)

// AIMFailure is one AIM that could not be brought up.
type AIMFailure struct {
	AIM string
	Err error
}

// BringUpError reports a workflow whose bring-up did not fully succeed.
// WorkflowID is zero when the workflow was torn down.
type BringUpError struct {
	WorkflowID int
	Workflow   string
	Topology   error
	Failures   []AIMFailure
}

func (e *BringUpError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %s bring-up failed", e.Workflow)
	if e.WorkflowID > 0 {
		fmt.Fprintf(&b, " (id %d kept)", e.WorkflowID)
	}
	if e.Topology != nil {
		fmt.Fprintf(&b, ": topology: %v", e.Topology)
	}
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.AIM, f.Err)
	}
	return b.String()
}

// Unwrap exposes AIW_BRING_UP_FAILED first, then the topology error and
// every AIM failure, so aif.HasCode finds both the summary and cause codes.
func (e *BringUpError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+2)
	errs = append(errs, aif.CloneError(aif.ErrBringUpFailed, "", nil, map[string]any{
		"workflow":    e.Workflow,
		"workflow_id": e.WorkflowID,
	}))
	if e.Topology != nil {
		errs = append(errs, e.Topology)
	}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Failed lists the names of the AIMs that failed.
func (e *BringUpError) Failed() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.AIM)
	}
	return out
}

func (e *BringUpError) empty() bool {
	return e.Topology == nil && len(e.Failures) == 0
}
