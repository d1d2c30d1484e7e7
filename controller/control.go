package controller

import (
	"context"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-errors"
)

// PauseAIW pauses the running AIMs of a workflow in reverse start order.
func (c *Controller) PauseAIW(ctx context.Context, id int) error {
	if c == nil {
		return errNilController("pause workflow")
	}
	wf, err := c.workflow(id)
	if err != nil {
		return err
	}
	return applyAll(ctx, wf.reversed(), (*aim.AIM).Pause, aim.StateStarted)
}

// ResumeAIW resumes the paused AIMs of a workflow in start order.
func (c *Controller) ResumeAIW(ctx context.Context, id int) error {
	if c == nil {
		return errNilController("resume workflow")
	}
	wf, err := c.workflow(id)
	if err != nil {
		return err
	}
	return applyAll(ctx, wf.Instances(), (*aim.AIM).Resume, aim.StatePaused)
}

// StopAIW stops the AIMs of a workflow in reverse start order. The workflow
// stays registered until DestroyAIW.
func (c *Controller) StopAIW(ctx context.Context, id int) error {
	if c == nil {
		return errNilController("stop workflow")
	}
	wf, err := c.workflow(id)
	if err != nil {
		return err
	}
	return applyAll(ctx, wf.reversed(), (*aim.AIM).Stop, aim.StateStarted, aim.StatePaused)
}

// DestroyAIW stops and destroys every AIM of a workflow, then its store.
func (c *Controller) DestroyAIW(ctx context.Context, id int) error {
	if c == nil {
		return errNilController("destroy workflow")
	}
	c.mu.Lock()
	wf, ok := c.workflows[id]
	delete(c.workflows, id)
	c.mu.Unlock()
	if !ok {
		return aif.CloneError(aif.ErrWorkflowNotFound, "", nil, map[string]any{"workflow_id": id})
	}
	err := c.teardown(ctx, wf)
	c.logger.Info("workflow %s (%d) destroyed", wf.Name, wf.ID)
	return err
}

func applyAll(ctx context.Context, list []*Instance, verb func(*aim.AIM, context.Context) error, from ...aim.State) error {
	var errs error
	for _, inst := range list {
		if !inState(inst.AIM.State(), from) {
			continue
		}
		if err := verb(inst.AIM, ctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func inState(st aim.State, set []aim.State) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}

func (c *Controller) StartAIM(ctx context.Context, name string) error {
	return c.applyByName(ctx, name, (*aim.AIM).Start)
}

func (c *Controller) StopAIM(ctx context.Context, name string) error {
	return c.applyByName(ctx, name, (*aim.AIM).Stop)
}

func (c *Controller) PauseAIM(ctx context.Context, name string) error {
	return c.applyByName(ctx, name, (*aim.AIM).Pause)
}

func (c *Controller) ResumeAIM(ctx context.Context, name string) error {
	return c.applyByName(ctx, name, (*aim.AIM).Resume)
}

// applyByName runs verb on the first AIM called name, searching workflows
// in id order.
func (c *Controller) applyByName(ctx context.Context, name string, verb func(*aim.AIM, context.Context) error) error {
	if c == nil {
		return errNilController("apply verb to AIM " + name)
	}
	for _, id := range c.ids() {
		wf, err := c.workflow(id)
		if err != nil {
			continue
		}
		if inst, ok := wf.instance(name); ok {
			return verb(inst.AIM, ctx)
		}
	}
	c.logger.Error("AIM %s not found", name)
	return aif.CloneError(aif.ErrAIMNotFound, "", nil, map[string]any{"aim": name})
}

// GetAIMStatus reports AIMAlive or AIMDead for an AIM of a workflow.
func (c *Controller) GetAIMStatus(id int, name string) (aif.ResultCode, error) {
	if c == nil {
		return aif.ResultError, errNilController("read AIM status")
	}
	wf, err := c.workflow(id)
	if err != nil {
		return aif.ResultError, err
	}
	inst, ok := wf.instance(name)
	if !ok {
		return aif.ResultError, aif.CloneError(aif.ErrAIMNotFound, "", nil, map[string]any{
			"aim":         name,
			"workflow_id": id,
		})
	}
	return inst.AIM.Status(), nil
}

// Shutdown cancels the status report and destroys every workflow, newest
// first.
func (c *Controller) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	job := c.statusJob
	c.statusJob = nil
	c.mu.Unlock()
	if job != nil {
		job.Cancel()
	}

	ids := c.ids()
	var errs error
	for i := len(ids) - 1; i >= 0; i-- {
		if err := c.DestroyAIW(ctx, ids[i]); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
