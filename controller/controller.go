// Package controller brings AIF workflows up from their metadata and
// exposes the runtime control surface over their AIMs.
package controller

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/configstore"
	"github.com/goliatone/go-aif/cron"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/goliatone/go-aif/topology"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var fallbackLogger aif.Logger = aif.NewFmtLogger(os.Stderr)

// errNilController is returned by every entry point called on a nil
// *Controller.
func errNilController(op string) error {
	fallbackLogger.Error("cannot %s on nil controller", op)
	return aif.CloneError(aif.ErrInvalidConfig, "controller is nil", nil, map[string]any{"operation": op})
}

// Controller owns the workflows of one AIF.
type Controller struct {
	mu        sync.RWMutex
	deps      Dependencies
	logger    aif.Logger
	resolver  *topology.Resolver
	title     string
	nextID    int
	workflows map[int]*Workflow
	statusJob cron.Handle
}

// New builds a controller. The catalog is sealed if it is not already.
func New(deps Dependencies) (*Controller, error) {
	if deps.Catalog == nil {
		return nil, aif.CloneError(aif.ErrInvalidConfig, "controller requires a catalog", nil, nil)
	}
	if deps.Store == nil {
		return nil, aif.CloneError(aif.ErrInvalidConfig, "controller requires a config store", nil, nil)
	}
	deps = deps.withDefaults()
	if !deps.Catalog.Initialized() {
		if err := deps.Catalog.Initialize(); err != nil {
			return nil, err
		}
	}
	logger := aif.WithFields(deps.Logger, map[string]any{"component": "aif"})
	return &Controller{
		deps:      deps,
		logger:    logger,
		resolver:  topology.NewResolver(topology.WithMode(deps.ResolverMode), topology.WithLogger(logger)),
		workflows: make(map[int]*Workflow),
	}, nil
}

// Title is the title of the booted AIF, empty before Boot.
func (c *Controller) Title() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

// Boot loads the AIF document, starts the selected workflow and schedules
// the status report.
func (c *Controller) Boot(ctx context.Context) (int, error) {
	if c == nil {
		return 0, errNilController("boot")
	}
	raw, err := configstore.GetAIF(ctx, c.deps.Store, c.deps.AIFName)
	if err != nil {
		c.logger.Error("AIF %s not available: %v", c.deps.AIFName, err)
		return 0, err
	}
	doc, err := topology.ParseAIF(raw)
	if err != nil {
		c.logger.Error("AIF %s metadata invalid: %v", c.deps.AIFName, err)
		return 0, err
	}
	c.mu.Lock()
	c.title = doc.Title
	c.mu.Unlock()

	name, err := c.deps.Selector(ctx, doc)
	if err != nil {
		return 0, err
	}
	id, err := c.StartAIW(ctx, name)
	if id == 0 {
		return 0, err
	}
	if schedErr := c.scheduleStatus(); schedErr != nil {
		c.logger.Warn("status report not scheduled: %v", schedErr)
	}
	return id, err
}

// StartAIW brings up the named workflow and returns its id. With
// FailurePolicyContinue a partially started workflow is kept and its id is
// returned alongside a *BringUpError.
func (c *Controller) StartAIW(ctx context.Context, name string) (int, error) {
	if c == nil {
		return 0, errNilController("start workflow")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	def, ok := c.deps.Catalog.Workflow(name)
	if !ok {
		c.logger.Error("workflow %s not registered in catalog", name)
		return 0, aif.CloneError(aif.ErrWorkflowNotInCatalog, "", nil, map[string]any{"workflow": name})
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	wf := &Workflow{ID: id, Name: def.Name, RunID: uuid.NewString()}
	logger := aif.WithFields(c.logger, map[string]any{
		"workflow":    def.Name,
		"workflow_id": id,
		"run_id":      wf.RunID,
	})

	size := def.MessageSize
	if size <= 0 {
		size = c.deps.MessageSize
	}
	storeOpts := []messagestore.Option{
		messagestore.WithCapacity(c.deps.Capacity),
		messagestore.WithLogger(logger),
	}
	if c.deps.Metrics != nil {
		storeOpts = append(storeOpts, messagestore.WithObserver(c.deps.Metrics))
	}
	store, err := messagestore.New(id, def.Name, size, storeOpts...)
	if err != nil {
		return 0, err
	}
	wf.Store = store

	fail := func(err error) (int, error) {
		logger.Error("workflow bring-up aborted: %v", err)
		if tdErr := c.teardown(ctx, wf); tdErr != nil {
			logger.Warn("teardown after failed bring-up: %v", tdErr)
		}
		return 0, err
	}

	raw, err := configstore.GetAIW(ctx, c.deps.Store, def.Name)
	if err != nil {
		return fail(err)
	}
	graph, err := topology.ParseAIW(raw)
	if err != nil {
		return fail(err)
	}

	wf.Channels, err = topology.BuildChannelMap(ctx, store, topology.ChannelNames(def.Channels, graph))
	if err != nil {
		return fail(err)
	}

	report := &BringUpError{Workflow: def.Name}
	res, err := c.resolver.Resolve(graph, wf.Channels)
	if err != nil {
		report.Topology = err
		if c.deps.FailurePolicy == FailurePolicyAbort {
			return fail(report)
		}
	}

	for _, aimName := range graph.SubAIMs {
		err := c.bringUp(ctx, wf, aimName, res.InputsFor(aimName), logger)
		switch {
		case err == nil:
		case aif.HasCode(err, aif.ErrCodeCreationSkipped):
			wf.skip(aimName)
			logger.Info("AIM %s creation skipped", aimName)
		default:
			report.Failures = append(report.Failures, AIMFailure{AIM: aimName, Err: err})
			if c.deps.FailurePolicy == FailurePolicyAbort {
				return fail(report)
			}
		}
	}

	c.mu.Lock()
	c.workflows[id] = wf
	c.mu.Unlock()

	if !report.empty() {
		report.WorkflowID = id
		logger.Warn("workflow started with failures: %v", report)
		return id, report
	}
	logger.Info("workflow started with %d AIMs on %d channels", len(wf.Instances()), len(wf.Channels))
	return id, nil
}

// bringUp creates, wires and starts one SubAIM.
func (c *Controller) bringUp(ctx context.Context, wf *Workflow, name string, inputs []aif.Channel, logger aif.Logger) error {
	entry, ok := c.deps.Catalog.Lookup(name)
	if !ok {
		logger.Error("AIM %s not registered in catalog", name)
		return aif.CloneError(aif.ErrAIMNotInCatalog, "", nil, map[string]any{"aim": name})
	}
	raw, err := configstore.GetAIM(ctx, c.deps.Store, name)
	if err != nil {
		return err
	}
	if err := topology.CheckAIM(raw); err != nil {
		return err
	}

	aimLogger := aif.WithFields(logger, map[string]any{"aim": name})
	module, err := entry.New(catalog.Env{
		WorkflowID: wf.ID,
		RunID:      wf.RunID,
		Name:       name,
		Store:      wf.Store,
		Channels:   wf.Channels,
		Inputs:     append([]aif.Channel(nil), inputs...),
		Logger:     aimLogger,
	})
	if err != nil {
		return aif.CloneError(aif.ErrLifecycleFailed, fmt.Sprintf("create aim %s", name), err, map[string]any{"aim": name})
	}

	opts := []aim.Option{aim.WithLogger(aimLogger)}
	if c.deps.StrictTransitions {
		opts = append(opts, aim.WithStrictTransitions())
	}
	if c.deps.Metrics != nil {
		opts = append(opts, aim.WithHooks(c.deps.Metrics))
	}
	a, err := aim.New(name, wf.ID, module, opts...)
	if err != nil {
		return err
	}

	if !entry.IsEnabled() {
		_ = a.Destroy()
		return aif.CloneError(aif.ErrCreationSkipped, "", nil, map[string]any{"aim": name})
	}

	inst := &Instance{Entry: entry, InputChannels: append([]aif.Channel(nil), inputs...), AIM: a}
	identity := a.Identity()
	for _, ch := range inputs {
		reg, err := wf.Store.Register(identity, ch)
		if err != nil {
			inst.unsubscribe()
			_ = a.Destroy()
			return err
		}
		inst.registrations = append(inst.registrations, reg)
	}

	if err := a.Start(ctx); err != nil {
		inst.unsubscribe()
		_ = a.Destroy()
		return err
	}
	wf.add(inst)
	return nil
}

// teardown stops the AIMs in reverse start order, destroys them and then
// the workflow store.
func (c *Controller) teardown(ctx context.Context, wf *Workflow) error {
	var errs error
	for _, inst := range wf.reversed() {
		if st := inst.AIM.State(); st == aim.StateStarted || st == aim.StatePaused {
			if err := inst.AIM.Stop(ctx); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		inst.unsubscribe()
		if err := inst.AIM.Destroy(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if wf.Store != nil {
		wf.Store.Destroy()
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.ForgetWorkflow(wf.ID)
	}
	return errs
}

func (c *Controller) workflow(id int) (*Workflow, error) {
	c.mu.RLock()
	wf, ok := c.workflows[id]
	c.mu.RUnlock()
	if !ok {
		return nil, aif.CloneError(aif.ErrWorkflowNotFound, "", nil, map[string]any{"workflow_id": id})
	}
	return wf, nil
}

func (c *Controller) ids() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.workflows))
	for id := range c.workflows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Workflows returns a snapshot of every running workflow ordered by id.
func (c *Controller) Workflows() []WorkflowInfo {
	if c == nil {
		return nil
	}
	var out []WorkflowInfo
	for _, id := range c.ids() {
		if wf, err := c.workflow(id); err == nil {
			out = append(out, wf.info())
		}
	}
	return out
}

// Statuses returns the AIM states of one workflow in start order.
func (c *Controller) Statuses(id int) ([]AIMStatus, error) {
	if c == nil {
		return nil, errNilController("read statuses")
	}
	wf, err := c.workflow(id)
	if err != nil {
		return nil, err
	}
	return wf.statuses(), nil
}
