package controller

import (
	"context"
	"strings"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/configstore"
	"github.com/goliatone/go-aif/cron"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/goliatone/go-aif/metrics"
	"github.com/goliatone/go-aif/topology"
)

// FailurePolicy decides what a workflow bring-up does after an AIM fails.
type FailurePolicy string

const (
	// FailurePolicyAbort tears the workflow down on the first failure.
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicyContinue wires the remaining AIMs and keeps the workflow.
	FailurePolicyContinue FailurePolicy = "continue"
)

func ParseFailurePolicy(s string) FailurePolicy {
	if FailurePolicy(strings.ToLower(strings.TrimSpace(s))) == FailurePolicyContinue {
		return FailurePolicyContinue
	}
	return FailurePolicyAbort
}

// WorkflowSelector picks the workflow an AIF boots.
type WorkflowSelector func(ctx context.Context, doc topology.AIF) (string, error)

// Dependencies captures the explicit wiring of a Controller.
type Dependencies struct {
	Catalog *catalog.Catalog
	Store   configstore.Store
	Logger  aif.Logger

	// Optional.
	Metrics   *metrics.Metrics
	Scheduler *cron.Scheduler

	// AIFName is the AIF document fetched by Boot.
	AIFName string
	// Workflow is booted when Selector is nil.
	Workflow string
	Selector WorkflowSelector

	FailurePolicy     FailurePolicy
	ResolverMode      topology.Mode
	StrictTransitions bool

	// MessageSize applies to workflow definitions that leave it unset.
	MessageSize int
	Capacity    int

	// StatusCron schedules the status report; empty disables it.
	StatusCron    string
	StatusTimeout time.Duration
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = aif.NewFmtLogger(nil)
	}
	if d.FailurePolicy == "" {
		d.FailurePolicy = FailurePolicyAbort
	}
	if d.Capacity <= 0 {
		d.Capacity = messagestore.DefaultCapacity
	}
	if d.StatusTimeout <= 0 {
		d.StatusTimeout = 5 * time.Second
	}
	if d.Selector == nil {
		name := strings.TrimSpace(d.Workflow)
		d.Selector = func(context.Context, topology.AIF) (string, error) {
			if name == "" {
				return "", aif.CloneError(aif.ErrInvalidConfig, "no workflow selected", nil, nil)
			}
			return name, nil
		}
	}
	return d
}
