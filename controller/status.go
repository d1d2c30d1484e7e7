package controller

import (
	"context"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/cron"
)

const statusJobName = "aif-status"

func (c *Controller) scheduleStatus() error {
	if c.deps.Scheduler == nil || c.deps.StatusCron == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusJob != nil {
		return nil
	}
	handle, err := c.deps.Scheduler.ScheduleCron(cron.JobConfig{
		Name:       statusJobName,
		Expression: c.deps.StatusCron,
		Timeout:    c.deps.StatusTimeout,
	}, c.ReportStatus)
	if err != nil {
		return err
	}
	c.statusJob = handle
	return nil
}

// ReportStatus logs the state of every AIM and refreshes the liveness
// gauges.
func (c *Controller) ReportStatus(ctx context.Context) error {
	if c == nil {
		return errNilController("report status")
	}
	for _, info := range c.Workflows() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, st := range info.AIMs {
			if c.deps.Metrics != nil {
				c.deps.Metrics.SetAlive(info.ID, st.Name, st.Status == aif.AIMAlive)
			}
			c.logger.Debug("workflow %s (%d) AIM %s %s %s", info.Name, info.ID, st.Name, st.State, st.Status)
		}
		if len(info.Skipped) > 0 {
			c.logger.Debug("workflow %s (%d) skipped AIMs %v", info.Name, info.ID, info.Skipped)
		}
	}
	return nil
}
