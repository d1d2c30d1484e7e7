// Package cron schedules periodic runtime jobs such as AIM status reports.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/runner"

	rcron "github.com/robfig/cron/v3"
)

// Job is the unit of scheduled work.
type Job func(ctx context.Context) error

// JobConfig describes how a job runs.
type JobConfig struct {
	Name       string
	Expression string
	Timeout    time.Duration
	MaxRetries int
	Retry      runner.RetryStrategy
}

// Scheduler runs jobs on cron expressions ("@every 5s", "*/5 * * * *").
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	logger       aif.Logger
	logLevel     LogLevel
	errorHandler func(error)

	nextHandleID int64
	handles      map[int64]*jobHandle
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		logLevel: LogLevelError,
		handles:  make(map[int64]*jobHandle),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.logger = aif.NormalizeLogger(s.logger)
	if s.errorHandler == nil {
		logger := s.logger
		s.errorHandler = func(err error) {
			logger.Error("scheduled job failed: %v", err)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron registers job under cfg.Expression. The job does not fire
// until Start is called.
func (s *Scheduler) ScheduleCron(cfg JobConfig, job Job) (Handle, error) {
	if cfg.Expression == "" {
		return nil, aif.CloneError(aif.ErrInvalidConfig, "cron expression cannot be empty", nil, map[string]any{
			"job": cfg.Name,
		})
	}
	run, err := s.buildRunnable(cfg, job)
	if err != nil {
		return nil, err
	}

	h := s.newHandle(cfg.Name)
	entry := rcron.FuncJob(func() {
		if isTerminalStatus(h.Status()) {
			return
		}

		h.setStatus(ScheduleStatusRunning, nil)
		if err := run(); err != nil {
			h.setStatus(ScheduleStatusFailed, err)
			s.errorHandler(err)
			return
		}

		if !isTerminalStatus(h.Status()) {
			h.setStatus(ScheduleStatusIdle, nil)
		}
	})

	entryID, err := s.cron.AddJob(cfg.Expression, entry)
	if err != nil {
		return nil, aif.CloneError(aif.ErrInvalidConfig, fmt.Sprintf("invalid cron expression for job %q", cfg.Name), err, map[string]any{
			"job":        cfg.Name,
			"expression": cfg.Expression,
		})
	}
	h.entryID = entryID
	s.storeHandle(h)
	s.logger.Debug("scheduled job %q on %q", cfg.Name, cfg.Expression)
	return h, nil
}

func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops the scheduler, waits for running jobs up to ctx and marks
// live handles as stopped.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	s.mu.Lock()
	handles := make([]*jobHandle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[int64]*jobHandle)
	s.mu.Unlock()

	for _, h := range handles {
		s.cron.Remove(h.entryID)
		if !isTerminalStatus(h.Status()) {
			h.setTerminal(ScheduleStatusStopped, nil)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of live handles.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *Scheduler) remove(id int64) {
	s.mu.Lock()
	h := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()

	if h != nil {
		s.cron.Remove(h.entryID)
	}
}

func (s *Scheduler) storeHandle(h *jobHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[h.id] = h
}

func (s *Scheduler) newHandle(name string) *jobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &jobHandle{
		scheduler: s,
		id:        s.nextHandleID,
		name:      name,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

// buildRunnable wraps job with its timeout and retry policy.
func (s *Scheduler) buildRunnable(cfg JobConfig, job Job) (func() error, error) {
	if job == nil {
		return nil, aif.CloneError(aif.ErrInvalidConfig, fmt.Sprintf("job %q cannot be nil", cfg.Name), nil, nil)
	}
	strategy := cfg.Retry
	if strategy == nil {
		strategy = runner.NoDelayStrategy{}
	}
	return func() error {
		ctx := context.Background()
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		if err := runner.Retry(ctx, cfg.MaxRetries, strategy, job); err != nil {
			if cfg.Name != "" {
				return fmt.Errorf("job %s: %w", cfg.Name, err)
			}
			return err
		}
		return nil
	}, nil
}

func (s *Scheduler) build() []rcron.Option {
	adapter := &loggerAdapter{logger: s.logger, level: s.logLevel}
	return []rcron.Option{
		rcron.WithLocation(s.location),
		rcron.WithLogger(adapter),
		rcron.WithChain(rcron.Recover(adapter)),
	}
}
