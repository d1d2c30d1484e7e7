// Package templimit implements AIM_TEMP_LIMIT, a consumer that watches
// sensor readings and drives an indicator while the temperature is above
// a limit.
package templimit

import (
	"context"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/aims/sensors"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/goliatone/go-aif/runner"
)

const (
	Name               = "AIM_TEMP_LIMIT"
	DefaultLimit       = 30.0
	DefaultPollTimeout = time.Second
)

// Indicator is the output the AIM drives, an LED on the reference board.
type Indicator interface {
	Set(on bool) error
}

// LogIndicator logs indicator changes.
type LogIndicator struct {
	Logger aif.Logger

	mu sync.Mutex
	on bool
}

func (l *LogIndicator) Set(on bool) error {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed {
		aif.NormalizeLogger(l.Logger).Info("temperature indicator on=%t", on)
	}
	return nil
}

func (l *LogIndicator) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

type Options struct {
	Limit       float64
	PollTimeout time.Duration
	// Indicator defaults to a LogIndicator on the AIM logger.
	Indicator Indicator
}

func (o Options) withDefaults(logger aif.Logger) Options {
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.Indicator == nil {
		o.Indicator = &LogIndicator{Logger: logger}
	}
	return o
}

func Entry(opts Options) catalog.Entry {
	return catalog.Entry{
		Name:        Name,
		Description: "drives an indicator when the temperature exceeds a limit",
		New: func(env catalog.Env) (aim.Module, error) {
			return New(env, opts)
		},
	}
}

// New builds the consumer module. It polls every input channel resolved
// for the AIM in turn.
func New(env catalog.Env, opts Options) (*aim.WorkerModule, error) {
	if env.Store == nil {
		return nil, aif.ErrNilStore
	}
	if len(env.Inputs) == 0 {
		return nil, aif.CloneError(aif.ErrInvalidChannel, "aim has no input channels", nil, map[string]any{
			"aim": env.Name,
		})
	}
	logger := aif.NormalizeLogger(env.Logger)
	opts = opts.withDefaults(logger)
	c := &consumer{
		store:    env.Store,
		identity: env.Name,
		inputs:   append([]aif.Channel(nil), env.Inputs...),
		opts:     opts,
		logger:   logger,
	}
	worker := runner.NewWorker(env.Name, c.loop, runner.WithLogger(logger))
	return aim.NewWorkerModule(env.Name, worker), nil
}

type consumer struct {
	store    *messagestore.Store
	identity string
	inputs   []aif.Channel
	opts     Options
	logger   aif.Logger
}

func (c *consumer) loop(ctx context.Context, ctl runner.Control) error {
	for {
		for _, ch := range c.inputs {
			if err := ctl.WaitIfPaused(ctx); err != nil {
				return err
			}
			status, err := c.store.Poll(ctx, c.identity, c.opts.PollTimeout, ch)
			switch status {
			case messagestore.PollReady:
				msg, err := c.store.Copy(c.identity, ch)
				if err != nil {
					c.logger.Warn("copy from channel %d failed: %v", ch, err)
					continue
				}
				c.handle(msg)
			case messagestore.PollTimedOut:
				c.logger.Warn("no new data on channel %d for %s, continuing poll", ch, c.opts.PollTimeout)
			default:
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Error("error while polling channel %d: %v", ch, err)
				return err
			}
		}
	}
}

func (c *consumer) handle(msg aif.Message) {
	r, err := sensors.Decode(msg)
	if err != nil {
		c.logger.Warn("dropping reading: %v", err)
		return
	}
	c.logger.Debug("received reading from timestamp %d", msg.Timestamp)
	over := r.Temperature > c.opts.Limit
	if over {
		c.logger.Warn("temperature exceeds limit: %.3f > %.3f", r.Temperature, c.opts.Limit)
	}
	if err := c.opts.Indicator.Set(over); err != nil {
		c.logger.Warn("indicator update failed: %v", err)
	}
}
