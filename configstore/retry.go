package configstore

import (
	"context"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/runner"
)

// Retrying retries transient fetch failures of another Store. Missing
// documents are not retried.
type Retrying struct {
	store      Store
	maxRetries int
	strategy   runner.RetryStrategy
	logger     aif.Logger
}

func NewRetrying(store Store, maxRetries int, strategy runner.RetryStrategy, logger aif.Logger) *Retrying {
	if strategy == nil {
		strategy = runner.NoDelayStrategy{}
	}
	return &Retrying{
		store:      store,
		maxRetries: maxRetries,
		strategy:   permanentNotFound{strategy},
		logger:     aif.NormalizeLogger(logger),
	}
}

func (r *Retrying) Get(ctx context.Context, kind aif.Kind, name string) ([]byte, error) {
	var data []byte
	attempt := 0
	err := runner.Retry(ctx, r.maxRetries, r.strategy, func(ctx context.Context) error {
		attempt++
		var err error
		data, err = r.store.Get(ctx, kind, name)
		if err != nil && !IsNotFound(err) && attempt <= r.maxRetries {
			r.logger.Warn("fetch %s %s failed (attempt %d): %v", kind, name, attempt, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

type permanentNotFound struct {
	runner.RetryStrategy
}

func (p permanentNotFound) DecideRetry(attempt int, err error) runner.RetryDecision {
	if IsNotFound(err) {
		return runner.RetryDecision{ShouldRetry: false}
	}
	return runner.DecideRetry(p.RetryStrategy, attempt, err)
}
