package runner

import aif "github.com/goliatone/go-aif"

type Option func(*Worker)

func WithLogger(l aif.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler is called with the error a loop exits with, unless the
// loop exited because the worker was stopped.
func WithErrorHandler(h func(error)) Option {
	return func(w *Worker) {
		if h == nil {
			h = func(error) {}
		}
		w.errorHandler = h
	}
}

func WithPanicLogger(l aif.PanicLogger) Option {
	return func(w *Worker) {
		if l != nil {
			w.panicLogger = l
		}
	}
}
