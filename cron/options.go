package cron

import (
	"time"

	aif "github.com/goliatone/go-aif"
)

// LogLevel filters the scheduler's own log lines.
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
)

type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithLogger(logger aif.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(s *Scheduler) {
		s.logLevel = level
	}
}

// WithErrorHandler receives every failed job run after retries.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		s.errorHandler = handler
	}
}

// loggerAdapter routes robfig/cron logs and recovered panics to aif.Logger.
type loggerAdapter struct {
	logger aif.Logger
	level  LogLevel
}

func (l *loggerAdapter) Info(msg string, keysAndValues ...any) {
	if l.level >= LogLevelInfo {
		l.logger.Info("cron: %s %v", msg, keysAndValues)
	}
}

func (l *loggerAdapter) Error(err error, msg string, keysAndValues ...any) {
	if l.level >= LogLevelError {
		l.logger.Error("cron: %s %v: %v", msg, keysAndValues, err)
	}
}
