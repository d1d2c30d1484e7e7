package aif

import (
	"context"
	"io"
	"strings"

	"github.com/goliatone/go-logger/glog"
)

// GlogLogger adapts a go-logger instance to Logger.
type GlogLogger struct {
	logger glog.Logger
}

// NewGlogLogger builds a JSON go-logger writing to w at the given level.
func NewGlogLogger(w io.Writer, level string) *GlogLogger {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	if w == nil {
		return &GlogLogger{logger: glog.NewLogger(glog.WithLoggerTypeJSON(), glog.WithLevel(level))}
	}
	return &GlogLogger{logger: glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
	)}
}

func (l *GlogLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l *GlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *GlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *GlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *GlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *GlogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l *GlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil || l.logger == nil {
		return NewFmtLogger(nil).WithContext(ctx)
	}
	return &GlogLogger{logger: l.logger.WithContext(ctx)}
}

func (l *GlogLogger) WithFields(fields map[string]any) Logger {
	if l == nil || l.logger == nil {
		return NewFmtLogger(nil).WithFields(fields)
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return &GlogLogger{logger: fl.WithFields(fields)}
	}
	return l
}
