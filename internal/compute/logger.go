package compute

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discardHandler drops every record; Enabled reports false so callers skip
// formatting entirely.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(discardHandler{}))
}

// SetLogger installs the diagnostic sink shared by compute and the engines
// built on it. Passing nil restores the silent default.
//
// Levels:
//   - debug: dispatch shapes and per-object lifecycle
//   - info: device selection
//   - warn: optional features that were disabled, seeding problems
//   - error: per-tick dispatch and transfer failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current diagnostic sink. It is never nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// LoggerOr returns l when it is non-nil and the shared sink otherwise.
func LoggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
