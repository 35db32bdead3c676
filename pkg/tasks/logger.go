package tasks

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by the scheduler. By default nothing is
// logged; nil restores that.
//
// Levels:
//   - [slog.LevelDebug]: worker and fiber lifecycle
//   - [slog.LevelInfo]: scheduler start and stop
//   - [slog.LevelWarn]: fiber exhaustion, join timeouts
//   - [slog.LevelError]: task panics
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current scheduler logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
