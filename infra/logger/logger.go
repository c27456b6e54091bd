package logger

import corelogger "github.com/kilianp07/smartcharge/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The output format is chosen
// from the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// With returns l carrying an extra field when the implementation supports
// it, and l unchanged otherwise.
func With(l Logger, key, value string) Logger {
	if w, ok := l.(interface {
		With(key, value string) Logger
	}); ok {
		return w.With(key, value)
	}
	return l
}
