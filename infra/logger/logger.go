package logger

import corelogger "github.com/kurirhub/kurir/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger mirrors the core no-op logger.
type NopLogger = corelogger.NopLogger

// New returns the default logger implementation for the given component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
