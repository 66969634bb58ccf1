package telemetry

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a zerolog logger to the Logger interface. Lines are
// written at info level.
func WrapLogger(logger zerolog.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger zerolog.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}
