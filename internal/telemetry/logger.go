package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// LogSettings selects the process logger's level, format and outputs.
type LogSettings struct {
	Level       string
	Format      string
	GraylogAddr string
	Output      io.Writer
}

// ParseLevel maps a configured name to a zerolog level. Unknown names fall
// back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds the process logger. With a Graylog address the output is
// also shipped as GELF.
func NewLogger(settings LogSettings) (zerolog.Logger, error) {
	out := settings.Output
	if out == nil {
		out = os.Stdout
	}
	var primary io.Writer = out
	if !strings.EqualFold(settings.Format, "json") {
		primary = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{primary}
	if settings.GraylogAddr != "" {
		gelfWriter, err := gelf.NewWriter(settings.GraylogAddr)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("connect graylog %s: %w", settings.GraylogAddr, err)
		}
		writers = append(writers, gelfWriter)
	}

	var writer io.Writer = primary
	if len(writers) > 1 {
		writer = zerolog.MultiLevelWriter(writers...)
	}
	logger := zerolog.New(writer).
		Level(ParseLevel(settings.Level)).
		With().
		Timestamp().
		Logger()
	return logger, nil
}
