package sinks

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ringclash/server/logging"
)

// ConsoleSink renders events as human-readable lines through zerolog's
// console writer.
type ConsoleSink struct {
	logger zerolog.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !cfg.UseColor,
		TimeFormat: time.TimeOnly,
	}
	return &ConsoleSink{logger: zerolog.New(writer)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	entry := s.logger.WithLevel(levelOf(event.Severity)).
		Time(zerolog.TimestampFieldName, event.Time).
		Uint64("tick", event.Tick).
		Str("actor", formatEntity(event.Actor))
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			targets = append(targets, formatEntity(target))
		}
		entry = entry.Strs("targets", targets)
	}
	if event.Payload != nil {
		entry = entry.Interface("payload", event.Payload)
	}
	for k, v := range event.Extra {
		entry = entry.Interface(k, v)
	}
	entry.Msg(string(event.Type))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func levelOf(sev logging.Severity) zerolog.Level {
	switch sev {
	case logging.SeverityDebug:
		return zerolog.DebugLevel
	case logging.SeverityInfo:
		return zerolog.InfoLevel
	case logging.SeverityWarn:
		return zerolog.WarnLevel
	case logging.SeverityError:
		return zerolog.ErrorLevel
	default:
		return zerolog.NoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
