// Package app wires configuration, logging, the event router, the match
// manager and the HTTP server into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"ringclash/server/internal/arena"
	"ringclash/server/internal/config"
	servernet "ringclash/server/internal/net"
	"ringclash/server/internal/net/ws"
	"ringclash/server/internal/observability"
	"ringclash/server/internal/sim"
	"ringclash/server/internal/telemetry"
	"ringclash/server/logging"
	loggingsinks "ringclash/server/logging/sinks"
)

const shutdownTimeout = 10 * time.Second

// Options are the process inputs that do not come from the config file.
type Options struct {
	ConfigDir string
	ClientDir string
	Output    io.Writer
}

// Run serves until ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings := cfg.Server

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	logger, err := telemetry.NewLogger(telemetry.LogSettings{
		Level:       settings.LogLevel,
		Format:      settings.LogFormat,
		GraylogAddr: settings.GraylogAddr,
		Output:      out,
	})
	if err != nil {
		return err
	}

	if settings.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         settings.SentryDSN,
			Environment: settings.SentryEnv,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	router, closeSinks, err := newEventRouter(settings, out, logger)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close logging router")
		}
		closeSinks()
	}()

	metrics := telemetry.NewCounters(nil)
	manager := arena.NewManager(arena.Config{
		Tuning: cfg.Tuning,
		Loop: sim.LoopConfig{
			TickRate:        settings.TickRate,
			CatchupMaxTicks: settings.CatchupMaxTicks,
			CommandCapacity: settings.CommandCapacity,
			PerActorLimit:   settings.PerActorLimit,
			WarningStep:     settings.WarningStep,
		},
		Logger:    logger,
		Publisher: router,
		Metrics:   metrics,
		Clock:     logging.SystemClock{},
	})

	viewer := observability.Start(observability.Config{StatsviewAddr: settings.StatsviewAddr}, logger)
	defer viewer.Stop()

	handler := servernet.NewHTTPHandler(manager, servernet.HTTPHandlerConfig{
		Logger:   logger,
		TickRate: settings.TickRate,
		Events:   router,
		Metrics:  metrics,
		Socket: ws.HandlerConfig{
			Logger:       logger,
			Publisher:    router,
			DefaultCodec: settings.Codec,
			TickRate:     settings.TickRate,
		},
		ClientDir: opts.ClientDir,
	})

	srv := &http.Server{Addr: settings.Addr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Int("tickRate", settings.TickRate).Msg("server listening")
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("matches did not close cleanly")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}
	return runErr
}

// newEventRouter builds the gameplay event router with the configured sinks.
// The returned func closes any file the sinks opened.
func newEventRouter(settings config.Settings, out io.Writer, logger zerolog.Logger) (*logging.Router, func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = settings.EventSinks
	if settings.EventBuffer > 0 {
		logCfg.BufferSize = settings.EventBuffer
	}
	logCfg.JSON.FilePath = settings.EventLogPath

	var named []logging.NamedSink
	closeFiles := func() {}
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: loggingsinks.NewConsoleSink(out, logCfg.Console)})
	}
	if logCfg.HasSink("json") {
		var w io.Writer = out
		if logCfg.JSON.FilePath != "" {
			file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, closeFiles, fmt.Errorf("open event log: %w", err)
			}
			w = file
			closeFiles = func() { _ = file.Close() }
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSON(w, logCfg.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, named, logger)
	if err != nil {
		closeFiles()
		return nil, func() {}, err
	}
	return router, closeFiles, nil
}
