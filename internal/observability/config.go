// Package observability starts the optional runtime stats viewer.
package observability

import (
	"errors"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/zerolog"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// StatsviewAddr enables the runtime charts on this address when set.
	StatsviewAddr string
}

// Enabled reports whether anything needs starting.
func (c Config) Enabled() bool {
	return c.StatsviewAddr != ""
}

// Viewer is a running stats viewer. A nil Viewer is valid and does nothing.
type Viewer struct {
	mgr *statsview.ViewManager
}

// Start launches the viewer in the background, or returns nil when disabled.
func Start(cfg Config, logger zerolog.Logger) *Viewer {
	if !cfg.Enabled() {
		return nil
	}
	// configuration must be set before statsview.New
	viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(cfg.StatsviewAddr))
	mgr := statsview.New()
	go func() {
		if err := mgr.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", cfg.StatsviewAddr).Msg("statsview stopped")
		}
	}()
	logger.Info().Str("addr", cfg.StatsviewAddr).Msg("statsview listening")
	return &Viewer{mgr: mgr}
}

// Stop shuts the viewer down.
func (v *Viewer) Stop() {
	if v == nil || v.mgr == nil {
		return
	}
	v.mgr.Stop()
}
