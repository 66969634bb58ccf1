package net

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/url"

	"github.com/rs/zerolog"

	"ringclash/server/internal/arena"
	"ringclash/server/internal/net/ws"
	"ringclash/server/internal/state"
	"ringclash/server/internal/telemetry"
	"ringclash/server/logging"
)

// RouterStats exposes the event router counters.
type RouterStats interface {
	Stats() logging.RouterStats
}

type HTTPHandlerConfig struct {
	Logger    zerolog.Logger
	Clock     logging.Clock
	TickRate  int
	Events    RouterStats
	Metrics   *telemetry.Counters
	Socket    ws.HandlerConfig
	ClientDir string
}

type contestantRequest struct {
	ID      string `json:"id"`
	PowerUp string `json:"powerUp,omitempty"`
}

type createMatchRequest struct {
	Players []contestantRequest `json:"players"`
}

type createMatchResponse struct {
	Match   string   `json:"match"`
	Players []string `json:"players"`
	Socket  string   `json:"socket"`
}

func NewHTTPHandler(manager *arena.Manager, cfg HTTPHandlerConfig) nethttp.Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	logger := cfg.Logger
	socket := ws.NewHandler(manager, cfg.Socket)

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string              `json:"status"`
			ServerTime int64               `json:"serverTime"`
			TickRate   int                 `json:"tickRate"`
			Matches    []arena.MatchInfo   `json:"matches"`
			Sessions   int                 `json:"sessions"`
			Events     logging.RouterStats `json:"events"`
			Counters   map[string]uint64   `json:"counters,omitempty"`
		}{
			Status:     "ok",
			ServerTime: clock.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Matches:    manager.List(),
			Sessions:   socket.Sessions(),
			Counters:   cfg.Metrics.Snapshot(),
		}
		if cfg.Events != nil {
			payload.Events = cfg.Events.Stats()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/matches", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodGet:
			writeJSON(w, nethttp.StatusOK, manager.List())
		case nethttp.MethodPost:
			createMatch(w, r, manager, logger)
		default:
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/ws", socket.Handle)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

// createMatch stands in for the lobby: it opens a room for two contestants.
func createMatch(w nethttp.ResponseWriter, r *nethttp.Request, manager *arena.Manager, logger zerolog.Logger) {
	var req createMatchRequest
	if r.Body == nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return
	}
	if len(req.Players) != 2 {
		httpError(w, "a match needs exactly two players", nethttp.StatusBadRequest)
		return
	}

	left := state.PlayerSpec{ID: req.Players[0].ID, PowerUp: state.ParsePowerUp(req.Players[0].PowerUp)}
	right := state.PlayerSpec{ID: req.Players[1].ID, PowerUp: state.ParsePowerUp(req.Players[1].PowerUp)}
	match, err := manager.Create(left, right)
	switch {
	case errors.Is(err, arena.ErrPlayerBusy):
		httpError(w, err.Error(), nethttp.StatusConflict)
		return
	case errors.Is(err, arena.ErrManagerClosed):
		httpError(w, err.Error(), nethttp.StatusServiceUnavailable)
		return
	case err != nil:
		httpError(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	logger.Info().Str("match", match.ID()).Str("left", left.ID).Str("right", right.ID).Msg("match created")

	query := url.Values{}
	query.Set(ws.QueryMatch, match.ID())
	writeJSON(w, nethttp.StatusCreated, createMatchResponse{
		Match:   match.ID(),
		Players: []string{left.ID, right.ID},
		Socket:  "/ws?" + query.Encode(),
	})
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
