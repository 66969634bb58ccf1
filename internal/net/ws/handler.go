// Package ws serves the match websocket: it upgrades the connection, attaches
// it to a match as a contestant or spectator and feeds client messages into
// the match's command queue.
package ws

import (
	nethttp "net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ringclash/server/internal/arena"
	"ringclash/server/internal/net/proto"
	"ringclash/server/logging"
)

// Query parameters accepted on the upgrade request.
const (
	QueryMatch  = "match"
	QueryPlayer = "player"
	QueryCodec  = "codec"
)

// Matches resolves a match by ID.
type Matches interface {
	Get(id string) (*arena.Match, bool)
}

// HandlerConfig configures the websocket handler.
type HandlerConfig struct {
	Logger       zerolog.Logger
	Publisher    logging.Publisher
	Clock        logging.Clock
	DefaultCodec string
	TickRate     int
	WriteTimeout time.Duration
}

// Handler upgrades match connections.
type Handler struct {
	matches      Matches
	logger       zerolog.Logger
	publisher    logging.Publisher
	clock        logging.Clock
	defaultCodec string
	tickRate     int
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	players map[string]*session
}

// NewHandler constructs a websocket handler over matches.
func NewHandler(matches Matches, cfg HandlerConfig) *Handler {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		matches:      matches,
		logger:       cfg.Logger,
		publisher:    publisher,
		clock:        clock,
		defaultCodec: cfg.DefaultCodec,
		tickRate:     cfg.TickRate,
		writeTimeout: writeTimeout,
		upgrader:     upgrader,
		players:      make(map[string]*session),
	}
}

// Handle serves GET /ws?match=&player=&codec=. Without a player, or with an
// ID that is not a contestant, the connection joins as a spectator.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	query := r.URL.Query()
	matchID := query.Get(QueryMatch)
	if matchID == "" {
		nethttp.Error(w, "missing match", nethttp.StatusBadRequest)
		return
	}
	match, ok := h.matches.Get(matchID)
	if !ok {
		nethttp.Error(w, "unknown match", nethttp.StatusNotFound)
		return
	}
	codecName := query.Get(QueryCodec)
	if codecName == "" {
		codecName = h.defaultCodec
	}
	codec, err := proto.CodecByName(codecName)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}

	playerID := query.Get(QueryPlayer)
	spectator := !match.HasPlayer(playerID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("match", matchID).Msg("upgrade failed")
		return
	}

	s := &session{
		id:        uuid.NewString(),
		playerID:  playerID,
		spectator: spectator,
		match:     match,
		conn:      conn,
		codec:     codec,
		handler:   h,
	}
	s.logger = h.logger.With().
		Str("match", matchID).
		Str("session", s.id).
		Str("player", playerID).
		Bool("spectator", spectator).
		Logger()
	if !spectator {
		h.claim(s)
	}
	s.serve()
}

// claim makes s the active connection for its player and closes the one it
// replaces.
func (h *Handler) claim(s *session) {
	key := s.match.ID() + "/" + s.playerID
	h.mu.Lock()
	previous := h.players[key]
	h.players[key] = s
	h.mu.Unlock()
	if previous != nil {
		previous.replaced.Store(true)
		_ = previous.Close()
	}
}

func (h *Handler) release(s *session) {
	if s.spectator {
		return
	}
	key := s.match.ID() + "/" + s.playerID
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.players[key] == s {
		delete(h.players, key)
	}
}

// Sessions reports the number of contestant connections.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.players)
}
