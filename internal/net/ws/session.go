package ws

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ringclash/server/internal/arena"
	"ringclash/server/internal/net/intake"
	"ringclash/server/internal/net/proto"
	"ringclash/server/logging"
	"ringclash/server/logging/network"
)

const disconnectReason = "disconnect"

// session is one websocket attached to a match, as a contestant or a
// spectator. It is the match's observer for that connection.
type session struct {
	id        string
	playerID  string
	spectator bool
	match     *arena.Match
	conn      *websocket.Conn
	codec     proto.Codec
	handler   *Handler
	logger    zerolog.Logger

	mu       sync.Mutex
	lastSeq  uint64
	replaced atomic.Bool
}

func (s *session) ID() string         { return s.id }
func (s *session) Codec() proto.Codec { return s.codec }

// Send writes one frame. Writes from the match loop and the reader goroutine
// are serialised here.
func (s *session) Send(frameType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.handler.writeTimeout))
	}
	return s.conn.WriteMessage(frameType, data)
}

// Close ends the connection; the reader loop exits on its next read.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match closed"))
	return s.conn.Close()
}

func (s *session) write(msg any) error {
	data, err := s.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %T: %w", msg, err)
	}
	return s.Send(s.codec.FrameType(), data)
}

func (s *session) actor() logging.EntityRef {
	if s.spectator {
		return logging.EntityRef{ID: s.id, Kind: logging.EntityKindSession}
	}
	return logging.EntityRef{ID: s.playerID, Kind: logging.EntityKindPlayer}
}

func (s *session) payload(reason string) network.SessionPayload {
	return network.SessionPayload{
		Room:      s.match.ID(),
		Codec:     s.codec.Name(),
		Spectator: s.spectator,
		Reason:    reason,
	}
}

// serve runs the session until the connection fails or the match ends.
func (s *session) serve() {
	ctx := context.Background()
	reason := disconnectReason
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error().Interface("panic", err).Msg("session panicked")
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("match", s.match.ID())
				scope.SetTag("session", s.id)
				scope.SetUser(sentry.User{ID: s.playerID})
			})
			hub.Recover(err)
			hub.Flush(2 * time.Second)
			reason = "panic"
		}
		s.finish(ctx, reason)
	}()

	slot := s.match.Slot(s.playerID)
	if s.spectator {
		slot = -1
	}
	joined := proto.NewJoined(proto.Joined{
		Match:     s.match.ID(),
		Player:    s.playerID,
		Slot:      slot,
		Spectator: s.spectator,
		TickRate:  s.handler.tickRate,
	})
	if err := s.write(joined); err != nil {
		s.logger.Debug().Err(err).Msg("failed to send join confirmation")
		return
	}
	if err := s.match.Attach(s); err != nil {
		s.logger.Debug().Err(err).Msg("match refused observer")
		reason = "match_closed"
		return
	}
	network.SessionOpened(ctx, s.handler.publisher, s.actor(), s.payload(""))

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeClientMessage(s.codec, payload)
		if err != nil {
			s.logger.Debug().Err(err).Msg("discarding malformed message")
			continue
		}
		if !s.handle(ctx, msg) {
			return
		}
	}
}

// handle processes one client message. It returns false once the
// connection can no longer be written.
func (s *session) handle(ctx context.Context, msg proto.ClientMessage) bool {
	switch msg.Type {
	case proto.TypeHeartbeat:
		now := s.handler.clock.Now()
		rtt := int64(0)
		if msg.SentAt > 0 && msg.SentAt <= now.UnixMilli() {
			rtt = now.UnixMilli() - msg.SentAt
		}
		return s.write(proto.NewHeartbeat(now.UnixMilli(), msg.SentAt, rtt)) == nil
	case proto.TypeResync:
		network.ResyncRequested(ctx, s.handler.publisher, s.match.Tick(), s.actor(), network.ResyncPayload{
			Room:     s.match.ID(),
			Tick:     msg.Tick,
			Checksum: msg.Checksum,
		})
		s.match.RequestResync(s.id)
		return true
	case proto.TypeInput, proto.TypeLeave:
		return s.stage(msg)
	default:
		s.logger.Debug().Str("type", msg.Type).Msg("unknown message type")
		return true
	}
}

func (s *session) stage(msg proto.ClientMessage) bool {
	seq := uint64(0)
	if msg.CommandSeq != nil {
		seq = *msg.CommandSeq
	}
	if seq > 0 && seq <= s.lastSeq {
		return s.write(proto.NewCommandAck(seq, 0)) == nil
	}

	playerID := s.playerID
	if s.spectator {
		playerID = ""
	}
	cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
		Engine:    s.match,
		HasPlayer: s.match.HasPlayer,
		Tick:      s.match.Tick,
		Now:       s.handler.clock.Now,
	}, playerID, msg)
	if !ok {
		s.logger.Debug().Str("reason", reason).Str("type", msg.Type).Msg("command rejected")
		if seq == 0 {
			return true
		}
		return s.write(proto.NewCommandReject(seq, reason, intake.Retryable(reason))) == nil
	}
	if seq == 0 {
		return true
	}
	s.lastSeq = seq
	return s.write(proto.NewCommandAck(seq, cmd.OriginTick)) == nil
}

// finish detaches the observer and turns a dropped contestant connection
// into a leave, unless a newer connection took the player over.
func (s *session) finish(ctx context.Context, reason string) {
	s.match.Detach(s.id)
	s.handler.release(s)
	if s.replaced.Load() {
		reason = "replaced"
	} else if !s.spectator && s.match.HasPlayer(s.playerID) {
		select {
		case <-s.match.Done():
		default:
			_, _, _ = intake.StageClientCommand(intake.CommandContext{
				Engine:    s.match,
				HasPlayer: s.match.HasPlayer,
				Tick:      s.match.Tick,
				Now:       s.handler.clock.Now,
			}, s.playerID, proto.ClientMessage{Type: proto.TypeLeave, Reason: reason})
		}
	}
	_ = s.conn.Close()
	network.SessionClosed(ctx, s.handler.publisher, s.actor(), s.payload(reason))
}
