package network

import (
	"context"

	"ringclash/server/logging"
)

const (
	// EventSessionOpened is emitted when a websocket session attaches to a room.
	EventSessionOpened logging.EventType = "network.session_opened"
	// EventSessionClosed is emitted when a websocket session ends.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventResyncRequested is emitted when a client reports a checksum mismatch.
	EventResyncRequested logging.EventType = "network.resync_requested"
)

// SessionPayload describes a websocket session.
type SessionPayload struct {
	Room      string `json:"room"`
	Codec     string `json:"codec"`
	Spectator bool   `json:"spectator,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ResyncPayload captures the diverged tick reported by the client.
type ResyncPayload struct {
	Room     string `json:"room"`
	Tick     uint64 `json:"tick"`
	Checksum uint64 `json:"checksum"`
}

// SessionOpened publishes a debug event when a session attaches.
func SessionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionOpened,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SessionClosed publishes an event when a session ends.
func SessionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionClosed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ResyncRequested publishes a warning when a client's replayed state diverged.
func ResyncRequested(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResyncPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResyncRequested,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
