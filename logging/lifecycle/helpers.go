package lifecycle

import (
	"context"

	"ringclash/server/logging"
)

const (
	// EventMatchCreated is emitted when the arena opens a room for two contestants.
	EventMatchCreated logging.EventType = "lifecycle.match_created"
	// EventMatchClosed is emitted when a room's loop stops.
	EventMatchClosed logging.EventType = "lifecycle.match_closed"
	// EventPlayerDisconnected is emitted when a contestant leaves a room.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
)

// MatchCreatedPayload captures the contestants of a new room.
type MatchCreatedPayload struct {
	Players  []string `json:"players"`
	PowerUps []string `json:"powerUps,omitempty"`
}

// MatchClosedPayload captures the final state of a room.
type MatchClosedPayload struct {
	Reason string         `json:"reason"`
	Ticks  uint64         `json:"ticks"`
	Scores map[string]int `json:"scores,omitempty"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// MatchCreated publishes a room creation event.
func MatchCreated(ctx context.Context, pub logging.Publisher, room string, payload MatchCreatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMatchCreated,
		Actor:    logging.EntityRef{ID: room, Kind: logging.EntityKindRoom},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// MatchClosed publishes a room shutdown event.
func MatchClosed(ctx context.Context, pub logging.Publisher, tick uint64, room string, payload MatchClosedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMatchClosed,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: room, Kind: logging.EntityKindRoom},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
