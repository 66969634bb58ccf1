package combat

import (
	"context"

	"ringclash/server/internal/match"
	"ringclash/server/logging"
)

const (
	// EventHit is emitted when a strike connects.
	EventHit logging.EventType = "combat.hit"
	// EventParry is emitted for mutual light parries, clashes and guard parries.
	EventParry logging.EventType = "combat.parry"
	// EventGrapple is emitted for grapple phase changes.
	EventGrapple logging.EventType = "combat.grapple"
	// EventProjectile is emitted for projectile contact and lifecycle.
	EventProjectile logging.EventType = "combat.projectile"
	// EventRound is emitted when a round ends or restarts.
	EventRound logging.EventType = "combat.round"
	// EventMovement is emitted for dodges.
	EventMovement logging.EventType = "combat.movement"
	// EventPresence is emitted when a contestant drops out of the room.
	EventPresence logging.EventType = "combat.presence"
)

// Payload mirrors the wire event with the fields sinks care about.
type Payload struct {
	Kind      match.EventKind `json:"kind"`
	ID        string          `json:"id"`
	Role      string          `json:"role,omitempty"`
	Magnitude float64         `json:"magnitude,omitempty"`
	Counter   bool            `json:"counter,omitempty"`
	Punish    bool            `json:"punish,omitempty"`
	ActorX    float64         `json:"actorX"`
	TargetX   float64         `json:"targetX"`
}

// TypeOf groups an occurrence kind into its published event type.
func TypeOf(kind match.EventKind) logging.EventType {
	switch kind {
	case match.EventHit, match.EventFinishingHit:
		return EventHit
	case match.EventParry, match.EventClash, match.EventAbsorbed, match.EventGuardParry, match.EventPerfectParry:
		return EventParry
	case match.EventGrabTech, match.EventGrabWhiff, match.EventGrabConnect, match.EventGrabClash,
		match.EventGrabClashResolved, match.EventGrappleBreak, match.EventPushEnd, match.EventPinned,
		match.EventThrow, match.EventPull:
		return EventGrapple
	case match.EventProjectileSpawned, match.EventProjectileHit, match.EventProjectileBlocked,
		match.EventProjectileReflected, match.EventProjectileAbsorbed:
		return EventProjectile
	case match.EventBoundaryExit, match.EventRoundOver, match.EventRoundStart:
		return EventRound
	case match.EventDodge:
		return EventMovement
	case match.EventDisconnect:
		return EventPresence
	default:
		return logging.EventType("combat." + string(kind))
	}
}

func severityOf(kind match.EventKind) logging.Severity {
	switch kind {
	case match.EventDodge, match.EventProjectileSpawned, match.EventPinned:
		return logging.SeverityDebug
	case match.EventDisconnect:
		return logging.SeverityWarn
	default:
		return logging.SeverityInfo
	}
}

// Publish forwards one combat occurrence of room to pub.
func Publish(ctx context.Context, pub logging.Publisher, room string, event match.CombatEvent) {
	if pub == nil {
		return
	}
	out := logging.Event{
		Type:     TypeOf(event.Kind),
		Tick:     event.Tick,
		Severity: severityOf(event.Kind),
		Category: logging.CategoryCombat,
		Payload: Payload{
			Kind:      event.Kind,
			ID:        event.ID,
			Role:      event.Role,
			Magnitude: event.Magnitude,
			Counter:   event.Counter,
			Punish:    event.Punish,
			ActorX:    event.ActorX,
			TargetX:   event.TargetX,
		},
		Extra: map[string]any{"room": room},
	}
	if event.ActorID != "" {
		out.Actor = logging.EntityRef{ID: event.ActorID, Kind: logging.EntityKindPlayer}
	} else {
		out.Actor = logging.EntityRef{ID: room, Kind: logging.EntityKindRoom}
	}
	if event.TargetID != "" {
		out.Targets = []logging.EntityRef{{ID: event.TargetID, Kind: logging.EntityKindPlayer}}
	}
	pub.Publish(ctx, out)
}

// PublishAll forwards a tick's occurrences in order.
func PublishAll(ctx context.Context, pub logging.Publisher, room string, events []match.CombatEvent) {
	for _, event := range events {
		Publish(ctx, pub, room, event)
	}
}
