package match

import (
	"fmt"

	"ringclash/server/internal/state"
)

// EventKind names a discrete combat occurrence.
type EventKind string

const (
	EventHit                 EventKind = "hit"
	EventParry               EventKind = "parry"
	EventClash               EventKind = "clash"
	EventAbsorbed            EventKind = "absorbed"
	EventGuardParry          EventKind = "guard_parry"
	EventPerfectParry        EventKind = "perfect_parry"
	EventFinishingHit        EventKind = "finishing_hit"
	EventBoundaryExit        EventKind = "boundary_exit"
	EventRoundOver           EventKind = "round_over"
	EventRoundStart          EventKind = "round_start"
	EventDodge               EventKind = "dodge"
	EventGrabTech            EventKind = "grab_tech"
	EventGrabWhiff           EventKind = "grab_whiff"
	EventGrabConnect         EventKind = "grab_connect"
	EventGrabClash           EventKind = "grab_clash"
	EventGrabClashResolved   EventKind = "grab_clash_resolved"
	EventGrappleBreak        EventKind = "grapple_break"
	EventPushEnd             EventKind = "push_end"
	EventPinned              EventKind = "pinned"
	EventThrow               EventKind = "throw"
	EventPull                EventKind = "pull"
	EventProjectileSpawned   EventKind = "projectile_spawned"
	EventProjectileHit       EventKind = "projectile_hit"
	EventProjectileBlocked   EventKind = "projectile_blocked"
	EventProjectileReflected EventKind = "projectile_reflected"
	EventProjectileAbsorbed  EventKind = "projectile_absorbed"
	EventDisconnect          EventKind = "disconnect"
)

// CombatEvent is the minimal payload the presentation layer needs for one
// occurrence. ID is stable per occurrence so clients can de-duplicate.
type CombatEvent struct {
	ID        string    `json:"id" msgpack:"id"`
	Kind      EventKind `json:"kind" msgpack:"kind"`
	Tick      uint64    `json:"tick" msgpack:"tick"`
	ActorID   string    `json:"actor,omitempty" msgpack:"actor,omitempty"`
	TargetID  string    `json:"target,omitempty" msgpack:"target,omitempty"`
	ActorX    float64   `json:"actorX" msgpack:"actorX"`
	TargetX   float64   `json:"targetX" msgpack:"targetX"`
	Side      int       `json:"side" msgpack:"side"`
	Role      string    `json:"role,omitempty" msgpack:"role,omitempty"`
	Magnitude float64   `json:"magnitude,omitempty" msgpack:"magnitude,omitempty"`
	Counter   bool      `json:"counter,omitempty" msgpack:"counter,omitempty"`
	Punish    bool      `json:"punish,omitempty" msgpack:"punish,omitempty"`
}

func eventID(roomID string, tick, seq uint64) string {
	return fmt.Sprintf("%s:%d:%d", roomID, tick, seq)
}

// EventOption decorates an event before it is recorded.
type EventOption func(*CombatEvent)

// WithRole sets the side/role indicator.
func WithRole(role string) EventOption {
	return func(e *CombatEvent) { e.Role = role }
}

// WithMagnitude records the knockback or freeze magnitude involved.
func WithMagnitude(m float64) EventOption {
	return func(e *CombatEvent) { e.Magnitude = m }
}

// WithModifiers flags counter-hits and punishes.
func WithModifiers(counter, punish bool) EventOption {
	return func(e *CombatEvent) {
		e.Counter = counter
		e.Punish = punish
	}
}

// Emit records an event for the current tick. Either participant may be nil.
func (e *Env) Emit(kind EventKind, actor, target *state.Player, opts ...EventOption) CombatEvent {
	room := e.Room
	event := CombatEvent{
		ID:   eventID(room.ID, room.Tick, room.NextEventSeq()),
		Kind: kind,
		Tick: room.Tick,
		Side: -1,
	}
	if actor != nil {
		event.ActorID = actor.ID
		event.ActorX = actor.X
		event.Side = actor.Slot
	}
	if target != nil {
		event.TargetID = target.ID
		event.TargetX = target.X
	}
	for _, opt := range opts {
		opt(&event)
	}
	e.events = append(e.events, event)
	return event
}

// DrainEvents returns the events recorded since the last drain.
func (e *Env) DrainEvents() []CombatEvent {
	if len(e.events) == 0 {
		return nil
	}
	drained := e.events
	e.events = nil
	return drained
}
