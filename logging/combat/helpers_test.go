package combat

import (
	"context"
	"testing"

	"ringclash/server/internal/match"
	"ringclash/server/logging"
)

func TestPublishMapsKindAndParticipants(t *testing.T) {
	var got []logging.Event
	pub := logging.PublisherFunc(func(_ context.Context, e logging.Event) { got = append(got, e) })

	PublishAll(context.Background(), pub, "room-1", []match.CombatEvent{
		{ID: "room-1:4:1", Kind: match.EventHit, Tick: 4, ActorID: "a", TargetID: "b", Counter: true},
		{ID: "room-1:4:2", Kind: match.EventRoundStart, Tick: 4},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	hit := got[0]
	if hit.Type != EventHit || hit.Actor.ID != "a" || len(hit.Targets) != 1 || hit.Targets[0].ID != "b" {
		t.Fatalf("unexpected hit event: %+v", hit)
	}
	payload, ok := hit.Payload.(Payload)
	if !ok || !payload.Counter || payload.ID != "room-1:4:1" {
		t.Fatalf("expected payload to carry the occurrence, got %+v", hit.Payload)
	}
	round := got[1]
	if round.Type != EventRound || round.Actor.Kind != logging.EntityKindRoom || round.Actor.ID != "room-1" {
		t.Fatalf("expected room-level actor for actorless events, got %+v", round.Actor)
	}
}

func TestDisconnectIsWarning(t *testing.T) {
	if severityOf(match.EventDisconnect) != logging.SeverityWarn {
		t.Fatalf("expected disconnect published as a warning")
	}
	if TypeOf(match.EventGrabClash) != EventGrapple {
		t.Fatalf("expected grab clash grouped under grapple")
	}
}
