package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"ringclash/server/internal/net/proto"
	"ringclash/server/internal/state"
	"ringclash/server/logging/lifecycle"
)

func TestManagerCreateAndClose(t *testing.T) {
	events := &eventLog{}
	manager := NewManager(testConfig(events))

	match, err := manager.Create(state.PlayerSpec{ID: "a", PowerUp: state.PowerUpPower}, state.PlayerSpec{ID: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := manager.Get(match.ID()); !ok || got != match {
		t.Fatalf("expected match to be registered")
	}
	if got, ok := manager.MatchOf("b"); !ok || got != match {
		t.Fatalf("expected b to be mapped to the match")
	}
	if _, err := manager.Create(state.PlayerSpec{ID: "b"}, state.PlayerSpec{ID: "c"}); !errors.Is(err, ErrPlayerBusy) {
		t.Fatalf("expected ErrPlayerBusy, got %v", err)
	}
	if events.count(lifecycle.EventMatchCreated) != 1 {
		t.Fatalf("expected one match created event")
	}

	list := manager.List()
	if len(list) != 1 || list[0].ID != match.ID() || len(list[0].Players) != 2 {
		t.Fatalf("unexpected listing %+v", list)
	}

	obs := &recordingObserver{id: "spectator", codec: proto.JSON}
	if err := match.Attach(obs); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if manager.Len() != 0 {
		t.Fatalf("expected closed matches to be removed, %d remain", manager.Len())
	}
	if _, ok := manager.MatchOf("a"); ok {
		t.Fatalf("expected player index to be cleared")
	}
	if events.count(lifecycle.EventMatchClosed) != 1 {
		t.Fatalf("expected one match closed event")
	}

	obs.mu.Lock()
	closed := obs.closed
	last := obs.frames[len(obs.frames)-1]
	obs.mu.Unlock()
	if !closed {
		t.Fatalf("expected observer to be closed")
	}
	var msg proto.MatchClosed
	if err := proto.JSON.Unmarshal(last, &msg); err != nil {
		t.Fatalf("failed to decode close message: %v", err)
	}
	if msg.Type != proto.TypeMatchClosed || msg.Reason != CloseShutdown {
		t.Fatalf("expected shutdown notice, got %+v", msg)
	}

	if _, err := manager.Create(state.PlayerSpec{ID: "x"}, state.PlayerSpec{ID: "y"}); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("expected closed manager to refuse matches, got %v", err)
	}
}
