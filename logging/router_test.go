package logging_test

import (
	"context"
	"testing"
	"time"

	"ringclash/server/logging"
	"ringclash/server/logging/sinks"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func waitForEvents(t *testing.T, sink *sinks.MemorySink, n int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.Events(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d events, got %d", n, len(sink.Events()))
	return nil
}

func TestRouterFansOutWithFieldsAndTime(t *testing.T) {
	memory := sinks.NewMemorySink()
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"server": "test"}
	router, err := logging.NewRouter(fixedClock{now: stamp}, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "combat.hit", Tick: 7, Severity: logging.SeverityInfo})
	events := waitForEvents(t, memory, 1)
	if events[0].Tick != 7 || !events[0].Time.Equal(stamp) {
		t.Fatalf("expected stamped event, got %+v", events[0])
	}
	if events[0].Extra["server"] != "test" {
		t.Fatalf("expected router fields merged, got %+v", events[0].Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 event counted, got %d", stats.EventsTotal)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	router, _ := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	defer router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "debug.only", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "kept", Severity: logging.SeverityWarn})
	events := waitForEvents(t, memory, 1)
	for _, event := range events {
		if event.Type == "debug.only" {
			t.Fatalf("expected debug event filtered")
		}
	}
}

func TestPublishAfterCloseIsIgnored(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, _ := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events after close")
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected sink lookup by name")
	}
}

func TestWithFieldsDoesNotOverrideEventExtra(t *testing.T) {
	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, e logging.Event) { got = e }), map[string]any{"room": "r1", "k": "default"})
	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"k": "own"}})
	if got.Extra["room"] != "r1" || got.Extra["k"] != "own" {
		t.Fatalf("expected merged fields without override, got %+v", got.Extra)
	}
}
