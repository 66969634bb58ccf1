package sim

import (
	"sync"
	"testing"

	"ringclash/server/internal/config"
	"ringclash/server/internal/state"
)

type recordingMetrics struct {
	mu     sync.Mutex
	values map[string]uint64
}

func (m *recordingMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] += delta
}

func (m *recordingMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] = value
}

func (m *recordingMetrics) get(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func newTestEngine(t *testing.T, cfg LoopConfig, hooks LoopHooks, metrics *recordingMetrics) (*Loop, *Core) {
	t.Helper()
	tuning := config.DefaultTuning()
	room := state.NewRoom("room-1", tuning, state.PlayerSpec{ID: "a"}, state.PlayerSpec{ID: "b"})
	deps := Deps{}
	if metrics != nil {
		deps.Metrics = metrics
	}
	loop, core, err := NewEngine(room, tuning, WithDeps(deps), WithLoopConfig(cfg), WithLoopHooks(hooks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return loop, core
}

func TestEnqueueThrottlesPerActor(t *testing.T) {
	metrics := &recordingMetrics{}
	var dropped []string
	cfg := LoopConfig{CommandCapacity: 16, PerActorLimit: 2}
	hooks := LoopHooks{OnCommandDrop: func(reason string, cmd Command) {
		dropped = append(dropped, reason)
	}}
	loop, _ := newTestEngine(t, cfg, hooks, metrics)

	for i := 0; i < 2; i++ {
		if ok, reason := loop.Enqueue(input("a", state.ButtonRight)); !ok {
			t.Fatalf("expected enqueue %d to succeed, got %s", i, reason)
		}
	}
	ok, reason := loop.Enqueue(input("a", state.ButtonLeft))
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected per-actor limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(input("b", state.ButtonLeft)); !ok {
		t.Fatalf("expected other actors to be unaffected")
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "a", Type: CommandLeave}); !ok {
		t.Fatalf("expected leave to bypass the per-actor limit")
	}
	if len(dropped) != 1 || dropped[0] != CommandRejectQueueLimit {
		t.Fatalf("expected one drop notification, got %v", dropped)
	}
	if got := metrics.get(commandDroppedMetricKey); got != 1 {
		t.Fatalf("expected one dropped command metric, got %d", got)
	}

	loop.DrainCommands()
	if ok, _ := loop.Enqueue(input("a", state.ButtonRight)); !ok {
		t.Fatalf("expected the per-actor window to reset after a drain")
	}
}

func TestEnqueueReportsFullBuffer(t *testing.T) {
	loop, _ := newTestEngine(t, LoopConfig{CommandCapacity: 1}, LoopHooks{}, nil)
	if ok, _ := loop.Enqueue(input("a", 0)); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	ok, reason := loop.Enqueue(input("b", 0))
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected full buffer rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestEnqueueWarnsAtWarningStep(t *testing.T) {
	var warnings []int
	cfg := LoopConfig{CommandCapacity: 8, WarningStep: 2}
	loop, _ := newTestEngine(t, cfg, LoopHooks{OnQueueWarning: func(n int) { warnings = append(warnings, n) }}, nil)
	for i := 0; i < 5; i++ {
		loop.Enqueue(input("a", 0))
	}
	if len(warnings) != 2 || warnings[0] != 2 || warnings[1] != 4 {
		t.Fatalf("expected warnings at 2 and 4, got %v", warnings)
	}
}

func TestAdvanceAppliesStagedCommands(t *testing.T) {
	var prepared []uint64
	loop, core := newTestEngine(t, DefaultLoopConfig(), LoopHooks{
		Prepare: func(ctx LoopTickContext) { prepared = append(prepared, ctx.Tick) },
	}, nil)
	loop.Enqueue(input("a", state.ButtonRight))
	loop.Enqueue(input("ghost", state.ButtonRight))

	result := loop.Advance(LoopTickContext{Tick: 7})
	if len(result.Commands) != 2 {
		t.Fatalf("expected both commands to be consumed, got %d", len(result.Commands))
	}
	if result.ApplyErr == nil {
		t.Fatalf("expected unknown actor error to surface")
	}
	if result.Snapshot.Tick != 1 {
		t.Fatalf("expected one simulated tick, got %d", result.Snapshot.Tick)
	}
	if core.Room().Slots[0].X <= config.DefaultTuning().StartLeftX {
		t.Fatalf("expected the staged input to move the player")
	}
	if len(prepared) != 1 || prepared[0] != 7 {
		t.Fatalf("expected prepare hook for tick 7, got %v", prepared)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected queue to be empty after advance")
	}
}

func TestAdvanceReportsRemovedPlayers(t *testing.T) {
	loop, _ := newTestEngine(t, DefaultLoopConfig(), LoopHooks{}, nil)
	loop.Enqueue(Command{ActorID: "b", Type: CommandLeave, Leave: &LeaveCommand{Reason: "quit"}})
	result := loop.Advance(LoopTickContext{Tick: 1})
	if len(result.RemovedPlayers) != 1 || result.RemovedPlayers[0] != "b" {
		t.Fatalf("expected b to be reported removed, got %v", result.RemovedPlayers)
	}
	if result.Snapshot.Connected != 1 {
		t.Fatalf("expected one connected player, got %d", result.Snapshot.Connected)
	}
	if again := loop.Advance(LoopTickContext{Tick: 2}); len(again.RemovedPlayers) != 0 {
		t.Fatalf("expected removals to be reported once, got %v", again.RemovedPlayers)
	}
}

func TestIdenticalScriptsProduceIdenticalChecksums(t *testing.T) {
	script := func() []uint64 {
		loop, _ := newTestEngine(t, DefaultLoopConfig(), LoopHooks{}, nil)
		var sums []uint64
		for tick := 0; tick < 200; tick++ {
			switch tick % 40 {
			case 0:
				loop.Enqueue(input("a", state.ButtonRight))
			case 10:
				loop.Enqueue(input("a", state.ButtonLight))
				loop.Enqueue(input("b", state.ButtonHeavy))
			case 25:
				loop.Enqueue(input("a", 0))
				loop.Enqueue(input("b", 0))
			}
			result := loop.Advance(LoopTickContext{Tick: uint64(tick)})
			sums = append(sums, result.Snapshot.Frame.Checksum)
		}
		return sums
	}
	first, second := script(), script()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("checksum mismatch at tick %d: %d != %d", i, first[i], second[i])
		}
	}
}
