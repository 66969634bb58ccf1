package hitstop

import (
	"testing"

	"ringclash/server/internal/deferred"
	"ringclash/server/internal/state"
)

type harness struct {
	room     *state.Room
	registry *deferred.Registry
	hitstop  *Scheduler
}

func newHarness() *harness {
	room := &state.Room{ID: "r"}
	registry := deferred.NewRegistry()
	return &harness{room: room, registry: registry, hitstop: New(room, registry)}
}

// step mirrors the engine's ordering: clock, deferred callbacks, then the
// caller's work, then decay.
func (h *harness) step(work func(tick uint64)) {
	h.room.Tick++
	h.hitstop.Enter(h.room.Tick)
	h.registry.Advance(h.room.Tick)
	if work != nil {
		work(h.room.Tick)
	}
	h.hitstop.Decay(h.room.Tick)
}

func (h *harness) scheduleCompensated(delay uint64, fn func()) {
	delay += h.hitstop.Remaining(h.room.Tick)
	h.registry.Schedule("p1", delay, fn, deferred.Named("cycle"), deferred.Compensated())
}

func TestFreezeFreezesFollowingTicks(t *testing.T) {
	h := newHarness()
	h.step(func(uint64) { h.hitstop.Freeze(3) })
	frozen := 0
	for i := 0; i < 5; i++ {
		h.room.Tick++
		if h.hitstop.Enter(h.room.Tick) {
			frozen++
		}
		h.hitstop.Decay(h.room.Tick)
	}
	if frozen != 3 {
		t.Fatalf("expected 3 frozen ticks, got %d", frozen)
	}
	if h.room.ClockOffset != 3 {
		t.Fatalf("expected clock offset 3, got %d", h.room.ClockOffset)
	}
	if h.room.HitstopUntil != 0 {
		t.Fatalf("expected deadline cleared after decay")
	}
}

func TestOverlappingFreezeAddsOnlyTheExtension(t *testing.T) {
	h := newHarness()
	h.room.Tick = 10
	if added := h.hitstop.Freeze(4); added != 4 {
		t.Fatalf("expected 4 ticks added, got %d", added)
	}
	h.room.Tick = 12
	if added := h.hitstop.Freeze(5); added != 3 {
		t.Fatalf("expected only the extension beyond tick 14 to be added, got %d", added)
	}
	if added := h.hitstop.Freeze(1); added != 0 {
		t.Fatalf("expected a shorter freeze to add nothing, got %d", added)
	}
	if h.room.HitstopUntil != 17 {
		t.Fatalf("expected deadline 17, got %d", h.room.HitstopUntil)
	}
}

func TestFreezeExtendsCompensatedTimersOnly(t *testing.T) {
	h := newHarness()
	h.registry.Schedule("p1", 5, func() {}, deferred.Named("cycle"), deferred.Compensated())
	h.registry.Schedule("p1", 5, func() {}, deferred.Named("cutscene"))
	h.hitstop.Freeze(3)
	if due, _ := h.registry.Due("p1", "cycle"); due != 8 {
		t.Fatalf("expected compensated timer at 8, got %d", due)
	}
	if due, _ := h.registry.Due("p1", "cutscene"); due != 5 {
		t.Fatalf("expected plain timer at 5, got %d", due)
	}
}

// A cyclic timer's interval measured on the simulation clock must not depend
// on how many freezes landed while it was pending.
func TestCyclicTimerIntervalInvariantUnderFreezes(t *testing.T) {
	const period = 10
	patterns := map[string]map[uint64]uint64{
		"none":        {},
		"single":      {3: 4},
		"stacked":     {3: 4, 5: 6},
		"many":        {2: 1, 4: 2, 9: 3, 14: 5, 22: 2, 23: 8, 37: 4},
		"during_fire": {10: 3, 11: 1, 20: 6},
	}
	for name, freezes := range patterns {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			var fired []uint64
			var cycle func()
			cycle = func() {
				fired = append(fired, h.room.Now())
				h.scheduleCompensated(period, cycle)
			}
			h.step(func(uint64) {
				fired = append(fired, h.room.Now())
				h.scheduleCompensated(period, cycle)
			})
			for i := 0; i < 120; i++ {
				h.step(func(tick uint64) {
					if ticks, ok := freezes[tick]; ok {
						h.hitstop.Freeze(ticks)
					}
				})
			}
			if len(fired) < 4 {
				t.Fatalf("expected several firings, got %v", fired)
			}
			for i := 1; i < len(fired); i++ {
				if interval := fired[i] - fired[i-1]; interval != period {
					t.Fatalf("expected effective interval %d, got %d (firings %v)", period, interval, fired)
				}
			}
		})
	}
}

func TestRemainingCountsFrozenTicksAhead(t *testing.T) {
	h := newHarness()
	h.room.Tick = 4
	h.hitstop.Freeze(6)
	if got := h.hitstop.Remaining(4); got != 6 {
		t.Fatalf("expected 6 remaining, got %d", got)
	}
	if got := h.hitstop.Remaining(10); got != 0 {
		t.Fatalf("expected none remaining on the last frozen tick, got %d", got)
	}
}
