package deferred

import "testing"

func TestScheduleFiresOnDueTick(t *testing.T) {
	reg := NewRegistry()
	fired := 0
	reg.Schedule("p1", 3, func() { fired++ })

	for tick := uint64(1); tick < 3; tick++ {
		reg.Advance(tick)
		if fired != 0 {
			t.Fatalf("expected no firing before due tick, fired at %d", tick)
		}
	}
	reg.Advance(3)
	if fired != 1 {
		t.Fatalf("expected task to fire on tick 3, fired=%d", fired)
	}
	reg.Advance(4)
	if fired != 1 {
		t.Fatalf("expected task to fire once, fired=%d", fired)
	}
}

func TestNamedScheduleReplacesPending(t *testing.T) {
	reg := NewRegistry()
	var calls []string
	reg.Schedule("p1", 2, func() { calls = append(calls, "first") }, Named("recover"))
	reg.Schedule("p1", 4, func() { calls = append(calls, "second") }, Named("recover"))

	if got := reg.Len("p1"); got != 1 {
		t.Fatalf("expected one pending task after replace, got %d", got)
	}
	for tick := uint64(1); tick <= 5; tick++ {
		reg.Advance(tick)
	}
	if len(calls) != 1 || calls[0] != "second" {
		t.Fatalf("expected only the replacement to fire, got %v", calls)
	}
}

func TestNamesAreScopedPerEntity(t *testing.T) {
	reg := NewRegistry()
	fired := map[string]bool{}
	reg.Schedule("p1", 1, func() { fired["p1"] = true }, Named("attack"))
	reg.Schedule("p2", 1, func() { fired["p2"] = true }, Named("attack"))
	reg.Advance(1)
	if !fired["p1"] || !fired["p2"] {
		t.Fatalf("expected both entities' tasks to fire, got %v", fired)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Schedule("p1", 1, func() { fired = true }, Named("grab"))

	if !reg.Cancel("p1", "grab") {
		t.Fatalf("expected first cancel to remove the task")
	}
	if reg.Cancel("p1", "grab") {
		t.Fatalf("expected second cancel to be a no-op")
	}
	if reg.Cancel("missing", "grab") {
		t.Fatalf("expected cancel on unknown entity to be a no-op")
	}
	reg.Advance(1)
	if fired {
		t.Fatalf("expected cancelled task not to fire")
	}
}

func TestCancelAllLeavesNoDanglingWork(t *testing.T) {
	reg := NewRegistry()
	fired := 0
	reg.Schedule("p1", 1, func() { fired++ })
	reg.Schedule("p1", 2, func() { fired++ }, Named("recover"))
	reg.Schedule("p1", 3, func() { fired++ }, Named("cycle"), Compensated())
	keep := reg.Schedule("p2", 1, func() { fired += 10 })

	if removed := reg.CancelAll("p1"); removed != 3 {
		t.Fatalf("expected 3 tasks removed, got %d", removed)
	}
	if removed := reg.CancelAll("p1"); removed != 0 {
		t.Fatalf("expected repeated CancelAll to remove nothing, got %d", removed)
	}
	if reg.Len("p1") != 0 || reg.Pending("p1", "recover") {
		t.Fatalf("expected no pending work for p1")
	}
	for tick := uint64(1); tick <= 5; tick++ {
		reg.Advance(tick)
	}
	if fired != 10 {
		t.Fatalf("expected only p2's task to fire, fired=%d", fired)
	}
	if reg.CancelHandle(keep) {
		t.Fatalf("expected cancelling a fired handle to be a no-op")
	}
}

func TestAdvanceOrdersByDueThenScheduling(t *testing.T) {
	reg := NewRegistry()
	var order []int
	reg.Schedule("a", 2, func() { order = append(order, 1) })
	reg.Schedule("b", 1, func() { order = append(order, 2) })
	reg.Schedule("a", 2, func() { order = append(order, 3) })
	reg.Schedule("b", 2, func() { order = append(order, 4) })

	reg.Advance(5)
	want := []int{2, 1, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestCallbackCancellingLaterTaskInSamePass(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Schedule("a", 1, func() { reg.Cancel("b", "hit") })
	reg.Schedule("b", 1, func() { fired = true }, Named("hit"))
	reg.Advance(1)
	if fired {
		t.Fatalf("expected task cancelled earlier in the pass not to run")
	}
}

func TestTasksScheduledDuringPassWaitForNextAdvance(t *testing.T) {
	reg := NewRegistry()
	inner := 0
	reg.Schedule("a", 1, func() {
		reg.Schedule("a", 0, func() { inner++ })
	})
	reg.Advance(1)
	if inner != 0 {
		t.Fatalf("expected nested task to wait for next advance")
	}
	reg.Advance(2)
	if inner != 1 {
		t.Fatalf("expected nested task to fire on next advance, got %d", inner)
	}
}

func TestExtendOnlyMovesCompensatedTasks(t *testing.T) {
	reg := NewRegistry()
	reg.Advance(10)
	reg.Schedule("p1", 5, func() {}, Named("cycle"), Compensated())
	reg.Schedule("p1", 5, func() {}, Named("freeze-end"))

	if n := reg.Extend(4); n != 1 {
		t.Fatalf("expected one compensated task extended, got %d", n)
	}
	if due, _ := reg.Due("p1", "cycle"); due != 19 {
		t.Fatalf("expected compensated due 19, got %d", due)
	}
	if due, _ := reg.Due("p1", "freeze-end"); due != 15 {
		t.Fatalf("expected plain due 15, got %d", due)
	}
}
