package sim

import (
	"errors"
	"math/rand"
	"testing"

	"ringclash/server/internal/config"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

func newTestCore(t *testing.T, ax, bx float64) (*Core, *state.Player, *state.Player) {
	t.Helper()
	tuning := config.DefaultTuning()
	room := state.NewRoom("room-1", tuning,
		state.PlayerSpec{ID: "a", PowerUp: state.PowerUpThrown},
		state.PlayerSpec{ID: "b"},
	)
	a, b := room.Slots[0], room.Slots[1]
	a.X, b.X = ax, bx
	core, err := NewCore(room, tuning, Deps{RNG: rand.New(rand.NewSource(3))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return core, a, b
}

func input(id string, buttons state.Buttons) Command {
	return Command{ActorID: id, Type: CommandInput, Input: &InputCommand{Buttons: buttons}}
}

func press(t *testing.T, c *Core, id string, buttons state.Buttons) {
	t.Helper()
	if err := c.Apply([]Command{input(id, buttons)}); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
}

// run steps n ticks and collects the events of every frame.
func run(c *Core, n int) []match.CombatEvent {
	var events []match.CombatEvent
	for i := 0; i < n; i++ {
		c.Step()
		events = append(events, c.Snapshot().Frame.Events...)
	}
	return events
}

func hasEvent(events []match.CombatEvent, kind match.EventKind, actor string) bool {
	for _, e := range events {
		if e.Kind == kind && e.ActorID == actor {
			return true
		}
	}
	return false
}

func TestNewCoreRejectsMissingRoom(t *testing.T) {
	if _, err := NewCore(nil, config.DefaultTuning(), Deps{}); !errors.Is(err, ErrMissingRoom) {
		t.Fatalf("expected ErrMissingRoom, got %v", err)
	}
}

func TestApplyReportsUnknownActor(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	err := c.Apply([]Command{input("ghost", state.ButtonRight), input("a", state.ButtonRight)})
	if !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected ErrUnknownActor, got %v", err)
	}
	if !a.Input.IsHeld(state.ButtonRight) {
		t.Fatalf("expected known actor input to be buffered despite the error")
	}
}

func TestWalkMovesAndDecays(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	press(t, c, "a", state.ButtonRight)
	run(c, 5)
	if a.X != 540 {
		t.Fatalf("expected five walking ticks to reach 540, got %v", a.X)
	}
	press(t, c, "a", 0)
	run(c, 30)
	if a.Movement.X() != 0 {
		t.Fatalf("expected movement to decay to rest, got %v", a.Movement.X())
	}
	if a.X <= 540 {
		t.Fatalf("expected the body to glide after release, got %v", a.X)
	}
}

func TestCrouchStopsInPlace(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	press(t, c, "a", state.ButtonDown|state.ButtonRight)
	run(c, 3)
	if !a.Crouching {
		t.Fatalf("expected crouch while down is held")
	}
	if a.X != 520 {
		t.Fatalf("expected crouching player to stay put, got %v", a.X)
	}
	press(t, c, "a", 0)
	run(c, 1)
	if a.Crouching {
		t.Fatalf("expected crouch to end once down is released")
	}
}

func TestLightAttackLandsThroughInputs(t *testing.T) {
	c, a, b := newTestCore(t, 600, 680)
	press(t, c, "a", state.ButtonLight)
	events := run(c, 1)
	if a.Activity.Kind != state.ActivityAttacking {
		t.Fatalf("expected attacking, got %s", a.Activity.Kind)
	}
	press(t, c, "a", 0)
	events = append(events, run(c, 8)...)
	if !hasEvent(events, match.EventHit, "a") {
		t.Fatalf("expected a hit event from a, got %+v", events)
	}
	if b.HitStunUntil == 0 {
		t.Fatalf("expected defender to be stunned")
	}
	if b.Knockback.X() <= 0 && b.X <= 680 {
		t.Fatalf("expected defender to be knocked away from the attacker")
	}
}

func TestHitstopFreezesSimulationClock(t *testing.T) {
	c, a, _ := newTestCore(t, 600, 680)
	press(t, c, "a", state.ButtonLight)
	hitTick := uint64(0)
	for i := 0; i < 10 && hitTick == 0; i++ {
		c.Step()
		if hasEvent(c.Snapshot().Frame.Events, match.EventHit, "a") {
			hitTick = c.Room().Tick
		}
		press(t, c, "a", 0)
	}
	if hitTick == 0 {
		t.Fatalf("expected the light attack to land")
	}
	simAtHit := c.Room().Now()
	freeze := c.Env().Tuning.LightFreezeTicks
	for i := uint64(0); i < freeze; i++ {
		c.Step()
		if !c.Snapshot().Frame.Hitstop {
			t.Fatalf("expected tick %d to be frozen", c.Room().Tick)
		}
	}
	if c.Room().Now() != simAtHit {
		t.Fatalf("expected simulation clock to stand still at %d, got %d", simAtHit, c.Room().Now())
	}
	c.Step()
	if c.Snapshot().Frame.Hitstop {
		t.Fatalf("expected freeze to end after %d ticks", freeze)
	}
	if c.Room().Now() != simAtHit+1 {
		t.Fatalf("expected simulation clock to resume, got %d", c.Room().Now())
	}
	if a.Activity.Kind != state.ActivityAttacking && a.Activity.Kind != state.ActivityRecovering {
		t.Fatalf("expected attacker still inside the swing, got %s", a.Activity.Kind)
	}
}

func TestHeavyChargesWhileHeldAndReleasesOnKeyUp(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	press(t, c, "a", state.ButtonHeavy)
	run(c, 1)
	if a.Activity.Kind != state.ActivityCharging {
		t.Fatalf("expected charging, got %s", a.Activity.Kind)
	}
	run(c, 20)
	if a.Activity.Kind != state.ActivityCharging {
		t.Fatalf("expected charge to continue while held, got %s", a.Activity.Kind)
	}
	press(t, c, "a", 0)
	run(c, 1)
	if a.Activity.Kind != state.ActivityAttacking {
		t.Fatalf("expected release to start the attack, got %s", a.Activity.Kind)
	}
	if charge := a.Activity.Attack.Charge; charge <= 0 || charge >= 100 {
		t.Fatalf("expected a partial charge, got %v", charge)
	}
}

func TestHeavyTapReleasesImmediately(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	if err := c.Apply([]Command{input("a", state.ButtonHeavy), input("a", 0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	run(c, 1)
	if a.Activity.Kind != state.ActivityAttacking {
		t.Fatalf("expected a tapped heavy to attack at once, got %s", a.Activity.Kind)
	}
	if a.Activity.Attack.Charge != 0 {
		t.Fatalf("expected zero charge, got %v", a.Activity.Attack.Charge)
	}
}

func TestGuardHeldThenLowered(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	tuning := c.Env().Tuning
	press(t, c, "a", state.ButtonGuard)
	run(c, 4)
	if a.Activity.Kind != state.ActivityGuarding {
		t.Fatalf("expected guarding, got %s", a.Activity.Kind)
	}
	if a.Stamina != tuning.StaminaMax-tuning.GuardStaminaCost {
		t.Fatalf("expected guard cost to be paid once, got %v", a.Stamina)
	}
	press(t, c, "a", 0)
	run(c, 1)
	if a.Activity.Kind != state.ActivityIdle {
		t.Fatalf("expected guard to drop on release, got %s", a.Activity.Kind)
	}
}

func TestDodgeStartsBackwardWithoutDirection(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	press(t, c, "a", state.ButtonDodge)
	events := run(c, 1)
	if a.Activity.Kind != state.ActivityDodging {
		t.Fatalf("expected dodging, got %s", a.Activity.Kind)
	}
	if a.X >= 520 {
		t.Fatalf("expected a neutral dodge to move away from the opponent, got %v", a.X)
	}
	if !hasEvent(events, match.EventDodge, "a") {
		t.Fatalf("expected a dodge event")
	}
}

func TestInputIgnoredWhileRoundIsOver(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	c.Room().Phase = state.PhaseRoundOver
	press(t, c, "a", state.ButtonLight)
	run(c, 1)
	if a.Activity.Kind != state.ActivityIdle {
		t.Fatalf("expected no action outside the fighting phase, got %s", a.Activity.Kind)
	}
}

func TestLeaveWhileGrappledFreesPartner(t *testing.T) {
	c, a, b := newTestCore(t, 600, 680)
	press(t, c, "a", state.ButtonGrab)
	run(c, 1)
	press(t, c, "a", 0)
	for i := 0; i < 20 && a.Activity.Kind != state.ActivityGrabbing; i++ {
		run(c, 1)
	}
	if a.Activity.Kind != state.ActivityGrabbing || b.Activity.Kind != state.ActivityGrabbed {
		t.Fatalf("expected a clinch, got %s/%s", a.Activity.Kind, b.Activity.Kind)
	}

	if err := c.Apply([]Command{{ActorID: "a", Type: CommandLeave, Leave: &LeaveCommand{Reason: "closed"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Activity.Kind != state.ActivityIdle {
		t.Fatalf("expected partner to be freed, got %s", b.Activity.Kind)
	}
	if c.Room().Player("a") != nil {
		t.Fatalf("expected leaver to be removed from the room")
	}
	removed := c.RemovedPlayers()
	if len(removed) != 1 || removed[0] != "a" {
		t.Fatalf("expected removal of a, got %v", removed)
	}

	c.Step()
	frame := c.Snapshot().Frame
	if len(frame.Removed) != 1 || frame.Removed[0] != "a" {
		t.Fatalf("expected frame to report removal, got %v", frame.Removed)
	}
	if !hasEvent(frame.Events, match.EventDisconnect, "a") {
		t.Fatalf("expected a disconnect event, got %+v", frame.Events)
	}
	run(c, 30)
	if b.Activity.Kind == state.ActivityGrabbed {
		t.Fatalf("expected the remaining player to stay free")
	}
}

func TestSnapshotReportsScoresAndConnections(t *testing.T) {
	c, a, _ := newTestCore(t, 520, 760)
	a.Score = 2
	c.Step()
	snap := c.Snapshot()
	if snap.Room != "room-1" || snap.Tick != 1 {
		t.Fatalf("unexpected snapshot header %+v", snap)
	}
	if snap.Scores["a"] != 2 || snap.Scores["b"] != 0 {
		t.Fatalf("unexpected scores %v", snap.Scores)
	}
	if snap.Connected != 2 {
		t.Fatalf("expected two connected players, got %d", snap.Connected)
	}
}

func TestRandomInputsKeepStateConsistent(t *testing.T) {
	c, a, b := newTestCore(t, 560, 700)
	tuning := c.Env().Tuning
	rng := rand.New(rand.NewSource(42))
	buttons := []state.Buttons{
		0, state.ButtonLeft, state.ButtonRight, state.ButtonDown, state.ButtonUp,
		state.ButtonLight, state.ButtonHeavy, state.ButtonGuard, state.ButtonGrab,
		state.ButtonDodge, state.ButtonSpecial, state.ButtonRight | state.ButtonLight,
		state.ButtonLeft | state.ButtonGuard,
	}
	for tick := 0; tick < 4000; tick++ {
		var cmds []Command
		for _, id := range []string{"a", "b"} {
			if rng.Intn(3) == 0 {
				cmds = append(cmds, input(id, buttons[rng.Intn(len(buttons))]))
			}
		}
		if err := c.Apply(cmds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.Step()

		for _, p := range []*state.Player{a, b} {
			if p.Stamina < 0 || p.Stamina > tuning.StaminaMax {
				t.Fatalf("tick %d: stamina out of range for %s: %v", tick, p.ID, p.Stamina)
			}
			if p.X < tuning.ArenaLeft || p.X > tuning.ArenaRight {
				t.Fatalf("tick %d: %s left the arena at %v", tick, p.ID, p.X)
			}
			switch p.Activity.Kind {
			case state.ActivityGrabbing, state.ActivityGrabbed:
				g := p.Activity.Grapple
				if g == nil {
					t.Fatalf("tick %d: %s is %s without grapple data", tick, p.ID, p.Activity.Kind)
				}
				other := c.Room().Player(g.OpponentID)
				if other == nil || other.Grapple() == nil || other.Grapple().ID != g.ID {
					t.Fatalf("tick %d: %s holds a one-sided grapple", tick, p.ID)
				}
				if p.Activity.Kind == other.Activity.Kind {
					t.Fatalf("tick %d: both players share grapple role %s", tick, p.Activity.Kind)
				}
			}
			if p.Activity.Kind == state.ActivityCharging && p.Activity.Attack == nil {
				t.Fatalf("tick %d: %s charges without attack data", tick, p.ID)
			}
		}
	}
}
