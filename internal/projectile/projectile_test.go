package projectile

import (
	"math/rand"
	"testing"

	"ringclash/server/internal/combat"
	"ringclash/server/internal/config"
	"ringclash/server/internal/grapple"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

func newTestEnv(t *testing.T, ax, bx float64) (*match.Env, *state.Player, *state.Player) {
	t.Helper()
	tuning := config.DefaultTuning()
	room := state.NewRoom("room-1", tuning,
		state.PlayerSpec{ID: "a", PowerUp: state.PowerUpThrown},
		state.PlayerSpec{ID: "b"},
	)
	env := match.NewEnv(room, tuning, rand.New(rand.NewSource(1)))
	a, b := room.Slots[0], room.Slots[1]
	a.X, b.X = ax, bx
	step(env, 1)
	return env, a, b
}

func step(env *match.Env, ticks int) []match.CombatEvent {
	var events []match.CombatEvent
	for i := 0; i < ticks; i++ {
		room := env.Room
		room.Tick++
		frozen := env.Hitstop.Enter(room.Tick)
		env.Registry.Advance(room.Tick)
		if !frozen {
			combat.Resolve(env)
			grapple.Step(env)
			Step(env)
		}
		env.Hitstop.Decay(room.Tick)
		events = append(events, env.DrainEvents()...)
	}
	return events
}

func has(events []match.CombatEvent, kind match.EventKind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// placeBefore puts proj one tick away from touching p's body.
func placeBefore(env *match.Env, proj *state.Projectile, p *state.Player) {
	edge := env.Tuning.BodyWidth/2 + proj.Radius
	if proj.VX > 0 {
		proj.X = p.X - edge - proj.VX + 1
	} else {
		proj.X = p.X + edge - proj.VX - 1
	}
}

func TestSpawnRequiresPowerUpAndCooldown(t *testing.T) {
	env, a, b := newTestEnv(t, 400, 880)
	if _, ok := Spawn(env, b); ok {
		t.Fatalf("expected no projectile without a power-up")
	}
	proj, ok := Spawn(env, a)
	if !ok {
		t.Fatalf("expected spawn")
	}
	if proj.TargetID != "b" || proj.VX <= 0 || proj.X <= a.X {
		t.Fatalf("expected projectile launched forward at b, got %+v", proj)
	}
	if _, ok := Spawn(env, a); ok {
		t.Fatalf("expected cooldown to block a second spawn")
	}
}

func TestProjectileFliesAndHits(t *testing.T) {
	env, a, b := newTestEnv(t, 400, 880)
	Spawn(env, a)
	events := step(env, 45)
	if !has(events, match.EventProjectileHit) {
		t.Fatalf("expected projectile to reach b, got %+v", events)
	}
	if len(a.Projectiles) != 0 {
		t.Fatalf("expected projectile consumed")
	}
	if b.Knockback.X() != env.Tuning.ProjectileKnockback {
		t.Fatalf("expected small fixed knockback, got %v", b.Knockback)
	}
	if !state.Stunned(b, env.Now()) {
		t.Fatalf("expected short hit-stun")
	}
}

func TestPerfectParryReflectsThenSecondParryDestroys(t *testing.T) {
	env, a, b := newTestEnv(t, 400, 880)
	proj, _ := Spawn(env, a)
	placeBefore(env, proj, b)
	combat.StartGuard(env, b)
	events := step(env, 1)

	if !has(events, match.EventProjectileReflected) {
		t.Fatalf("expected reflection, got %+v", events)
	}
	if !proj.Reflected || proj.VX >= 0 || proj.TargetID != "a" {
		t.Fatalf("expected reversed projectile aimed at its owner, got %+v", proj)
	}
	if len(a.Projectiles) != 1 {
		t.Fatalf("expected reflected projectile kept alive")
	}

	placeBefore(env, proj, a)
	combat.StartGuard(env, a)
	events = step(env, 1)
	if has(events, match.EventProjectileReflected) {
		t.Fatalf("expected no second reflection")
	}
	if !has(events, match.EventProjectileBlocked) {
		t.Fatalf("expected the second parry to destroy it, got %+v", events)
	}
	if len(a.Projectiles) != 0 {
		t.Fatalf("expected projectile destroyed")
	}
	if state.Stunned(a, env.Now()) {
		t.Fatalf("expected the parrying owner unharmed")
	}
}

func TestLateGuardBlocks(t *testing.T) {
	env, a, b := newTestEnv(t, 400, 880)
	proj, _ := Spawn(env, a)
	combat.StartGuard(env, b)
	step(env, int(env.Tuning.PerfectParryTicks))
	placeBefore(env, proj, b)
	events := step(env, 1)
	if !has(events, match.EventProjectileBlocked) || has(events, match.EventProjectileReflected) {
		t.Fatalf("expected a plain block, got %+v", events)
	}
}

func TestAbsorbConsumesProjectile(t *testing.T) {
	env, a, b := newTestEnv(t, 400, 880)
	b.AbsorbCharges = 1
	proj, _ := Spawn(env, a)
	placeBefore(env, proj, b)
	events := step(env, 1)
	if !has(events, match.EventProjectileAbsorbed) {
		t.Fatalf("expected absorption, got %+v", events)
	}
	if b.AbsorbCharges != 0 || state.Stunned(b, env.Now()) {
		t.Fatalf("expected absorption spent without a hit")
	}
	if len(a.Projectiles) != 0 {
		t.Fatalf("expected projectile destroyed")
	}
}

func TestHitReleasesGrapple(t *testing.T) {
	env, a, b := newTestEnv(t, 600, 680)
	proj := &state.Projectile{
		ID: 99, Kind: state.ProjectileThrown, OwnerID: "a", TargetID: "b",
		Y: env.Tuning.BodyHeight / 2, VX: env.Tuning.ProjectileSpeed,
		SpawnTick: env.Now(), Lifespan: 100, Radius: env.Tuning.ProjectileRadius,
	}
	grapple.Start(env, a)
	step(env, int(env.Tuning.GrabStartupTicks))
	if b.Activity.Kind != state.ActivityGrabbed {
		t.Fatalf("expected b grabbed, got %v", b.Activity.Kind)
	}
	// Close enough to overlap whether or not the push moves the clinch.
	proj.X = b.X - 59
	proj.SpawnTick = env.Now()
	a.Projectiles = append(a.Projectiles, proj)
	events := step(env, 1)
	if !has(events, match.EventProjectileHit) {
		t.Fatalf("expected hit on the grabbed player, got %+v", events)
	}
	if a.Activity.Kind == state.ActivityGrabbing || b.Activity.Kind == state.ActivityGrabbed {
		t.Fatalf("expected the grapple released, got %v/%v", a.Activity.Kind, b.Activity.Kind)
	}
}

func TestExpiresAfterLifespan(t *testing.T) {
	env, a, _ := newTestEnv(t, 400, 880)
	proj, _ := Spawn(env, a)
	proj.VX = 0
	proj.TargetID = ""
	step(env, int(proj.Lifespan)-1)
	if len(a.Projectiles) != 1 {
		t.Fatalf("expected projectile alive before its lifespan ends")
	}
	step(env, 1)
	if len(a.Projectiles) != 0 {
		t.Fatalf("expected projectile removed")
	}
}

func TestLeavesArena(t *testing.T) {
	env, a, _ := newTestEnv(t, 400, 880)
	a.Facing = -1
	proj, _ := Spawn(env, a)
	proj.TargetID = ""
	step(env, 60)
	if len(a.Projectiles) != 0 {
		t.Fatalf("expected projectile removed off the arena")
	}
}
