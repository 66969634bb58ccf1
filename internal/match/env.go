// Package match holds the per-room environment shared by the combat, grapple
// and projectile resolvers: the room, its tuning table, the deferred
// registry, the hitstop scheduler and the event buffer.
package match

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/config"
	"ringclash/server/internal/deferred"
	"ringclash/server/internal/hitstop"
	"ringclash/server/internal/state"
)

// Timer names. Scheduling a name again for the same entity replaces the
// pending callback.
const (
	TimerAttack  = "attack"
	TimerCycle   = "light-cycle"
	TimerCharge  = "charge"
	TimerRecover = "recover"
	TimerDodge   = "dodge"
	TimerGrab    = "grab"
	TimerGrapple = "grapple"
	TimerFinish  = "finish"
	TimerRound   = "round-reset"
)

// actionTimers are cancelled whenever a player's current action is cut
// short.
var actionTimers = []string{TimerAttack, TimerCycle, TimerCharge, TimerRecover, TimerDodge, TimerGrab}

// Env is the per-room context every resolver works against. It is owned by
// the room's tick driver.
type Env struct {
	Room     *state.Room
	Tuning   config.Tuning
	Registry *deferred.Registry
	Hitstop  *hitstop.Scheduler
	RNG      *rand.Rand

	events []CombatEvent
}

// NewEnv wires a registry and hitstop scheduler to room.
func NewEnv(room *state.Room, tuning config.Tuning, rng *rand.Rand) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	registry := deferred.NewRegistry()
	return &Env{
		Room:     room,
		Tuning:   tuning,
		Registry: registry,
		Hitstop:  hitstop.New(room, registry),
		RNG:      rng,
	}
}

// Now is the simulation clock.
func (e *Env) Now() uint64 {
	return e.Room.Now()
}

// Opponent returns the validated opponent of p, or nil.
func (e *Env) Opponent(p *state.Player) *state.Player {
	return e.Room.Opponent(p)
}

// After schedules fn delay simulation ticks from now. The timer is
// hitstop-aware: freezes pending or requested later push it out so the
// delay is measured on the simulation clock.
func (e *Env) After(entity, name string, delay uint64, fn func()) deferred.Handle {
	delay += e.Hitstop.Remaining(e.Room.Tick)
	opts := []deferred.Option{deferred.Compensated()}
	if name != "" {
		opts = append(opts, deferred.Named(name))
	}
	return e.Registry.Schedule(entity, delay, fn, opts...)
}

// AfterTicks schedules fn delay room ticks from now, ignoring hitstop. Used
// for sequences that must line up with a freeze, such as releasing the
// knockback of a finishing hit when its freeze ends.
func (e *Env) AfterTicks(entity, name string, delay uint64, fn func()) deferred.Handle {
	var opts []deferred.Option
	if name != "" {
		opts = append(opts, deferred.Named(name))
	}
	return e.Registry.Schedule(entity, delay, fn, opts...)
}

// Freeze requests a room-wide hitstop.
func (e *Env) Freeze(ticks uint64) uint64 {
	return e.Hitstop.Freeze(ticks)
}

// Interrupt cuts p's current action short: pending action timers are
// cancelled, the locks the action took are dropped and the player returns
// to idle. Grapples must be released through the grapple package first.
func (e *Env) Interrupt(p *state.Player) {
	if p == nil {
		return
	}
	p.ReleaseActionLock(p.Activity.Instance)
	if p.Activity.Kind == state.ActivityGrabStartup {
		p.InputLockUntil = 0
	}
	for _, name := range actionTimers {
		e.Registry.Cancel(p.ID, name)
	}
	p.Movement = mgl64.Vec2{}
	p.Idle(e.Now())
}

// Recover puts p into a recovery of kind for ticks, returning to idle when
// it elapses unless something else replaced the activity meanwhile.
func (e *Env) Recover(p *state.Player, kind state.RecoveryKind, ticks uint64) uint64 {
	attack := p.Activity.Attack
	instance := p.SetActivity(state.ActivityRecovering, e.Now())
	p.Activity.Recovery = kind
	p.Activity.Attack = attack
	for _, name := range actionTimers {
		e.Registry.Cancel(p.ID, name)
	}
	e.After(p.ID, TimerRecover, ticks, func() {
		if !p.Current(instance) {
			return
		}
		p.Idle(e.Now())
	})
	return instance
}

// Knock sets p's knockback velocity along dir.
func (e *Env) Knock(p *state.Player, dir, magnitude float64) {
	p.Knockback = mgl64.Vec2{dir * magnitude, 0}
}

// Clamp keeps p inside the arena bounds.
func (e *Env) Clamp(p *state.Player) {
	p.X = clamp(p.X, e.Tuning.ArenaLeft, e.Tuning.ArenaRight)
}

// OutsideRing reports whether x lies beyond the ring edge.
func (e *Env) OutsideRing(x float64) bool {
	return x < e.Tuning.RingLeft || x > e.Tuning.RingRight
}

// Distance is the horizontal distance between two players.
func Distance(a, b *state.Player) float64 {
	return math.Abs(a.X - b.X)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
