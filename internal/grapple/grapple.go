// Package grapple drives the grab mini-game: the startup lunge, tech and
// whiff outcomes, the pinned clinch with its push, pull and throw branches,
// the grabbed player's single counter input, and the simultaneous-grab mash
// clash.
//
// Every deferred callback captures the grapple ID it was scheduled for and
// does nothing once that grapple is no longer current.
package grapple

import (
	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// Start begins a grab: a short lunge during which the player is committed.
// The outcome is decided by Step once the startup elapses. A grab started
// within the clash threshold of the opponent's own grab opens a mash clash
// instead, provided each player is within grab range of the other.
func Start(env *match.Env, p *state.Player) bool {
	now := env.Now()
	t := env.Tuning
	if !state.CanGrab(p, now, t) {
		return false
	}
	p.AddStamina(-t.GrabStaminaCost, t.StaminaMax)
	p.LastIntentTick = now

	opp := env.Opponent(p)
	if opp != nil && opp.Activity.Kind == state.ActivityGrabStartup {
		g := opp.Activity.Grapple
		if g != nil && tickDiff(g.StartTick, now) <= t.GrabClashThresholdTicks && mutualRange(env, p, opp) {
			startClash(env, p, opp)
			return true
		}
	}

	instance := p.SetActivity(state.ActivityGrabStartup, now)
	meta := &state.GrappleMeta{
		ID:        env.Room.NextGrappleID(),
		Role:      state.RoleGrabber,
		Phase:     state.GrapplePhaseStartup,
		StartTick: now,
	}
	if opp != nil {
		meta.OpponentID = opp.ID
	}
	p.Activity.Grapple = meta
	p.Movement = mgl64.Vec2{p.Facing * t.GrabLungeSpeed, 0}
	until := now + t.GrabStartupTicks
	if until > p.InputLockUntil {
		p.InputLockUntil = until
	}
	p.ExtendActionLock(until, instance)
	return true
}

// ActiveTick is the tick a grab startup resolves on.
func ActiveTick(env *match.Env, p *state.Player) (uint64, bool) {
	if p.Activity.Kind != state.ActivityGrabStartup || p.Activity.Grapple == nil {
		return 0, false
	}
	return p.Activity.Grapple.StartTick + env.Tuning.GrabStartupTicks, true
}

// Step advances every grapple in the room by one tick. It runs after the
// strike resolver, so a strike that becomes active on the same tick as a
// grab lands first.
func Step(env *match.Env) {
	room := env.Room
	if room.Phase != state.PhaseFighting {
		return
	}
	if room.GrabClash != nil {
		stepClash(env)
	}
	now := env.Now()
	for _, p := range room.Players() {
		if p.Activity.Kind != state.ActivityGrabStartup {
			continue
		}
		if active, ok := ActiveTick(env, p); ok && now >= active {
			resolveStartup(env, p)
		}
	}
	for _, p := range room.Players() {
		if p.Activity.Kind == state.ActivityGrabbing {
			stepGrabbing(env, p)
		}
	}
	for _, p := range room.Players() {
		if p.Activity.Kind == state.ActivityGrabbing {
			if grabbed := partner(env, p); grabbed != nil {
				pin(env, p, grabbed)
			}
		}
	}
}

func resolveStartup(env *match.Env, p *state.Player) {
	t := env.Tuning
	g := p.Activity.Grapple
	p.ReleaseActionLock(p.Activity.Instance)
	p.Movement = mgl64.Vec2{}

	opp := env.Opponent(p)
	if opp == nil {
		whiff(env, p, nil)
		return
	}
	if opp.Activity.Kind == state.ActivityGrabStartup {
		og := opp.Activity.Grapple
		if og != nil && tickDiff(og.StartTick, g.StartTick) <= t.GrabTechToleranceTicks && mutualRange(env, p, opp) {
			tech(env, p, opp)
			return
		}
	}
	if !inRange(env, p, opp) || !state.Hittable(opp, env.Now()) {
		whiff(env, p, opp)
		return
	}
	connect(env, p, opp, g.ID, g.StartTick)
}

func inRange(env *match.Env, p, opp *state.Player) bool {
	dx := opp.X - p.X
	if dx*p.Facing < 0 {
		return false
	}
	return match.Distance(p, opp) <= env.Tuning.GrabRange
}

func mutualRange(env *match.Env, a, b *state.Player) bool {
	return inRange(env, a, b) && inRange(env, b, a)
}

func whiff(env *match.Env, p, opp *state.Player) {
	instance := p.SetActivity(state.ActivityGrabWhiff, env.Now())
	env.Emit(match.EventGrabWhiff, p, opp)
	env.After(p.ID, match.TimerGrab, env.Tuning.GrabWhiffRecoveryTicks, func() {
		if !p.Current(instance) {
			return
		}
		p.Idle(env.Now())
	})
}

func tech(env *match.Env, a, b *state.Player) {
	t := env.Tuning
	for _, pair := range [2][2]*state.Player{{a, b}, {b, a}} {
		p, other := pair[0], pair[1]
		p.ReleaseActionLock(p.Activity.Instance)
		p.Movement = mgl64.Vec2{}
		env.Recover(p, state.RecoveryTech, t.GrappleRecoveryTicks)
		env.Knock(p, -p.DirectionTo(other), t.TechKnockback)
	}
	env.Freeze(t.TechFreezeTicks)
	env.Emit(match.EventGrabTech, a, b, match.WithMagnitude(t.TechKnockback))
}

// connect establishes the clinch. The grabbed player's current action is cut
// short and a one-tick decision phase starts before the push.
func connect(env *match.Env, grabber, grabbed *state.Player, id, started uint64) {
	now := env.Now()
	env.Interrupt(grabbed)
	grabbed.ReleaseActionLock(grabbed.ActionLockOwner)
	grabbed.Knockback = mgl64.Vec2{}

	grabber.SetActivity(state.ActivityGrabbing, now)
	grabber.Activity.Grapple = &state.GrappleMeta{
		ID:         id,
		Role:       state.RoleGrabber,
		OpponentID: grabbed.ID,
		Phase:      state.GrapplePhaseDecision,
		StartTick:  started,
		BranchTick: now,
	}
	grabber.Movement = mgl64.Vec2{}
	grabber.Knockback = mgl64.Vec2{}

	grabbed.SetActivity(state.ActivityGrabbed, now)
	grabbed.Activity.Grapple = &state.GrappleMeta{
		ID:         id,
		Role:       state.RoleGrabbed,
		OpponentID: grabber.ID,
		Phase:      state.GrapplePhaseDecision,
		StartTick:  started,
		BranchTick: now,
	}
	pin(env, grabber, grabbed)
	env.Emit(match.EventGrabConnect, grabber, grabbed)

	env.After(grabber.ID, match.TimerGrapple, 1, func() {
		other := current(env, grabber, id)
		if other == nil || grabber.Activity.Grapple.Phase != state.GrapplePhaseDecision {
			return
		}
		setPhase(grabber, other, state.GrapplePhasePush, env.Now())
		grabber.Activity.Grapple.PushSpeed = env.Tuning.PushSpeed
	})
}

// current returns the grabbed partner when grabber still holds grapple id.
func current(env *match.Env, grabber *state.Player, id uint64) *state.Player {
	if grabber.Activity.Kind != state.ActivityGrabbing {
		return nil
	}
	g := grabber.Activity.Grapple
	if g == nil || g.ID != id {
		return nil
	}
	return partner(env, grabber)
}

// partner returns the other participant when both sides agree on the
// grapple.
func partner(env *match.Env, p *state.Player) *state.Player {
	g := p.Grapple()
	if g == nil {
		return nil
	}
	other := env.Room.Player(g.OpponentID)
	if other == nil || !other.Connected {
		return nil
	}
	og := other.Grapple()
	if og == nil || og.ID != g.ID {
		return nil
	}
	return other
}

func setPhase(grabber, grabbed *state.Player, phase state.GrapplePhase, now uint64) {
	for _, p := range []*state.Player{grabber, grabbed} {
		if g := p.Activity.Grapple; g != nil {
			g.Phase = phase
			g.BranchTick = now
		}
	}
}

// pin places the grabbed player at the grabber's fixed offset.
func pin(env *match.Env, grabber, grabbed *state.Player) {
	grabbed.X = grabber.X + grabber.Facing*env.Tuning.GrabOffset
	grabbed.Y = grabber.Y
	grabbed.Facing = -grabber.Facing
	env.Clamp(grabbed)
}

// Release breaks whatever grapple p takes part in, returning both
// participants to idle. It is used when something outside the clinch, such
// as a projectile hit or a disconnect, ends it.
func Release(env *match.Env, p *state.Player) bool {
	if p == nil {
		return false
	}
	switch p.Activity.Kind {
	case state.ActivityGrabStartup:
		p.ReleaseActionLock(p.Activity.Instance)
		env.Interrupt(p)
		return true
	case state.ActivityGrabClash:
		releaseClash(env)
		return true
	case state.ActivityGrabbing, state.ActivityGrabbed:
	default:
		return false
	}
	other := partner(env, p)
	grabber := p
	if p.Activity.Kind == state.ActivityGrabbed {
		grabber = other
	}
	if grabber != nil {
		env.Registry.Cancel(grabber.ID, match.TimerGrapple)
	}
	separate(env, p, other)
	return true
}

// separate returns both participants to idle. Either may be nil.
func separate(env *match.Env, a, b *state.Player) {
	for _, p := range []*state.Player{a, b} {
		if p == nil {
			continue
		}
		p.AtBoundary = false
		env.Interrupt(p)
	}
}

func tickDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
