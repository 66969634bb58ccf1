package grapple

import (
	"ringclash/server/internal/combat"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

func stepGrabbing(env *match.Env, grabber *state.Player) {
	g := grabber.Activity.Grapple
	grabbed := partner(env, grabber)
	if g == nil || grabbed == nil {
		Release(env, grabber)
		return
	}
	now := env.Now()
	t := env.Tuning

	switch g.Phase {
	case state.GrapplePhaseDecision, state.GrapplePhasePush:
		if grabber.Input.Pressed(state.ButtonThrow) {
			openBranch(env, grabber, grabbed, state.GrapplePhaseThrow)
		} else if g.Phase == state.GrapplePhasePush && now-g.BranchTick >= t.PullGraceTicks && grabber.Input.IsHeld(backward(grabber)) {
			openBranch(env, grabber, grabbed, state.GrapplePhasePull)
		}
	}

	switch g.Phase {
	case state.GrapplePhasePush:
		stepPush(env, grabber, grabbed, g)
	case state.GrapplePhasePull, state.GrapplePhaseThrow:
		checkCounter(env, grabber, grabbed, g)
	}
}

func backward(p *state.Player) state.Buttons {
	if p.Facing > 0 {
		return state.ButtonLeft
	}
	return state.ButtonRight
}

func forward(p *state.Player) state.Buttons {
	if p.Facing > 0 {
		return state.ButtonRight
	}
	return state.ButtonLeft
}

// stepPush walks the clinch forward with a decaying burst. Once the grabbed
// player reaches the ring edge they are held there and their stamina drains;
// an empty bar carries them out.
func stepPush(env *match.Env, grabber, grabbed *state.Player, g *state.GrappleMeta) {
	t := env.Tuning
	now := env.Now()
	dir := grabber.Facing
	grabber.X += dir * g.PushSpeed

	limit := t.RingRight
	if dir < 0 {
		limit = t.RingLeft
	}
	// The grabbed player is held BoundaryMargin inside the edge.
	edge := limit - dir*t.BoundaryMargin
	pinnedX := grabber.X + dir*t.GrabOffset
	if (dir > 0 && pinnedX >= edge) || (dir < 0 && pinnedX <= edge) {
		grabber.X = edge - dir*t.GrabOffset
		env.Clamp(grabber)
		if !grabbed.AtBoundary {
			grabbed.AtBoundary = true
			env.Emit(match.EventPinned, grabber, grabbed)
		}
		grabbed.AddStamina(-t.PinStaminaDrain, t.StaminaMax)
		if grabbed.Stamina <= 0 {
			Release(env, grabber)
			grabbed.X = limit + dir
			combat.RingOut(env, grabbed)
			return
		}
	} else {
		env.Clamp(grabber)
		g.PushSpeed *= t.PushDecay
		if g.PushSpeed < t.PushSpeedFloor {
			endPush(env, grabber, grabbed)
			return
		}
	}
	if now-g.BranchTick >= t.PushMaxTicks {
		endPush(env, grabber, grabbed)
	}
}

func endPush(env *match.Env, grabber, grabbed *state.Player) {
	t := env.Tuning
	env.Registry.Cancel(grabber.ID, match.TimerGrapple)
	pin(env, grabber, grabbed)
	separate(env, grabber, grabbed)
	env.Recover(grabber, state.RecoveryGrapple, t.GrappleRecoveryTicks)
	env.Knock(grabbed, grabber.Facing, t.PushReleaseKnockback)
	grabbed.Stun(env.Now(), t.GrappleHitStunTicks/2)
	env.Emit(match.EventPushEnd, grabber, grabbed, match.WithMagnitude(t.PushReleaseKnockback))
}

// openBranch switches to pull or throw and opens the grabbed player's
// counter window. The branch resolves for the grabber when it elapses.
func openBranch(env *match.Env, grabber, grabbed *state.Player, phase state.GrapplePhase) {
	t := env.Tuning
	g := grabber.Activity.Grapple
	id := g.ID
	setPhase(grabber, grabbed, phase, env.Now())
	g.PushSpeed = 0
	grabbed.AtBoundary = false
	env.After(grabber.ID, match.TimerGrapple, t.CounterWindowTicks, func() {
		other := current(env, grabber, id)
		if other == nil || grabber.Activity.Grapple.Phase != phase {
			return
		}
		resolveBranch(env, grabber, other, phase)
	})
}

// checkCounter commits the grabbed player's first directional or guard press
// inside the window. Only that press counts.
func checkCounter(env *match.Env, grabber, grabbed *state.Player, g *state.GrappleMeta) {
	gm := grabbed.Activity.Grapple
	if gm == nil || gm.CounterAttempted {
		return
	}
	press, ok := grabbed.Input.FirstPress(state.ButtonDirections | state.ButtonGuard)
	if !ok {
		return
	}
	gm.CounterAttempted = true
	gm.Counter = press
	if press == counterFor(grabber, g.Phase) {
		breakGrapple(env, grabber, grabbed)
	}
}

// counterFor is the press that breaks a branch: guard against a throw, and
// against a pull the direction the grabber faces, opposite to the pull.
func counterFor(grabber *state.Player, phase state.GrapplePhase) state.Buttons {
	switch phase {
	case state.GrapplePhaseThrow:
		return state.ButtonGuard
	case state.GrapplePhasePull:
		return forward(grabber)
	default:
		return 0
	}
}

func breakGrapple(env *match.Env, grabber, grabbed *state.Player) {
	t := env.Tuning
	env.Registry.Cancel(grabber.ID, match.TimerGrapple)
	separate(env, grabber, grabbed)
	for _, pair := range [2][2]*state.Player{{grabber, grabbed}, {grabbed, grabber}} {
		p, other := pair[0], pair[1]
		env.Recover(p, state.RecoveryGrapple, t.GrappleRecoveryTicks)
		env.Knock(p, -p.DirectionTo(other), t.BreakKnockback)
	}
	env.Freeze(t.BreakFreezeTicks)
	env.Emit(match.EventGrappleBreak, grabbed, grabber, match.WithMagnitude(t.BreakKnockback))
}

func resolveBranch(env *match.Env, grabber, grabbed *state.Player, phase state.GrapplePhase) {
	t := env.Tuning
	now := env.Now()
	dir := grabber.Facing
	separate(env, grabber, grabbed)
	env.Recover(grabber, state.RecoveryGrapple, t.GrappleRecoveryTicks)
	switch phase {
	case state.GrapplePhaseThrow:
		env.Knock(grabbed, dir, t.ThrowKnockback)
		grabbed.Stun(now, t.GrappleHitStunTicks)
		env.Emit(match.EventThrow, grabber, grabbed, match.WithMagnitude(t.ThrowKnockback))
	case state.GrapplePhasePull:
		grabbed.X = grabber.X - dir*t.GrabOffset
		env.Clamp(grabbed)
		grabbed.Facing = dir
		env.Knock(grabbed, -dir, t.PullKnockback)
		grabbed.Stun(now, t.GrappleHitStunTicks)
		env.Emit(match.EventPull, grabber, grabbed, match.WithMagnitude(t.PullKnockback))
	}
}
