package combat

import (
	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// StartLight begins a light attack. Holding the button keeps the attack
// cycling: the recovery end is a named hitstop-aware timer that either
// returns to idle or starts the next swing.
func StartLight(env *match.Env, p *state.Player) bool {
	now := env.Now()
	if !state.CanAct(p, now) {
		return false
	}
	t := env.Tuning
	instance := p.SetActivity(state.ActivityAttacking, now)
	meta := &state.AttackMeta{
		Type:       state.AttackLight,
		StartTick:  now,
		ActiveTick: now + t.LightStartupTicks,
		EndTick:    now + t.LightStartupTicks + t.LightActiveTicks,
		Facing:     p.Facing,
	}
	p.Activity.Attack = meta
	p.LastIntentTick = now
	p.Movement = mgl64.Vec2{}

	env.After(p.ID, match.TimerAttack, t.LightStartupTicks+t.LightActiveTicks, func() {
		if !p.Current(instance) {
			return
		}
		p.SetActivity(state.ActivityRecovering, env.Now())
		p.Activity.Recovery = state.RecoveryAttack
		p.Activity.Attack = meta
	})
	env.After(p.ID, match.TimerCycle, t.LightStartupTicks+t.LightActiveTicks+t.LightRecoveryTicks, func() {
		if p.Activity.Kind != state.ActivityRecovering || p.Activity.Attack != meta {
			return
		}
		p.Idle(env.Now())
		if p.Input.IsHeld(state.ButtonLight) {
			StartLight(env, p)
		}
	})
	return true
}

// StartCharge begins charging a heavy attack. The attack releases on button
// release or automatically at full charge.
func StartCharge(env *match.Env, p *state.Player) bool {
	now := env.Now()
	if !state.CanAct(p, now) {
		return false
	}
	instance := p.SetActivity(state.ActivityCharging, now)
	p.Activity.Attack = &state.AttackMeta{
		Type:        state.AttackHeavy,
		ChargeStart: now,
		Facing:      p.Facing,
	}
	p.LastIntentTick = now
	p.Movement = mgl64.Vec2{}
	env.After(p.ID, match.TimerCharge, env.Tuning.HeavyFullChargeTicks, func() {
		if !p.Current(instance) {
			return
		}
		ReleaseHeavy(env, p)
	})
	return true
}

// ChargeAmount reports the 0..100 charge accumulated by a charging player.
func ChargeAmount(env *match.Env, p *state.Player) float64 {
	meta := p.Activity.Attack
	if p.Activity.Kind != state.ActivityCharging || meta == nil {
		return 0
	}
	full := env.Tuning.HeavyFullChargeTicks
	if full == 0 {
		return 100
	}
	elapsed := env.Now() - meta.ChargeStart
	charge := float64(elapsed) / float64(full) * 100
	if charge > 100 {
		charge = 100
	}
	return charge
}

// ReleaseHeavy turns a charge into an attack. The release is
// uninterruptible by the player's own inputs until the active window ends.
func ReleaseHeavy(env *match.Env, p *state.Player) bool {
	if p.Activity.Kind != state.ActivityCharging || p.Activity.Attack == nil {
		return false
	}
	now := env.Now()
	t := env.Tuning
	meta := p.Activity.Attack
	meta.Charge = ChargeAmount(env, p)
	meta.StartTick = now
	meta.ActiveTick = now + t.HeavyStartupTicks
	meta.EndTick = now + t.HeavyStartupTicks + t.HeavyActiveTicks
	meta.Facing = p.Facing

	env.Registry.Cancel(p.ID, match.TimerCharge)
	instance := p.SetActivity(state.ActivityAttacking, now)
	p.Activity.Attack = meta
	p.ExtendActionLock(meta.EndTick, instance)

	env.After(p.ID, match.TimerAttack, t.HeavyStartupTicks+t.HeavyActiveTicks, func() {
		if !p.Current(instance) {
			return
		}
		p.ReleaseActionLock(instance)
		env.Recover(p, state.RecoveryAttack, t.HeavyRecoveryTicks)
	})
	return true
}

// StartGuard raises the guard stance. The first PerfectParryTicks of the
// stance form the perfect sub-window.
func StartGuard(env *match.Env, p *state.Player) bool {
	now := env.Now()
	if !state.CanGuard(p, now, env.Tuning) {
		return false
	}
	p.AddStamina(-env.Tuning.GuardStaminaCost, env.Tuning.StaminaMax)
	p.SetActivity(state.ActivityGuarding, now)
	p.Movement = mgl64.Vec2{}
	return true
}

// EndGuard lowers the guard stance.
func EndGuard(env *match.Env, p *state.Player) bool {
	if p.Activity.Kind != state.ActivityGuarding {
		return false
	}
	p.Idle(env.Now())
	return true
}

// PerfectGuard reports whether p's guard stance is inside its perfect
// sub-window.
func PerfectGuard(env *match.Env, p *state.Player) bool {
	if p.Activity.Kind != state.ActivityGuarding {
		return false
	}
	return env.Now()-p.Activity.Since < env.Tuning.PerfectParryTicks
}

// StartDodge dashes along dir (or backwards when dir is zero). Dodging
// players cannot be hit; a dodge cancels a charge.
func StartDodge(env *match.Env, p *state.Player, dir float64) bool {
	now := env.Now()
	t := env.Tuning
	if !state.CanDodge(p, now, t) {
		return false
	}
	if dir == 0 {
		dir = -p.Facing
	}
	env.Interrupt(p)
	p.AddStamina(-t.DodgeStaminaCost, t.StaminaMax)
	instance := p.SetActivity(state.ActivityDodging, now)
	p.Movement = mgl64.Vec2{dir * t.DodgeSpeed, 0}
	p.ExtendActionLock(now+t.DodgeTicks, instance)
	p.DodgeReadyAt = now + t.DodgeTicks + t.DodgeCooldownTicks
	env.After(p.ID, match.TimerDodge, t.DodgeTicks, func() {
		if !p.Current(instance) {
			return
		}
		p.ReleaseActionLock(instance)
		p.Movement = mgl64.Vec2{}
		p.Idle(env.Now())
	})
	env.Emit(match.EventDodge, p, nil)
	return true
}
