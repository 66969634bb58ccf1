package combat

import (
	"ringclash/server/internal/config"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// HitContext captures the modifiers of one confirmed hit.
type HitContext struct {
	Type      state.AttackType
	Charge    float64
	Counter   bool
	Punish    bool
	Crouching bool
	Powered   bool
	Penalized bool
}

// CounterHit reports whether the defender was mid-startup or had just
// declared an attack or grab.
func CounterHit(env *match.Env, defender *state.Player) bool {
	now := env.Now()
	switch defender.Activity.Kind {
	case state.ActivityCharging, state.ActivityGrabStartup:
		return true
	case state.ActivityAttacking:
		if defender.Activity.Attack.InStartup(now) {
			return true
		}
	}
	if defender.LastIntentTick == 0 || defender.LastIntentTick > now {
		return false
	}
	return now-defender.LastIntentTick <= env.Tuning.CounterIntentWindowTicks
}

// Punish reports whether the defender was recovering or whiffed a grab.
func Punish(defender *state.Player) bool {
	switch defender.Activity.Kind {
	case state.ActivityRecovering, state.ActivityGrabWhiff:
		return true
	default:
		return false
	}
}

// Knockback is base(type) × (1 + charge/100 × scaling) × modifiers.
func Knockback(t config.Tuning, ctx HitContext) float64 {
	var base float64
	switch ctx.Type {
	case state.AttackLight:
		base = t.LightKnockback
	case state.AttackHeavy:
		base = t.HeavyKnockback
	default:
		return 0
	}
	kb := base * (1 + ctx.Charge/100*t.ChargeScaling)
	if ctx.Counter {
		kb *= t.CounterHitMultiplier
	}
	if ctx.Punish {
		kb *= t.PunishMultiplier
	}
	if ctx.Crouching {
		kb *= t.CrouchReduction
	}
	if ctx.Powered {
		kb *= t.PowerMultiplier
	}
	if ctx.Penalized {
		kb *= t.HeavyLossPenalty
	}
	return kb
}

// ClashKnockback scales a clash bounce by relative charge: the side with more
// charge is pushed back less.
func ClashKnockback(t config.Tuning, own, other float64) float64 {
	kb := t.ClashKnockback * (1 + (other-own)/100*t.ClashChargeScale)
	if kb < t.ClashMinKnockback {
		kb = t.ClashMinKnockback
	}
	return kb
}

// ClashFreeze is proportional to the combined charge.
func ClashFreeze(t config.Tuning, a, b float64) uint64 {
	return t.ClashFreezeBaseTicks + uint64((a+b)*t.ClashFreezePerCharge)
}
