// Package combat resolves strikes between the two contestants: hit tests,
// simultaneous-action tie-breaks, knockback and ring-out prediction, plus the
// strike, guard and dodge action starts.
package combat

import (
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// Resolve runs the per-tick strike resolution. Tie-breaks are evaluated in
// priority order: simultaneous light attacks parry, heavy against heavy
// clashes, heavy against light goes by charge priority. Remaining strikes
// are evaluated for both sides before either is applied, so the result never
// depends on slot order.
func Resolve(env *match.Env) {
	room := env.Room
	if room.Phase != state.PhaseFighting {
		return
	}
	a, b := room.Slots[0], room.Slots[1]
	if a == nil || b == nil || !a.Connected || !b.Connected {
		return
	}
	now := env.Now()

	if resolveLightParry(env, a, b, now) {
		return
	}
	if resolveHeavyClash(env, a, b, now) {
		return
	}
	if resolveHeavyVsLight(env, a, b, now) || resolveHeavyVsLight(env, b, a, now) {
		return
	}

	first := checkStrike(env, a, b, now)
	second := checkStrike(env, b, a, now)
	if first != nil {
		first.apply(env)
	}
	if second != nil {
		second.apply(env)
	}
}

func attackOf(p *state.Player, kind state.AttackType) *state.AttackMeta {
	if p.Activity.Kind != state.ActivityAttacking {
		return nil
	}
	meta := p.Activity.Attack
	if meta == nil || meta.Type != kind || meta.Hit {
		return nil
	}
	return meta
}

func tickDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// resolveLightParry bounces both attackers when their light attacks become
// active within the parry window of each other. The comparison uses the
// projected active ticks, so it fires as soon as the earlier one is active.
func resolveLightParry(env *match.Env, a, b *state.Player, now uint64) bool {
	t := env.Tuning
	ma, mb := attackOf(a, state.AttackLight), attackOf(b, state.AttackLight)
	if ma == nil || mb == nil {
		return false
	}
	if !ma.Active(now) && !mb.Active(now) {
		return false
	}
	if tickDiff(ma.ActiveTick, mb.ActiveTick) > t.ParryWindowTicks {
		return false
	}
	if a.Immune(now) || b.Immune(now) {
		return false
	}
	if !LightConnects(t, a, b, ma.Facing) || !LightConnects(t, b, a, mb.Facing) {
		return false
	}
	ma.Hit, mb.Hit = true, true
	for _, pair := range [2][2]*state.Player{{a, b}, {b, a}} {
		p, other := pair[0], pair[1]
		env.Recover(p, state.RecoveryParry, t.LightRecoveryTicks)
		env.Knock(p, -p.DirectionTo(other), t.ParryKnockback)
		p.GrantImmunity(now, t.HitImmunityTicks)
	}
	env.Freeze(t.ParryFreezeTicks)
	env.Emit(match.EventParry, a, b, match.WithMagnitude(t.ParryKnockback))
	return true
}

// resolveHeavyClash cancels two active heavy attacks against each other. A
// side holding an absorption charge spends it and keeps its attack instead.
func resolveHeavyClash(env *match.Env, a, b *state.Player, now uint64) bool {
	t := env.Tuning
	ma, mb := attackOf(a, state.AttackHeavy), attackOf(b, state.AttackHeavy)
	if ma == nil || mb == nil || !ma.Active(now) || !mb.Active(now) {
		return false
	}
	if !HeavyConnects(t, a, b, ma.Facing) && !HeavyConnects(t, b, a, mb.Facing) {
		return false
	}
	absorbA, absorbB := a.AbsorbCharges > 0, b.AbsorbCharges > 0
	if absorbA != absorbB {
		winner, loser, wm, lm := a, b, ma, mb
		if absorbB {
			winner, loser, wm, lm = b, a, mb, ma
		}
		winner.AbsorbCharges--
		lm.Hit = true
		env.Emit(match.EventAbsorbed, winner, loser)
		if HeavyConnects(t, winner, loser, wm.Facing) && state.Hittable(loser, now) {
			s := &pendingStrike{attacker: winner, defender: loser, meta: wm, ctx: hitContext(env, winner, loser, wm)}
			s.apply(env)
		}
		return true
	}

	ma.Hit, mb.Hit = true, true
	for _, pair := range [2][2]*state.Player{{a, b}, {b, a}} {
		p, other := pair[0], pair[1]
		own, theirs := p.Activity.Attack.Charge, other.Activity.Attack.Charge
		kb := ClashKnockback(t, own, theirs)
		env.Recover(p, state.RecoveryClash, t.ClashRecoveryTicks)
		env.Knock(p, -p.DirectionTo(other), kb)
	}
	freeze := ClashFreeze(t, ma.Charge, mb.Charge)
	env.Freeze(freeze)
	env.Emit(match.EventClash, a, b, match.WithMagnitude(float64(freeze)))
	return true
}

// resolveHeavyVsLight settles a heavy and a light attack that connect with
// each other on the same tick. A heavy at or above the priority charge wins
// outright; below it the heavy is suppressed and its owner takes the light
// hit with the loss penalty.
func resolveHeavyVsLight(env *match.Env, heavy, light *state.Player, now uint64) bool {
	t := env.Tuning
	hm, lm := attackOf(heavy, state.AttackHeavy), attackOf(light, state.AttackLight)
	if hm == nil || lm == nil || !hm.Active(now) || !lm.Active(now) {
		return false
	}
	if heavy.Immune(now) || light.Immune(now) {
		return false
	}
	if !HeavyConnects(t, heavy, light, hm.Facing) || !LightConnects(t, light, heavy, lm.Facing) {
		return false
	}
	if hm.Charge >= t.HeavyPriorityCharge {
		lm.Hit = true
		s := &pendingStrike{attacker: heavy, defender: light, meta: hm, ctx: hitContext(env, heavy, light, hm)}
		s.apply(env)
		return true
	}
	hm.Penalized = true
	hm.Hit = true
	s := &pendingStrike{attacker: light, defender: heavy, meta: lm, ctx: hitContext(env, light, heavy, lm)}
	s.apply(env)
	return true
}

type pendingStrike struct {
	attacker *state.Player
	defender *state.Player
	meta     *state.AttackMeta
	ctx      HitContext
	guarded  bool
	perfect  bool
}

func hitContext(env *match.Env, attacker, defender *state.Player, meta *state.AttackMeta) HitContext {
	ctx := HitContext{
		Type:      meta.Type,
		Charge:    meta.Charge,
		Counter:   CounterHit(env, defender),
		Punish:    Punish(defender),
		Crouching: defender.Crouching,
		Powered:   attacker.PowerUp == state.PowerUpPower,
	}
	if defender.Activity.Attack != nil && defender.Activity.Attack.Penalized {
		ctx.Penalized = true
	}
	return ctx
}

// checkStrike decides, without mutating anything, whether attacker's active
// attack lands on defender this tick.
func checkStrike(env *match.Env, attacker, defender *state.Player, now uint64) *pendingStrike {
	t := env.Tuning
	if attacker.Activity.Kind != state.ActivityAttacking {
		return nil
	}
	meta := attacker.Activity.Attack
	if meta == nil || meta.Hit || !meta.Active(now) {
		return nil
	}
	if attacker.Immune(now) || !state.Hittable(defender, now) {
		return nil
	}
	if !Connects(t, attacker, defender) {
		return nil
	}
	if defender.Activity.Kind == state.ActivityGrabStartup && meta.Type == state.AttackLight {
		// Whichever becomes active first wins; ties go to the strike.
		if g := defender.Activity.Grapple; g != nil && g.StartTick+t.GrabStartupTicks < meta.ActiveTick {
			return nil
		}
	}
	s := &pendingStrike{attacker: attacker, defender: defender, meta: meta}
	if defender.Activity.Kind == state.ActivityGuarding && defender.Facing == defender.DirectionTo(attacker) {
		s.guarded = true
		s.perfect = PerfectGuard(env, defender)
		return s
	}
	s.ctx = hitContext(env, attacker, defender, meta)
	return s
}

func (s *pendingStrike) apply(env *match.Env) {
	if s.guarded {
		guardParry(env, s.attacker, s.defender, s.meta, s.perfect)
		return
	}
	applyHit(env, s.attacker, s.defender, s.meta, s.ctx)
}

func applyHit(env *match.Env, attacker, defender *state.Player, meta *state.AttackMeta, ctx HitContext) {
	t := env.Tuning
	now := env.Now()
	meta.Hit = true
	dir := meta.Facing
	if dir == 0 {
		dir = attacker.DirectionTo(defender)
	}
	kb := Knockback(t, ctx)

	if meta.Type == state.AttackHeavy {
		if exit, _ := PredictRingOut(t, defender.X, dir*kb); exit {
			finish(env, attacker, defender, dir, kb)
			return
		}
	}

	env.Interrupt(defender)
	env.Knock(defender, dir, kb)
	stun, freeze := t.LightHitStunTicks, t.LightFreezeTicks
	if meta.Type == state.AttackHeavy {
		stun, freeze = t.HeavyHitStunTicks, t.HeavyFreezeTicks
	}
	defender.Stun(now, stun)
	env.Freeze(freeze)
	env.Emit(match.EventHit, attacker, defender,
		match.WithRole(meta.Type.String()),
		match.WithMagnitude(kb),
		match.WithModifiers(ctx.Counter, ctx.Punish),
	)
}

// guardParry handles a strike landing on a raised guard that faces the
// attacker. The attack is cancelled and the attacker is knocked back and
// stunned; inside the perfect window the stun is longer and the defender
// gets stamina back.
func guardParry(env *match.Env, attacker, defender *state.Player, meta *state.AttackMeta, perfect bool) {
	t := env.Tuning
	now := env.Now()
	meta.Hit = true
	stun := t.GuardStunTicks
	kind := match.EventGuardParry
	if perfect {
		stun = t.PerfectGuardStunTicks
		kind = match.EventPerfectParry
		defender.AddStamina(t.PerfectStaminaRefund, t.StaminaMax)
	}
	env.Recover(attacker, state.RecoveryGuarded, stun)
	env.Knock(attacker, defender.DirectionTo(attacker), t.GuardKnockback)
	attacker.Stun(now, stun)
	env.Emit(kind, defender, attacker, match.WithRole(meta.Type.String()), match.WithMagnitude(t.GuardKnockback))
}
