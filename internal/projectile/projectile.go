// Package projectile moves the ranged entities spawned by power-up specials
// and resolves their contact with the current target independently of the
// strike resolver.
package projectile

import (
	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/combat"
	"ringclash/server/internal/grapple"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// Spawn fires p's power-up special: a projectile launched from the front of
// the body towards the opponent.
func Spawn(env *match.Env, p *state.Player) (*state.Projectile, bool) {
	now := env.Now()
	t := env.Tuning
	if !state.CanSpecial(p, now) {
		return nil, false
	}
	proj := &state.Projectile{
		ID:        env.Room.NextProjectileID(),
		OwnerID:   p.ID,
		SpawnTick: now,
		Y:         p.Y*t.AirborneLift + t.BodyHeight/2,
	}
	switch p.PowerUp {
	case state.PowerUpThrown:
		proj.Kind = state.ProjectileThrown
		proj.VX = p.Facing * t.ProjectileSpeed
		proj.Radius = t.ProjectileRadius
		proj.Lifespan = t.ProjectileLifespanTicks
	case state.PowerUpSummon:
		proj.Kind = state.ProjectileSummon
		proj.VX = p.Facing * t.SummonSpeed
		proj.Radius = t.SummonRadius
		proj.Lifespan = t.SummonLifespanTicks
	default:
		return nil, false
	}
	proj.X = p.X + p.Facing*(t.BodyWidth/2+proj.Radius)
	if opp := env.Opponent(p); opp != nil {
		proj.TargetID = opp.ID
	}
	p.Projectiles = append(p.Projectiles, proj)
	p.SpecialReadyAt = now + t.ProjectileCooldownTicks
	p.LastIntentTick = now
	env.Emit(match.EventProjectileSpawned, p, nil, match.WithRole(proj.Kind.String()))
	return proj, true
}

// Step advances every live projectile by one tick and drops the ones that
// expired, left the arena or were consumed on contact.
func Step(env *match.Env) {
	for _, owner := range env.Room.Players() {
		if len(owner.Projectiles) == 0 {
			continue
		}
		kept := owner.Projectiles[:0]
		for _, proj := range owner.Projectiles {
			if advance(env, owner, proj) {
				kept = append(kept, proj)
			}
		}
		for i := len(kept); i < len(owner.Projectiles); i++ {
			owner.Projectiles[i] = nil
		}
		owner.Projectiles = kept
	}
}

// advance moves proj and reports whether it survives the tick.
func advance(env *match.Env, owner *state.Player, proj *state.Projectile) bool {
	t := env.Tuning
	now := env.Now()
	if now-proj.SpawnTick >= proj.Lifespan {
		return false
	}
	proj.X += proj.VX
	if proj.X+proj.Radius < t.ArenaLeft || proj.X-proj.Radius > t.ArenaRight {
		return false
	}
	target := env.Room.Player(proj.TargetID)
	if target == nil || !target.Connected {
		return true
	}
	center := mgl64.Vec2{proj.X, proj.Y}
	if !combat.CircleBoxOverlap(center, proj.Radius, combat.Body(t, target)) {
		return true
	}
	switch target.Activity.Kind {
	case state.ActivityDodging, state.ActivityRingOut:
		return true
	}
	if target.Immune(now) {
		return true
	}
	return !contact(env, owner, target, proj)
}

// contact resolves a projectile touching its target and reports whether the
// projectile was consumed.
func contact(env *match.Env, owner, target *state.Player, proj *state.Projectile) bool {
	t := env.Tuning
	now := env.Now()

	if target.AbsorbCharges > 0 {
		target.AbsorbCharges--
		env.Emit(match.EventProjectileAbsorbed, target, owner)
		return true
	}

	if target.Activity.Kind == state.ActivityGuarding && target.Facing == incoming(target, proj) {
		if combat.PerfectGuard(env, target) && !proj.Reflected {
			proj.VX = -proj.VX
			proj.Reflected = true
			proj.TargetID = retarget(owner, target)
			proj.X = target.X + target.Facing*(t.BodyWidth/2+proj.Radius)
			env.Emit(match.EventProjectileReflected, target, owner)
			return false
		}
		env.Emit(match.EventProjectileBlocked, target, owner)
		return true
	}

	if target.Grapple() != nil || target.Activity.Kind == state.ActivityGrabClash {
		grapple.Release(env, target)
	}
	env.Interrupt(target)
	dir := 1.0
	if proj.VX < 0 {
		dir = -1
	}
	env.Knock(target, dir, t.ProjectileKnockback)
	target.Stun(now, t.ProjectileStunTicks)
	proj.Hit = true
	env.Emit(match.EventProjectileHit, owner, target,
		match.WithRole(proj.Kind.String()),
		match.WithMagnitude(t.ProjectileKnockback),
	)
	return true
}

// incoming is the side of target the projectile arrives from.
func incoming(target *state.Player, proj *state.Projectile) float64 {
	switch {
	case proj.X > target.X:
		return 1
	case proj.X < target.X:
		return -1
	case proj.VX > 0:
		return -1
	default:
		return 1
	}
}

// retarget flips a reflected projectile back to whoever launched it. A
// projectile reflected by its own owner targets nobody.
func retarget(owner, reflector *state.Player) string {
	if owner.ID == reflector.ID {
		return ""
	}
	return owner.ID
}
