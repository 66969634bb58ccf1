package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/combat"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// integrate moves every free body by its movement and knockback velocities.
// Voluntary movement stops at the ring edge; knockback does not, and a body
// carried past the edge while the round is being fought rings out. Grapple
// participants are positioned by the grapple step.
func integrate(env *match.Env) {
	t := env.Tuning
	room := env.Room
	for _, p := range room.Players() {
		switch p.Activity.Kind {
		case state.ActivityGrabbing, state.ActivityGrabbed, state.ActivityGrabClash:
			continue
		}

		if m := p.Movement.X(); m != 0 {
			next := p.X + m
			if !env.OutsideRing(p.X) {
				next = math.Max(t.RingLeft, math.Min(t.RingRight, next))
			}
			p.X = next
		}

		kb := p.Knockback.X()
		p.X += kb
		kb *= t.Friction
		if math.Abs(kb) < t.VelocityEpsilon {
			kb = 0
		}
		p.Knockback = mgl64.Vec2{kb, 0}
		p.Y = 0
		if math.Abs(kb) >= t.LaunchSpeed {
			p.Y = 1
		}

		if room.Phase == state.PhaseFighting && env.OutsideRing(p.X) {
			combat.RingOut(env, p)
		}
		env.Clamp(p)

		switch p.Activity.Kind {
		case state.ActivityIdle, state.ActivityCharging:
			if opp := env.Opponent(p); opp != nil && opp.X != p.X {
				p.Facing = p.DirectionTo(opp)
			}
		}
	}
}

// regenerate refills stamina for players standing idle.
func regenerate(env *match.Env) {
	t := env.Tuning
	for _, p := range env.Room.Players() {
		if p.Activity.Kind == state.ActivityIdle {
			p.AddStamina(t.StaminaRegenPerTick, t.StaminaMax)
		}
	}
}
