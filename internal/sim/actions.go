package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/combat"
	"ringclash/server/internal/grapple"
	"ringclash/server/internal/match"
	"ringclash/server/internal/projectile"
	"ringclash/server/internal/state"
)

// dispatch turns p's buffered edges into action starts. Releases are honoured
// before the gates so a charge or a guard always ends when its key goes up.
// Grapple participants are driven by the grapple step instead.
func dispatch(env *match.Env, p *state.Player) {
	if !p.Connected {
		return
	}
	in := &p.Input
	if p.Activity.Kind == state.ActivityCharging && (in.Released(state.ButtonHeavy) || !in.IsHeld(state.ButtonHeavy)) {
		combat.ReleaseHeavy(env, p)
	}
	if p.Activity.Kind == state.ActivityGuarding && !in.IsHeld(state.ButtonGuard) {
		combat.EndGuard(env, p)
	}
	if p.Grapple() != nil || p.Activity.Kind == state.ActivityGrabClash {
		return
	}
	if state.InputLocked(p, env.Now()) {
		return
	}
	start(env, p)
	walk(env, p)
}

// start tries the pressed actions in priority order; the first one the gates
// accept wins the tick.
func start(env *match.Env, p *state.Player) bool {
	in := &p.Input
	if in.Pressed(state.ButtonDodge) && combat.StartDodge(env, p, heldDirection(in)) {
		return true
	}
	if in.Pressed(state.ButtonGrab) && grapple.Start(env, p) {
		return true
	}
	if in.Pressed(state.ButtonSpecial) {
		if _, ok := projectile.Spawn(env, p); ok {
			return true
		}
	}
	if in.Pressed(state.ButtonHeavy) && combat.StartCharge(env, p) {
		if !in.IsHeld(state.ButtonHeavy) {
			combat.ReleaseHeavy(env, p)
		}
		return true
	}
	if in.Pressed(state.ButtonLight) && combat.StartLight(env, p) {
		return true
	}
	if in.Pressed(state.ButtonGuard) && in.IsHeld(state.ButtonGuard) && combat.StartGuard(env, p) {
		return true
	}
	return false
}

// walk applies held directions to an idle player. Down crouches in place.
func walk(env *match.Env, p *state.Player) {
	t := env.Tuning
	in := &p.Input
	p.Crouching = false
	if !state.CanMove(p, env.Now()) {
		return
	}
	if in.IsHeld(state.ButtonDown) {
		p.Crouching = true
		p.Movement = mgl64.Vec2{}
		return
	}
	if dir := heldDirection(in); dir != 0 {
		p.Movement = mgl64.Vec2{dir * t.MoveSpeed, 0}
		return
	}
	vx := p.Movement.X() * t.MovementFriction
	if math.Abs(vx) < t.VelocityEpsilon {
		vx = 0
	}
	p.Movement = mgl64.Vec2{vx, 0}
}

func heldDirection(in *state.InputBuffer) float64 {
	dir := 0.0
	if in.IsHeld(state.ButtonRight) {
		dir++
	}
	if in.IsHeld(state.ButtonLeft) {
		dir--
	}
	return dir
}
