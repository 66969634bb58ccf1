package combat

import (
	"math"

	"ringclash/server/internal/config"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// PredictRingOut runs the live friction model forward from x with knockback
// velocity v and reports whether the trajectory crosses the ring edge, and
// after how many ticks.
func PredictRingOut(t config.Tuning, x, v float64) (bool, int) {
	for i := 1; i <= t.RingOutSimMaxTicks; i++ {
		x += v
		if x < t.RingLeft || x > t.RingRight {
			return true, i
		}
		v *= t.Friction
		if math.Abs(v) < t.VelocityEpsilon {
			return false, i
		}
	}
	return false, t.RingOutSimMaxTicks
}

// finish turns a predicted ring-out into the scripted finishing sequence:
// both combatants freeze, the defender is handed to the boundary-exit path
// and the boosted knockback is released when the freeze ends.
func finish(env *match.Env, attacker, defender *state.Player, dir, knockback float64) {
	t := env.Tuning
	env.Interrupt(defender)
	defender.SetActivity(state.ActivityRingOut, env.Now())
	defender.Knockback = defender.Knockback.Mul(0)
	env.Freeze(t.FinishFreezeTicks)
	boosted := knockback * t.FinishKnockbackBoost
	env.AfterTicks(defender.ID, match.TimerFinish, t.FinishFreezeTicks, func() {
		if defender.Activity.Kind != state.ActivityRingOut {
			return
		}
		env.Knock(defender, dir, boosted)
	})
	env.Emit(match.EventFinishingHit, attacker, defender, match.WithMagnitude(boosted))
}

// RingOut ends the round with loser leaving the ring. The opponent scores and
// the room resets after RoundResetTicks. Only the first exit of a round
// counts.
func RingOut(env *match.Env, loser *state.Player) bool {
	room := env.Room
	if loser == nil || room.Phase != state.PhaseFighting {
		return false
	}
	room.Phase = state.PhaseRoundOver
	if loser.Activity.Kind != state.ActivityRingOut {
		env.Interrupt(loser)
		loser.SetActivity(state.ActivityRingOut, env.Now())
	}
	winner := room.Slots[1-loser.Slot]
	if winner != nil {
		winner.Score++
	}
	env.Emit(match.EventBoundaryExit, loser, winner)
	env.Emit(match.EventRoundOver, winner, loser)
	env.AfterTicks(state.RoomEntity, match.TimerRound, env.Tuning.RoundResetTicks, func() {
		ResetRound(env)
	})
	return true
}

// ResetRound restores the start marks and drops every pending timer.
func ResetRound(env *match.Env) {
	room := env.Room
	for _, p := range room.Players() {
		env.Registry.CancelAll(p.ID)
	}
	env.Registry.Cancel(state.RoomEntity, match.TimerRound)
	env.Hitstop.Reset()
	room.ResetRound(env.Tuning)
	env.Emit(match.EventRoundStart, nil, nil)
}
