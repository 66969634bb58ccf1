package grapple

import (
	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// mashButtons count towards a grab clash.
const mashButtons = state.ButtonGrab | state.ButtonLight

func startClash(env *match.Env, p, opp *state.Player) {
	room := env.Room
	now := env.Now()
	opp.ReleaseActionLock(opp.Activity.Instance)
	clash := &state.GrabClash{
		ID:       room.NextGrappleID(),
		Start:    now,
		Deadline: now + env.Tuning.GrabClashWindowTicks,
	}
	for _, player := range []*state.Player{p, opp} {
		env.Interrupt(player)
		player.SetActivity(state.ActivityGrabClash, now)
		clash.Players[player.Slot] = player.ID
	}
	room.GrabClash = clash
	env.Emit(match.EventGrabClash, room.Slots[0], room.Slots[1])
}

// stepClash counts mash presses and, at the deadline, hands the clinch to
// the player with more presses. Ties go to the room RNG.
func stepClash(env *match.Env) {
	room := env.Room
	clash := room.GrabClash
	now := env.Now()
	var players [2]*state.Player
	for i, id := range clash.Players {
		p := room.Player(id)
		if p == nil || !p.Connected || p.Activity.Kind != state.ActivityGrabClash {
			releaseClash(env)
			return
		}
		players[i] = p
		// The presses that opened the clash do not count.
		if now > clash.Start {
			clash.Counts[i] += p.Input.PressCount(mashButtons)
		}
	}
	if now < clash.Deadline {
		return
	}
	room.GrabClash = nil

	winner := 0
	switch {
	case clash.Counts[0] > clash.Counts[1]:
	case clash.Counts[1] > clash.Counts[0]:
		winner = 1
	default:
		winner = env.RNG.Intn(2)
	}
	w, l := players[winner], players[1-winner]
	w.Facing = w.DirectionTo(l)
	w.Movement = mgl64.Vec2{}
	env.Emit(match.EventGrabClashResolved, w, l,
		match.WithMagnitude(float64(clash.Counts[winner]-clash.Counts[1-winner])))
	connect(env, w, l, clash.ID, clash.Start)
}

// releaseClash cancels a running clash and frees whoever is still in it.
func releaseClash(env *match.Env) {
	room := env.Room
	clash := room.GrabClash
	room.GrabClash = nil
	if clash == nil {
		return
	}
	for _, id := range clash.Players {
		if p := room.Player(id); p != nil && p.Activity.Kind == state.ActivityGrabClash {
			env.Interrupt(p)
		}
	}
}
