package state

import "ringclash/server/internal/config"

// Busy reports whether the activity commits the body, which blocks starting
// any new action. New kinds must be added here and in DashBusy.
func Busy(p *Player) bool {
	switch p.Activity.Kind {
	case ActivityIdle:
		return false
	case ActivityCharging,
		ActivityAttacking,
		ActivityRecovering,
		ActivityDodging,
		ActivityGuarding,
		ActivityGrabStartup,
		ActivityGrabbing,
		ActivityGrabbed,
		ActivityGrabWhiff,
		ActivityGrabClash,
		ActivityRingOut:
		return true
	default:
		return true
	}
}

// DashBusy is Busy except that a charging attack may be cancelled by a dodge.
func DashBusy(p *Player) bool {
	switch p.Activity.Kind {
	case ActivityIdle, ActivityCharging:
		return false
	case ActivityAttacking,
		ActivityRecovering,
		ActivityDodging,
		ActivityGuarding,
		ActivityGrabStartup,
		ActivityGrabbing,
		ActivityGrabbed,
		ActivityGrabWhiff,
		ActivityGrabClash,
		ActivityRingOut:
		return true
	default:
		return true
	}
}

// ActionLocked is the hard gate: an uninterruptible window is running.
func ActionLocked(p *Player, now uint64) bool {
	return now < p.ActionLockUntil
}

// InputLocked is the soft gate: inputs are still buffered but not acted on.
func InputLocked(p *Player, now uint64) bool {
	return now < p.InputLockUntil
}

// Stunned reports whether the hit-stun overlay covers now.
func Stunned(p *Player, now uint64) bool {
	return now < p.HitStunUntil
}

func gated(p *Player, now uint64) bool {
	return p == nil || !p.Connected || ActionLocked(p, now) || Stunned(p, now) || InputLocked(p, now)
}

// CanAct gates strikes, charges and specials.
func CanAct(p *Player, now uint64) bool {
	if gated(p, now) {
		return false
	}
	return !Busy(p)
}

// CanMove gates walking.
func CanMove(p *Player, now uint64) bool {
	if gated(p, now) {
		return false
	}
	return p.Activity.Kind == ActivityIdle
}

// CanDodge gates the dash; it may cancel a charge.
func CanDodge(p *Player, now uint64, tuning config.Tuning) bool {
	if gated(p, now) || DashBusy(p) {
		return false
	}
	if now < p.DodgeReadyAt {
		return false
	}
	return p.Stamina >= tuning.DodgeStaminaCost
}

// CanGuard gates raising the guard stance.
func CanGuard(p *Player, now uint64, tuning config.Tuning) bool {
	return CanAct(p, now) && p.Stamina >= tuning.GuardStaminaCost
}

// CanGrab gates starting a grapple.
func CanGrab(p *Player, now uint64, tuning config.Tuning) bool {
	return CanAct(p, now) && p.Stamina >= tuning.GrabStaminaCost
}

// CanSpecial gates the power-up special.
func CanSpecial(p *Player, now uint64) bool {
	if !CanAct(p, now) {
		return false
	}
	return p.PowerUp.SpawnsProjectile() && now >= p.SpecialReadyAt
}

// Hittable reports whether strikes can connect with p at all.
func Hittable(p *Player, now uint64) bool {
	if p == nil || !p.Connected || p.Immune(now) {
		return false
	}
	switch p.Activity.Kind {
	case ActivityDodging, ActivityRingOut, ActivityGrabbed, ActivityGrabbing, ActivityGrabClash:
		return false
	default:
		return true
	}
}
