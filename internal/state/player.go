package state

import "github.com/go-gl/mathgl/mgl64"

// PowerUp is the per-match modifier picked before the fight.
type PowerUp uint8

const (
	PowerUpNone PowerUp = iota
	PowerUpPower
	PowerUpAbsorb
	PowerUpThrown
	PowerUpSummon
)

func (p PowerUp) String() string {
	switch p {
	case PowerUpPower:
		return "power"
	case PowerUpAbsorb:
		return "absorb"
	case PowerUpThrown:
		return "thrown"
	case PowerUpSummon:
		return "summon"
	default:
		return ""
	}
}

// ParsePowerUp resolves a wire name. Unknown names map to PowerUpNone.
func ParsePowerUp(name string) PowerUp {
	switch name {
	case "power":
		return PowerUpPower
	case "absorb":
		return PowerUpAbsorb
	case "thrown":
		return PowerUpThrown
	case "summon":
		return PowerUpSummon
	default:
		return PowerUpNone
	}
}

// SpawnsProjectile reports whether the special button launches a projectile.
func (p PowerUp) SpawnsProjectile() bool {
	return p == PowerUpThrown || p == PowerUpSummon
}

// Player is one contestant. It is owned by its Room and only mutated inside
// the tick step. Tick-valued fields use the room's simulation clock.
type Player struct {
	ID     string
	Slot   int
	X      float64
	Y      float64
	Facing float64

	Knockback mgl64.Vec2
	Movement  mgl64.Vec2
	Stamina   float64

	Activity Activity

	HitStunUntil    uint64
	InputLockUntil  uint64
	ImmuneUntil     uint64
	ActionLockUntil uint64
	ActionLockOwner uint64

	DodgeReadyAt   uint64
	SpecialReadyAt uint64
	LastIntentTick uint64

	PowerUp       PowerUp
	AbsorbCharges int

	Input       InputBuffer
	AtBoundary  bool
	Crouching   bool
	Connected   bool
	Score       int
	Projectiles []*Projectile

	instanceSeq uint64
}

// SetActivity replaces the current activity and stamps it with a fresh
// instance marker, which is returned. Timers capture it to detect staleness.
func (p *Player) SetActivity(kind ActivityKind, now uint64) uint64 {
	p.instanceSeq++
	p.Activity = Activity{Kind: kind, Since: now, Instance: p.instanceSeq}
	return p.instanceSeq
}

// Idle drops whatever the player was doing.
func (p *Player) Idle(now uint64) uint64 {
	return p.SetActivity(ActivityIdle, now)
}

// Current reports whether instance still identifies the live activity.
func (p *Player) Current(instance uint64) bool {
	return p != nil && instance != 0 && p.Activity.Instance == instance
}

// ExtendActionLock raises the hard action gate to until. The deadline never
// moves backwards while an action holds it.
func (p *Player) ExtendActionLock(until, owner uint64) {
	if until > p.ActionLockUntil {
		p.ActionLockUntil = until
	}
	p.ActionLockOwner = owner
}

// ReleaseActionLock clears the gate if owner still holds it.
func (p *Player) ReleaseActionLock(owner uint64) bool {
	if owner == 0 || p.ActionLockOwner != owner {
		return false
	}
	p.ActionLockUntil = 0
	p.ActionLockOwner = 0
	return true
}

// Stun extends the hit-stun overlay to now+ticks.
func (p *Player) Stun(now, ticks uint64) {
	if until := now + ticks; until > p.HitStunUntil {
		p.HitStunUntil = until
	}
}

// GrantImmunity extends the hit-immunity overlay to now+ticks.
func (p *Player) GrantImmunity(now, ticks uint64) {
	if until := now + ticks; until > p.ImmuneUntil {
		p.ImmuneUntil = until
	}
}

// Immune reports whether the hit-immunity overlay covers now.
func (p *Player) Immune(now uint64) bool {
	return now < p.ImmuneUntil
}

// Position returns the player's position as a vector.
func (p *Player) Position() mgl64.Vec2 {
	return mgl64.Vec2{p.X, p.Y}
}

// DirectionTo returns +1 when other stands to the right of p, -1 when to the
// left, and p's facing when they overlap.
func (p *Player) DirectionTo(other *Player) float64 {
	switch {
	case other == nil:
		return p.Facing
	case other.X > p.X:
		return 1
	case other.X < p.X:
		return -1
	default:
		return p.Facing
	}
}

// Grapple returns the grapple metadata when the player takes part in one.
func (p *Player) Grapple() *GrappleMeta {
	switch p.Activity.Kind {
	case ActivityGrabbing, ActivityGrabbed, ActivityGrabStartup:
		return p.Activity.Grapple
	default:
		return nil
	}
}

// AddStamina adjusts stamina and clamps it to [0, max].
func (p *Player) AddStamina(delta, max float64) {
	p.Stamina += delta
	if p.Stamina < 0 {
		p.Stamina = 0
	}
	if p.Stamina > max {
		p.Stamina = max
	}
}
