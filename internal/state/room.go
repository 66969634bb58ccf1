package state

import (
	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/config"
)

// RoomEntity keys room-level timers in the deferred registry. It is
// reserved and never accepted as a player ID.
const RoomEntity = "#room"

// RoundPhase tracks whether the round is still being fought.
type RoundPhase uint8

const (
	PhaseFighting RoundPhase = iota
	PhaseRoundOver
)

func (p RoundPhase) String() string {
	if p == PhaseRoundOver {
		return "round_over"
	}
	return "fighting"
}

// ProjectileKind distinguishes thrown objects from summoned allies.
type ProjectileKind uint8

const (
	ProjectileThrown ProjectileKind = iota + 1
	ProjectileSummon
)

func (k ProjectileKind) String() string {
	switch k {
	case ProjectileThrown:
		return "thrown"
	case ProjectileSummon:
		return "summon"
	default:
		return ""
	}
}

// Projectile is a ranged entity owned by the player who spawned it.
type Projectile struct {
	ID        uint64
	Kind      ProjectileKind
	OwnerID   string
	TargetID  string
	X         float64
	Y         float64
	VX        float64
	SpawnTick uint64
	Lifespan  uint64
	Radius    float64
	Hit       bool
	Reflected bool
}

// GrabClash tracks a simultaneous-grab mash race.
type GrabClash struct {
	ID       uint64
	Players  [2]string
	Counts   [2]int
	Start    uint64
	Deadline uint64
}

// Index returns the slot of playerID within the clash, or -1.
func (c *GrabClash) Index(playerID string) int {
	if c == nil {
		return -1
	}
	for i, id := range c.Players {
		if id == playerID {
			return i
		}
	}
	return -1
}

// PlayerSpec describes a contestant handed over by the match manager.
type PlayerSpec struct {
	ID      string
	PowerUp PowerUp
}

// Room holds the two player slots and the room-wide clock state.
//
// Tick counts every step. ClockOffset accumulates ticks spent frozen by
// hitstop; Now() is the simulation clock every player timestamp refers to.
type Room struct {
	ID           string
	Slots        [2]*Player
	Tick         uint64
	ClockOffset  uint64
	HitstopUntil uint64
	GrabClash    *GrabClash
	Phase        RoundPhase
	Round        int

	eventSeq      uint64
	grappleSeq    uint64
	projectileSeq uint64
}

// NewRoom places both contestants on their start marks.
func NewRoom(id string, tuning config.Tuning, left, right PlayerSpec) *Room {
	room := &Room{ID: id, Round: 1}
	for slot, spec := range [2]PlayerSpec{left, right} {
		room.Slots[slot] = &Player{
			ID:        spec.ID,
			Slot:      slot,
			PowerUp:   spec.PowerUp,
			Connected: true,
		}
	}
	room.resetPlayers(tuning)
	return room
}

// Now reports the simulation clock: ticks elapsed minus ticks spent frozen.
func (r *Room) Now() uint64 {
	return r.Tick - r.ClockOffset
}

// Player returns the player with id, or nil.
func (r *Room) Player(id string) *Player {
	for _, p := range r.Slots {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the connected player facing p, or nil when the slot is
// empty or mid-disconnect.
func (r *Room) Opponent(p *Player) *Player {
	if p == nil {
		return nil
	}
	other := r.Slots[1-p.Slot]
	if other == nil || !other.Connected {
		return nil
	}
	return other
}

// Players returns the occupied slots in slot order.
func (r *Room) Players() []*Player {
	players := make([]*Player, 0, len(r.Slots))
	for _, p := range r.Slots {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

// RemovePlayer empties the slot of id. It reports whether a player was
// removed.
func (r *Room) RemovePlayer(id string) bool {
	for i, p := range r.Slots {
		if p != nil && p.ID == id {
			p.Connected = false
			r.Slots[i] = nil
			if r.GrabClash.Index(id) >= 0 {
				r.GrabClash = nil
			}
			return true
		}
	}
	return false
}

// Empty reports whether both slots are vacant.
func (r *Room) Empty() bool {
	return r.Slots[0] == nil && r.Slots[1] == nil
}

// ResetRound zeroes every transient field and restores the start marks.
// Scores, power-ups and connection state survive.
func (r *Room) ResetRound(tuning config.Tuning) {
	r.GrabClash = nil
	r.HitstopUntil = 0
	r.Phase = PhaseFighting
	r.Round++
	r.resetPlayers(tuning)
}

func (r *Room) resetPlayers(tuning config.Tuning) {
	now := r.Now()
	starts := [2]float64{tuning.StartLeftX, tuning.StartRightX}
	facings := [2]float64{1, -1}
	for slot, p := range r.Slots {
		if p == nil {
			continue
		}
		p.X = starts[slot]
		p.Y = 0
		p.Facing = facings[slot]
		p.Knockback = mgl64.Vec2{}
		p.Movement = mgl64.Vec2{}
		p.Stamina = tuning.StaminaMax
		p.Idle(now)
		p.HitStunUntil = 0
		p.InputLockUntil = 0
		p.ImmuneUntil = 0
		p.ActionLockUntil = 0
		p.ActionLockOwner = 0
		p.DodgeReadyAt = 0
		p.SpecialReadyAt = 0
		p.LastIntentTick = 0
		p.AtBoundary = false
		p.Crouching = false
		p.Projectiles = nil
		p.Input.ClearEdges()
		p.AbsorbCharges = 0
		if p.PowerUp == PowerUpAbsorb {
			p.AbsorbCharges = 1
		}
	}
}

// NextEventSeq returns the per-room occurrence counter used in event IDs.
func (r *Room) NextEventSeq() uint64 {
	r.eventSeq++
	return r.eventSeq
}

// NextGrappleID returns a fresh grapple identifier.
func (r *Room) NextGrappleID() uint64 {
	r.grappleSeq++
	return r.grappleSeq
}

// NextProjectileID returns a fresh projectile identifier.
func (r *Room) NextProjectileID() uint64 {
	r.projectileSeq++
	return r.projectileSeq
}
