package delta

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"ringclash/server/internal/config"
	"ringclash/server/internal/match"
	"ringclash/server/internal/state"
)

// Vec is a replicated two-component vector.
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// PlayerDelta carries the always-sent core plus whichever whitelist fields
// changed since the previous tick. A nil field is unchanged.
type PlayerDelta struct {
	ID       string  `json:"id" msgpack:"id"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Facing   float64 `json:"facing" msgpack:"facing"`
	Activity string  `json:"activity" msgpack:"activity"`
	Stunned  bool    `json:"stunned" msgpack:"stunned"`
	Grabbed  bool    `json:"grabbed" msgpack:"grabbed"`

	Stamina       *float64            `json:"stamina,omitempty" msgpack:"stamina,omitempty"`
	Knockback     *Vec                `json:"knockback,omitempty" msgpack:"knockback,omitempty"`
	Movement      *float64            `json:"movement,omitempty" msgpack:"movement,omitempty"`
	Charge        *float64            `json:"charge,omitempty" msgpack:"charge,omitempty"`
	AttackType    *string             `json:"attackType,omitempty" msgpack:"attackType,omitempty"`
	GrapplePhase  *string             `json:"grapplePhase,omitempty" msgpack:"grapplePhase,omitempty"`
	GrappleRole   *string             `json:"grappleRole,omitempty" msgpack:"grappleRole,omitempty"`
	Immune        *bool               `json:"immune,omitempty" msgpack:"immune,omitempty"`
	InputLocked   *bool               `json:"inputLocked,omitempty" msgpack:"inputLocked,omitempty"`
	PowerUp       *string             `json:"powerUp,omitempty" msgpack:"powerUp,omitempty"`
	AbsorbCharges *int                `json:"absorbCharges,omitempty" msgpack:"absorbCharges,omitempty"`
	Score         *int                `json:"score,omitempty" msgpack:"score,omitempty"`
	Projectiles   *[]ProjectileRecord `json:"projectiles,omitempty" msgpack:"projectiles,omitempty"`
}

// Frame is one tick's replication payload.
type Frame struct {
	Room     string              `json:"room" msgpack:"room"`
	Tick     uint64              `json:"tick" msgpack:"tick"`
	Full     bool                `json:"full,omitempty" msgpack:"full,omitempty"`
	Hitstop  bool                `json:"hitstop,omitempty" msgpack:"hitstop,omitempty"`
	Phase    string              `json:"phase" msgpack:"phase"`
	Round    int                 `json:"round" msgpack:"round"`
	Players  []PlayerDelta       `json:"players" msgpack:"players"`
	Removed  []string            `json:"removed,omitempty" msgpack:"removed,omitempty"`
	Checksum uint64              `json:"checksum" msgpack:"checksum"`
	Events   []match.CombatEvent `json:"events,omitempty" msgpack:"events,omitempty"`
}

// Synchronizer holds the previous tick's records for one room.
type Synchronizer struct {
	tuning   config.Tuning
	previous *orderedmap.OrderedMap[string, PlayerRecord]
	header   Frame
}

// NewSynchronizer returns a synchronizer with no history; its first Diff is
// a full frame.
func NewSynchronizer(tuning config.Tuning) *Synchronizer {
	return &Synchronizer{
		tuning:   tuning,
		previous: orderedmap.NewOrderedMap[string, PlayerRecord](),
	}
}

// Diff records the room's current state and returns the frame relative to
// the previous call.
func (s *Synchronizer) Diff(room *state.Room) Frame {
	now := room.Now()
	frame := Frame{
		Room:    room.ID,
		Tick:    room.Tick,
		Hitstop: room.HitstopUntil != 0 && room.Tick <= room.HitstopUntil,
		Phase:   room.Phase.String(),
		Round:   room.Round,
	}
	seen := make(map[string]struct{}, len(room.Slots))
	records := make([]PlayerRecord, 0, len(room.Slots))
	for _, p := range room.Players() {
		rec := Record(s.tuning, p, now)
		records = append(records, rec)
		seen[p.ID] = struct{}{}
		if prev, ok := s.previous.Get(p.ID); ok {
			frame.Players = append(frame.Players, diff(prev, rec))
		} else {
			frame.Players = append(frame.Players, full(rec))
		}
	}
	for _, id := range s.previous.Keys() {
		if _, ok := seen[id]; !ok {
			frame.Removed = append(frame.Removed, id)
			s.previous.Delete(id)
		}
	}
	for _, rec := range records {
		s.previous.Set(rec.ID, rec)
	}
	frame.Checksum = Checksum(records)
	s.header = frame
	s.header.Players = nil
	s.header.Removed = nil
	return frame
}

// Full returns a full frame of the last diffed state, for an observer that
// joins mid-match. It does not advance the history.
func (s *Synchronizer) Full() Frame {
	frame := s.header
	frame.Full = true
	records := s.Records()
	for _, rec := range records {
		frame.Players = append(frame.Players, full(rec))
	}
	frame.Checksum = Checksum(records)
	return frame
}

// Records returns the last diffed records in join order.
func (s *Synchronizer) Records() []PlayerRecord {
	records := make([]PlayerRecord, 0, s.previous.Len())
	for _, id := range s.previous.Keys() {
		rec, _ := s.previous.Get(id)
		records = append(records, rec.Clone())
	}
	return records
}

func full(rec PlayerRecord) PlayerDelta {
	d := core(rec)
	d.Stamina = &rec.Stamina
	d.Knockback = &Vec{X: rec.KnockbackX, Y: rec.KnockbackY}
	d.Movement = &rec.Movement
	d.Charge = &rec.Charge
	d.AttackType = &rec.AttackType
	d.GrapplePhase = &rec.GrapplePhase
	d.GrappleRole = &rec.GrappleRole
	d.Immune = &rec.Immune
	d.InputLocked = &rec.InputLocked
	d.PowerUp = &rec.PowerUp
	d.AbsorbCharges = &rec.AbsorbCharges
	d.Score = &rec.Score
	projectiles := wireProjectiles(rec.Projectiles)
	d.Projectiles = &projectiles
	return d
}

func core(rec PlayerRecord) PlayerDelta {
	return PlayerDelta{
		ID:       rec.ID,
		X:        rec.X,
		Y:        rec.Y,
		Facing:   rec.Facing,
		Activity: rec.Activity,
		Stunned:  rec.Stunned,
		Grabbed:  rec.Grabbed,
	}
}

func diff(prev, cur PlayerRecord) PlayerDelta {
	d := core(cur)
	if prev.Stamina != cur.Stamina {
		d.Stamina = &cur.Stamina
	}
	if prev.KnockbackX != cur.KnockbackX || prev.KnockbackY != cur.KnockbackY {
		d.Knockback = &Vec{X: cur.KnockbackX, Y: cur.KnockbackY}
	}
	if prev.Movement != cur.Movement {
		d.Movement = &cur.Movement
	}
	if prev.Charge != cur.Charge {
		d.Charge = &cur.Charge
	}
	if prev.AttackType != cur.AttackType {
		d.AttackType = &cur.AttackType
	}
	if prev.GrapplePhase != cur.GrapplePhase {
		d.GrapplePhase = &cur.GrapplePhase
	}
	if prev.GrappleRole != cur.GrappleRole {
		d.GrappleRole = &cur.GrappleRole
	}
	if prev.Immune != cur.Immune {
		d.Immune = &cur.Immune
	}
	if prev.InputLocked != cur.InputLocked {
		d.InputLocked = &cur.InputLocked
	}
	if prev.PowerUp != cur.PowerUp {
		d.PowerUp = &cur.PowerUp
	}
	if prev.AbsorbCharges != cur.AbsorbCharges {
		d.AbsorbCharges = &cur.AbsorbCharges
	}
	if prev.Score != cur.Score {
		d.Score = &cur.Score
	}
	if !sameProjectiles(prev.Projectiles, cur.Projectiles) {
		projectiles := wireProjectiles(cur.Projectiles)
		d.Projectiles = &projectiles
	}
	return d
}

// wireProjectiles never returns nil: a nil slice encodes as null and would
// decode as "unchanged".
func wireProjectiles(in []ProjectileRecord) []ProjectileRecord {
	out := cloneProjectiles(in)
	if out == nil {
		out = []ProjectileRecord{}
	}
	return out
}

// Apply replays frame onto base and returns the resulting records. base is
// not modified. A full frame replaces the base entirely.
func Apply(base map[string]PlayerRecord, frame Frame) (map[string]PlayerRecord, error) {
	next := make(map[string]PlayerRecord, len(base))
	if !frame.Full {
		for id, rec := range base {
			next[id] = rec.Clone()
		}
	}
	for _, id := range frame.Removed {
		delete(next, id)
	}
	for _, d := range frame.Players {
		if d.ID == "" {
			return nil, fmt.Errorf("apply frame %d: missing player id", frame.Tick)
		}
		rec, ok := next[d.ID]
		if !ok && !isFull(d) {
			return nil, fmt.Errorf("apply frame %d: unknown player %q in partial delta", frame.Tick, d.ID)
		}
		next[d.ID] = patch(rec, d)
	}
	return next, nil
}

// isFull reports whether d carries every whitelist field.
func isFull(d PlayerDelta) bool {
	return d.Stamina != nil && d.Knockback != nil && d.Movement != nil && d.Charge != nil &&
		d.AttackType != nil && d.GrapplePhase != nil && d.GrappleRole != nil && d.Immune != nil &&
		d.InputLocked != nil && d.PowerUp != nil && d.AbsorbCharges != nil && d.Score != nil &&
		d.Projectiles != nil
}

func patch(rec PlayerRecord, d PlayerDelta) PlayerRecord {
	rec.ID = d.ID
	rec.X, rec.Y = d.X, d.Y
	rec.Facing = d.Facing
	rec.Activity = d.Activity
	rec.Stunned = d.Stunned
	rec.Grabbed = d.Grabbed
	if d.Stamina != nil {
		rec.Stamina = *d.Stamina
	}
	if d.Knockback != nil {
		rec.KnockbackX, rec.KnockbackY = d.Knockback.X, d.Knockback.Y
	}
	if d.Movement != nil {
		rec.Movement = *d.Movement
	}
	if d.Charge != nil {
		rec.Charge = *d.Charge
	}
	if d.AttackType != nil {
		rec.AttackType = *d.AttackType
	}
	if d.GrapplePhase != nil {
		rec.GrapplePhase = *d.GrapplePhase
	}
	if d.GrappleRole != nil {
		rec.GrappleRole = *d.GrappleRole
	}
	if d.Immune != nil {
		rec.Immune = *d.Immune
	}
	if d.InputLocked != nil {
		rec.InputLocked = *d.InputLocked
	}
	if d.PowerUp != nil {
		rec.PowerUp = *d.PowerUp
	}
	if d.AbsorbCharges != nil {
		rec.AbsorbCharges = *d.AbsorbCharges
	}
	if d.Score != nil {
		rec.Score = *d.Score
	}
	if d.Projectiles != nil {
		rec.Projectiles = cloneProjectiles(*d.Projectiles)
		if len(rec.Projectiles) == 0 {
			rec.Projectiles = nil
		}
	}
	return rec
}

// Checksum hashes the canonical encoding of records. Clients compare it
// against their replayed state to detect divergence.
func Checksum(records []PlayerRecord) uint64 {
	encoded, err := msgpack.Marshal(records)
	if err != nil {
		return 0
	}
	return xxh3.Hash(encoded)
}

// ChecksumOf hashes a replayed record set in the given order.
func ChecksumOf(records map[string]PlayerRecord, order []string) uint64 {
	ordered := make([]PlayerRecord, 0, len(order))
	for _, id := range order {
		if rec, ok := records[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return Checksum(ordered)
}
