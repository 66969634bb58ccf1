// Package delta produces the per-tick replication frames: a whitelist record
// per player, diffed against the previous tick so that only a small core is
// sent unconditionally.
package delta

import (
	"ringclash/server/internal/config"
	"ringclash/server/internal/state"
)

// ProjectileRecord is the replicated view of a projectile.
type ProjectileRecord struct {
	ID        uint64  `json:"id" msgpack:"id"`
	Kind      string  `json:"kind" msgpack:"kind"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
	VX        float64 `json:"vx" msgpack:"vx"`
	Radius    float64 `json:"radius" msgpack:"radius"`
	TargetID  string  `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
	Reflected bool    `json:"reflected,omitempty" msgpack:"reflected,omitempty"`
}

// PlayerRecord is the full whitelist of network-relevant player fields.
type PlayerRecord struct {
	ID       string  `json:"id" msgpack:"id"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Facing   float64 `json:"facing" msgpack:"facing"`
	Activity string  `json:"activity" msgpack:"activity"`
	Stunned  bool    `json:"stunned" msgpack:"stunned"`
	Grabbed  bool    `json:"grabbed" msgpack:"grabbed"`

	Stamina       float64            `json:"stamina" msgpack:"stamina"`
	KnockbackX    float64            `json:"knockbackX" msgpack:"knockbackX"`
	KnockbackY    float64            `json:"knockbackY" msgpack:"knockbackY"`
	Movement      float64            `json:"movement" msgpack:"movement"`
	Charge        float64            `json:"charge" msgpack:"charge"`
	AttackType    string             `json:"attackType" msgpack:"attackType"`
	GrapplePhase  string             `json:"grapplePhase" msgpack:"grapplePhase"`
	GrappleRole   string             `json:"grappleRole" msgpack:"grappleRole"`
	Immune        bool               `json:"immune" msgpack:"immune"`
	InputLocked   bool               `json:"inputLocked" msgpack:"inputLocked"`
	PowerUp       string             `json:"powerUp" msgpack:"powerUp"`
	AbsorbCharges int                `json:"absorbCharges" msgpack:"absorbCharges"`
	Score         int                `json:"score" msgpack:"score"`
	Projectiles   []ProjectileRecord `json:"projectiles" msgpack:"projectiles"`
}

// Record captures p on the simulation clock now.
func Record(t config.Tuning, p *state.Player, now uint64) PlayerRecord {
	rec := PlayerRecord{
		ID:            p.ID,
		X:             p.X,
		Y:             p.Y,
		Facing:        p.Facing,
		Activity:      p.Activity.Kind.String(),
		Stunned:       state.Stunned(p, now),
		Grabbed:       p.Activity.Kind == state.ActivityGrabbed,
		Stamina:       p.Stamina,
		KnockbackX:    p.Knockback.X(),
		KnockbackY:    p.Knockback.Y(),
		Movement:      p.Movement.X(),
		Charge:        charge(t, p, now),
		AttackType:    p.Activity.AttackType().String(),
		Immune:        p.Immune(now),
		InputLocked:   state.InputLocked(p, now),
		PowerUp:       p.PowerUp.String(),
		AbsorbCharges: p.AbsorbCharges,
		Score:         p.Score,
	}
	if g := p.Activity.Grapple; g != nil {
		rec.GrapplePhase = g.Phase.String()
		rec.GrappleRole = g.Role.String()
	}
	if len(p.Projectiles) > 0 {
		rec.Projectiles = make([]ProjectileRecord, 0, len(p.Projectiles))
		for _, proj := range p.Projectiles {
			rec.Projectiles = append(rec.Projectiles, ProjectileRecord{
				ID:        proj.ID,
				Kind:      proj.Kind.String(),
				X:         proj.X,
				Y:         proj.Y,
				VX:        proj.VX,
				Radius:    proj.Radius,
				TargetID:  proj.TargetID,
				Reflected: proj.Reflected,
			})
		}
	}
	return rec
}

func charge(t config.Tuning, p *state.Player, now uint64) float64 {
	meta := p.Activity.Attack
	if meta == nil {
		return 0
	}
	if p.Activity.Kind != state.ActivityCharging {
		return meta.Charge
	}
	if t.HeavyFullChargeTicks == 0 || now < meta.ChargeStart {
		return 0
	}
	c := float64(now-meta.ChargeStart) / float64(t.HeavyFullChargeTicks) * 100
	if c > 100 {
		c = 100
	}
	return c
}

func sameProjectiles(a, b []ProjectileRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneProjectiles(in []ProjectileRecord) []ProjectileRecord {
	if in == nil {
		return nil
	}
	out := make([]ProjectileRecord, len(in))
	copy(out, in)
	return out
}

// Clone returns a copy that shares no slice memory with rec.
func (rec PlayerRecord) Clone() PlayerRecord {
	rec.Projectiles = cloneProjectiles(rec.Projectiles)
	return rec
}
