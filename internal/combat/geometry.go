package combat

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ringclash/server/internal/config"
	"ringclash/server/internal/state"
)

// Box is an axis-aligned rectangle in arena space. Y grows upwards from the
// ground line.
type Box struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// Overlaps reports whether two boxes intersect.
func (b Box) Overlaps(o Box) bool {
	return b.Min.X() < o.Max.X() && o.Min.X() < b.Max.X() &&
		b.Min.Y() < o.Max.Y() && o.Min.Y() < b.Max.Y()
}

// Body returns the hurtbox of p. Airborne players are lifted.
func Body(t config.Tuning, p *state.Player) Box {
	half := t.BodyWidth / 2
	base := p.Y * t.AirborneLift
	return Box{
		Min: mgl64.Vec2{p.X - half, base},
		Max: mgl64.Vec2{p.X + half, base + t.BodyHeight},
	}
}

// HeavyBox returns the heavy attack's hitbox, extending HeavyReach past the
// attacker's front edge along the locked facing.
func HeavyBox(t config.Tuning, p *state.Player, facing float64) Box {
	front := p.X + facing*t.BodyWidth/2
	far := front + facing*t.HeavyReach
	near := far - facing*t.HeavyWidth
	minX, maxX := math.Min(near, far), math.Max(near, far)
	base := p.Y * t.AirborneLift
	return Box{
		Min: mgl64.Vec2{minX, base},
		Max: mgl64.Vec2{maxX, base + t.HeavyHeight},
	}
}

// LightConnects is the light attack's 1-D test: the defender must be within
// range and in front of the attacker's locked facing.
func LightConnects(t config.Tuning, attacker, defender *state.Player, facing float64) bool {
	dx := defender.X - attacker.X
	if dx*facing < 0 {
		return false
	}
	return math.Abs(dx) <= t.LightRange
}

// HeavyConnects is the heavy attack's box overlap test.
func HeavyConnects(t config.Tuning, attacker, defender *state.Player, facing float64) bool {
	return HeavyBox(t, attacker, facing).Overlaps(Body(t, defender))
}

// Connects dispatches to the test for the attacker's current attack.
func Connects(t config.Tuning, attacker, defender *state.Player) bool {
	meta := attacker.Activity.Attack
	if meta == nil {
		return false
	}
	switch meta.Type {
	case state.AttackLight:
		return LightConnects(t, attacker, defender, meta.Facing)
	case state.AttackHeavy:
		return HeavyConnects(t, attacker, defender, meta.Facing)
	default:
		return false
	}
}

// CircleBoxOverlap reports whether a circle intersects the box.
func CircleBoxOverlap(center mgl64.Vec2, radius float64, box Box) bool {
	closest := mgl64.Vec2{
		clamp(center.X(), box.Min.X(), box.Max.X()),
		clamp(center.Y(), box.Min.Y(), box.Max.Y()),
	}
	d := center.Sub(closest)
	return d.Dot(d) < radius*radius
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
