// Package hitstop implements the room-wide freeze used for impact feedback.
//
// A freeze requested on tick T for n ticks freezes ticks T+1..T+n. Frozen
// ticks still buffer input and fire deferred callbacks, but the simulation
// clock (Room.Now) stands still and hitstop-aware timers are pushed out by
// the freeze time actually added.
package hitstop

import (
	"ringclash/server/internal/deferred"
	"ringclash/server/internal/state"
)

// Scheduler owns the room's freeze deadline.
type Scheduler struct {
	room     *state.Room
	registry *deferred.Registry

	freezes     uint64
	frozenTicks uint64
}

// New binds a scheduler to room and the registry whose compensated timers it
// extends.
func New(room *state.Room, registry *deferred.Registry) *Scheduler {
	return &Scheduler{room: room, registry: registry}
}

// Freeze pauses the room for ticks ticks starting after the current tick.
// Overlapping freezes extend the deadline instead of stacking, and only the
// freeze time actually added is compensated. It returns that added time.
func (s *Scheduler) Freeze(ticks uint64) uint64 {
	if s == nil || ticks == 0 {
		return 0
	}
	now := s.room.Tick
	oldEnd := s.room.HitstopUntil
	newEnd := now + ticks
	if oldEnd > newEnd {
		newEnd = oldEnd
	}
	from := now
	if oldEnd > from {
		from = oldEnd
	}
	added := newEnd - from
	if added == 0 {
		return 0
	}
	s.room.HitstopUntil = newEnd
	s.freezes++
	if s.registry != nil {
		s.registry.Extend(added)
	}
	return added
}

// Active reports whether tick is frozen.
func (s *Scheduler) Active(tick uint64) bool {
	return s != nil && s.room.HitstopUntil != 0 && tick <= s.room.HitstopUntil
}

// Remaining reports how many frozen ticks follow tick.
func (s *Scheduler) Remaining(tick uint64) uint64 {
	if s == nil || s.room.HitstopUntil <= tick {
		return 0
	}
	return s.room.HitstopUntil - tick
}

// Enter is called once at the start of every step. On frozen ticks it
// advances the room's clock offset so the simulation clock stands still.
func (s *Scheduler) Enter(tick uint64) bool {
	if !s.Active(tick) {
		return false
	}
	s.room.ClockOffset++
	s.frozenTicks++
	return true
}

// Decay clears an expired deadline and reports whether a freeze ended on
// tick.
func (s *Scheduler) Decay(tick uint64) bool {
	if s == nil || s.room.HitstopUntil == 0 || tick < s.room.HitstopUntil {
		return false
	}
	s.room.HitstopUntil = 0
	return true
}

// Reset drops any pending freeze.
func (s *Scheduler) Reset() {
	if s == nil {
		return
	}
	s.room.HitstopUntil = 0
}

// Stats reports the number of freezes requested and ticks spent frozen.
func (s *Scheduler) Stats() (freezes, frozenTicks uint64) {
	if s == nil {
		return 0, 0
	}
	return s.freezes, s.frozenTicks
}
