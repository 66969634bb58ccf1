package sim

import (
	"context"
	"errors"
	"fmt"

	"ringclash/server/internal/combat"
	"ringclash/server/internal/config"
	"ringclash/server/internal/delta"
	"ringclash/server/internal/grapple"
	"ringclash/server/internal/match"
	"ringclash/server/internal/projectile"
	"ringclash/server/internal/state"
	combatlog "ringclash/server/logging/combat"
)

const (
	ticksMetricKey        = "room_ticks_total"
	frozenTicksMetricKey  = "room_hitstop_frozen_ticks_total"
	commandsMetricKey     = "room_commands_applied_total"
	unknownActorMetricKey = "room_commands_unknown_actor_total"
)

var (
	// ErrMissingRoom indicates NewCore was invoked without a room.
	ErrMissingRoom = errors.New("sim: room is nil")
	// ErrUnknownActor indicates a command named a player that is not in the room.
	ErrUnknownActor = errors.New("sim: unknown actor")
)

// Core is the authoritative simulation of one room. It is single-threaded:
// Apply and Step must be called from the room's loop goroutine only.
type Core struct {
	env     *match.Env
	sync    *delta.Synchronizer
	deps    Deps
	last    delta.Frame
	removed []string
}

// NewCore binds a simulation to room. The first diff is taken immediately so
// the first Step already produces a delta.
func NewCore(room *state.Room, tuning config.Tuning, deps Deps) (*Core, error) {
	if room == nil {
		return nil, ErrMissingRoom
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("sim: invalid tuning: %w", err)
	}
	c := &Core{
		env:  match.NewEnv(room, tuning, deps.RNG),
		sync: delta.NewSynchronizer(tuning),
		deps: deps,
	}
	c.last = c.sync.Diff(room)
	return c, nil
}

// Deps returns the injected dependencies.
func (c *Core) Deps() Deps {
	return c.deps
}

// Env exposes the room environment to the match manager and tests.
func (c *Core) Env() *match.Env {
	return c.env
}

// Room returns the simulated room.
func (c *Core) Room() *state.Room {
	return c.env.Room
}

// Apply buffers inputs and processes leaves in arrival order. Commands for
// unknown actors are skipped and reported together.
func (c *Core) Apply(cmds []Command) error {
	var errs []error
	room := c.env.Room
	for _, cmd := range cmds {
		p := room.Player(cmd.ActorID)
		if p == nil {
			c.metricAdd(unknownActorMetricKey, 1)
			errs = append(errs, fmt.Errorf("%w: %q (%s)", ErrUnknownActor, cmd.ActorID, cmd.Type))
			continue
		}
		switch cmd.Type {
		case CommandInput:
			if cmd.Input != nil {
				p.Input.Push(cmd.Input.Buttons)
			}
		case CommandLeave:
			reason := ""
			if cmd.Leave != nil {
				reason = cmd.Leave.Reason
			}
			c.leave(p, reason)
		default:
			errs = append(errs, fmt.Errorf("sim: unsupported command %q", cmd.Type))
			continue
		}
		c.metricAdd(commandsMetricKey, 1)
	}
	return errors.Join(errs...)
}

// leave drops p from the room. The grapple must be released before the slot
// is emptied so the partner is freed too.
func (c *Core) leave(p *state.Player, reason string) {
	env := c.env
	grapple.Release(env, p)
	env.Registry.CancelAll(p.ID)
	env.Emit(match.EventDisconnect, p, nil, match.WithRole(reason))
	env.Room.RemovePlayer(p.ID)
	c.removed = append(c.removed, p.ID)
}

// Step advances the room by one tick.
func (c *Core) Step() {
	env := c.env
	room := env.Room
	room.Tick++
	frozen := env.Hitstop.Enter(room.Tick)
	env.Registry.Advance(room.Tick)

	if !frozen {
		if room.Phase == state.PhaseFighting {
			for _, p := range room.Players() {
				dispatch(env, p)
			}
		}
		integrate(env)
		combat.Resolve(env)
		grapple.Step(env)
		projectile.Step(env)
		regenerate(env)
		for _, p := range room.Players() {
			p.Input.ClearEdges()
		}
	} else {
		c.metricAdd(frozenTicksMetricKey, 1)
	}
	env.Hitstop.Decay(room.Tick)

	frame := c.sync.Diff(room)
	frame.Hitstop = frozen
	frame.Events = env.DrainEvents()
	c.last = frame
	combatlog.PublishAll(context.Background(), c.deps.Publisher, room.ID, frame.Events)
	c.metricAdd(ticksMetricKey, 1)
}

// Snapshot reports the state after the last step.
func (c *Core) Snapshot() Snapshot {
	room := c.env.Room
	snapshot := Snapshot{
		Room:    room.ID,
		Tick:    room.Tick,
		SimTick: room.Now(),
		Phase:   room.Phase.String(),
		Round:   room.Round,
		Scores:  make(map[string]int, len(room.Slots)),
		Frame:   c.last,
	}
	for _, p := range room.Players() {
		snapshot.Scores[p.ID] = p.Score
		if p.Connected {
			snapshot.Connected++
		}
	}
	return snapshot
}

// FullFrame returns a full record of the last stepped state for a newly
// attached observer.
func (c *Core) FullFrame() delta.Frame {
	return c.sync.Full()
}

// RemovedPlayers returns the players removed since the last call.
func (c *Core) RemovedPlayers() []string {
	removed := c.removed
	c.removed = nil
	return removed
}

func (c *Core) metricAdd(key string, n uint64) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.Add(key, n)
	}
}

var _ EngineCore = (*Core)(nil)
