// Package intake validates client messages and stages the resulting
// simulation commands on a room's queue.
package intake

import (
	"time"

	"ringclash/server/internal/net/proto"
	"ringclash/server/internal/sim"
)

const (
	// CommandRejectInvalid indicates the message did not describe a command.
	CommandRejectInvalid = "invalid_command"
	// CommandRejectUnknownActor indicates the sender is not a contestant.
	CommandRejectUnknownActor = "unknown_actor"
)

// Enqueuer is the staging side of a room loop.
type Enqueuer interface {
	Enqueue(sim.Command) (bool, string)
}

// CommandContext supplies the room-side collaborators for staging.
type CommandContext struct {
	Engine    Enqueuer
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand converts msg into a command for playerID and enqueues it.
// It returns the staged command or the reject reason.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, CommandRejectInvalid
	}

	switch command.Type {
	case sim.CommandInput:
		if command.Input == nil {
			return zero, false, CommandRejectInvalid
		}
	case sim.CommandLeave:
	default:
		return zero, false, CommandRejectInvalid
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, CommandRejectUnknownActor
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}

// Retryable reports whether a rejected command may succeed if resent.
func Retryable(reason string) bool {
	return reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
}
