package sim

import (
	"time"

	"ringclash/server/internal/state"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandInput CommandType = "Input"
	CommandLeave CommandType = "Leave"
)

// InputCommand carries a full key snapshot. Edges are derived against the
// previous buffered snapshot when the command is applied.
type InputCommand struct {
	Buttons state.Buttons `json:"buttons"`
}

// LeaveCommand removes the actor from the room.
type LeaveCommand struct {
	Reason string `json:"reason,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Input      *InputCommand `json:"input,omitempty"`
	Leave      *LeaveCommand `json:"leave,omitempty"`
}
