package proto

import (
	"fmt"

	"ringclash/server/internal/delta"
	"ringclash/server/internal/sim"
	"ringclash/server/internal/state"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeJoined        = "joined"
	typeState         = "state"
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeMatchClosed   = "matchClosed"
)

// Client message type identifiers.
const (
	TypeInput     = "input"
	TypeHeartbeat = "heartbeat"
	TypeResync    = "resync"
	TypeLeave     = "leave"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeJoined      = typeJoined
	TypeState       = typeState
	TypeMatchClosed = typeMatchClosed
)

// InputState is the named-boolean form of one key snapshot.
type InputState struct {
	Left    bool `json:"left,omitempty" msgpack:"left,omitempty"`
	Right   bool `json:"right,omitempty" msgpack:"right,omitempty"`
	Up      bool `json:"up,omitempty" msgpack:"up,omitempty"`
	Down    bool `json:"down,omitempty" msgpack:"down,omitempty"`
	Dodge   bool `json:"dodge,omitempty" msgpack:"dodge,omitempty"`
	Grab    bool `json:"grab,omitempty" msgpack:"grab,omitempty"`
	Light   bool `json:"light,omitempty" msgpack:"light,omitempty"`
	Heavy   bool `json:"heavy,omitempty" msgpack:"heavy,omitempty"`
	Guard   bool `json:"guard,omitempty" msgpack:"guard,omitempty"`
	Throw   bool `json:"throw,omitempty" msgpack:"throw,omitempty"`
	Special bool `json:"special,omitempty" msgpack:"special,omitempty"`
}

func (in InputState) flags() []struct {
	set    bool
	button state.Buttons
} {
	return []struct {
		set    bool
		button state.Buttons
	}{
		{in.Left, state.ButtonLeft},
		{in.Right, state.ButtonRight},
		{in.Up, state.ButtonUp},
		{in.Down, state.ButtonDown},
		{in.Dodge, state.ButtonDodge},
		{in.Grab, state.ButtonGrab},
		{in.Light, state.ButtonLight},
		{in.Heavy, state.ButtonHeavy},
		{in.Guard, state.ButtonGuard},
		{in.Throw, state.ButtonThrow},
		{in.Special, state.ButtonSpecial},
	}
}

// Buttons packs the snapshot into the simulation bitset.
func (in InputState) Buttons() state.Buttons {
	var buttons state.Buttons
	for _, flag := range in.flags() {
		if flag.set {
			buttons |= flag.button
		}
	}
	return buttons
}

// InputFromButtons unpacks a bitset into its named form.
func InputFromButtons(b state.Buttons) InputState {
	return InputState{
		Left:    b.Any(state.ButtonLeft),
		Right:   b.Any(state.ButtonRight),
		Up:      b.Any(state.ButtonUp),
		Down:    b.Any(state.ButtonDown),
		Dodge:   b.Any(state.ButtonDodge),
		Grab:    b.Any(state.ButtonGrab),
		Light:   b.Any(state.ButtonLight),
		Heavy:   b.Any(state.ButtonHeavy),
		Guard:   b.Any(state.ButtonGuard),
		Throw:   b.Any(state.ButtonThrow),
		Special: b.Any(state.ButtonSpecial),
	}
}

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int         `json:"ver,omitempty" msgpack:"ver,omitempty"`
	Type       string      `json:"type" msgpack:"type"`
	Input      *InputState `json:"input,omitempty" msgpack:"input,omitempty"`
	SentAt     int64       `json:"sentAt,omitempty" msgpack:"sentAt,omitempty"`
	CommandSeq *uint64     `json:"seq,omitempty" msgpack:"seq,omitempty"`
	Tick       uint64      `json:"tick,omitempty" msgpack:"tick,omitempty"`
	Checksum   uint64      `json:"checksum,omitempty" msgpack:"checksum,omitempty"`
	Reason     string      `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(codec Codec, payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := codec.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the simulation command carried by a websocket
// message. Actor and origin metadata are filled in by the session.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		if msg.Input == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:  sim.CommandInput,
			Input: &sim.InputCommand{Buttons: msg.Input.Buttons()},
		}, true
	case TypeLeave:
		return sim.Command{
			Type:  sim.CommandLeave,
			Leave: &sim.LeaveCommand{Reason: msg.Reason},
		}, true
	default:
		return sim.Command{}, false
	}
}

// Joined confirms a websocket attachment.
type Joined struct {
	Ver       int    `json:"ver" msgpack:"ver"`
	Type      string `json:"type" msgpack:"type"`
	Match     string `json:"match" msgpack:"match"`
	Player    string `json:"player,omitempty" msgpack:"player,omitempty"`
	Slot      int    `json:"slot" msgpack:"slot"`
	Spectator bool   `json:"spectator,omitempty" msgpack:"spectator,omitempty"`
	TickRate  int    `json:"tickRate" msgpack:"tickRate"`
}

// State wraps one delta frame for observers.
type State struct {
	Ver        int         `json:"ver" msgpack:"ver"`
	Type       string      `json:"type" msgpack:"type"`
	Match      string      `json:"match" msgpack:"match"`
	Frame      delta.Frame `json:"frame" msgpack:"frame"`
	ServerTime int64       `json:"serverTime" msgpack:"serverTime"`
	Resync     bool        `json:"resync,omitempty" msgpack:"resync,omitempty"`
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Ver  int    `json:"ver" msgpack:"ver"`
	Type string `json:"type" msgpack:"type"`
	Seq  uint64 `json:"seq" msgpack:"seq"`
	Tick uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Ver    int    `json:"ver" msgpack:"ver"`
	Type   string `json:"type" msgpack:"type"`
	Seq    uint64 `json:"seq" msgpack:"seq"`
	Reason string `json:"reason" msgpack:"reason"`
	Retry  bool   `json:"retry,omitempty" msgpack:"retry,omitempty"`
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	Ver        int    `json:"ver" msgpack:"ver"`
	Type       string `json:"type" msgpack:"type"`
	ServerTime int64  `json:"serverTime" msgpack:"serverTime"`
	ClientTime int64  `json:"clientTime" msgpack:"clientTime"`
	RTTMillis  int64  `json:"rtt" msgpack:"rtt"`
}

// MatchClosed tells observers the room is gone.
type MatchClosed struct {
	Ver    int            `json:"ver" msgpack:"ver"`
	Type   string         `json:"type" msgpack:"type"`
	Match  string         `json:"match" msgpack:"match"`
	Reason string         `json:"reason" msgpack:"reason"`
	Scores map[string]int `json:"scores,omitempty" msgpack:"scores,omitempty"`
}

// NewJoined stamps version and type on a join confirmation.
func NewJoined(msg Joined) Joined {
	msg.Ver = Version
	msg.Type = typeJoined
	return msg
}

// NewState stamps version and type on a frame message.
func NewState(msg State) State {
	msg.Ver = Version
	msg.Type = typeState
	return msg
}

// NewCommandAck builds an acknowledgement for seq.
func NewCommandAck(seq, tick uint64) CommandAck {
	return CommandAck{Ver: Version, Type: typeCommandAck, Seq: seq, Tick: tick}
}

// NewCommandReject builds a rejection for seq.
func NewCommandReject(seq uint64, reason string, retry bool) CommandReject {
	return CommandReject{Ver: Version, Type: typeCommandReject, Seq: seq, Reason: reason, Retry: retry}
}

// NewHeartbeat builds a heartbeat echo.
func NewHeartbeat(serverTime, clientTime, rttMillis int64) Heartbeat {
	return Heartbeat{Ver: Version, Type: typeHeartbeat, ServerTime: serverTime, ClientTime: clientTime, RTTMillis: rttMillis}
}

// NewMatchClosed builds the final message of a room.
func NewMatchClosed(match, reason string, scores map[string]int) MatchClosed {
	return MatchClosed{Ver: Version, Type: typeMatchClosed, Match: match, Reason: reason, Scores: scores}
}
