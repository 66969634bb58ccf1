package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringclash/server/internal/config"
	"ringclash/server/internal/delta"
	"ringclash/server/internal/match"
	"ringclash/server/internal/sim"
	"ringclash/server/internal/state"
)

func TestClientCommand(t *testing.T) {
	t.Run("input command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{
			Type:  TypeInput,
			Input: &InputState{Right: true, Heavy: true},
		})
		require.True(t, ok)
		assert.Equal(t, sim.CommandInput, cmd.Type)
		require.NotNil(t, cmd.Input)
		assert.Equal(t, state.ButtonRight|state.ButtonHeavy, cmd.Input.Buttons)
	})

	t.Run("input without snapshot", func(t *testing.T) {
		_, ok := ClientCommand(ClientMessage{Type: TypeInput})
		assert.False(t, ok)
	})

	t.Run("leave command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeLeave, Reason: "rage quit"})
		require.True(t, ok)
		assert.Equal(t, sim.CommandLeave, cmd.Type)
		require.NotNil(t, cmd.Leave)
		assert.Equal(t, "rage quit", cmd.Leave.Reason)
	})

	t.Run("heartbeat is not a command", func(t *testing.T) {
		_, ok := ClientCommand(ClientMessage{Type: TypeHeartbeat})
		assert.False(t, ok)
	})
}

func TestInputStateCoversEveryButton(t *testing.T) {
	all := state.Buttons(0)
	state.ForEachButton(^state.Buttons(0), func(b state.Buttons) { all |= b })
	in := InputFromButtons(all)
	assert.Equal(t, all, in.Buttons())
	assert.Equal(t, state.Buttons(0), InputState{}.Buttons())
}

func TestDecodeClientMessage(t *testing.T) {
	for _, codec := range Codecs() {
		t.Run(codec.Name(), func(t *testing.T) {
			seq := uint64(9)
			raw, err := codec.Marshal(ClientMessage{Type: TypeInput, Input: &InputState{Guard: true}, CommandSeq: &seq})
			require.NoError(t, err)

			msg, err := DecodeClientMessage(codec, raw)
			require.NoError(t, err)
			assert.Equal(t, Version, msg.Ver)
			require.NotNil(t, msg.CommandSeq)
			assert.Equal(t, seq, *msg.CommandSeq)
			require.NotNil(t, msg.Input)
			assert.True(t, msg.Input.Guard)
		})
	}
}

func TestDecodeClientMessageRejectsVersion(t *testing.T) {
	_, err := DecodeClientMessage(JSON, []byte(`{"ver":7,"type":"input"}`))
	require.Error(t, err)

	_, err = DecodeClientMessage(JSON, []byte(`{not json`))
	require.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	codec, err := CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, CodecJSON, codec.Name())

	codec, err = CodecByName(CodecMsgpack)
	require.NoError(t, err)
	assert.Equal(t, CodecMsgpack, codec.Name())

	_, err = CodecByName("xml")
	require.Error(t, err)
}

// Both codecs must carry a frame that still replays to the same checksum.
func TestStateFrameSurvivesEveryCodec(t *testing.T) {
	tuning := config.DefaultTuning()
	room := state.NewRoom("room-1", tuning, state.PlayerSpec{ID: "a"}, state.PlayerSpec{ID: "b"})
	frame := delta.NewSynchronizer(tuning).Diff(room)
	frame.Events = []match.CombatEvent{{ID: "room-1:0:1", Kind: match.EventDodge, ActorID: "a"}}
	order := []string{"a", "b"}

	for _, codec := range Codecs() {
		t.Run(codec.Name(), func(t *testing.T) {
			raw, err := codec.Marshal(NewState(State{Match: "m-1", Frame: frame}))
			require.NoError(t, err)

			var decoded State
			require.NoError(t, codec.Unmarshal(raw, &decoded))
			assert.Equal(t, TypeState, decoded.Type)
			assert.Equal(t, Version, decoded.Ver)
			require.Len(t, decoded.Frame.Events, 1)
			assert.Equal(t, match.EventDodge, decoded.Frame.Events[0].Kind)

			replayed, err := delta.Apply(nil, decoded.Frame)
			require.NoError(t, err)
			assert.Equal(t, frame.Checksum, delta.ChecksumOf(replayed, order))
		})
	}
}
