package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringclash/server/internal/arena"
	"ringclash/server/internal/config"
	"ringclash/server/internal/net/intake"
	"ringclash/server/internal/net/proto"
	"ringclash/server/internal/sim"
	"ringclash/server/internal/state"
)

type envelope struct {
	Type      string `json:"type" msgpack:"type"`
	Seq       uint64 `json:"seq" msgpack:"seq"`
	Reason    string `json:"reason" msgpack:"reason"`
	Retry     bool   `json:"retry" msgpack:"retry"`
	Slot      int    `json:"slot" msgpack:"slot"`
	Spectator bool   `json:"spectator" msgpack:"spectator"`
	Resync    bool   `json:"resync" msgpack:"resync"`
}

type fixture struct {
	manager *arena.Manager
	match   *arena.Match
	server  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := arena.NewManager(arena.Config{
		Tuning: config.DefaultTuning(),
		Loop:   sim.DefaultLoopConfig(),
		Logger: zerolog.Nop(),
		Seed:   11,
	})
	match, err := manager.Create(state.PlayerSpec{ID: "a"}, state.PlayerSpec{ID: "b"})
	require.NoError(t, err)

	handler := NewHandler(manager, HandlerConfig{Logger: zerolog.Nop(), TickRate: 64})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Close(ctx)
	})
	return &fixture{manager: manager, match: match, server: srv}
}

func (f *fixture) dial(t *testing.T, player, codec string) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	q := u.Query()
	q.Set(QueryMatch, f.match.ID())
	if player != "" {
		q.Set(QueryPlayer, player)
	}
	if codec != "" {
		q.Set(QueryCodec, codec)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of type want arrives.
func next(t *testing.T, conn *websocket.Conn, codec proto.Codec, want string) envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(deadline))
		frameType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, codec.FrameType(), frameType)
		var env envelope
		require.NoError(t, codec.Unmarshal(data, &env))
		if env.Type == want {
			return env
		}
	}
	t.Fatalf("expected a %q message", want)
	return envelope{}
}

func send(t *testing.T, conn *websocket.Conn, codec proto.Codec, msg proto.ClientMessage) {
	t.Helper()
	data, err := codec.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(codec.FrameType(), data))
}

func TestHandleRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.manager, HandlerConfig{Logger: zerolog.Nop()})

	for name, tc := range map[string]struct {
		query  string
		status int
	}{
		"missing match": {query: "", status: http.StatusBadRequest},
		"unknown match": {query: "match=nope", status: http.StatusNotFound},
		"unknown codec": {query: "match=" + f.match.ID() + "&codec=xml", status: http.StatusBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Handle(rec, httptest.NewRequest(http.MethodGet, "/ws?"+tc.query, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestPlayerJoinsAndReceivesFullFrame(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "b", "")

	joined := next(t, conn, proto.JSON, proto.TypeJoined)
	assert.Equal(t, 1, joined.Slot)
	assert.False(t, joined.Spectator)

	first := next(t, conn, proto.JSON, proto.TypeState)
	assert.True(t, first.Resync)
}

func TestInputIsAcknowledgedOnce(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "a", proto.CodecJSON)
	next(t, conn, proto.JSON, proto.TypeJoined)

	seq := uint64(1)
	msg := proto.ClientMessage{Type: proto.TypeInput, Input: &proto.InputState{Right: true}, CommandSeq: &seq}
	send(t, conn, proto.JSON, msg)
	ack := next(t, conn, proto.JSON, "commandAck")
	assert.Equal(t, seq, ack.Seq)

	send(t, conn, proto.JSON, msg)
	dup := next(t, conn, proto.JSON, "commandAck")
	assert.Equal(t, seq, dup.Seq)
}

func TestSpectatorCommandsAreRejected(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "", proto.CodecMsgpack)

	joined := next(t, conn, proto.Msgpack, proto.TypeJoined)
	assert.True(t, joined.Spectator)
	assert.Equal(t, -1, joined.Slot)

	seq := uint64(4)
	send(t, conn, proto.Msgpack, proto.ClientMessage{Type: proto.TypeInput, Input: &proto.InputState{}, CommandSeq: &seq})
	reject := next(t, conn, proto.Msgpack, "commandReject")
	assert.Equal(t, seq, reject.Seq)
	assert.Equal(t, intake.CommandRejectUnknownActor, reject.Reason)
	assert.False(t, reject.Retry)
}

func TestHeartbeatIsEchoed(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "a", "")
	next(t, conn, proto.JSON, proto.TypeJoined)

	send(t, conn, proto.JSON, proto.ClientMessage{Type: proto.TypeHeartbeat, SentAt: time.Now().UnixMilli()})
	next(t, conn, proto.JSON, "heartbeat")
}

func TestResyncRequestSendsFullFrame(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "a", "")
	next(t, conn, proto.JSON, proto.TypeJoined)
	first := next(t, conn, proto.JSON, proto.TypeState)
	require.True(t, first.Resync)

	send(t, conn, proto.JSON, proto.ClientMessage{Type: proto.TypeResync, Tick: 1, Checksum: 99})
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if next(t, conn, proto.JSON, proto.TypeState).Resync {
			return
		}
	}
	t.Fatalf("expected a resync frame")
}

func TestDroppedConnectionLeavesMatch(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "a", "")
	next(t, conn, proto.JSON, proto.TypeJoined)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return !f.match.HasPlayer("a") }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, f.match.HasPlayer("b"))
}

func TestReconnectReplacesPreviousConnection(t *testing.T) {
	f := newFixture(t)
	first := f.dial(t, "a", "")
	next(t, first, proto.JSON, proto.TypeJoined)

	second := f.dial(t, "a", "")
	next(t, second, proto.JSON, proto.TypeJoined)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	// The player is still in the room through the second connection.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, f.match.HasPlayer("a"))
}
