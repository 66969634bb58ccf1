// Package arena owns the live matches: it builds a room and its engine for
// two contestants, runs one loop goroutine per room and fans every frame out
// to the room's observers.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"ringclash/server/internal/config"
	"ringclash/server/internal/delta"
	"ringclash/server/internal/net/proto"
	"ringclash/server/internal/sim"
	"ringclash/server/internal/state"
	"ringclash/server/internal/telemetry"
	"ringclash/server/logging"
	"ringclash/server/logging/lifecycle"
	loggingsimulation "ringclash/server/logging/simulation"
)

const (
	// CloseAbandoned is the close reason once both contestants left.
	CloseAbandoned = "abandoned"
	// CloseShutdown is the close reason used when the server stops.
	CloseShutdown = "shutdown"
	// ClosePanic is the close reason after a recovered loop panic.
	ClosePanic = "panic"
)

// ErrMatchClosed indicates an operation on a match whose loop has stopped.
var ErrMatchClosed = errors.New("arena: match closed")

// Observer receives the encoded frames of one match. Send is called from the
// match loop goroutine and must be safe against the observer's own writes.
type Observer interface {
	ID() string
	Codec() proto.Codec
	Send(frameType int, data []byte) error
}

// Config carries the shared collaborators every match is built with.
type Config struct {
	Tuning    config.Tuning
	Loop      sim.LoopConfig
	Logger    zerolog.Logger
	Publisher logging.Publisher
	Metrics   *telemetry.Counters
	Clock     logging.Clock
	// Seed fixes the room RNG; zero derives one from the clock.
	Seed int64
}

// Match is one running room.
type Match struct {
	id      string
	cfg     Config
	players [2]state.PlayerSpec
	loop    *sim.Loop
	core    *sim.Core
	logger  zerolog.Logger
	created time.Time

	mu        sync.Mutex
	observers map[string]Observer
	joining   map[string]Observer
	left      map[string]bool
	reason    string

	snapshot atomic.Pointer[sim.Snapshot]
	closed   atomic.Bool
	overruns uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onClose  func(*Match)
}

// NewMatch builds the room and engine for two contestants. The loop is not
// started.
func NewMatch(id string, left, right state.PlayerSpec, cfg Config) (*Match, error) {
	if left.ID == "" || right.ID == "" {
		return nil, errors.New("arena: contestant id is empty")
	}
	if left.ID == right.ID {
		return nil, fmt.Errorf("arena: contestant %q cannot fight itself", left.ID)
	}
	if left.ID == state.RoomEntity || right.ID == state.RoomEntity {
		return nil, fmt.Errorf("arena: contestant id %q is reserved", state.RoomEntity)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = cfg.Clock.Now().UnixNano()
	}

	m := &Match{
		id:        id,
		cfg:       cfg,
		players:   [2]state.PlayerSpec{left, right},
		logger:    cfg.Logger.With().Str("match", id).Logger(),
		created:   cfg.Clock.Now(),
		observers: make(map[string]Observer),
		joining:   make(map[string]Observer),
		left:      make(map[string]bool),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	deps := sim.Deps{
		Logger:    telemetry.WrapLogger(m.logger),
		Clock:     cfg.Clock,
		RNG:       rand.New(rand.NewSource(seed)),
		Publisher: cfg.Publisher,
	}
	if cfg.Metrics != nil {
		deps.Metrics = cfg.Metrics
	}
	hooks := sim.LoopHooks{
		AfterStep:     m.afterStep,
		OnCommandDrop: m.commandDropped,
		OnQueueWarning: func(length int) {
			m.logger.Warn().Int("pending", length).Msg("command queue is backing up")
		},
	}
	opts := []sim.EngineOption{sim.WithDeps(deps), sim.WithLoopHooks(hooks)}
	if cfg.Loop != (sim.LoopConfig{}) {
		opts = append(opts, sim.WithLoopConfig(cfg.Loop))
	}
	room := state.NewRoom(id, cfg.Tuning, left, right)
	loop, core, err := sim.NewEngine(room, cfg.Tuning, opts...)
	if err != nil {
		return nil, fmt.Errorf("arena: build engine for %s: %w", id, err)
	}
	m.loop = loop
	m.core = core
	snapshot := core.Snapshot()
	m.snapshot.Store(&snapshot)
	return m, nil
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.id
}

// Players returns the contestants in slot order.
func (m *Match) Players() [2]state.PlayerSpec {
	return m.players
}

// Slot returns the slot of playerID, or -1 for spectators.
func (m *Match) Slot(playerID string) int {
	for i, p := range m.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether playerID is a contestant still in the room.
func (m *Match) HasPlayer(playerID string) bool {
	if m.Slot(playerID) < 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.left[playerID]
}

// Start launches the loop goroutine.
func (m *Match) Start() {
	go m.run()
}

func (m *Match) run() {
	defer close(m.done)
	defer m.finish()
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error().Interface("panic", err).Msg("match loop panicked")
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("match", m.id)
				scope.SetTag("tick", fmt.Sprint(m.Snapshot().Tick))
			})
			hub.Recover(err)
			hub.Flush(2 * time.Second)
			m.setReason(ClosePanic)
		}
	}()
	m.logger.Info().Str("left", m.players[0].ID).Str("right", m.players[1].ID).Msg("match started")
	m.loop.Run(m.stop)
}

// Enqueue stages a command for the next tick.
func (m *Match) Enqueue(cmd sim.Command) (bool, string) {
	if m.closed.Load() {
		return false, sim.CommandRejectQueueFull
	}
	return m.loop.Enqueue(cmd)
}

// Tick reports the last completed tick.
func (m *Match) Tick() uint64 {
	return m.Snapshot().Tick
}

// Snapshot returns the state summary published after the last step.
func (m *Match) Snapshot() sim.Snapshot {
	if s := m.snapshot.Load(); s != nil {
		return *s
	}
	return sim.Snapshot{Room: m.id}
}

// Attach registers an observer. It receives a full frame after the next
// step and deltas from then on. An observer with the same ID is replaced.
func (m *Match) Attach(obs Observer) error {
	if m.closed.Load() {
		return ErrMatchClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, obs.ID())
	m.joining[obs.ID()] = obs
	return nil
}

// Detach drops the observer with id.
func (m *Match) Detach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, id)
	delete(m.joining, id)
}

// RequestResync schedules a full frame for the observer with id. It reports
// whether the observer is attached.
func (m *Match) RequestResync(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	obs, ok := m.observers[id]
	if !ok {
		_, ok = m.joining[id]
		return ok
	}
	delete(m.observers, id)
	m.joining[id] = obs
	return true
}

// ObserverCount reports attached and joining observers.
func (m *Match) ObserverCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers) + len(m.joining)
}

// Stop asks the loop to exit without waiting for it.
func (m *Match) Stop(reason string) {
	m.setReason(reason)
	m.stopOnce.Do(func() {
		m.closed.Store(true)
		close(m.stop)
	})
}

// Close stops the loop and waits until the match is torn down. It must not
// be called from the loop goroutine.
func (m *Match) Close(ctx context.Context, reason string) error {
	m.Stop(reason)
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the match has been torn down.
func (m *Match) Done() <-chan struct{} {
	return m.done
}

func (m *Match) setReason(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reason == "" || reason == ClosePanic {
		m.reason = reason
	}
}

func (m *Match) closeReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// step runs one tick on the calling goroutine. Tests use it in place of the
// loop.
func (m *Match) step(now time.Time) sim.LoopStepResult {
	start := time.Now()
	result := m.loop.Advance(sim.LoopTickContext{Tick: m.Tick() + 1, Now: now})
	result.Duration = time.Since(start)
	m.afterStep(result)
	return result
}

func (m *Match) afterStep(result sim.LoopStepResult) {
	snapshot := result.Snapshot
	m.snapshot.Store(&snapshot)
	ctx := context.Background()

	m.cfg.Metrics.ObserveTick(m.id, result.Duration)
	if result.Budget > 0 && result.Duration > result.Budget {
		m.overruns++
		loggingsimulation.TickBudgetOverrun(ctx, m.cfg.Publisher, snapshot.Tick, m.id, loggingsimulation.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
			Streak:         m.overruns,
		}, nil)
	} else {
		m.overruns = 0
	}
	if result.ApplyErr != nil {
		m.logger.Debug().Err(result.ApplyErr).Uint64("tick", snapshot.Tick).Msg("commands skipped")
	}

	for _, id := range result.RemovedPlayers {
		m.mu.Lock()
		m.left[id] = true
		m.mu.Unlock()
		reason := ""
		for _, cmd := range result.Commands {
			if cmd.ActorID == id && cmd.Type == sim.CommandLeave && cmd.Leave != nil {
				reason = cmd.Leave.Reason
			}
		}
		lifecycle.PlayerDisconnected(ctx, m.cfg.Publisher, snapshot.Tick,
			logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer},
			lifecycle.PlayerDisconnectedPayload{Reason: reason},
			map[string]any{"room": m.id},
		)
	}

	m.broadcast(snapshot.Frame)

	if snapshot.Connected == 0 {
		m.Stop(CloseAbandoned)
	}
}

// broadcast sends full frames to joining observers and frame to the rest.
// Each payload is encoded once per codec.
func (m *Match) broadcast(frame delta.Frame) {
	m.mu.Lock()
	joining := m.joining
	m.joining = make(map[string]Observer)
	targets := make([]Observer, 0, len(m.observers))
	for _, obs := range m.observers {
		targets = append(targets, obs)
	}
	for id, obs := range joining {
		m.observers[id] = obs
	}
	m.mu.Unlock()

	now := m.cfg.Clock.Now().UnixMilli()
	if len(joining) > 0 {
		full := newEncodeCache(proto.NewState(proto.State{
			Match:      m.id,
			Frame:      m.core.FullFrame(),
			ServerTime: now,
			Resync:     true,
		}))
		for _, obs := range joining {
			m.send(obs, full)
		}
	}
	if len(targets) > 0 {
		cache := newEncodeCache(proto.NewState(proto.State{Match: m.id, Frame: frame, ServerTime: now}))
		for _, obs := range targets {
			m.send(obs, cache)
		}
	}
}

func (m *Match) send(obs Observer, cache *encodeCache) {
	codec := obs.Codec()
	data, err := cache.get(codec)
	if err != nil {
		m.logger.Error().Err(err).Str("codec", codec.Name()).Msg("failed to encode frame")
		return
	}
	if err := obs.Send(codec.FrameType(), data); err != nil {
		m.logger.Debug().Err(err).Str("observer", obs.ID()).Msg("dropping observer")
		m.Detach(obs.ID())
	}
}

// finish notifies observers and publishes the close event. It runs on the
// loop goroutine after the loop exits.
func (m *Match) finish() {
	m.closed.Store(true)
	reason := m.closeReason()
	if reason == "" {
		reason = CloseShutdown
	}
	snapshot := m.Snapshot()

	m.mu.Lock()
	observers := make([]Observer, 0, len(m.observers)+len(m.joining))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	for _, obs := range m.joining {
		observers = append(observers, obs)
	}
	m.observers = make(map[string]Observer)
	m.joining = make(map[string]Observer)
	m.mu.Unlock()

	cache := newEncodeCache(proto.NewMatchClosed(m.id, reason, snapshot.Scores))
	for _, obs := range observers {
		codec := obs.Codec()
		if data, err := cache.get(codec); err == nil {
			_ = obs.Send(codec.FrameType(), data)
		}
		if closer, ok := obs.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	lifecycle.MatchClosed(context.Background(), m.cfg.Publisher, snapshot.Tick, m.id, lifecycle.MatchClosedPayload{
		Reason: reason,
		Ticks:  snapshot.Tick,
		Scores: snapshot.Scores,
	})
	m.logger.Info().Str("reason", reason).Uint64("ticks", snapshot.Tick).Msg("match closed")
	if m.onClose != nil {
		m.onClose(m)
	}
}

func (m *Match) commandDropped(reason string, cmd sim.Command) {
	loggingsimulation.CommandDropped(context.Background(), m.cfg.Publisher, m.Tick(),
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindPlayer},
		loggingsimulation.CommandDroppedPayload{Reason: reason, Command: string(cmd.Type)},
		map[string]any{"room": m.id},
	)
}

// encodeCache encodes one message at most once per codec.
type encodeCache struct {
	msg     any
	encoded map[string][]byte
}

func newEncodeCache(msg any) *encodeCache {
	return &encodeCache{msg: msg, encoded: make(map[string][]byte, 2)}
}

func (c *encodeCache) get(codec proto.Codec) ([]byte, error) {
	if data, ok := c.encoded[codec.Name()]; ok {
		return data, nil
	}
	data, err := codec.Marshal(c.msg)
	if err != nil {
		return nil, err
	}
	c.encoded[codec.Name()] = data
	return data, nil
}
