package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"

	"ringclash/server/internal/state"
	"ringclash/server/logging/lifecycle"
)

var (
	// ErrPlayerBusy indicates a contestant is already fighting elsewhere.
	ErrPlayerBusy = errors.New("arena: player already in a match")
	// ErrManagerClosed indicates the manager no longer accepts matches.
	ErrManagerClosed = errors.New("arena: manager closed")
)

// MatchInfo summarises one match for diagnostics.
type MatchInfo struct {
	ID        string         `json:"id"`
	Players   []string       `json:"players"`
	Tick      uint64         `json:"tick"`
	Phase     string         `json:"phase"`
	Round     int            `json:"round"`
	Scores    map[string]int `json:"scores,omitempty"`
	Connected int            `json:"connected"`
	Observers int            `json:"observers"`
	Pending   int            `json:"pending"`
}

// Manager tracks the live matches in creation order.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	matches  *orderedmap.OrderedMap[string, *Match]
	byPlayer map[string]string
	closed   bool
}

// NewManager returns an empty manager whose matches share cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		matches:  orderedmap.NewOrderedMap[string, *Match](),
		byPlayer: make(map[string]string),
	}
}

// Create opens and starts a match for two contestants.
func (m *Manager) Create(left, right state.PlayerSpec) (*Match, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	for _, id := range []string{left.ID, right.ID} {
		if current, ok := m.byPlayer[id]; ok {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s is in %s", ErrPlayerBusy, id, current)
		}
	}
	match, err := NewMatch(uuid.NewString(), left, right, m.cfg)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	match.onClose = m.remove
	m.matches.Set(match.ID(), match)
	m.byPlayer[left.ID] = match.ID()
	m.byPlayer[right.ID] = match.ID()
	m.mu.Unlock()

	lifecycle.MatchCreated(context.Background(), match.cfg.Publisher, match.ID(), lifecycle.MatchCreatedPayload{
		Players:  []string{left.ID, right.ID},
		PowerUps: []string{left.PowerUp.String(), right.PowerUp.String()},
	})
	match.Start()
	return match, nil
}

// Get looks up a live match.
func (m *Manager) Get(id string) (*Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches.Get(id)
}

// MatchOf returns the live match playerID is fighting in.
func (m *Manager) MatchOf(playerID string) (*Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	return m.matches.Get(id)
}

// Len reports the number of live matches.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches.Len()
}

// List summarises every live match in creation order.
func (m *Manager) List() []MatchInfo {
	out := make([]MatchInfo, 0)
	for _, match := range m.live() {
		snapshot := match.Snapshot()
		players := match.Players()
		out = append(out, MatchInfo{
			ID:        match.ID(),
			Players:   []string{players[0].ID, players[1].ID},
			Tick:      snapshot.Tick,
			Phase:     snapshot.Phase,
			Round:     snapshot.Round,
			Scores:    snapshot.Scores,
			Connected: snapshot.Connected,
			Observers: match.ObserverCount(),
			Pending:   match.loop.Pending(),
		})
	}
	return out
}

// Close stops every match and refuses new ones.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, match := range m.live() {
		if err := match.Close(ctx, CloseShutdown); err != nil {
			errs = append(errs, fmt.Errorf("close match %s: %w", match.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) live() []*Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Match, 0, m.matches.Len())
	for el := m.matches.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

func (m *Manager) remove(match *Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches.Delete(match.ID())
	for _, p := range match.Players() {
		if m.byPlayer[p.ID] == match.ID() {
			delete(m.byPlayer, p.ID)
		}
	}
}
