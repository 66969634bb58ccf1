package sim

import "ringclash/server/internal/delta"

// Snapshot captures the state exposed to non-simulation callers after a step.
type Snapshot struct {
	Room      string         `json:"room"`
	Tick      uint64         `json:"tick"`
	SimTick   uint64         `json:"simTick"`
	Phase     string         `json:"phase"`
	Round     int            `json:"round"`
	Scores    map[string]int `json:"scores,omitempty"`
	Connected int            `json:"connected"`
	Frame     delta.Frame    `json:"-"`
}
