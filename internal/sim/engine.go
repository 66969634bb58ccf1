package sim

import "ringclash/server/internal/delta"

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step()
	Snapshot() Snapshot
	FullFrame() delta.Frame
}

// EngineCore is the per-room simulation a Loop drives.
type EngineCore interface {
	Engine
	Deps() Deps
}
