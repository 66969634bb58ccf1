package sim

import (
	"errors"

	"ringclash/server/internal/config"
	"ringclash/server/internal/state"
)

// ErrMissingEngineCore indicates the loop could not be built around the core.
var ErrMissingEngineCore = errors.New("sim: engine core is nil")

// EngineOption configures NewEngine behaviour. Options are applied in order;
// later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

type engineConfig struct {
	deps       Deps
	loopConfig LoopConfig
	loopHooks  LoopHooks
}

// WithDeps injects shared infrastructure dependencies used by the engine core
// and loop orchestration.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithLoopConfig overrides the default command queue and tick loop sizing.
func WithLoopConfig(config LoopConfig) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopConfig = config
	})
}

// WithLoopHooks supplies custom loop callbacks.
func WithLoopHooks(hooks LoopHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopHooks = hooks
	})
}

// NewEngine builds the simulation core for room and wraps it in a Loop.
// The returned core is the same one the loop drives; callers must only touch
// it from the loop goroutine.
func NewEngine(room *state.Room, tuning config.Tuning, opts ...EngineOption) (*Loop, *Core, error) {
	cfg := engineConfig{loopConfig: DefaultLoopConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	core, err := NewCore(room, tuning, cfg.deps)
	if err != nil {
		return nil, nil, err
	}
	loop := NewLoop(core, cfg.loopConfig, cfg.loopHooks)
	if loop == nil {
		return nil, nil, ErrMissingEngineCore
	}
	return loop, core, nil
}
