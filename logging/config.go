package logging

import "time"

// Config shapes the gameplay event router: which sinks run, how much each
// may queue and which events are dropped before they reach a sink.
type Config struct {
	// EnabledSinks names the sinks to start, e.g. "console" or "json".
	EnabledSinks []string
	// BufferSize is the per-sink queue depth; a full queue drops events.
	BufferSize      int
	MinimumSeverity Severity
	// Fields are stamped onto every event, typically the server instance.
	Fields  map[string]any
	JSON    JSONConfig
	Console ConsoleConfig
	// DropWarnInterval rate-limits the fallback warning about dropped events.
	DropWarnInterval time.Duration
}

// JSONConfig controls the NDJSON sink. An empty FilePath writes to the
// process output.
type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether name is enabled.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
