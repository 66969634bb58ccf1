// Command schema writes JSON schemas for the configuration file and the
// websocket messages.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"ringclash/server/internal/config"
	"ringclash/server/internal/net/proto"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schemas := buildSchemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeSchema(filepath.Join(outDir, name+".schema.json"), schemas[name]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{}

	out := make(map[string]*jsonschema.Schema)
	add := func(name, title, description string, v any) {
		schema := reflector.Reflect(v)
		schema.Title = title
		schema.Description = description
		out[name] = schema
	}

	add("config", "RingClash Server Configuration",
		"Validates ringclash.json: process settings and the combat tuning table", new(config.Config))
	add("client", "RingClash Client Message", "Messages a client sends over the match websocket", new(proto.ClientMessage))
	add("joined", "RingClash Join Confirmation", "First message on every match websocket", new(proto.Joined))
	add("state", "RingClash State Frame", "Per-tick delta or full frame", new(proto.State))
	add("command-ack", "RingClash Command Ack", "Acknowledges a staged command", new(proto.CommandAck))
	add("command-reject", "RingClash Command Reject", "Refuses a command", new(proto.CommandReject))
	add("heartbeat", "RingClash Heartbeat", "Heartbeat echo with round-trip time", new(proto.Heartbeat))
	add("match-closed", "RingClash Match Closed", "Final message before the server closes the socket", new(proto.MatchClosed))
	return out
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
