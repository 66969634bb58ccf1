package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildSchemasCoversConfigAndMessages(t *testing.T) {
	schemas := buildSchemas()
	for _, name := range []string{"config", "client", "state", "match-closed"} {
		if _, ok := schemas[name]; !ok {
			t.Fatalf("expected schema %q", name)
		}
	}

	data, err := json.Marshal(schemas["config"])
	if err != nil {
		t.Fatalf("marshal config schema: %v", err)
	}
	for _, field := range []string{`"tuning"`, `"server"`, `"tickRate"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("expected config schema to mention %s", field)
		}
	}
}

func TestWriteSchemaReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.schema.json")
	if err := writeSchema(path, buildSchemas()["client"]); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !strings.Contains(string(data), "RingClash Client Message") {
		t.Fatalf("expected title in written schema")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away")
	}
}
