package observability

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestDisabledViewerIsNil(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatalf("expected empty config to be disabled")
	}
	v := Start(Config{}, zerolog.Nop())
	if v != nil {
		t.Fatalf("expected no viewer when disabled")
	}
	v.Stop()
}
