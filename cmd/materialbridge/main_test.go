package main

import (
	"testing"

	"materialbridge/internal/config"
)

func TestApplyRunFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	if err := applyRunFlags(cfg, "ledger", "csv"); err != nil {
		t.Fatalf("applyRunFlags failed: %v", err)
	}
	if cfg.Planning.NeedSource != "ledger" {
		t.Fatalf("need_source=%q", cfg.Planning.NeedSource)
	}

	cases := []struct {
		name, need, format string
	}{
		{name: "unknown need source", need: "foo", format: "text"},
		{name: "unknown format", need: "", format: "xml"},
	}
	for _, tc := range cases {
		if err := applyRunFlags(config.DefaultConfig(), tc.need, tc.format); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
