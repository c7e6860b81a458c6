package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromDir_Defaults(t *testing.T) {
	cfg, info, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if info.FileFound || info.PortSpecified {
		t.Fatalf("info=%+v", info)
	}
	if cfg.Sheets.Requirement != "RM TOTAL REQUIREMENT" || cfg.Planning.NeedSource != "explosion" || !cfg.Planning.StrictAlignment {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromDir_TomlAndEnv(t *testing.T) {
	dir := t.TempDir()
	toml := `
[server]
port = 18080

[sheets]
plan = "Weekly Plan"

[detect]
header_keywords = ["Part No"]

[planning]
need_source = "ledger"
strict_alignment = false
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MB_SHEET_COVERAGE=Supply\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("MB_SHEET_COVERAGE") })
	t.Setenv("MB_SHEET_BOM", "Bill")

	cfg, info, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if !info.FileFound || !info.PortSpecified || !info.EnvFileLoaded {
		t.Fatalf("info=%+v", info)
	}
	if cfg.Server.Port != 18080 || cfg.Sheets.Plan != "Weekly Plan" || cfg.Sheets.BOM != "Bill" || cfg.Sheets.Coverage != "Supply" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Detect.HeaderKeywords) != 1 || cfg.Detect.HeaderKeywords[0] != "Part No" {
		t.Fatalf("keywords=%v", cfg.Detect.HeaderKeywords)
	}
	if cfg.Detect.FGLabels[0] != "Delphi PN" {
		t.Fatalf("untouched section lost its default: %v", cfg.Detect.FGLabels)
	}
	if cfg.Planning.NeedSource != "ledger" || cfg.Planning.StrictAlignment {
		t.Fatalf("planning=%+v", cfg.Planning)
	}
}

func TestLoadFromDir_InvalidNeedSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[planning]\nneed_source = \"guess\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := LoadFromDir(dir); err == nil {
		t.Fatalf("expected validation error")
	}
}
