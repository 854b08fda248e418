package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	yaml := `
analyzer:
  input_path: "capture.log"
  top_nodes: 3
  writers:
    - type: "json"
      enabled: true
      json:
        root_path: "/tmp/reports"
stream:
  snapshot_interval: "5s"
alerter:
  enabled: true
  rules:
    - name: "Proxy activity"
      metric: "proxy_candidates"
      operator: ">"
      threshold: 0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analyzer.InputPath != "capture.log" {
		t.Errorf("InputPath = %q", cfg.Analyzer.InputPath)
	}
	if cfg.Analyzer.TopNodes != 3 {
		t.Errorf("TopNodes = %d, want 3", cfg.Analyzer.TopNodes)
	}
	// Unset fields fall back to defaults.
	if cfg.Analyzer.TopNetworks != 10 {
		t.Errorf("TopNetworks = %d, want default 10", cfg.Analyzer.TopNetworks)
	}
	if cfg.Stream.SnapshotInterval != "5s" {
		t.Errorf("SnapshotInterval = %q", cfg.Stream.SnapshotInterval)
	}
	if cfg.Probe.Subject != "traf.records.raw" {
		t.Errorf("Subject = %q, want default", cfg.Probe.Subject)
	}
	if !cfg.Alerter.Enabled || len(cfg.Alerter.Rules) != 1 {
		t.Errorf("alerter config not parsed: %+v", cfg.Alerter)
	}
	if cfg.Analyzer.Writers[0].JSON.RootPath != "/tmp/reports" {
		t.Errorf("writer root path = %q", cfg.Analyzer.Writers[0].JSON.RootPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("no-such-config.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Analyzer.InputPath != "traf.txt" {
		t.Errorf("InputPath = %q", cfg.Analyzer.InputPath)
	}
	if len(cfg.Analyzer.Writers) != 1 || cfg.Analyzer.Writers[0].Type != "text" {
		t.Errorf("default writers = %+v, want a single text writer", cfg.Analyzer.Writers)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.API.ListenAddr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NATS_URL", "nats://example.com:4222")
	t.Setenv("SMTP_PASSWORD", "hunter2")

	cfg := Default()
	if cfg.Probe.NATSURL != "nats://example.com:4222" {
		t.Errorf("NATSURL = %q, want env override", cfg.Probe.NATSURL)
	}
	if cfg.SMTP.Password != "hunter2" {
		t.Errorf("SMTP password not taken from environment")
	}
}
