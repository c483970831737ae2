package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollInterval != 10*time.Second || cfg.Minutes != 60 || cfg.Simulate.Profile != "batch" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "agrictl.yaml", `
persistence_url: http://persistence.cloud:8080
poll_interval: 30s
journal_path: /tmp/alerts.db
simulate:
  records: 500
  profile: realistic
  seed: 42
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PersistenceURL != "http://persistence.cloud:8080" || cfg.PollInterval != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.JournalPath != "/tmp/alerts.db" {
		t.Errorf("journal = %q", cfg.JournalPath)
	}
	// campi non presenti mantengono il default
	if cfg.Timeout != 5*time.Second || cfg.Simulate.Farms != 3 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Simulate.Records != 500 || cfg.Simulate.Profile != "realistic" || cfg.Simulate.Seed != 42 {
		t.Errorf("simulate = %+v", cfg.Simulate)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "poll_interval: [", "parse"},
		{"bad duration", "poll_interval: often", "parse"},
		{"zero interval", "poll_interval: 0s", "poll_interval"},
		{"negative minutes", "minutes: -5", "minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeFile(t, "c.yaml", tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
