package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file returned error: %v", err)
	}
	if got := cfg.Scheduler.Tick.Std(); got != 50*time.Millisecond {
		t.Errorf("default tick = %s, want 50ms", got)
	}
	if cfg.Relay.BufferSize != 4096 {
		t.Errorf("default buffer_size = %d, want 4096", cfg.Relay.BufferSize)
	}
	if !cfg.Status.Enabled {
		t.Error("status should be enabled by default")
	}
	if cfg.Status.Port != 8555 {
		t.Errorf("default status port = %d, want 8555", cfg.Status.Port)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
scheduler:
  tick: 100ms
relay:
  buffer_size: 8192
status:
  enabled: false
  port: 9999
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Scheduler.Tick.Std(); got != 100*time.Millisecond {
		t.Errorf("tick = %s, want 100ms", got)
	}
	if cfg.Relay.BufferSize != 8192 {
		t.Errorf("buffer_size = %d, want 8192", cfg.Relay.BufferSize)
	}
	if cfg.Status.Enabled {
		t.Error("status.enabled should be false")
	}
	if cfg.Status.Port != 9999 {
		t.Errorf("status port = %d, want 9999", cfg.Status.Port)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
status:
  port: 7000
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Status.Port != 7000 {
		t.Errorf("status port = %d, want 7000", cfg.Status.Port)
	}
	// Untouched sections keep their defaults.
	if got := cfg.Scheduler.Tick.Std(); got != 50*time.Millisecond {
		t.Errorf("tick = %s, want default 50ms", got)
	}
	if cfg.Relay.BufferSize != 4096 {
		t.Errorf("buffer_size = %d, want default 4096", cfg.Relay.BufferSize)
	}
}

func TestDurationFormats(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"String", "scheduler:\n  tick: 2s\n", 2 * time.Second},
		{"Nanoseconds", "scheduler:\n  tick: 50000000\n", 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(cfgPath, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(cfgPath)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if got := cfg.Scheduler.Tick.Std(); got != tt.want {
				t.Errorf("tick = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"BadDuration", "scheduler:\n  tick: soon\n"},
		{"ZeroBuffer", "relay:\n  buffer_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(cfgPath, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(cfgPath); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}
