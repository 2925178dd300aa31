package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Host != "localhost" {
		t.Errorf("Host = %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Encoder.Dimensions != 256 {
		t.Errorf("Dimensions = %d", cfg.Encoder.Dimensions)
	}
	if cfg.Video.FrameIntervalSec != 10.0 {
		t.Errorf("FrameIntervalSec = %f", cfg.Video.FrameIntervalSec)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("DefaultLimit = %d", cfg.Search.DefaultLimit)
	}
	if len(cfg.Scan.Includes) == 0 {
		t.Error("expected default scan includes")
	}
}

func TestApplyDefaults_KeepsExisting(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	cfg.Encoder.Dimensions = 512
	cfg.Video.FrameIntervalSec = 2.5
	ApplyDefaults(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Encoder.Dimensions != 512 {
		t.Errorf("Dimensions = %d, want 512", cfg.Encoder.Dimensions)
	}
	if cfg.Video.FrameIntervalSec != 2.5 {
		t.Errorf("FrameIntervalSec = %f, want 2.5", cfg.Video.FrameIntervalSec)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9999
storage:
  database_path: ./data/media.db
encoder:
  dimensions: 256
video:
  frame_interval_sec: 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Video.FrameIntervalSec != 5 {
		t.Errorf("FrameIntervalSec = %f", cfg.Video.FrameIntervalSec)
	}
	// "./" paths resolve relative to the config directory.
	want := filepath.Join(dir, "data/media.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("DatabasePath = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	// Defaults fill the rest.
	if cfg.Server.Host != "localhost" {
		t.Errorf("Host = %s", cfg.Server.Host)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be respected")
	}
}
