package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.MinWindowHeight != 50 {
		t.Fatalf("expected default min_window_height 50, got %d", cfg.MinWindowHeight)
	}
	if cfg.Keyboard.RepeatDelay != 400 || cfg.Keyboard.RepeatRate != 25 {
		t.Fatalf("unexpected keyboard defaults: %+v", cfg.Keyboard)
	}
	if !cfg.AutoScroll {
		t.Fatalf("expected auto_scroll default true")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinWindowHeight != Default().MinWindowHeight {
		t.Fatalf("expected defaults on missing file, got %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
window_gap = 4
min_window_height = 80
csd_apps = ["pqiv", "mpv*"]

[keyboard]
repeat_delay = 250
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WindowGap != 4 || cfg.MinWindowHeight != 80 {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if len(cfg.CSDApps) != 2 || cfg.CSDApps[1] != "mpv*" {
		t.Fatalf("expected csd_apps overlay, got %v", cfg.CSDApps)
	}
	// Unset keys should keep their defaults.
	if cfg.ScrollSpeed != 1.0 {
		t.Fatalf("expected scroll_speed default to survive partial overlay, got %v", cfg.ScrollSpeed)
	}
	if cfg.Keyboard.RepeatDelay != 250 {
		t.Fatalf("expected overlaid repeat_delay, got %d", cfg.Keyboard.RepeatDelay)
	}
	if cfg.Keyboard.RepeatRate != 25 {
		t.Fatalf("expected repeat_rate to keep default, got %d", cfg.Keyboard.RepeatRate)
	}
}
