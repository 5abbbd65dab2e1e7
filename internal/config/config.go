// Package config loads TermStack's TOML configuration file (spec.md §6) and
// supplies the defaults for every recognized key.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the fully-resolved configuration: defaults overlaid by whatever
// the TOML file sets.
type Config struct {
	BackgroundColor [4]float32 `toml:"background_color"`
	WindowGap       uint32     `toml:"window_gap"`
	MinWindowHeight uint32     `toml:"min_window_height"`
	MaxWindowHeight uint32     `toml:"max_window_height"`
	ScrollSpeed     float64    `toml:"scroll_speed"`
	AutoScroll      bool       `toml:"auto_scroll"`

	Keyboard KeyboardConfig `toml:"keyboard"`

	TUIApps       []string `toml:"tui_apps"`
	ShellCommands []string `toml:"shell_commands"`
	CSDApps       []string `toml:"csd_apps"`
}

// KeyboardConfig holds the XKB and key-repeat settings.
type KeyboardConfig struct {
	Layout      string `toml:"layout"`
	Variant     string `toml:"variant"`
	Model       string `toml:"model"`
	Options     string `toml:"options"`
	RepeatDelay uint32 `toml:"repeat_delay"`
	RepeatRate  uint32 `toml:"repeat_rate"`
}

// Default returns the configuration with every key at its spec-defined
// default.
func Default() *Config {
	return &Config{
		BackgroundColor: [4]float32{0.1, 0.1, 0.1, 1},
		WindowGap:       0,
		MinWindowHeight: 50,
		MaxWindowHeight: 0,
		ScrollSpeed:     1.0,
		AutoScroll:      true,
		Keyboard: KeyboardConfig{
			RepeatDelay: 400,
			RepeatRate:  25,
		},
	}
}

// Load reads the TOML file at path over the defaults. Missing keys keep
// their default value; a missing file is not an error — Default() is
// returned unchanged, matching the "absent ⇒ default" rule of §6.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the first of $XDG_CONFIG_HOME/termstack/config.toml,
// ~/.config/termstack/config.toml or /etc/termstack/config.toml that exists,
// or the user path if none does (so callers can still report where a file
// would need to go).
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		p := filepath.Join(xdg, "termstack", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "termstack", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	systemPath := "/etc/termstack/config.toml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "termstack", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "termstack", "config.toml")
	}
	return systemPath
}
