package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GameEntry is one application in the swap rotation. ExeName is its identity and is
// compared case-insensitively.
type GameEntry struct {
	ExeName        string `json:"exe_name" yaml:"exe_name"`
	DisplayName    string `json:"display_name" yaml:"display_name"`
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	SendEscOnEnter bool   `json:"send_esc_on_enter" yaml:"send_esc_on_enter"`
	SendEscOnLeave bool   `json:"send_esc_on_leave" yaml:"send_esc_on_leave"`
	OBSScene       string `json:"obs_scene,omitempty" yaml:"obs_scene,omitempty"`
}

// gameEntryFields breaks the UnmarshalYAML/UnmarshalJSON recursion.
type gameEntryFields GameEntry

func defaultGameEntry() gameEntryFields {
	return gameEntryFields{
		Enabled:        true,
		SendEscOnEnter: true,
		SendEscOnLeave: true,
	}
}

// UnmarshalYAML fills omitted booleans with their defaults (all true).
func (g *GameEntry) UnmarshalYAML(node *yaml.Node) error {
	fields := defaultGameEntry()
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*g = GameEntry(fields)
	return nil
}

// UnmarshalJSON fills omitted booleans with their defaults (all true).
func (g *GameEntry) UnmarshalJSON(data []byte) error {
	fields := defaultGameEntry()
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*g = GameEntry(fields)
	return nil
}

// Name returns the display name, falling back to the executable name.
func (g GameEntry) Name() string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.ExeName
}

// Matches reports whether exe names this game.
func (g GameEntry) Matches(exe string) bool {
	return strings.EqualFold(g.ExeName, exe)
}

// OBSConfig holds the obs-websocket endpoint used for scene switching.
type OBSConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-call timeout, never less than one second.
func (o OBSConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// JournalConfig controls the on-disk swap journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Games           []GameEntry   `json:"games" yaml:"games"`
	MinSwapMinutes  int           `json:"min_swap_minutes" yaml:"min_swap_minutes"`
	MaxSwapMinutes  int           `json:"max_swap_minutes" yaml:"max_swap_minutes"`
	AutoSwapEnabled bool          `json:"auto_swap_enabled" yaml:"auto_swap_enabled"`
	HideNextSwap    bool          `json:"hide_next_swap" yaml:"hide_next_swap"`
	ServerPort      int           `json:"server_port" yaml:"server_port"`
	LogLevel        string        `json:"log_level" yaml:"log_level"`
	OBS             OBSConfig     `json:"obs" yaml:"obs"`
	Journal         JournalConfig `json:"journal" yaml:"journal"`
}

// Defaults returns the configuration written on first start.
func Defaults() *Config {
	return &Config{
		Games:           []GameEntry{},
		MinSwapMinutes:  5,
		MaxSwapMinutes:  15,
		AutoSwapEnabled: true,
		ServerPort:      3000,
		LogLevel:        "info",
		OBS: OBSConfig{
			Host:           "localhost",
			Port:           4455,
			TimeoutSeconds: 5,
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Games = make([]GameEntry, len(c.Games))
	copy(cp.Games, c.Games)
	return &cp
}

// Validate rejects values the scheduler and transports cannot work with.
// min > max is allowed; the scheduler then always waits max.
func (c *Config) Validate() error {
	if c.MinSwapMinutes < 0 || c.MaxSwapMinutes < 0 {
		return fmt.Errorf("swap interval must not be negative (min=%d, max=%d)", c.MinSwapMinutes, c.MaxSwapMinutes)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.OBS.Port < 0 || c.OBS.Port > 65535 {
		return fmt.Errorf("invalid obs port: %d", c.OBS.Port)
	}
	seen := make(map[string]bool, len(c.Games))
	for i, g := range c.Games {
		if strings.TrimSpace(g.ExeName) == "" {
			return fmt.Errorf("game %d has no exe_name", i)
		}
		key := strings.ToLower(g.ExeName)
		if seen[key] {
			return fmt.Errorf("duplicate game: %s", g.ExeName)
		}
		seen[key] = true
	}
	return nil
}

// Rotation is the timing policy read by the scheduler each cycle.
type Rotation struct {
	MinSwapInterval time.Duration
	MaxSwapInterval time.Duration
	AutoSwapEnabled bool
}

// Snapshot is an immutable view of the rotation taken once per scheduling cycle.
type Snapshot struct {
	Rotation Rotation
	Games    []GameEntry
}

// Snapshot builds the scheduler's view of this config.
func (c *Config) Snapshot() Snapshot {
	games := make([]GameEntry, len(c.Games))
	copy(games, c.Games)
	return Snapshot{
		Rotation: Rotation{
			MinSwapInterval: time.Duration(c.MinSwapMinutes) * time.Minute,
			MaxSwapInterval: time.Duration(c.MaxSwapMinutes) * time.Minute,
			AutoSwapEnabled: c.AutoSwapEnabled,
		},
		Games: games,
	}
}

// EnabledGames returns the enabled entries in configured order.
func (s Snapshot) EnabledGames() []GameEntry {
	enabled := make([]GameEntry, 0, len(s.Games))
	for _, g := range s.Games {
		if g.Enabled {
			enabled = append(enabled, g)
		}
	}
	return enabled
}

// FindGame looks up a configured game (enabled or not) by executable name.
func (s Snapshot) FindGame(exe string) (GameEntry, bool) {
	for _, g := range s.Games {
		if g.Matches(exe) {
			return g, true
		}
	}
	return GameEntry{}, false
}
