package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Update when the result fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// errEmptyConfig marks a config file with no content, e.g. one caught mid-write by an editor.
var errEmptyConfig = errors.New("config file is empty")

// Manager owns the configuration file. Readers always get a private copy, so a
// concurrent Update or hot reload can never be observed half-applied.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex

	// saveMu orders writes to the file with reloads from it. lastSaved is the content of
	// the most recent write and is guarded by saveMu.
	saveMu    sync.Mutex
	lastSaved []byte

	watcher   *viper.Viper
	listeners []func(*Config)
}

// DefaultPath returns $HOME/.config/donaldswap/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "donaldswap", "config.yaml"), nil
}

// NewManager loads configFile (or the default path), creating it with defaults when missing.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{configPath: path}

	cfg, err := m.read()
	if err != nil {
		if !os.IsNotExist(err) && !errors.Is(err, errEmptyConfig) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		m.config = cfg
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("games", len(m.config.Games)).
		Msg("Config loaded")

	return m, nil
}

// read parses the file on top of the defaults so omitted keys keep their default values.
func (m *Manager) read() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyConfig
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Games == nil {
		cfg.Games = []GameEntry{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Clone()
}

// Snapshot returns the rotation view consumed by the scheduler.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Snapshot()
}

// Path returns the path to the config file
func (m *Manager) Path() string {
	return m.configPath
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	return m.save()
}

// save replaces the file atomically so a concurrent reader never sees a partial write.
// Callers hold saveMu.
func (m *Manager) save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, m.configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	m.lastSaved = data

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update applies fn to a copy of the configuration, validates the result, swaps it in and
// persists it. If fn returns an error nothing is stored. The returned config is a copy of
// what was stored.
func (m *Manager) Update(fn func(*Config) error) (*Config, error) {
	m.saveMu.Lock()

	m.mu.Lock()
	next := m.config.Clone()
	if err := fn(next); err != nil {
		m.mu.Unlock()
		m.saveMu.Unlock()
		return nil, err
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		m.saveMu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	m.config = next
	m.mu.Unlock()

	err := m.save()
	m.saveMu.Unlock()
	if err != nil {
		return nil, err
	}
	m.notify(next.Clone())
	return next.Clone(), nil
}

// AddGame inserts a game or replaces the entry with the same exe name.
func (m *Manager) AddGame(game GameEntry) error {
	_, err := m.Update(func(c *Config) error {
		for i := range c.Games {
			if c.Games[i].Matches(game.ExeName) {
				c.Games[i] = game
				return nil
			}
		}
		c.Games = append(c.Games, game)
		return nil
	})
	return err
}

// RemoveGame deletes the game with the given exe name.
func (m *Manager) RemoveGame(exe string) error {
	_, err := m.Update(func(c *Config) error {
		games := make([]GameEntry, 0, len(c.Games))
		for _, g := range c.Games {
			if !g.Matches(exe) {
				games = append(games, g)
			}
		}
		if len(games) == len(c.Games) {
			return fmt.Errorf("game not found: %s", exe)
		}
		c.Games = games
		return nil
	})
	return err
}

// SetGameEnabled toggles whether a game takes part in the rotation.
func (m *Manager) SetGameEnabled(exe string, enabled bool) error {
	_, err := m.Update(func(c *Config) error {
		for i := range c.Games {
			if c.Games[i].Matches(exe) {
				c.Games[i].Enabled = enabled
				return nil
			}
		}
		return fmt.Errorf("game not found: %s", exe)
	})
	return err
}

// OnReload registers fn to be called with a copy of the config after every successful
// Update or hot reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notify(cfg *Config) {
	m.mu.RLock()
	listeners := make([]func(*Config), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}

// Reload re-reads the file. A file that is empty or fails to parse leaves the current
// config in place.
func (m *Manager) Reload() error {
	_, err := m.reload(false)
	return err
}

// reload applies the file's content. With skipOwn set, content identical to the last write
// made by this manager is ignored and changed is false.
func (m *Manager) reload(skipOwn bool) (changed bool, err error) {
	m.saveMu.Lock()
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		m.saveMu.Unlock()
		return false, err
	}
	if skipOwn && bytes.Equal(data, m.lastSaved) {
		m.saveMu.Unlock()
		return false, nil
	}
	cfg, err := parse(data)
	if err != nil {
		m.saveMu.Unlock()
		return false, err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	m.lastSaved = data
	m.saveMu.Unlock()

	m.notify(cfg.Clone())
	return true, nil
}

// Watch starts hot-reloading the file on change.
func (m *Manager) Watch() {
	log := logger.WithComponent("config")

	m.mu.Lock()
	if m.watcher != nil {
		m.mu.Unlock()
		return
	}
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	m.watcher = v
	m.mu.Unlock()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		changed, err := m.reload(true)
		if err != nil {
			log.Warn().Err(err).Str("path", e.Name).Msg("Ignoring config change")
			return
		}
		if changed {
			log.Info().Str("path", e.Name).Msg("Config reloaded")
		}
	})
	v.WatchConfig()
}

// SetValue sets a single top-level or dotted key from its string form (CLI "config set").
func (m *Manager) SetValue(key, value string) error {
	parseInt := func(dst *int) error {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		*dst = n
		return nil
	}
	parseBool := func(dst *bool) error {
		var b bool
		if _, err := fmt.Sscanf(value, "%t", &b); err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		*dst = b
		return nil
	}

	_, err := m.Update(func(c *Config) error {
		switch strings.ToLower(key) {
		case "min_swap_minutes":
			return parseInt(&c.MinSwapMinutes)
		case "max_swap_minutes":
			return parseInt(&c.MaxSwapMinutes)
		case "server_port":
			return parseInt(&c.ServerPort)
		case "obs.port":
			return parseInt(&c.OBS.Port)
		case "obs.timeout_seconds":
			return parseInt(&c.OBS.TimeoutSeconds)
		case "auto_swap_enabled":
			return parseBool(&c.AutoSwapEnabled)
		case "hide_next_swap":
			return parseBool(&c.HideNextSwap)
		case "journal.enabled":
			return parseBool(&c.Journal.Enabled)
		case "journal.path":
			c.Journal.Path = value
		case "obs.host":
			c.OBS.Host = value
		case "obs.password":
			c.OBS.Password = value
		case "log_level":
			switch value {
			case "debug", "info", "warn", "error":
				c.LogLevel = value
			default:
				return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
			}
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}
		return nil
	})
	return err
}
