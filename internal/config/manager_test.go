package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T, contents string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func TestNewManager_CreatesDefaults(t *testing.T) {
	m := newTestManager(t, "")

	if _, err := os.Stat(m.Path()); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	cfg := m.Get()
	if cfg.MinSwapMinutes != 5 || cfg.MaxSwapMinutes != 15 {
		t.Errorf("interval = %d..%d, want 5..15", cfg.MinSwapMinutes, cfg.MaxSwapMinutes)
	}
	if !cfg.AutoSwapEnabled {
		t.Error("auto swap should default to enabled")
	}
	if cfg.OBS.Host != "localhost" || cfg.OBS.Port != 4455 {
		t.Errorf("obs = %s:%d, want localhost:4455", cfg.OBS.Host, cfg.OBS.Port)
	}
}

func TestNewManager_GameDefaults(t *testing.T) {
	m := newTestManager(t, `
min_swap_minutes: 1
games:
  - exe_name: Minecraft.exe
    display_name: Minecraft
  - exe_name: Celeste.exe
    enabled: false
    send_esc_on_leave: false
    obs_scene: Celeste Cam
`)

	cfg := m.Get()
	if cfg.MinSwapMinutes != 1 {
		t.Errorf("MinSwapMinutes = %d, want 1", cfg.MinSwapMinutes)
	}
	if cfg.MaxSwapMinutes != 15 {
		t.Errorf("MaxSwapMinutes = %d, want default 15", cfg.MaxSwapMinutes)
	}
	if len(cfg.Games) != 2 {
		t.Fatalf("len(Games) = %d, want 2", len(cfg.Games))
	}

	mc := cfg.Games[0]
	if !mc.Enabled || !mc.SendEscOnEnter || !mc.SendEscOnLeave {
		t.Errorf("omitted booleans should default to true: %+v", mc)
	}

	celeste := cfg.Games[1]
	if celeste.Enabled || celeste.SendEscOnLeave || !celeste.SendEscOnEnter {
		t.Errorf("explicit booleans not honoured: %+v", celeste)
	}
	if celeste.OBSScene != "Celeste Cam" {
		t.Errorf("OBSScene = %q", celeste.OBSScene)
	}
	if celeste.Name() != "Celeste.exe" {
		t.Errorf("Name() = %q, want exe fallback", celeste.Name())
	}
}

func TestNewManager_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("games:\n  - display_name: nameless\n"), 0644)

	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for game without exe_name")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := newTestManager(t, "games:\n  - exe_name: a.exe\n")

	cfg := m.Get()
	cfg.Games[0].ExeName = "mutated.exe"
	cfg.MinSwapMinutes = 99

	again := m.Get()
	if again.Games[0].ExeName != "a.exe" || again.MinSwapMinutes == 99 {
		t.Errorf("Get() leaked internal state: %+v", again)
	}
}

func TestGameManagement(t *testing.T) {
	m := newTestManager(t, "")

	if err := m.AddGame(GameEntry{ExeName: "A.exe", DisplayName: "A", Enabled: true}); err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	if err := m.AddGame(GameEntry{ExeName: "b.exe", Enabled: true}); err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	// Same identity, different case: replaces.
	if err := m.AddGame(GameEntry{ExeName: "a.EXE", DisplayName: "A2", Enabled: true}); err != nil {
		t.Fatalf("AddGame replace: %v", err)
	}
	if got := len(m.Get().Games); got != 2 {
		t.Fatalf("len(Games) = %d, want 2", got)
	}

	if err := m.SetGameEnabled("B.EXE", false); err != nil {
		t.Fatalf("SetGameEnabled: %v", err)
	}
	enabled := m.Snapshot().EnabledGames()
	if len(enabled) != 1 || enabled[0].DisplayName != "A2" {
		t.Errorf("EnabledGames() = %+v", enabled)
	}

	if err := m.RemoveGame("missing.exe"); err == nil {
		t.Error("RemoveGame on unknown game should fail")
	}
	if err := m.RemoveGame("a.exe"); err != nil {
		t.Fatalf("RemoveGame: %v", err)
	}

	reloaded, err := NewManager(m.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	games := reloaded.Get().Games
	if len(games) != 1 || games[0].ExeName != "b.exe" || games[0].Enabled {
		t.Errorf("persisted games = %+v", games)
	}
}

func TestSetValue(t *testing.T) {
	m := newTestManager(t, "")

	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"min_swap_minutes", "2", false},
		{"max_swap_minutes", "three", true},
		{"auto_swap_enabled", "false", false},
		{"obs.host", "10.0.0.2", false},
		{"log_level", "loud", true},
		{"server_port", "70000", true},
		{"nope", "1", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := m.SetValue(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetValue(%s, %s) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}

	cfg := m.Get()
	if cfg.MinSwapMinutes != 2 || cfg.AutoSwapEnabled || cfg.OBS.Host != "10.0.0.2" {
		t.Errorf("unexpected config after SetValue: %+v", cfg)
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("rejected value leaked into config: port %d", cfg.ServerPort)
	}
}

func TestSnapshotRotation(t *testing.T) {
	cfg := Defaults()
	cfg.MinSwapMinutes = 2
	cfg.MaxSwapMinutes = 4
	cfg.Games = []GameEntry{{ExeName: "x.exe", Enabled: true}}

	snap := cfg.Snapshot()
	if snap.Rotation.MinSwapInterval != 2*time.Minute || snap.Rotation.MaxSwapInterval != 4*time.Minute {
		t.Errorf("rotation = %+v", snap.Rotation)
	}
	if _, ok := snap.FindGame("X.EXE"); !ok {
		t.Error("FindGame should be case-insensitive")
	}

	cfg.Games[0].ExeName = "changed.exe"
	if snap.Games[0].ExeName != "x.exe" {
		t.Error("snapshot shares game storage with config")
	}
}

func TestOnReloadAndConcurrentAccess(t *testing.T) {
	m := newTestManager(t, "min_swap_minutes: 15\nmax_swap_minutes: 15\n")

	var mu sync.Mutex
	var seen []int
	m.OnReload(func(c *Config) {
		mu.Lock()
		seen = append(seen, c.MaxSwapMinutes)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			m.Update(func(c *Config) error {
				c.MinSwapMinutes = n
				c.MaxSwapMinutes = n
				return nil
			})
		}(i + 1)
		go func() {
			defer wg.Done()
			snap := m.Snapshot()
			if snap.Rotation.MinSwapInterval != snap.Rotation.MaxSwapInterval {
				t.Errorf("torn read: %+v", snap.Rotation)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 8 {
		t.Errorf("OnReload called %d times, want 8", len(seen))
	}
}

func TestReloadKeepsConfigOnParseError(t *testing.T) {
	m := newTestManager(t, "max_swap_minutes: 7\n")

	os.WriteFile(m.Path(), []byte("max_swap_minutes: [not a number\n"), 0644)
	if err := m.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if got := m.Get().MaxSwapMinutes; got != 7 {
		t.Errorf("MaxSwapMinutes = %d, want previous value 7", got)
	}
}

func TestReloadRejectsEmptyFile(t *testing.T) {
	m := newTestManager(t, "games:\n  - exe_name: Celeste.exe\n")

	for _, contents := range []string{"", "  \n\t\n"} {
		os.WriteFile(m.Path(), []byte(contents), 0644)
		if err := m.Reload(); err == nil {
			t.Errorf("Reload(%q) succeeded, want error", contents)
		}
		if got := len(m.Get().Games); got != 1 {
			t.Errorf("after Reload(%q): %d games, want 1", contents, got)
		}
	}
}

func TestNewManager_EmptyFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if m.Get().MaxSwapMinutes != 15 {
		t.Errorf("MaxSwapMinutes = %d, want default 15", m.Get().MaxSwapMinutes)
	}
}

func TestSaveReplacesFileAtomically(t *testing.T) {
	m := newTestManager(t, "")
	if err := m.AddGame(GameEntry{ExeName: "Hades.exe", Enabled: true}); err != nil {
		t.Fatalf("AddGame: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(m.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.yaml" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("config dir holds %v, want only config.yaml", names)
	}

	reread, err := NewManager(m.Path())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if games := reread.Get().Games; len(games) != 1 || games[0].ExeName != "Hades.exe" {
		t.Errorf("games on disk = %+v", games)
	}
}

func TestWatch_PicksUpExternalEdit(t *testing.T) {
	m := newTestManager(t, "max_swap_minutes: 7\n")

	reloaded := make(chan int, 16)
	m.OnReload(func(c *Config) {
		reloaded <- c.MaxSwapMinutes
	})
	m.Watch()

	if err := os.WriteFile(m.Path(), []byte("max_swap_minutes: 9\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-reloaded:
			if got == 9 {
				if m.Get().MaxSwapMinutes != 9 {
					t.Errorf("Get().MaxSwapMinutes = %d, want 9", m.Get().MaxSwapMinutes)
				}
				return
			}
		case <-deadline:
			t.Fatalf("edit not picked up, MaxSwapMinutes = %d", m.Get().MaxSwapMinutes)
		}
	}
}

func TestWatch_RapidUpdatesKeepGames(t *testing.T) {
	m := newTestManager(t, "")
	for _, exe := range []string{"Celeste.exe", "Hades.exe", "Minecraft.exe"} {
		if err := m.AddGame(GameEntry{ExeName: exe, Enabled: true}); err != nil {
			t.Fatalf("AddGame(%s): %v", exe, err)
		}
	}
	m.Watch()

	lost := 0
	for i := 0; i < 500; i++ {
		if _, err := m.Update(func(c *Config) error {
			c.MinSwapMinutes = i % 5
			return nil
		}); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
		if len(m.Get().Games) != 3 {
			lost++
		}
	}

	// Let the watcher drain the events queued by the writes above.
	time.Sleep(200 * time.Millisecond)

	if lost > 0 {
		t.Errorf("game list was not 3 after %d of 500 updates", lost)
	}
	if got := len(m.Get().Games); got != 3 {
		t.Errorf("final games = %d, want 3", got)
	}
	reread, err := NewManager(m.Path())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := len(reread.Get().Games); got != 3 {
		t.Errorf("games on disk = %d, want 3", got)
	}
}
