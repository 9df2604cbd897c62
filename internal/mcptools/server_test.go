package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bryanchriswhite/DonaldSwap/internal/state"
	"github.com/bryanchriswhite/DonaldSwap/internal/window"
)

type fakeSwapper struct {
	store *state.Store
	err   error
}

func (f *fakeSwapper) ForceSwap(ctx context.Context) (state.SwapState, error) {
	if f.err != nil {
		return f.store.Read(), f.err
	}
	return f.store.Update(func(st *state.SwapState) {
		st.ApplySwap("Hades", "Hades.exe", time.Now())
	}), nil
}

type fakeWindows struct {
	windows []window.Handle
	err     error
}

func (f *fakeWindows) Enumerate() ([]window.Handle, error) {
	return f.windows, f.err
}

type fakeGames struct {
	enabled map[string]bool
}

func (f *fakeGames) SetGameEnabled(exe string, enabled bool) error {
	if _, ok := f.enabled[exe]; !ok {
		return errors.New("game not found: " + exe)
	}
	f.enabled[exe] = enabled
	return nil
}

func newTestServer() (*Server, *state.Store, *fakeSwapper, *fakeWindows, *fakeGames) {
	store := state.NewStore()
	sw := &fakeSwapper{store: store}
	wins := &fakeWindows{windows: []window.Handle{{ID: 7, Title: "Hades", ExeName: "Hades.exe"}}}
	games := &fakeGames{enabled: map[string]bool{"Hades.exe": true}}
	return NewServer(store, sw, wins, games), store, sw, wins, games
}

func request(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

func TestSwapStateAndForceSwap(t *testing.T) {
	s, _, sw, _, _ := newTestServer()
	ctx := context.Background()

	res, err := s.handleForceSwap(ctx, request("force_swap", nil))
	if err != nil || res.IsError {
		t.Fatalf("force_swap: err=%v result=%+v", err, res)
	}

	res, _ = s.handleSwapState(ctx, request("swap_state", nil))
	var st state.SwapState
	if err := json.Unmarshal([]byte(resultText(t, res)), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.CurrentExe != "Hades.exe" || st.SwapCount != 1 {
		t.Errorf("state = %+v", st)
	}

	sw.err = window.ErrFocusUnobtainable
	res, err = s.handleForceSwap(ctx, request("force_swap", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "focus") {
		t.Errorf("want tool error, got %+v", res)
	}
}

func TestPauseResume(t *testing.T) {
	s, store, _, _, _ := newTestServer()
	ctx := context.Background()

	s.handlePause(ctx, request("pause", nil))
	if !store.IsPaused() {
		t.Fatal("not paused")
	}
	s.handleResume(ctx, request("resume", nil))
	if store.IsPaused() {
		t.Fatal("still paused")
	}
}

func TestListWindows(t *testing.T) {
	s, _, _, wins, _ := newTestServer()
	ctx := context.Background()

	res, _ := s.handleListWindows(ctx, request("list_windows", nil))
	if !strings.Contains(resultText(t, res), `"exe_name": "Hades.exe"`) {
		t.Errorf("windows = %s", resultText(t, res))
	}

	wins.err = errors.New("no display")
	res, _ = s.handleListWindows(ctx, request("list_windows", nil))
	if !res.IsError {
		t.Error("want tool error when enumeration fails")
	}
}

func TestSetGameEnabled(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError bool
		want      bool
	}{
		{"disable", map[string]interface{}{"exe": "Hades.exe", "enabled": false}, false, false},
		{"enable by default", map[string]interface{}{"exe": "Hades.exe"}, false, true},
		{"missing exe", map[string]interface{}{"enabled": true}, true, true},
		{"unknown game", map[string]interface{}{"exe": "Nope.exe"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _, games := newTestServer()
			res, err := s.handleSetGameEnabled(context.Background(), request("set_game_enabled", tt.args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if res.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v (%s)", res.IsError, tt.wantError, resultText(t, res))
			}
			if games.enabled["Hades.exe"] != tt.want {
				t.Errorf("Hades enabled = %v, want %v", games.enabled["Hades.exe"], tt.want)
			}
		})
	}
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s, _, _, _, _ := newTestServer()
	if err := s.Serve(Config{Transport: "carrier-pigeon"}); err == nil {
		t.Error("want error for unknown transport")
	}
}
