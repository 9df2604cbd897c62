// Package mcptools exposes rotation control as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/bryanchriswhite/DonaldSwap/internal/state"
	"github.com/bryanchriswhite/DonaldSwap/internal/window"
)

const (
	serverName    = "donaldswap"
	serverVersion = "0.2.0"
)

// Swapper triggers an immediate swap.
type Swapper interface {
	ForceSwap(ctx context.Context) (state.SwapState, error)
}

// WindowLister lists live windows.
type WindowLister interface {
	Enumerate() ([]window.Handle, error)
}

// GameToggler enables or disables a configured game.
type GameToggler interface {
	SetGameEnabled(exe string, enabled bool) error
}

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server with the rotation it controls.
type Server struct {
	store   *state.Store
	swapper Swapper
	windows WindowLister
	games   GameToggler
	mcp     *mcpserver.MCPServer
}

// NewServer creates an MCP server with all rotation tools registered.
func NewServer(store *state.Store, swapper Swapper, windows WindowLister, games GameToggler) *Server {
	s := &Server{
		store:   store,
		swapper: swapper,
		windows: windows,
		games:   games,
		mcp:     mcpserver.NewMCPServer(serverName, serverVersion),
	}
	s.registerTools()
	return s
}

// Serve blocks serving the configured transport.
func (s *Server) Serve(cfg Config) error {
	log := logger.WithComponent("mcp")

	switch cfg.Transport {
	case "stdio":
		log.Info().Msg("Serving MCP over stdio")
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info().Str("addr", addr).Msg("Serving MCP over streamable HTTP")
		return mcpserver.NewStreamableHTTPServer(s.mcp).Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("swap_state",
			mcp.WithDescription("Show the current game, time until the next swap, swap count and recent history"),
		),
		s.handleSwapState,
	)

	s.mcp.AddTool(
		mcp.NewTool("force_swap",
			mcp.WithDescription("Swap to another game immediately, independent of the timer"),
		),
		s.handleForceSwap,
	)

	s.mcp.AddTool(
		mcp.NewTool("pause",
			mcp.WithDescription("Pause automatic swapping"),
		),
		s.handlePause,
	)

	s.mcp.AddTool(
		mcp.NewTool("resume",
			mcp.WithDescription("Resume automatic swapping"),
		),
		s.handleResume,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List visible windows with their executable names, for adding games"),
		),
		s.handleListWindows,
	)

	s.mcp.AddTool(
		mcp.NewTool("set_game_enabled",
			mcp.WithDescription("Include or exclude a configured game from the rotation"),
			mcp.WithString("exe", mcp.Description("Executable name of the game (e.g. 'Celeste.exe')"), mcp.Required()),
			mcp.WithBoolean("enabled", mcp.Description("Whether the game takes part in the rotation (default: true)")),
		),
		s.handleSetGameEnabled,
	)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleSwapState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Read())
}

func (s *Server) handleForceSwap(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.swapper.ForceSwap(ctx)
	if err != nil {
		logger.WithComponent("mcp").Warn().Err(err).Msg("Force swap failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (s *Server) handlePause(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Pause())
}

func (s *Server) handleResume(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Resume())
}

func (s *Server) handleListWindows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	windows, err := s.windows.Enumerate()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if windows == nil {
		windows = []window.Handle{}
	}
	return jsonResult(windows)
}

func (s *Server) handleSetGameEnabled(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	exe, _ := params["exe"].(string)
	if exe == "" {
		return mcp.NewToolResultError("exe parameter is required"), nil
	}
	enabled := true
	if v, ok := params["enabled"].(bool); ok {
		enabled = v
	}

	if err := s.games.SetGameEnabled(exe, enabled); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s enabled=%t", exe, enabled)), nil
}
