package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/bryanchriswhite/DonaldSwap/internal/mcptools"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the rotation controlled through MCP tools",
	Long: `Start the swap scheduler and expose it as Model Context Protocol tools
(swap_state, force_swap, pause, resume, list_windows, set_game_enabled).

Logs go to stderr so stdio stays reserved for the protocol.`,
	Example: `  # Serve over stdio (for MCP clients that spawn the process)
  donaldswap mcp

  # Serve over streamable HTTP
  donaldswap mcp --transport streamable-http --mcp-port 8081`,
	RunE: runMCP,
}

var (
	mcpTransport string
	mcpPort      int
	mcpPaused    bool
)

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "transport (stdio or streamable-http)")
	mcpCmd.Flags().IntVar(&mcpPort, "mcp-port", 8081, "port for the streamable-http transport")
	mcpCmd.Flags().BoolVar(&mcpPaused, "paused", false, "start with automatic swapping paused")
}

func runMCP(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	logger.SetLevel(effectiveLogLevel(configMgr.Get()))
	configMgr.Watch()

	rot, err := newRotation(configMgr)
	if err != nil {
		return err
	}
	defer rot.Close()

	if mcpPaused {
		rot.store.Pause()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rot.store.RunTicker(ctx, broadcastInterval)
	go rot.scheduler.Run(ctx)

	server := mcptools.NewServer(rot.store, rot.scheduler, rot.locator, configMgr)
	return server.Serve(mcptools.Config{Transport: mcpTransport, Port: mcpPort})
}
