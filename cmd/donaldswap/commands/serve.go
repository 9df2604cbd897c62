package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/api"
	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const broadcastInterval = time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game rotation and dashboard",
	Long: `Start the swap scheduler together with the web dashboard.

The dashboard offers live status, force swap, pause/resume, game management
and an OBS browser-source overlay at /obs.`,
	Example: `  # Start on the configured port (default 3000)
  donaldswap serve

  # Start on a custom port
  donaldswap serve --port 8080

  # Start paused, swap only on demand until resumed
  donaldswap serve --paused

  # Start with debug logging
  donaldswap serve --log-level debug`,
	RunE: runServe,
}

var servePaused bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&servePaused, "paused", false, "start with automatic swapping paused")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("main")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	logger.SetLevel(effectiveLogLevel(cfg))

	rot, err := newRotation(configMgr)
	if err != nil {
		return err
	}
	defer rot.Close()

	configMgr.OnReload(func(c *config.Config) {
		if viper.GetString("log_level") == "" {
			logger.SetLevel(c.LogLevel)
		}
	})
	configMgr.Watch()

	if servePaused {
		rot.store.Pause()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rot.store.RunTicker(ctx, broadcastInterval)
	go rot.scheduler.Run(ctx)

	server := api.NewServer(configMgr, rot.store, rot.scheduler, rot.locator)
	port := effectivePort(cfg)

	log.Info().
		Str("config", configMgr.Path()).
		Int("games", len(cfg.Games)).
		Int("min_swap_minutes", cfg.MinSwapMinutes).
		Int("max_swap_minutes", cfg.MaxSwapMinutes).
		Msg("DonaldSwap is running")
	log.Info().Msgf("Dashboard: http://localhost:%d  Overlay: http://localhost:%d/obs", port, port)

	if err := server.Run(ctx, port); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	log.Info().Msg("Shutting down gracefully")
	return nil
}
