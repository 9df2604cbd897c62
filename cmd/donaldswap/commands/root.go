package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "donaldswap",
		Short: "DonaldSwap - Random game rotation for streamers",
		Long: `DonaldSwap rotates keyboard focus between a set of running games at
random intervals, so a stream never knows which game comes next.

Features:
  • Randomized swap interval between a configurable min and max
  • Only swaps to games whose window is currently open
  • Optional ESC key on leaving or entering a game
  • Per-game OBS scene switching over obs-websocket
  • Web dashboard and OBS overlay with live countdown
  • Swap journal with per-game totals
  • MCP tools for agent control`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/donaldswap/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "dashboard port (default is 3000)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log JSON instead of console output")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
	viper.SetEnvPrefix("DONALDSWAP")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	logger.Init(viper.GetString("log_level"), !viper.GetBool("log_json"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file named by --config, or the default one.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return configMgr, nil
}

// effectiveLogLevel prefers the flag over the config file.
func effectiveLogLevel(cfg *config.Config) string {
	if lvl := viper.GetString("log_level"); lvl != "" {
		return lvl
	}
	return cfg.LogLevel
}

// effectivePort prefers the flag over the config file.
func effectivePort(cfg *config.Config) int {
	if port := viper.GetInt("server_port"); port > 0 {
		return port
	}
	return cfg.ServerPort
}
