package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/DonaldSwap/internal/window"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List open windows",
	Long: `List visible top-level windows with the executable that owns them.

Use the EXE column with "donaldswap game add" to add a game to the rotation.`,
	Example: `  # List windows in table format (default)
  donaldswap windows

  # List windows in JSON format
  donaldswap windows --format json

  # Only show windows of configured games
  donaldswap windows --games`,
	RunE: runWindows,
}

var (
	windowsFormat string
	windowsGames  bool
)

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
	windowsCmd.Flags().BoolVarP(&windowsGames, "games", "g", false, "show only windows of configured games")
}

func runWindows(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	snap := configMgr.Snapshot()

	desktop, err := window.Open()
	if err != nil {
		return fmt.Errorf("failed to open window backend: %w", err)
	}
	defer desktop.Close()

	windows, err := window.NewLocator(desktop).Enumerate()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	if windowsGames {
		filtered := make([]window.Handle, 0)
		for _, w := range windows {
			if _, ok := snap.FindGame(w.ExeName); ok {
				filtered = append(filtered, w)
			}
		}
		windows = filtered
	}

	switch windowsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tEXE\tGAME\tTITLE")
		fmt.Fprintln(w, "--\t---\t----\t-----")
		for _, win := range windows {
			game := "-"
			if g, ok := snap.FindGame(win.ExeName); ok {
				game = g.Name()
				if !g.Enabled {
					game += " (disabled)"
				}
			}
			fmt.Fprintf(w, "%#x\t%s\t%s\t%s\n", win.ID, win.ExeName, game, win.Title)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", windowsFormat)
	}
}
