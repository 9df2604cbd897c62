package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/spf13/cobra"
)

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Manage the games in the rotation",
	Long:  `Add, remove, enable or disable games by executable name.`,
}

var gameAddCmd = &cobra.Command{
	Use:   "add EXE",
	Short: "Add a game to the rotation",
	Long: `Add a game by the executable that owns its window (see "donaldswap windows").
Adding an executable that is already configured replaces its settings.`,
	Example: `  # Add a game
  donaldswap game add Celeste.exe --name Celeste

  # Add a game that needs ESC to pause when swapped away from, with its own OBS scene
  donaldswap game add Hades.exe --name Hades --esc-leave --scene "Hades Cam"`,
	Args: cobra.ExactArgs(1),
	RunE: runGameAdd,
}

var gameRemoveCmd = &cobra.Command{
	Use:   "remove EXE",
	Short: "Remove a game from the rotation",
	Args:  cobra.ExactArgs(1),
	RunE:  runGameRemove,
}

var gameEnableCmd = &cobra.Command{
	Use:   "enable EXE",
	Short: "Include a configured game in the rotation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setGameEnabled(args[0], true)
	},
}

var gameDisableCmd = &cobra.Command{
	Use:   "disable EXE",
	Short: "Exclude a configured game from the rotation without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setGameEnabled(args[0], false)
	},
}

var gameListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured games",
	RunE:  runGameList,
}

var (
	gameName     string
	gameScene    string
	gameEscLeave bool
	gameEscEnter bool
	gameDisabled bool
	gameFormat   string
)

func init() {
	rootCmd.AddCommand(gameCmd)
	gameCmd.AddCommand(gameAddCmd)
	gameCmd.AddCommand(gameRemoveCmd)
	gameCmd.AddCommand(gameEnableCmd)
	gameCmd.AddCommand(gameDisableCmd)
	gameCmd.AddCommand(gameListCmd)

	gameAddCmd.Flags().StringVar(&gameName, "name", "", "display name (default is the executable name)")
	gameAddCmd.Flags().StringVar(&gameScene, "scene", "", "OBS scene to switch to when this game is entered")
	gameAddCmd.Flags().BoolVar(&gameEscLeave, "esc-leave", false, "send ESC before swapping away from this game")
	gameAddCmd.Flags().BoolVar(&gameEscEnter, "esc-enter", false, "send ESC after swapping to this game")
	gameAddCmd.Flags().BoolVar(&gameDisabled, "disabled", false, "add the game without enabling it")

	gameListCmd.Flags().StringVarP(&gameFormat, "format", "f", "table", "output format (table or json)")
}

func runGameAdd(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	game := config.GameEntry{
		ExeName:        args[0],
		DisplayName:    gameName,
		Enabled:        !gameDisabled,
		SendEscOnEnter: gameEscEnter,
		SendEscOnLeave: gameEscLeave,
		OBSScene:       gameScene,
	}
	if err := configMgr.AddGame(game); err != nil {
		return fmt.Errorf("failed to add game: %w", err)
	}

	fmt.Printf("✅ Added '%s' (%s)\n", game.Name(), game.ExeName)
	return nil
}

func runGameRemove(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.RemoveGame(args[0]); err != nil {
		return fmt.Errorf("failed to remove game: %w", err)
	}

	fmt.Printf("✅ Removed '%s'\n", args[0])
	return nil
}

func setGameEnabled(exe string, enabled bool) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.SetGameEnabled(exe, enabled); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("✅ '%s' %s\n", exe, state)
	return nil
}

func runGameList(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	games := configMgr.Get().Games

	switch gameFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(games)
	case "table":
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", gameFormat)
	}

	if len(games) == 0 {
		fmt.Println("No games configured. Add one with: donaldswap game add EXE")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tEXE\tENABLED\tESC LEAVE\tESC ENTER\tOBS SCENE")
	fmt.Fprintln(w, "----\t---\t-------\t---------\t---------\t---------")
	for _, g := range games {
		scene := g.OBSScene
		if scene == "" {
			scene = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			g.Name(), g.ExeName, yesNo(g.Enabled), yesNo(g.SendEscOnLeave), yesNo(g.SendEscOnEnter), scene)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
