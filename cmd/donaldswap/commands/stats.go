package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/journal"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how long each game was played",
	Long: `Summarize the swap journal: total focus time per game and the most
recent swaps. Requires journal.enabled in the configuration.`,
	Example: `  # Totals for the last 24 hours (default)
  donaldswap stats

  # Totals for the last week, with the last 20 swaps
  donaldswap stats --since 168h --recent 20

  # Everything, as JSON
  donaldswap stats --all --format json`,
	RunE: runStats,
}

var (
	statsSince  time.Duration
	statsAll    bool
	statsRecent int
	statsFormat string
	statsPrune  time.Duration
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().DurationVar(&statsSince, "since", 24*time.Hour, "summarize swaps within this window")
	statsCmd.Flags().BoolVar(&statsAll, "all", false, "summarize the whole journal")
	statsCmd.Flags().IntVarP(&statsRecent, "recent", "n", 10, "number of recent swaps to list")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "table", "output format (table or json)")
	statsCmd.Flags().DurationVar(&statsPrune, "prune", 0, "delete journal entries older than this before reporting")
}

func runStats(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	if !cfg.Journal.Enabled {
		return fmt.Errorf("swap journal is disabled (enable with: donaldswap config set journal.enabled true)")
	}

	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := journal.NewRepository(db)

	if statsPrune > 0 {
		n, err := repo.Prune(time.Now().Add(-statsPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Pruned %d journal entries\n", n)
	}

	since := time.Now().Add(-statsSince)
	if statsAll {
		since = time.Time{}
	}

	totals, err := repo.Totals(since)
	if err != nil {
		return err
	}
	recent, err := repo.Recent(statsRecent)
	if err != nil {
		return err
	}

	switch statsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"since":  since,
			"totals": totals,
			"recent": recent,
		})
	case "table":
		return printStats(totals, recent)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", statsFormat)
	}
}

func printStats(totals []journal.GameTotal, recent []journal.SwapRecord) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "GAME\tTIME\tSESSIONS")
	fmt.Fprintln(w, "----\t----\t--------")
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%s\t%d\n", t.GameName, time.Duration(t.TotalSeconds)*time.Second, t.Sessions)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "WHEN\tFROM\tTO\tPLAYED")
	fmt.Fprintln(w, "----\t----\t--\t------")
	for _, r := range recent {
		from := r.FromGame
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.At.Local().Format("2006-01-02 15:04:05"), from, r.ToGame, time.Duration(r.DurationSeconds)*time.Second)
	}
	return w.Flush()
}
