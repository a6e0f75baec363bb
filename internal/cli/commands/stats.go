package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shop-chatter/internal/analytics"
	"shop-chatter/internal/ui"
)

var (
	statsDate string
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show usage for one day from the turn log",
	Example: `  # Today
  $ shopctl stats

  # A given day as JSON
  $ shopctl stats --date 2024-05-01 --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsDate, "date", "", "Day to report, YYYY-MM-DD (default today)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON instead of a table")
	statsCmd.SilenceUsage = true
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	return time.ParseInLocation("2006-01-02", s, now.Location())
}

func runStats(cmd *cobra.Command, args []string) error {
	day, err := parseDate(statsDate, time.Now())
	if err != nil {
		ui.PrintError("invalid date %q, expected YYYY-MM-DD", statsDate)
		return fmt.Errorf("invalid arguments")
	}

	sh, err := openShell()
	if err != nil {
		return err
	}
	if sh.recorder == nil {
		ui.PrintError("turn log is not configured (LOG_FILE_PATH)")
		return fmt.Errorf("no turn log")
	}

	events, err := sh.recorder.LoadEvents()
	if err != nil {
		ui.PrintError("failed to read turn log: %v", err)
		return fmt.Errorf("load failed")
	}
	stats := analytics.AnalyzeDailyEvents(events, day)

	if statsJSON {
		out, err := stats.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Println(ui.RenderStats(stats))
	return nil
}
