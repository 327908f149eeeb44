package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewkit/crewkit/internal/config"
	"github.com/crewkit/crewkit/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent crew runs",
	Long: `Display recent crew runs from the run history database.

Shows each run's crew name, process, outcome, duration, and token usage.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := cfg.State.DBPath
	if path == "" {
		path = state.DefaultDBPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Run 'crewkit run -f <crew.yaml>' to start.")
		return nil
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'crewkit run -f <crew.yaml>' to start.")
		return nil
	}

	fmt.Println("Recent Runs:")
	for _, r := range runs {
		displayRun(r)
	}
	return nil
}

func displayRun(r state.Run) {
	label := r.CrewName
	if label == "" {
		label = r.ID
	}
	kind := r.Process
	if r.Replay {
		kind += ", replay"
	}

	duration := ""
	if r.FinishedAt != nil {
		duration = formatDuration(r.FinishedAt.Sub(r.StartedAt))
	} else {
		duration = formatDuration(time.Since(r.StartedAt)) + " ago, still active"
	}

	fmt.Printf("  %s (%s): %s in %s, %d tokens over %d requests\n",
		label, kind, r.Status, duration, r.Usage.TotalTokens, r.Usage.SuccessfulRequests)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
