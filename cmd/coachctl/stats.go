package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/storage/sqlite"
	"github.com/maxicoach/backend/pkg/config"
)

func newStatsCmd() *cobra.Command {
	var (
		dbPath string
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count answered turns by outcome",
		Long:  "Reads the conversation history and shows how often users got a match, a survey or the fallback.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.LoadForTools()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dbPath = cfg.SQLite.Path
			}

			client, err := sqlite.NewClient(dbPath)
			if err != nil {
				return err
			}
			defer client.Close()

			counts, err := client.OutcomeCounts(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			printCounts(cmd, counts, since)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file (default: sqlite.path from config)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "look-back window")
	return cmd
}

func printCounts(cmd *cobra.Command, counts map[string]int, since time.Duration) {
	out := cmd.OutOrStdout()

	outcomes := make([]string, 0, len(counts))
	total := 0
	for o, n := range counts {
		outcomes = append(outcomes, o)
		total += n
	}
	sort.Strings(outcomes)

	fmt.Fprintf(out, "Turns in the last %s: %d\n", since, total)
	for _, o := range outcomes {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(counts[o]) / float64(total)
		}
		fmt.Fprintf(out, "  %-16s %6d  %5.1f%%\n", o, counts[o], pct)
	}
}
