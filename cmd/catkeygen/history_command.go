package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"catkeygen/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent resolution runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled || cfg.History.Path == "" {
				return fmt.Errorf("run history is disabled in the configuration")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("load runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					strings.Join(run.Lists, ", "),
					strconv.Itoa(run.TotalFound),
					strconv.Itoa(run.TotalNotFound),
					runDuration(run),
					yesNo(run.Interrupted),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Lists", "Found", "Not Found", "Duration", "Interrupted"},
				rows, 3, 4))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	return cmd
}

func runDuration(run history.RunSummary) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	return duration.String()
}
