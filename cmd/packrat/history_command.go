package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"packrat/internal/journal"
)

type historyView struct {
	Runs     []journal.Run     `json:"runs"`
	Failures []journal.Outcome `json:"failures"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and item failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			if store == nil {
				return errors.New("journal is disabled (journal.enabled = false)")
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			failures, err := store.RecentFailures(cmd.Context(), limit*2)
			if err != nil {
				return err
			}

			if jsonOut {
				view := historyView{Runs: runs, Failures: failures}
				if view.Runs == nil {
					view.Runs = []journal.Run{}
				}
				if view.Failures == nil {
					view.Failures = []journal.Outcome{}
				}
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					runDuration(run),
					run.Status,
					fmt.Sprint(run.Downloaded),
					fmt.Sprint(run.Skipped),
					failedCount(out, run.Failed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Status", "Downloaded", "Skipped", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
			))

			if len(failures) > 0 {
				frows := make([][]string, 0, len(failures))
				for _, f := range failures {
					frows = append(frows, []string{
						f.RecordedAt.Local().Format(time.DateTime),
						f.Collection,
						f.Slug,
						f.Outcome,
						orDash(f.Detail),
					})
				}
				fmt.Fprintln(out, "Recent failures:")
				fmt.Fprintln(out, renderTable([]string{"When", "Pack", "Item", "Outcome", "Detail"}, frows, nil))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output history as JSON")
	return cmd
}

func runDuration(run journal.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
