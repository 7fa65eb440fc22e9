package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"packrat/internal/browser"
	"packrat/internal/catalog"
	"packrat/internal/logging"
	"packrat/internal/pipeline"
	"packrat/internal/preflight"
	"packrat/internal/resolver"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var packs []string
	var limit int
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the catalog and download every missing asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.env()
			if err != nil {
				return err
			}
			for _, check := range []preflight.Result{
				preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
				preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
			} {
				if !check.Passed {
					return fmt.Errorf("%s: %s", check.Name, check.Detail)
				}
			}

			lock, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			store, err := ctx.assetStore()
			if err != nil {
				return err
			}
			var opts []pipeline.Option
			jrnl, err := ctx.openJournal()
			if err != nil {
				logging.WarnWithContext(logger, "journal unavailable; run history will not be recorded", "journal_open_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check journal.path or set journal.enabled = false"),
					logging.String(logging.FieldImpact, "run continues without history"),
				)
			} else if jrnl != nil {
				defer jrnl.Close()
				opts = append(opts, pipeline.WithJournal(jrnl))
			}

			runner := pipeline.New(cfg, catalog.NewCrawler(cfg, logger), resolver.New(cfg, logger), store, logger, opts...)
			var summary pipeline.Summary
			runErr := ctx.withSession(cmd, func(runCtx context.Context, page browser.Page) error {
				var err error
				summary, err = runner.Run(runCtx, page, pipeline.Options{Packs: packs, Limit: limit, DryRun: dryRun})
				return err
			})
			if summary.RunID == "" {
				return runErr
			}

			if jsonOut {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				printSummary(cmd, summary, dryRun)
			}
			return runErr
		},
	}

	cmd.Flags().StringSliceVar(&packs, "pack", nil, "Process only these pack slugs instead of crawling")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after processing this many items")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract items without resolving or downloading")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
	rows := [][]string{
		{"Packs", fmt.Sprint(summary.Collections)},
		{"Items", fmt.Sprint(summary.Items)},
		{"Downloaded", colorize(out, fmt.Sprint(summary.Downloaded), text.FgGreen)},
		{"Skipped", fmt.Sprint(summary.Skipped)},
		{"Failed", failedCount(out, summary.Failed)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if dryRun && len(summary.Planned) > 0 {
		planned := make([][]string, 0, len(summary.Planned))
		for _, item := range summary.Planned {
			planned = append(planned, []string{item.Collection.Slug, item.Slug})
		}
		fmt.Fprintln(out, "Would resolve:")
		fmt.Fprintln(out, renderTable([]string{"Pack", "Item"}, planned, nil))
	}

	if len(summary.Failures) > 0 {
		failures := make([][]string, 0, len(summary.Failures))
		for _, f := range summary.Failures {
			failures = append(failures, []string{f.Collection, f.Slug, f.Outcome, f.Error})
		}
		fmt.Fprintln(out, "Failures:")
		fmt.Fprintln(out, renderTable([]string{"Pack", "Item", "Outcome", "Error"}, failures, nil))
	}
}
