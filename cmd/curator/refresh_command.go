package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/scanner"
	"curator/internal/scheduler"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var names []string
	var skipScan bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-read stale descriptors into the catalog",
		Long: "Refresh parses the descriptor of every entity whose descriptor changed since its last\n" +
			"refresh. Use --force to re-parse regardless, or --name to limit the run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withWritableStore(func(cfg *config.Config, store *catalog.Store) error {
				logger := ctx.logger()
				if !skipScan && len(names) == 0 {
					if _, err := scanner.New(cfg, store, logger).Scan(runCtx); err != nil {
						return err
					}
				}
				sched, err := scheduler.NewFromConfig(cfg, store, logger)
				if err != nil {
					return err
				}
				summary, err := sched.Run(runCtx, scheduler.Options{Force: force, Names: names})
				printSummary(cmd.OutOrStdout(), summary)
				if err != nil {
					if runCtx.Err() != nil {
						return context.Canceled
					}
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d entities failed to refresh", summary.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh every selected entity even when up to date")
	cmd.Flags().StringArrayVarP(&names, "name", "n", nil, "Refresh only the named entity (repeatable)")
	cmd.Flags().BoolVar(&skipScan, "no-scan", false, "Skip library discovery before refreshing")
	return cmd
}

func printSummary(out io.Writer, summary scheduler.Summary) {
	fmt.Fprintf(out, "Refresh %s: %d entities in %s\n", shortRunID(summary.RunID), summary.Total, summary.Duration.Round(time.Millisecond))
	rows := [][]string{
		{"Refreshed", fmt.Sprint(summary.Refreshed)},
		{"Up to date", fmt.Sprint(summary.UpToDate)},
		{"No descriptor", fmt.Sprint(summary.Skipped)},
		{"Failed", fmt.Sprint(summary.Failed)},
	}
	if summary.Cancelled > 0 {
		rows = append(rows, []string{"Cancelled", fmt.Sprint(summary.Cancelled)})
	}
	if summary.Unsupported > 0 {
		rows = append(rows, []string{"Unsupported", fmt.Sprint(summary.Unsupported)})
	}
	if summary.Busy > 0 {
		rows = append(rows, []string{"Busy", fmt.Sprint(summary.Busy)})
	}
	fmt.Fprintln(out, renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(summary.Failures) == 0 {
		return
	}
	failures := make([][]string, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		failures = append(failures, []string{f.Name, truncate(f.Err.Error(), 100)})
	}
	fmt.Fprintln(out, renderTable([]string{"Entity", "Error"}, failures, nil))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
