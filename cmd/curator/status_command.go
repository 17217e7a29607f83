package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/daemon"
	"curator/internal/daemonrun"
	"curator/internal/library"
	"curator/internal/scheduler"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var staleOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and per-entity refresh status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(out, line)
				}
				running, err := daemonRunning(cfg)
				switch {
				case err != nil:
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, err.Error(), colorize))
				case running:
					detail := "running"
					if pid, ok := daemonrun.ReadPID(cfg); ok {
						detail = fmt.Sprintf("running (pid %d)", pid)
					}
					fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, detail, colorize))
					if published, err := daemon.ReadStatus(cfg.StatusPath()); err == nil && published.Running {
						for _, line := range renderDaemonStatus(published, time.Now(), colorize) {
							fmt.Fprintln(out, line)
						}
					}
				default:
					fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Catalog", statusInfo, store.Path(), colorize))
				fmt.Fprintln(out)

				sched, err := scheduler.NewFromConfig(cfg, store, ctx.logger())
				if err != nil {
					return err
				}
				pending, err := sched.Pending(cmd.Context())
				if err != nil {
					return err
				}
				stale := make(map[string]struct{}, len(pending))
				for _, entity := range pending {
					stale[entity.ID()] = struct{}{}
				}

				records, err := store.List(cmd.Context(), library.KindPerson)
				if err != nil {
					return err
				}
				latest, err := store.LatestAttempts(cmd.Context())
				if err != nil {
					return err
				}

				for _, line := range renderSectionHeader("Entities", colorize) {
					fmt.Fprintln(out, line)
				}
				now := time.Now()
				var rows [][]string
				for _, rec := range records {
					_, isStale := stale[rec.ID]
					if staleOnly && !isStale {
						continue
					}
					state := "up to date"
					if isStale {
						state = "stale"
					}
					lastOutcome := ""
					if att := latest[rec.ID]; att != nil {
						lastOutcome = paint(att.Outcome, outcomeKind(att.Outcome), colorize)
					}
					rows = append(rows, []string{rec.Name, formatAge(rec.LastRefreshed, now), lastOutcome, state})
				}
				if len(rows) == 0 {
					if staleOnly {
						fmt.Fprintln(out, "All entities are up to date")
					} else {
						fmt.Fprintln(out, "Catalog is empty; run 'curator scan'")
					}
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Name", "Refreshed", "Last attempt", "State"}, rows, nil))
				fmt.Fprintf(out, "%d entities, %d stale\n", len(records), len(pending))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&staleOnly, "stale", false, "List only entities whose descriptor changed since the last refresh")
	return cmd
}

// renderDaemonStatus formats the status a running daemon last published.
func renderDaemonStatus(status daemon.Status, now time.Time, colorize bool) []string {
	var lines []string
	if !status.LastScanAt.IsZero() {
		detail := fmt.Sprintf("%d discovered, %d added, %d removed (%s)",
			status.LastScan.Discovered, status.LastScan.Added, status.LastScan.Removed,
			formatAge(status.LastScanAt, now))
		lines = append(lines, renderStatusLine("Last scan", statusInfo, detail, colorize))
	}
	if run := status.LastRun; run != nil {
		kind := statusOK
		if run.Failed > 0 {
			kind = statusWarn
		}
		detail := fmt.Sprintf("%d refreshed, %d up to date, %d failed (%s)",
			run.Refreshed, run.UpToDate, run.Failed, formatAge(status.LastRunAt, now))
		lines = append(lines, renderStatusLine("Last run", kind, detail, colorize))
	}
	if status.Watching {
		detail := fmt.Sprintf("%d directories, %d delivered, %d coalesced",
			status.Watch.Watching, status.Watch.Delivered, status.Watch.Coalesced)
		lines = append(lines, renderStatusLine("Watch", statusInfo, detail, colorize))
	}
	if status.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}
	return lines
}
