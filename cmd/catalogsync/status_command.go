// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ikusare/internal/catalogsync"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show each provider's last run and whether it is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd.ErrOrStderr())

			opened, err := ctx.openStores(cmd.Context(), false, logger)
			if err != nil {
				return err
			}
			defer opened.close()

			orchestrator := catalogsync.NewOrchestrator(cfg.Providers(), nil, nil, opened.meta,
				catalogsync.WithLogger(logger),
				catalogsync.WithReports(opened.reports),
			)

			statuses, err := orchestrator.Status(cmd.Context())
			if err != nil {
				return err
			}
			latest, err := orchestrator.LatestReport(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{"providers": statuses, "last_report": latest})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(statuses))
			if latest != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nLast run %s (%s) at %s\n", latest.RunID, latest.Trigger, latest.FinishedAt.Format("2006-01-02 15:04:05 MST"))
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(latest))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func renderStatus(statuses []catalogsync.ProviderStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		lastRun := status.LastRun
		if lastRun == "" {
			lastRun = "never"
		}
		due := "no"
		if status.Due {
			due = "yes"
		}
		rows = append(rows, []string{status.Provider, status.Kind, strconv.Itoa(status.MinIntervalDays), lastRun, due})
	}
	return renderTable([]string{"Provider", "Kind", "Interval (days)", "Last run", "Due"}, rows, 3)
}
