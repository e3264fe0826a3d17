// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/provider"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var providerName string
	var force bool
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sync now (all providers, or one with --provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd.ErrOrStderr())

			runCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.RunTimeout)
			defer cancel()

			opened, err := ctx.openStores(runCtx, dryRun, logger)
			if err != nil {
				return err
			}
			defer opened.close()

			fetcher := fetch.NewClient(
				fetch.WithTimeout(cfg.Fetch.Timeout),
				fetch.WithBackoff(cfg.Fetch.RetryBaseDelay),
				fetch.WithLogger(logger),
			)
			registry, err := provider.NewRegistry(cfg, fetcher, logger)
			if err != nil {
				return err
			}

			engine := catalog.NewEngine(opened.catalog, catalog.WithLogger(logger))
			orchestrator := catalogsync.NewOrchestrator(cfg.Providers(), registry, engine, opened.meta,
				catalogsync.WithLogger(logger),
				catalogsync.WithReports(opened.reports),
			)

			var report *catalogsync.Report
			if providerName != "" {
				report, err = orchestrator.RunProvider(runCtx, providerName, force, catalogsync.TriggerCLI)
			} else {
				report, err = orchestrator.RunAll(runCtx, catalogsync.TriggerCLI)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			}

			if failure := report.FirstFailure(); failure != nil {
				return fmt.Errorf("provider %s failed: %w", failure.Provider, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "Run only this provider")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the provider's minimum interval (with --provider)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use in-memory stores; nothing is persisted")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if force && providerName == "" {
			return errors.New("--force requires --provider")
		}
		return nil
	}

	return cmd
}

func renderReport(report *catalogsync.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		rows = append(rows, []string{
			result.Provider,
			string(result.State),
			strconv.Itoa(result.Imported),
			strconv.Itoa(result.Skipped),
			result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
			result.Reason,
		})
	}
	return renderTable([]string{"Provider", "State", "Imported", "Skipped", "Took", "Reason"}, rows, 3, 4, 5)
}
