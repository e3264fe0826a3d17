// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the resolved provider table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, cfg.Providers())
			}

			rows := make([][]string, 0, len(cfg.Providers()))
			for _, row := range cfg.Providers() {
				source := ""
				switch {
				case row.Scrape != nil:
					source = row.Scrape.BaseURL + " " + strings.Join(row.Scrape.ListPaths, ",")
				case row.UpstreamID != 0:
					source = "watch provider " + strconv.Itoa(row.UpstreamID)
				}
				rows = append(rows, []string{
					row.Name,
					string(row.Kind),
					strconv.Itoa(row.MinIntervalDays),
					strconv.Itoa(row.PageCap),
					source,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Provider", "Kind", "Interval (days)", "Page cap", "Source"}, rows, 3, 4))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the table as JSON")
	return cmd
}
