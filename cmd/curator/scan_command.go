package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Discover person folders and update the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWritableStore(func(cfg *config.Config, store *catalog.Store) error {
				result, err := scanner.New(cfg, store, ctx.logger()).Scan(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %s: %d discovered, %d added, %d removed\n",
					cfg.PeopleRoot(), result.Discovered, result.Added, result.Removed)
				return nil
			})
		},
	}
}
