package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbi/internal/log"
	"ledgerbi/internal/services"
)

func sectorsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "sectors",
		Short: "Group entities by sector, largest revenue first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("sectors: --top must not be negative")
			}
			logger := newLogger()
			ctx := cmd.Context()

			st, err := openStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("sectors: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			groups, err := services.NewSectorRollup(st.Store, logger.WithComponent(log.ComponentRollup)).ComputeSectorRollup(ctx)
			if err != nil {
				return fmt.Errorf("sectors: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), services.TopSectors(groups, top))
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "only print the first K sectors (0 prints all)")
	return cmd
}
