package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbi/internal/log"
	"ledgerbi/internal/services"
)

func statsCmd() *cobra.Command {
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute the ledger-wide metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := openStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			report := services.NewStatisticsAggregator(st.Store, logger.WithComponent(log.ComponentStatistics)).ComputeStatistics(ctx)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			if failed := report.Failed(); failOnError && len(failed) > 0 {
				return fmt.Errorf("stats: %d metrics failed: %v", len(failed), failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnError, "strict", false, "exit non-zero when any metric failed")
	return cmd
}
