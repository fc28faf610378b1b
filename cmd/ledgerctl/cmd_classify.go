package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbi/internal/log"
	"ledgerbi/internal/services"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <entity-id>",
		Short: "List an entity's transactions as inflows and outflows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := openStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("classify: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			summary, err := services.NewTransactionClassifier(st.Store, logger.WithComponent(log.ComponentClassifier)).ClassifyForEntity(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
