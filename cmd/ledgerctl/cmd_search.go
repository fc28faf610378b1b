package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledgerbi/internal/log"
	"ledgerbi/internal/search"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find entities whose id or sector contains term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := openStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("search: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			index := search.NewIndex(st.Store, logger.WithComponent(log.ComponentSearch))
			if err := index.EnsureLoaded(ctx); err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), index.Search(strings.Join(args, " ")))
		},
	}
}
