package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbi/internal/amqp"
	"ledgerbi/internal/log"
)

func reloadCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask running servers to rebuild their search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.AMQPEnabled() {
				return errors.New("reload: AMQP_URL is not set")
			}
			logger := newLogger()

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
			if err != nil {
				return fmt.Errorf("reload: %w", err)
			}
			defer func() { _ = client.Close() }()

			if err := client.PublishIndexReload(cmd.Context(), reason); err != nil {
				return fmt.Errorf("reload: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Index reload requested.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded in the reload message")
	return cmd
}
