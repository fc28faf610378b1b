// Command ledgerctl runs the ledger reports from a terminal and prints JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledgerbi/internal/backend"
	"ledgerbi/internal/cli"
	"ledgerbi/internal/config"
	"ledgerbi/internal/log"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := newRootCmd()
	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Query ledger statistics, sector rollups, entity flows and search",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg = config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		statsCmd(),
		sectorsCmd(),
		classifyCmd(),
		searchCmd(),
		reloadCmd(),
	)
	return rootCmd
}

// newLogger writes to stderr so stdout carries only JSON.
func newLogger() *log.Logger {
	level := logLevel(cfg)
	return log.New(log.Config{
		Level:     level,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})
}

// logLevel reads LOG_LEVEL the same way the server does. Before the config
// is loaded only warnings are shown.
func logLevel(c *config.Config) slog.Level {
	if c == nil {
		return slog.LevelWarn
	}
	return log.ParseLevel(c.LogLevel)
}

func openStore(ctx context.Context, logger *log.Logger) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
