// Command ledger-import loads the ledger workbook from CSV files or Google
// Sheets, replaces the SQLite ledger with it and tells running servers to
// rebuild their search index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ledgerbi/internal/amqp"
	"ledgerbi/internal/cli"
	"ledgerbi/internal/config"
	"ledgerbi/internal/importer"
	"ledgerbi/internal/log"
	gsheet "ledgerbi/internal/sheets/google"
	"ledgerbi/internal/storage"
)

const (
	sourceCSV    = "csv"
	sourceSheets = "sheets"
)

type options struct {
	source        string
	dir           string
	spreadsheetID string
	dbPath        string
	publish       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "ledger-import",
		Short:        "Replace the stored ledger with a fresh snapshot",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := cli.SetupLogger(cfg.LogLevel, log.ComponentImport)

			if opts.dir == "" {
				opts.dir = cfg.DataDir
			}
			if opts.spreadsheetID == "" {
				opts.spreadsheetID = cfg.GoogleSpreadsheetID
			}
			if opts.dbPath == "" {
				opts.dbPath = cfg.SQLiteDBPath
			}
			return runImport(cmd.Context(), cfg, opts, logger)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", sourceCSV, "where to read the ledger from: csv or sheets")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory holding entities.csv and transactions.csv (default DATA_DIR)")
	cmd.Flags().StringVar(&opts.spreadsheetID, "spreadsheet", "", "Google spreadsheet id (default GOOGLE_SPREADSHEET_ID)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	cmd.Flags().BoolVar(&opts.publish, "publish", true, "publish an index reload message when AMQP is configured")
	return cmd
}

func runImport(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) error {
	start := time.Now()

	src, err := openSource(ctx, opts, logger)
	if err != nil {
		return err
	}

	ledger, err := src.Load(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load ledger", "source", opts.source, log.FieldError, err)
		return fmt.Errorf("load %s ledger: %w", opts.source, err)
	}

	repo, err := storage.NewSQLiteRepository(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", opts.dbPath, err)
	}
	defer func() { _ = repo.Close() }()

	if err := repo.ReplaceLedger(ctx, ledger); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	logger.InfoContext(ctx, "Ledger imported",
		log.FieldOperation, log.OpImport,
		"source", opts.source,
		"entities", len(ledger.Entities),
		"transactions", len(ledger.Transactions),
		log.FieldDuration, time.Since(start).Milliseconds())

	if !opts.publish || !cfg.AMQPEnabled() {
		logger.InfoContext(ctx, "Index reload not published", "amqp_enabled", cfg.AMQPEnabled())
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		return fmt.Errorf("connect amqp: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.PublishIndexReload(ctx, "import:"+opts.source); err != nil {
		return fmt.Errorf("publish index reload: %w", err)
	}
	return nil
}

func openSource(ctx context.Context, opts options, logger *log.Logger) (importer.Source, error) {
	switch opts.source {
	case sourceCSV:
		return importer.NewCSVSource(opts.dir), nil
	case sourceSheets:
		if opts.spreadsheetID == "" {
			return nil, fmt.Errorf("sheets source needs --spreadsheet or GOOGLE_SPREADSHEET_ID")
		}
		src, err := gsheet.NewFromEnv(ctx, opts.spreadsheetID, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source %q: must be %s or %s", opts.source, sourceCSV, sourceSheets)
	}
}
