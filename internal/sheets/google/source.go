// Package google imports the ledger from a Google Sheets spreadsheet holding
// one tab of entities and one tab of transactions.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbi/internal/importer"
	"ledgerbi/internal/log"
)

const (
	DefaultEntitiesSheet     = "Base 1 - ID"
	DefaultTransactionsSheet = "Base 2 - Transações"
)

// rangeReader returns the cell values of an A1 range.
type rangeReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

// Source reads both tabs and parses them with the same column rules as the
// CSV importer.
type Source struct {
	reader            rangeReader
	spreadsheetID     string
	entitiesSheet     string
	transactionsSheet string
	logger            *log.Logger
}

var _ importer.Source = (*Source)(nil)

// NewFromEnv creates a Sheets source using a service account.
// Required: GOOGLE_SPREADSHEET_ID (or spreadsheetID when non-empty)
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional tab names: GOOGLE_ENTITIES_SHEET_NAME, GOOGLE_TRANSACTIONS_SHEET_NAME.
func NewFromEnv(ctx context.Context, spreadsheetID string, logger *log.Logger) (*Source, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		spreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	}
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.ForComponent(log.ComponentSheets)
	}

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Source{
		reader:            serviceReader{svc: svc},
		spreadsheetID:     spreadsheetID,
		entitiesSheet:     envOr("GOOGLE_ENTITIES_SHEET_NAME", DefaultEntitiesSheet),
		transactionsSheet: envOr("GOOGLE_TRANSACTIONS_SHEET_NAME", DefaultTransactionsSheet),
		logger:            logger,
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

type serviceReader struct {
	svc *gsheet.Service
}

func (r serviceReader) Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *Source) Load(ctx context.Context) (importer.Ledger, error) {
	var l importer.Ledger

	header, rows, err := s.readSheet(ctx, s.entitiesSheet)
	if err != nil {
		return importer.Ledger{}, err
	}
	if header != nil {
		if l.Entities, err = importer.ParseEntities(header, rows); err != nil {
			return importer.Ledger{}, fmt.Errorf("sheet %q: %w", s.entitiesSheet, err)
		}
	}

	header, rows, err = s.readSheet(ctx, s.transactionsSheet)
	if err != nil {
		return importer.Ledger{}, err
	}
	if header != nil {
		if l.Transactions, err = importer.ParseTransactions(header, rows); err != nil {
			return importer.Ledger{}, fmt.Errorf("sheet %q: %w", s.transactionsSheet, err)
		}
	}

	s.logger.InfoContext(ctx, "Loaded ledger from Google Sheets",
		"spreadsheet_id", s.spreadsheetID,
		"entities", len(l.Entities),
		"transactions", len(l.Transactions))
	return l, nil
}

// readSheet returns the first row as header and the rest as data rows. An
// empty tab yields a nil header.
func (s *Source) readSheet(ctx context.Context, sheet string) ([]string, [][]string, error) {
	values, err := s.reader.Values(ctx, s.spreadsheetID, quoteSheet(sheet))
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(values) == 0 {
		return nil, nil, nil
	}
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return toStrings(values[0]), rows, nil
}

// quoteSheet turns a tab name into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
