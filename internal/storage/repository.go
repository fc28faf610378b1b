package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ledgerbi/internal/core"
	"ledgerbi/internal/importer"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w: %w", core.ErrStoreUnavailable, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// ListEntities implements ledger.EntityLister
func (r *SQLiteRepository) ListEntities(ctx context.Context) ([]core.Entity, error) {
	rows, err := r.queries.ListEntities(ctx)
	if err != nil {
		return nil, unavailable("list entities", err)
	}

	entities := make([]core.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, toCoreEntity(row))
	}
	return entities, nil
}

// GetEntity implements ledger.EntityGetter
func (r *SQLiteRepository) GetEntity(ctx context.Context, id string) (core.Entity, error) {
	row, err := r.queries.GetEntity(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entity{}, fmt.Errorf("entity %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entity{}, unavailable("get entity", err)
	}
	return toCoreEntity(row), nil
}

// ListTransactionsForEntity implements ledger.TransactionLister
func (r *SQLiteRepository) ListTransactionsForEntity(ctx context.Context, id string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsForEntity(ctx, id)
	if err != nil {
		return nil, unavailable("list transactions for entity", err)
	}
	return toCoreTransactions(rows)
}

// RecentTransactions implements ledger.RecentTransactionLister
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.queries.RecentTransactions(ctx, int64(limit))
	if err != nil {
		return nil, unavailable("recent transactions", err)
	}
	return toCoreTransactions(rows)
}

// ScalarAggregate implements ledger.ScalarAggregator
func (r *SQLiteRepository) ScalarAggregate(ctx context.Context, metric core.Metric) (int64, error) {
	var query func(context.Context) (int64, error)
	switch metric {
	case core.MetricEntityCount:
		query = r.queries.CountEntities
	case core.MetricTransactionCount:
		query = r.queries.CountTransactions
	case core.MetricTransactionValue:
		query = r.queries.SumTransactionAmounts
	case core.MetricRevenueTotal:
		query = r.queries.SumRevenue
	case core.MetricBalanceTotal:
		query = r.queries.SumBalance
	default:
		return 0, fmt.Errorf("metric %q: %w", metric, core.ErrInvalidInput)
	}

	v, err := query(ctx)
	if err != nil {
		return 0, unavailable(string(metric), err)
	}
	return v, nil
}

// ReplaceLedger swaps the stored ledger for l in a single transaction. It is
// used by the importer only; the reporting engine never writes.
func (r *SQLiteRepository) ReplaceLedger(ctx context.Context, l importer.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin import", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteTransactions(ctx); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if err := q.DeleteEntities(ctx); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}

	for _, e := range l.Entities {
		if err := q.InsertEntity(ctx, fromCoreEntity(e)); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.ID, err)
		}
	}
	for _, t := range l.Transactions {
		if err := q.InsertTransaction(ctx, fromCoreTransaction(t)); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	log.ForComponent(log.ComponentStorage).InfoContext(ctx, "Ledger replaced in SQLite",
		"entities", len(l.Entities),
		"transactions", len(l.Transactions))
	return nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

func toCoreEntity(row Entity) core.Entity {
	e := core.Entity{
		ID:     row.ID,
		Sector: row.Sector.String,
	}
	if row.RevenueCents.Valid {
		e.Revenue = core.MoneyPtr(row.RevenueCents.Int64)
	}
	if row.BalanceCents.Valid {
		e.Balance = core.MoneyPtr(row.BalanceCents.Int64)
	}
	if row.OpenedOn.Valid {
		if d, err := core.ParseDate(row.OpenedOn.String); err == nil {
			e.OpenedOn = d
		}
	}
	return e
}

func toCoreTransactions(rows []Transaction) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.ReferenceDate)
		if err != nil {
			return nil, fmt.Errorf("transaction %d reference date %q: %w", row.ID, row.ReferenceDate, err)
		}
		txs = append(txs, core.Transaction{
			ID:            row.ID,
			PayerID:       row.PayerID,
			ReceiverID:    row.ReceiverID,
			Amount:        core.Money{Cents: row.AmountCents},
			Description:   row.Description.String,
			ReferenceDate: d,
		})
	}
	return txs, nil
}

func fromCoreEntity(e core.Entity) Entity {
	row := Entity{
		ID:       e.ID,
		Sector:   sql.NullString{String: e.Sector, Valid: e.HasSector()},
		OpenedOn: sql.NullString{String: e.OpenedOn.String(), Valid: !e.OpenedOn.IsEmpty()},
	}
	if e.Revenue != nil {
		row.RevenueCents = sql.NullInt64{Int64: e.Revenue.Cents, Valid: true}
	}
	if e.Balance != nil {
		row.BalanceCents = sql.NullInt64{Int64: e.Balance.Cents, Valid: true}
	}
	return row
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:            t.ID,
		PayerID:       t.PayerID,
		ReceiverID:    t.ReceiverID,
		AmountCents:   t.Amount.Cents,
		Description:   sql.NullString{String: t.Description, Valid: t.Description != ""},
		ReferenceDate: t.ReferenceDate.String(),
	}
}
