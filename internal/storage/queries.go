package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Entity struct {
	ID           string
	Sector       sql.NullString
	RevenueCents sql.NullInt64
	BalanceCents sql.NullInt64
	OpenedOn     sql.NullString
}

type Transaction struct {
	ID            int64
	PayerID       string
	ReceiverID    string
	AmountCents   int64
	Description   sql.NullString
	ReferenceDate string
}

const listEntities = `
SELECT id, sector, revenue_cents, balance_cents, opened_on
FROM entities
ORDER BY id, row_id
`

func (q *Queries) ListEntities(ctx context.Context) ([]Entity, error) {
	rows, err := q.db.QueryContext(ctx, listEntities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entity
	for rows.Next() {
		var i Entity
		if err := rows.Scan(&i.ID, &i.Sector, &i.RevenueCents, &i.BalanceCents, &i.OpenedOn); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getEntity = `
SELECT id, sector, revenue_cents, balance_cents, opened_on
FROM entities
WHERE id = ?
ORDER BY row_id
LIMIT 1
`

func (q *Queries) GetEntity(ctx context.Context, id string) (Entity, error) {
	row := q.db.QueryRowContext(ctx, getEntity, id)
	var i Entity
	err := row.Scan(&i.ID, &i.Sector, &i.RevenueCents, &i.BalanceCents, &i.OpenedOn)
	return i, err
}

const listTransactionsForEntity = `
SELECT id, payer_id, receiver_id, amount_cents, description, reference_date
FROM transactions
WHERE payer_id = ?1 OR receiver_id = ?1
ORDER BY reference_date DESC, row_id
`

func (q *Queries) ListTransactionsForEntity(ctx context.Context, entityID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsForEntity, entityID)
}

const recentTransactions = `
SELECT id, payer_id, receiver_id, amount_cents, description, reference_date
FROM transactions
ORDER BY reference_date DESC, row_id
LIMIT ?
`

func (q *Queries) RecentTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.listTransactions(ctx, recentTransactions, limit)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.PayerID, &i.ReceiverID, &i.AmountCents, &i.Description, &i.ReferenceDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const (
	countEntities         = `SELECT COUNT(*) FROM entities`
	countTransactions     = `SELECT COUNT(*) FROM transactions`
	sumTransactionAmounts = `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions`
	sumRevenue            = `SELECT COALESCE(SUM(revenue_cents), 0) FROM entities`
	sumBalance            = `SELECT COALESCE(SUM(balance_cents), 0) FROM entities`
)

func (q *Queries) scalar(ctx context.Context, query string) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, query).Scan(&v)
	return v, err
}

func (q *Queries) CountEntities(ctx context.Context) (int64, error) {
	return q.scalar(ctx, countEntities)
}

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	return q.scalar(ctx, countTransactions)
}

func (q *Queries) SumTransactionAmounts(ctx context.Context) (int64, error) {
	return q.scalar(ctx, sumTransactionAmounts)
}

func (q *Queries) SumRevenue(ctx context.Context) (int64, error) {
	return q.scalar(ctx, sumRevenue)
}

func (q *Queries) SumBalance(ctx context.Context) (int64, error) {
	return q.scalar(ctx, sumBalance)
}

const (
	deleteEntities     = `DELETE FROM entities`
	deleteTransactions = `DELETE FROM transactions`
)

func (q *Queries) DeleteEntities(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteEntities)
	return err
}

func (q *Queries) DeleteTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteTransactions)
	return err
}

const insertEntity = `
INSERT INTO entities (id, sector, revenue_cents, balance_cents, opened_on)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) InsertEntity(ctx context.Context, arg Entity) error {
	_, err := q.db.ExecContext(ctx, insertEntity, arg.ID, arg.Sector, arg.RevenueCents, arg.BalanceCents, arg.OpenedOn)
	return err
}

const insertTransaction = `
INSERT INTO transactions (id, payer_id, receiver_id, amount_cents, description, reference_date)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction, arg.ID, arg.PayerID, arg.ReceiverID, arg.AmountCents, arg.Description, arg.ReferenceDate)
	return err
}
