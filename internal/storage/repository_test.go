package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbi/internal/core"
	"ledgerbi/internal/importer"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleLedger() importer.Ledger {
	return importer.Ledger{
		Entities: []core.Entity{
			{ID: "B", Sector: "X", Revenue: core.MoneyPtr(2000), Balance: core.MoneyPtr(-300)},
			{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000), OpenedOn: core.NewDate(2019, 5, 2)},
			{ID: "A", Sector: "Z", Revenue: core.MoneyPtr(1)},
			{ID: "C"},
		},
		Transactions: []core.Transaction{
			{ID: 1, PayerID: "A", ReceiverID: "B", Amount: core.Money{Cents: 100}, Description: "pix", ReferenceDate: core.NewDate(2024, 1, 10)},
			{ID: 2, PayerID: "B", ReceiverID: "A", Amount: core.Money{Cents: 40}, ReferenceDate: core.NewDate(2024, 2, 10)},
			{ID: 3, PayerID: "C", ReceiverID: "B", Amount: core.Money{Cents: 7}, ReferenceDate: core.NewDate(2023, 12, 31)},
		},
	}
}

func TestRepositoryReadsImportedLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.ReplaceLedger(ctx, sampleLedger()))

	entities, err := repo.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 4)
	assert.Equal(t, "A", entities[0].ID)
	assert.Equal(t, "X", entities[0].Sector, "first stored row for A comes first")
	assert.Equal(t, "2019-05-02", entities[0].OpenedOn.String())
	assert.Nil(t, entities[3].Revenue)
	assert.False(t, entities[3].HasSector())

	b, err := repo.GetEntity(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), core.CentsOf(b.Balance))

	_, err = repo.GetEntity(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	txs, err := repo.ListTransactionsForEntity(ctx, "A")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(2), txs[0].ID, "most recent first")
	assert.Equal(t, "pix", txs[1].Description)

	recent, err := repo.RecentTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, []int64{2, 1}, []int64{recent[0].ID, recent[1].ID})

	all, err := repo.RecentTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepositoryScalarAggregates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, m := range core.Metrics {
		v, err := repo.ScalarAggregate(ctx, m)
		require.NoError(t, err, m)
		assert.Zero(t, v, "empty ledger sums to zero for %s", m)
	}

	require.NoError(t, repo.ReplaceLedger(ctx, sampleLedger()))
	want := map[core.Metric]int64{
		core.MetricEntityCount:      4,
		core.MetricTransactionCount: 3,
		core.MetricTransactionValue: 147,
		core.MetricRevenueTotal:     3001,
		core.MetricBalanceTotal:     -300,
	}
	for m, w := range want {
		v, err := repo.ScalarAggregate(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, w, v, m)
	}

	_, err := repo.ScalarAggregate(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRepositoryReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.ReplaceLedger(ctx, sampleLedger()))
	require.NoError(t, repo.ReplaceLedger(ctx, importer.Ledger{
		Entities: []core.Entity{{ID: "Q", Sector: "S"}},
	}))

	n, err := repo.ScalarAggregate(ctx, core.MetricEntityCount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.ScalarAggregate(ctx, core.MetricTransactionCount)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepositoryClosedIsUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.ListEntities(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = repo.ScalarAggregate(context.Background(), core.MetricEntityCount)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}
