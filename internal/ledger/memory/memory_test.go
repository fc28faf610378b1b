package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ledgerbi/internal/core"
)

func seed() *Store {
	return New(
		[]core.Entity{
			{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000), Balance: core.MoneyPtr(-10)},
			{ID: "B", Sector: "X", Revenue: core.MoneyPtr(2000)},
			{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000)},
		},
		[]core.Transaction{
			{ID: 1, PayerID: "A", ReceiverID: "B", Amount: core.Money{Cents: 100}, ReferenceDate: core.NewDate(2024, 1, 1)},
			{ID: 2, PayerID: "B", ReceiverID: "A", Amount: core.Money{Cents: 40}, ReferenceDate: core.NewDate(2024, 3, 1)},
			{ID: 3, PayerID: "B", ReceiverID: "C", Amount: core.Money{Cents: 5}, ReferenceDate: core.NewDate(2024, 2, 1)},
		},
	)
}

func TestStoreKeepsDuplicateRows(t *testing.T) {
	s := seed()
	got, err := s.ListEntities(context.Background())
	if err != nil || len(got) != 3 {
		t.Fatalf("unexpected entities: %v err=%v", got, err)
	}
	n, _ := s.ScalarAggregate(context.Background(), core.MetricEntityCount)
	if n != 3 {
		t.Fatalf("expected raw row count 3, got %d", n)
	}
}

func TestStoreTransactionsRecentFirst(t *testing.T) {
	s := seed()
	got, err := s.ListTransactionsForEntity(context.Background(), "A")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	recent, _ := s.RecentTransactions(context.Background(), 2)
	if len(recent) != 2 || recent[0].ID != 2 || recent[1].ID != 3 {
		t.Fatalf("unexpected recent: %+v", recent)
	}
}

func TestStoreAggregates(t *testing.T) {
	s := seed()
	ctx := context.Background()
	cases := map[core.Metric]int64{
		core.MetricEntityCount:      3,
		core.MetricTransactionCount: 3,
		core.MetricTransactionValue: 145,
		core.MetricRevenueTotal:     4000,
		core.MetricBalanceTotal:     -10,
	}
	for metric, want := range cases {
		got, err := s.ScalarAggregate(ctx, metric)
		if err != nil || got != want {
			t.Fatalf("%s: expected %d, got %d (err=%v)", metric, want, got, err)
		}
	}
	if _, err := s.ScalarAggregate(ctx, "bogus"); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStoreGetEntity(t *testing.T) {
	s := seed()
	if _, err := s.GetEntity(context.Background(), "Z"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	e, err := s.GetEntity(context.Background(), "B")
	if err != nil || e.Sector != "X" {
		t.Fatalf("unexpected entity %+v err=%v", e, err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(context.Background(), dir)
	if err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	if got, _ := s.ListEntities(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty ledger, got %v", got)
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("entities.csv", "ID,DS_CNAE,VL_FATU,VL_SLDO,DT_ABRT\nA,X,1000,5,2020-01-01\n,,,,\n")
	mustWrite("transactions.csv", "ID,ID_PGTO,ID_RCBE,VL,DS_TRAN,DT_REFE\n1,A,B,100,pix,2024-01-01\n")

	s, err = NewFromFiles(context.Background(), dir)
	if err != nil {
		t.Fatalf("seeded dir: %v", err)
	}
	ents, _ := s.ListEntities(context.Background())
	if len(ents) != 1 || ents[0].ID != "A" {
		t.Fatalf("unexpected entities: %+v", ents)
	}
	txs, _ := s.ListTransactionsForEntity(context.Background(), "B")
	if len(txs) != 1 || txs[0].Description != "pix" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}
