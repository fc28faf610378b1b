package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledgerbi/internal/core"
	"ledgerbi/internal/importer"
	"ledgerbi/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps ledger rows in memory. Rows are kept exactly as given,
// duplicates included, so it behaves like the relational store.
type Store struct {
	mu       sync.RWMutex
	entities []core.Entity
	txs      []core.Transaction
}

func New(entities []core.Entity, txs []core.Transaction) *Store {
	return &Store{
		entities: append([]core.Entity(nil), entities...),
		txs:      append([]core.Transaction(nil), txs...),
	}
}

// NewFromFiles seeds the store from entities.csv and transactions.csv in
// base. Missing files yield an empty ledger.
func NewFromFiles(ctx context.Context, base string) (*Store, error) {
	l, err := importer.NewCSVSource(base).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed memory store: %w", err)
	}
	return New(l.Entities, l.Transactions), nil
}

// Replace swaps the whole ledger.
func (s *Store) Replace(entities []core.Entity, txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append([]core.Entity(nil), entities...)
	s.txs = append([]core.Transaction(nil), txs...)
}

func (s *Store) ListEntities(_ context.Context) ([]core.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Entity(nil), s.entities...), nil
}

func (s *Store) GetEntity(_ context.Context, id string) (core.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entity{}, fmt.Errorf("entity %q: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactionsForEntity(_ context.Context, id string) ([]core.Transaction, error) {
	s.mu.RLock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.Involves(id) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sortRecentFirst(out)
	return out, nil
}

func (s *Store) RecentTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	out := append([]core.Transaction(nil), s.txs...)
	s.mu.RUnlock()
	sortRecentFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ScalarAggregate(_ context.Context, metric core.Metric) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	switch metric {
	case core.MetricEntityCount:
		return int64(len(s.entities)), nil
	case core.MetricTransactionCount:
		return int64(len(s.txs)), nil
	case core.MetricTransactionValue:
		for _, t := range s.txs {
			total += t.Amount.Cents
		}
	case core.MetricRevenueTotal:
		for _, e := range s.entities {
			total += core.CentsOf(e.Revenue)
		}
	case core.MetricBalanceTotal:
		for _, e := range s.entities {
			total += core.CentsOf(e.Balance)
		}
	default:
		return 0, fmt.Errorf("metric %q: %w", metric, core.ErrInvalidInput)
	}
	return total, nil
}

func sortRecentFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].ReferenceDate.After(txs[j].ReferenceDate.Time)
	})
}
