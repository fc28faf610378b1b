package ledger

import (
	"context"

	"ledgerbi/internal/core"
)

// Read-only ports onto the ledger store. The engine never mutates the store.
type (
	EntityLister interface {
		ListEntities(ctx context.Context) ([]core.Entity, error)
	}

	// EntityGetter returns core.ErrNotFound when no row carries id.
	EntityGetter interface {
		GetEntity(ctx context.Context, id string) (core.Entity, error)
	}

	// TransactionLister returns every transaction where id is payer or
	// receiver, most recent reference date first.
	TransactionLister interface {
		ListTransactionsForEntity(ctx context.Context, id string) ([]core.Transaction, error)
	}

	RecentTransactionLister interface {
		RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	}

	// ScalarAggregator evaluates one of core.Metrics. SUM over no rows is 0.
	ScalarAggregator interface {
		ScalarAggregate(ctx context.Context, metric core.Metric) (int64, error)
	}

	Store interface {
		EntityLister
		EntityGetter
		TransactionLister
		RecentTransactionLister
		ScalarAggregator
	}
)
