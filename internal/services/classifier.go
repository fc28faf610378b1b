package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"
)

// TransactionClassifier tags an entity's transactions as inflow or outflow.
type TransactionClassifier struct {
	store  ledger.TransactionLister
	logger *log.Logger
}

func NewTransactionClassifier(store ledger.TransactionLister, logger *log.Logger) *TransactionClassifier {
	if logger == nil {
		logger = log.ForComponent(log.ComponentClassifier)
	}
	return &TransactionClassifier{store: store, logger: logger}
}

// ClassifyForEntity returns the entity's transactions, most recent first,
// with inflow and outflow totals. An entity without transactions, or one the
// store does not know, yields an empty summary rather than an error.
func (c *TransactionClassifier) ClassifyForEntity(ctx context.Context, entityID string) (core.EntitySummary, error) {
	if strings.TrimSpace(entityID) == "" {
		return core.EntitySummary{}, fmt.Errorf("classify: %w: empty entity id", core.ErrInvalidInput)
	}

	txs, err := c.store.ListTransactionsForEntity(ctx, entityID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Transaction lookup failed",
			log.NewFields().WithEntity(entityID).WithOperation(log.OpClassify).WithError(err).ToSlice()...)
		return core.EntitySummary{}, fmt.Errorf("classify %s: %w", entityID, err)
	}

	summary := Classify(entityID, txs)
	c.logger.DebugContext(ctx, "Transactions classified",
		log.FieldEntityID, entityID,
		log.FieldCount, summary.Count(),
		"inflow", summary.TotalInflow.Cents,
		"outflow", summary.TotalOutflow.Cents)
	return summary, nil
}

// Classify is the pure part of the classifier. The payer check runs first, so
// a self transfer is an outflow and is counted once. Transactions that do not
// involve entityID are dropped.
func Classify(entityID string, txs []core.Transaction) core.EntitySummary {
	summary := core.EntitySummary{
		EntityID:   entityID,
		Classified: make([]core.ClassifiedTransaction, 0, len(txs)),
	}

	for _, t := range txs {
		var dir core.Direction
		switch {
		case t.PayerID == entityID:
			dir = core.Outflow
			summary.TotalOutflow = summary.TotalOutflow.Add(t.Amount)
		case t.ReceiverID == entityID:
			dir = core.Inflow
			summary.TotalInflow = summary.TotalInflow.Add(t.Amount)
		default:
			continue
		}
		summary.Classified = append(summary.Classified, core.ClassifiedTransaction{Transaction: t, Direction: dir})
	}

	sort.SliceStable(summary.Classified, func(i, j int) bool {
		return summary.Classified[i].ReferenceDate.After(summary.Classified[j].ReferenceDate.Time)
	})
	return summary
}
