// Package worker reacts to ledger change notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerbi/internal/amqp"
	"ledgerbi/internal/log"
)

// Reloader rebuilds a derived view of the ledger. search.Index satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Consumer delivers reload messages until ctx is done. amqp.Client
// satisfies it.
type Consumer interface {
	ConsumeIndexReload(ctx context.Context, handler func(context.Context, *amqp.IndexReloadMessage) error) error
}

// ReloadWorker rebuilds the search index whenever the importer announces a
// new ledger.
type ReloadWorker struct {
	target Reloader
	logger *log.Logger
}

func NewReloadWorker(target Reloader, logger *log.Logger) *ReloadWorker {
	if logger == nil {
		logger = log.ForComponent(log.ComponentWorker)
	}
	return &ReloadWorker{target: target, logger: logger}
}

// HandleReloadMessage processes a single reload message
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.IndexReloadMessage) error {
	start := time.Now()
	w.logger.InfoContext(ctx, "Processing index reload",
		"reason", msg.Reason,
		"sent_at", msg.Timestamp)

	if err := w.target.Reload(ctx); err != nil {
		return fmt.Errorf("reload search index: %w", err)
	}

	w.logger.InfoContext(ctx, "Index reloaded",
		log.FieldOperation, log.OpReload,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is a clean stop.
func (w *ReloadWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeIndexReload(ctx, w.HandleReloadMessage)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
