package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"
)

// StatisticsAggregator computes the ledger-wide scalar metrics concurrently
// and joins them into one report.
type StatisticsAggregator struct {
	store   ledger.ScalarAggregator
	metrics []core.Metric
	logger  *log.Logger
}

func NewStatisticsAggregator(store ledger.ScalarAggregator, logger *log.Logger) *StatisticsAggregator {
	if logger == nil {
		logger = log.ForComponent(log.ComponentStatistics)
	}
	return &StatisticsAggregator{
		store:   store,
		metrics: append([]core.Metric(nil), core.Metrics...),
		logger:  logger,
	}
}

// ComputeStatistics launches one query per metric and waits for all of them.
// A failing metric is reported inline and never cancels its siblings, so the
// report always holds exactly one entry per metric. No timeout is applied
// here; callers that need one pass a deadline in ctx.
func (a *StatisticsAggregator) ComputeStatistics(ctx context.Context) core.AggregateReport {
	start := time.Now()
	results := make([]core.MetricResult, len(a.metrics))

	// Plain Group, not WithContext: one failure must not cancel the rest.
	var g errgroup.Group
	for i, metric := range a.metrics {
		g.Go(func() error {
			results[i] = a.compute(ctx, metric)
			return nil
		})
	}
	_ = g.Wait()

	report := core.NewAggregateReport(a.metrics, results)
	a.logger.DebugContext(ctx, "Statistics computed",
		log.FieldCount, report.Len(),
		"failed", len(report.Failed()),
		log.FieldDuration, time.Since(start).Milliseconds())
	return report
}

func (a *StatisticsAggregator) compute(ctx context.Context, metric core.Metric) (res core.MetricResult) {
	defer func() {
		if r := recover(); r != nil {
			res = core.MetricResult{Err: fmt.Errorf("metric %s: panic: %v", metric, r)}
			a.logger.ErrorContext(ctx, "Metric panicked", log.FieldMetric, metric, "panic", r)
		}
	}()

	if a.store == nil {
		return core.MetricResult{Err: fmt.Errorf("metric %s: %w", metric, core.ErrStoreUnavailable)}
	}

	v, err := a.store.ScalarAggregate(ctx, metric)
	if err != nil {
		a.logger.WarnContext(ctx, "Metric failed",
			log.NewFields().WithMetric(string(metric)).WithOperation(log.OpAggregate).WithError(err).ToSlice()...)
		return core.MetricResult{Err: fmt.Errorf("metric %s: %w", metric, err)}
	}
	return core.MetricResult{Value: v}
}
