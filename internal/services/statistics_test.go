package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger/memory"
)

// countingStore answers each metric from a table and tracks concurrency.
type countingStore struct {
	values   map[core.Metric]int64
	failures map[core.Metric]error
	delay    time.Duration

	mu       sync.Mutex
	calls    map[core.Metric]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *countingStore) ScalarAggregate(ctx context.Context, m core.Metric) (int64, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[core.Metric]int)
	}
	s.calls[m]++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.failures[m]; err != nil {
		return 0, err
	}
	return s.values[m], nil
}

func TestComputeStatisticsAllSucceed(t *testing.T) {
	store := &countingStore{values: map[core.Metric]int64{
		core.MetricEntityCount:      3,
		core.MetricTransactionCount: 2,
		core.MetricTransactionValue: 140,
		core.MetricRevenueTotal:     3000,
		core.MetricBalanceTotal:     -50,
	}}

	report := NewStatisticsAggregator(store, nil).ComputeStatistics(context.Background())

	require.Equal(t, len(core.Metrics), report.Len())
	assert.Empty(t, report.Failed())
	for m, want := range store.values {
		got, ok := report.Get(m)
		require.True(t, ok, m)
		assert.Equal(t, want, got.Value, m)
	}
	for _, m := range core.Metrics {
		assert.Equal(t, 1, store.calls[m], "metric %s queried once", m)
	}
}

func TestComputeStatisticsFailureIsInline(t *testing.T) {
	boom := errors.New("disk on fire")
	store := &countingStore{
		values: map[core.Metric]int64{
			core.MetricEntityCount:      3,
			core.MetricTransactionCount: 2,
		},
		failures: map[core.Metric]error{core.MetricRevenueTotal: boom},
	}

	report := NewStatisticsAggregator(store, nil).ComputeStatistics(context.Background())

	require.Equal(t, len(core.Metrics), report.Len())
	assert.Equal(t, []core.Metric{core.MetricRevenueTotal}, report.Failed())

	failed, _ := report.Get(core.MetricRevenueTotal)
	assert.ErrorIs(t, failed.Err, boom)

	entities, _ := report.Get(core.MetricEntityCount)
	assert.True(t, entities.OK())
	assert.Equal(t, int64(3), entities.Value)
}

func TestComputeStatisticsRunsConcurrently(t *testing.T) {
	store := &countingStore{delay: 50 * time.Millisecond}

	start := time.Now()
	report := NewStatisticsAggregator(store, nil).ComputeStatistics(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, len(core.Metrics), report.Len())
	assert.Greater(t, store.peak.Load(), int32(1))
	assert.Less(t, elapsed, time.Duration(len(core.Metrics))*50*time.Millisecond)
}

type panickyStore struct{}

func (panickyStore) ScalarAggregate(context.Context, core.Metric) (int64, error) {
	panic("driver bug")
}

func TestComputeStatisticsPanicBecomesFailure(t *testing.T) {
	report := NewStatisticsAggregator(panickyStore{}, nil).ComputeStatistics(context.Background())

	assert.Equal(t, len(core.Metrics), report.Len())
	assert.Len(t, report.Failed(), len(core.Metrics))
}

func TestComputeStatisticsNilStore(t *testing.T) {
	report := NewStatisticsAggregator(nil, nil).ComputeStatistics(context.Background())

	for _, m := range core.Metrics {
		r, ok := report.Get(m)
		require.True(t, ok)
		assert.ErrorIs(t, r.Err, core.ErrStoreUnavailable)
	}
}

func TestComputeStatisticsMemoryStore(t *testing.T) {
	store := memory.New(
		[]core.Entity{
			{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000)},
			{ID: "B", Sector: "X", Revenue: core.MoneyPtr(2000), Balance: core.MoneyPtr(10)},
		},
		[]core.Transaction{
			{ID: 1, PayerID: "A", ReceiverID: "B", Amount: core.Money{Cents: 100}},
			{ID: 2, PayerID: "B", ReceiverID: "A", Amount: core.Money{Cents: 40}},
		},
	)

	report := NewStatisticsAggregator(store, nil).ComputeStatistics(context.Background())

	want := map[core.Metric]int64{
		core.MetricEntityCount:      2,
		core.MetricTransactionCount: 2,
		core.MetricTransactionValue: 140,
		core.MetricRevenueTotal:     3000,
		core.MetricBalanceTotal:     10,
	}
	for m, w := range want {
		r, _ := report.Get(m)
		assert.Equal(t, w, r.Value, m)
	}
}
