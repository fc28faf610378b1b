package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Metric names a scalar aggregate over the ledger.
type Metric string

const (
	MetricEntityCount      Metric = "entity_count"
	MetricTransactionCount Metric = "transaction_count"
	MetricTransactionValue Metric = "transaction_value_total"
	MetricRevenueTotal     Metric = "revenue_total"
	MetricBalanceTotal     Metric = "balance_total"
)

// Metrics is the fixed set reported by the statistics aggregator, in report
// order.
var Metrics = []Metric{
	MetricEntityCount,
	MetricTransactionCount,
	MetricTransactionValue,
	MetricRevenueTotal,
	MetricBalanceTotal,
}

// IsValid reports whether m is one of Metrics.
func (m Metric) IsValid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// MetricResult holds either a value or the failure that prevented it.
type MetricResult struct {
	Value int64
	Err   error
}

// OK reports whether the metric produced a value.
func (r MetricResult) OK() bool {
	return r.Err == nil
}

// AggregateReport maps every metric name to its result. It is built once by
// NewAggregateReport and exposes no way to mutate it afterwards.
type AggregateReport struct {
	names   []Metric
	results map[Metric]MetricResult
}

// NewAggregateReport builds a report from parallel slices of names and
// results.
func NewAggregateReport(names []Metric, results []MetricResult) AggregateReport {
	r := AggregateReport{
		names:   make([]Metric, 0, len(names)),
		results: make(map[Metric]MetricResult, len(names)),
	}
	for i, name := range names {
		if _, dup := r.results[name]; dup {
			continue
		}
		r.names = append(r.names, name)
		r.results[name] = results[i]
	}
	return r
}

// Names returns the metric names in report order.
func (r AggregateReport) Names() []Metric {
	return append([]Metric(nil), r.names...)
}

// Get returns the result for name.
func (r AggregateReport) Get(name Metric) (MetricResult, bool) {
	res, ok := r.results[name]
	return res, ok
}

// Len returns the number of entries.
func (r AggregateReport) Len() int {
	return len(r.names)
}

// Failed returns the names of metrics that did not produce a value.
func (r AggregateReport) Failed() []Metric {
	var out []Metric
	for _, name := range r.names {
		if !r.results[name].OK() {
			out = append(out, name)
		}
	}
	return out
}

// MarshalJSON renders {"metric": {"total": n}} or {"metric": {"error": "..."}}.
func (r AggregateReport) MarshalJSON() ([]byte, error) {
	type entry struct {
		Total *int64 `json:"total,omitempty"`
		Error string `json:"error,omitempty"`
	}
	out := make(map[Metric]entry, len(r.names))
	for _, name := range r.names {
		res := r.results[name]
		if res.Err != nil {
			out[name] = entry{Error: res.Err.Error()}
			continue
		}
		v := res.Value
		out[name] = entry{Total: &v}
	}
	return json.Marshal(out)
}

// SectorGroup aggregates the entities sharing one sector code.
type SectorGroup struct {
	Sector         string          `json:"sector"`
	Count          int64           `json:"count"`
	RevenueTotal   Money           `json:"-"`
	RevenueAverage decimal.Decimal `json:"revenue_average"`
	BalanceTotal   Money           `json:"-"`
	BalanceAverage decimal.Decimal `json:"balance_average"`
}

// MarshalJSON flattens the money totals to cents.
func (g SectorGroup) MarshalJSON() ([]byte, error) {
	type alias SectorGroup
	return json.Marshal(struct {
		alias
		RevenueTotal int64 `json:"revenue_total"`
		BalanceTotal int64 `json:"balance_total"`
	}{
		alias:        alias(g),
		RevenueTotal: g.RevenueTotal.Cents,
		BalanceTotal: g.BalanceTotal.Cents,
	})
}
