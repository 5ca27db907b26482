package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics records allocation outcomes and contention on stock mutations.
type StockMetrics struct {
	allocations *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_allocations_total",
		Help: "Stock mutations by operation and outcome.",
	}, []string{"operation", "outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_version_conflicts_total",
		Help: "Optimistic concurrency conflicts by entity type.",
	}, []string{"entity"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_operation_duration_seconds",
		Help:    "Duration of stock operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(allocations, conflicts, duration)
	return &StockMetrics{
		allocations: allocations,
		conflicts:   conflicts,
		duration:    duration,
	}
}

// IncAllocation increments the allocation counter for the operation and outcome.
func (s *StockMetrics) IncAllocation(operation, outcome string) {
	if s == nil || s.allocations == nil {
		return
	}
	s.allocations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncConflict increments the version conflict counter for the entity type.
func (s *StockMetrics) IncConflict(entity string) {
	if s == nil || s.conflicts == nil {
		return
	}
	s.conflicts.WithLabelValues(normalizeLabel(entity)).Inc()
}

// ObserveOperation records the duration for the named operation.
func (s *StockMetrics) ObserveOperation(operation string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}
