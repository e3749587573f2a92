// Package metrics exposes the Prometheus collectors for the platform core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	accrualPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invest_layer",
			Subsystem: "accrual",
			Name:      "passes_total",
			Help:      "Total number of accrual passes executed.",
		},
	)

	accrualExamined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invest_layer",
			Subsystem: "accrual",
			Name:      "investments_examined_total",
			Help:      "Total number of investments examined by accrual passes.",
		},
	)

	accrualCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invest_layer",
			Subsystem: "accrual",
			Name:      "investments_completed_total",
			Help:      "Total number of investments settled by accrual passes.",
		},
	)

	accrualFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invest_layer",
			Subsystem: "accrual",
			Name:      "item_failures_total",
			Help:      "Total number of per-investment failures skipped by passes.",
		},
	)

	accrualDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invest_layer",
			Subsystem: "accrual",
			Name:      "pass_duration_seconds",
			Help:      "Duration of accrual passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invest_layer",
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Total number of ledger entries created.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		accrualPasses,
		accrualExamined,
		accrualCompleted,
		accrualFailures,
		accrualDuration,
		ledgerEntries,
	)
}

// ObserveAccrualPass records the outcome of one accrual pass.
func ObserveAccrualPass(examined, completed, failed int, elapsed time.Duration) {
	accrualPasses.Inc()
	accrualExamined.Add(float64(examined))
	accrualCompleted.Add(float64(completed))
	accrualFailures.Add(float64(failed))
	accrualDuration.Observe(elapsed.Seconds())
}

// CountLedgerEntry records creation of one ledger entry of the given type.
func CountLedgerEntry(entryType string) {
	ledgerEntries.WithLabelValues(entryType).Inc()
}
