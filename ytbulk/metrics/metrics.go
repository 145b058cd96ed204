// Package metrics exposes Prometheus instrumentation for the allocation,
// sweep, ledger and refresh paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbulk_claim_allocations_total",
		Help: "Successful work claim allocations.",
	})

	AllocationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbulk_claim_allocation_failures_total",
		Help: "Failed work claim allocations by reason.",
	}, []string{"reason"})

	SweptClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbulk_swept_claims_total",
		Help: "Claims expired by the sweep.",
	})

	LedgerCreditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbulk_ledger_transactions_total",
		Help: "Wallet ledger transactions by kind.",
	}, []string{"kind"})

	MilestoneHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbulk_milestone_hits_total",
		Help: "Milestone payout rows created by the refresh.",
	})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytbulk_metrics_refresh_duration_seconds",
		Help:    "Duration of one metrics refresh run.",
		Buckets: prometheus.DefBuckets,
	})

	StatsFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbulk_stats_fetch_total",
		Help: "External video stats lookups by result.",
	}, []string{"result"})
)
