// Package metrics defines the Prometheus collectors of the deals pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "discogs_deals"

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Feed generation runs by outcome.",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of feed generation runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	SourceQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_queries_total",
		Help:      "Marketplace queries per source kind and result.",
	}, []string{"kind", "result"})

	ListingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_rejected_total",
		Help:      "Listings filtered out, by reason.",
	}, []string{"reason"})

	DealsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deals_emitted_total",
		Help:      "New deals written to the feed.",
	})

	LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_entries",
		Help:      "Listings remembered by the dedup ledger.",
	})

	MarketplaceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "marketplace_requests_total",
		Help:      "HTTP requests to the marketplace by endpoint and status class.",
	}, []string{"endpoint", "status"})

	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "marketplace_breaker_open",
		Help:      "1 while the marketplace circuit breaker is open.",
	})
)
