package geocoding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guia_geocode_cache_hits_total",
			Help: "Geocode cache hits by tier",
		},
		[]string{"tier"},
	)

	providerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guia_geocode_provider_calls_total",
			Help: "Provider lookups by outcome",
		},
		[]string{"status"},
	)

	batchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guia_geocode_batch_runs_total",
			Help: "Batch resolution runs by terminal state",
		},
		[]string{"state"},
	)
)
