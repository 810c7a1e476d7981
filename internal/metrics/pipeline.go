package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jewelmatch"

// Match pipeline Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"stage", "model", "status"}, // stage: caption / extract / keyword
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"stage", "model"},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Total number of product catalog page requests",
		},
		[]string{"status"},
	)

	CatalogItemsFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_items_fetched_total",
			Help:      "Total catalog items received across all pages",
		},
	)

	CascadePassTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_pass_total",
			Help:      "Cascade pass outcomes",
		},
		[]string{"pass", "outcome"}, // outcome: adopted / reverted / skipped
	)

	MatchSourcePassTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_source_pass_total",
			Help:      "Completed matches by the pass that sourced the top result",
		},
		[]string{"source_pass"},
	)

	CaptionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caption_cache_total",
			Help:      "Caption cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers the match pipeline metrics with the default
// registry. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			LLMRequestsTotal,
			LLMRequestDuration,
			CatalogRequestsTotal,
			CatalogItemsFetchedTotal,
			CascadePassTotal,
			MatchSourcePassTotal,
			CaptionCacheTotal,
		)
	})
}
