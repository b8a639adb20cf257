// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchTotal counts indicator fetches by kind and outcome.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deso_indicator_fetch_total",
		Help: "Indicator fetches against the PxWeb API by indicator and status.",
	}, []string{"indicator", "status"})

	// FetchDuration observes end-to-end fetch latency per indicator.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deso_indicator_fetch_duration_seconds",
		Help:    "Duration of indicator fetches including reshaping.",
		Buckets: prometheus.DefBuckets,
	}, []string{"indicator"})

	// JoinDropped counts (area, year) rows excluded by the inner join.
	JoinDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deso_index_join_dropped_total",
		Help: "Rows dropped because fewer than three indicators had data.",
	})

	// ClassifiedAreas reports the number of areas classified per year.
	ClassifiedAreas = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deso_classified_areas",
		Help: "Areas classified in the most recent run, by year.",
	}, []string{"year"})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
