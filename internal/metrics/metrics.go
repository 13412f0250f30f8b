package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusDisabled = "disabled"
)

var (
	// ProviderRequestsTotal counts HTTP requests sent to the transcript provider, by endpoint and HTTP status class.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubesubs",
			Name:      "provider_requests_total",
			Help:      "Total number of requests sent to the transcript provider.",
		},
		[]string{"endpoint", "status"},
	)

	// TracksTotal counts per-language outcomes of the fetch-and-persist routine.
	TracksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubesubs",
			Name:      "tracks_total",
			Help:      "Total number of requested subtitle tracks by outcome.",
		},
		[]string{"status"},
	)

	// SnippetsWrittenTotal counts subtitle records persisted to disk.
	SnippetsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tubesubs",
			Name:      "snippets_written_total",
			Help:      "Total number of subtitle records written to output files.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		TracksTotal,
		SnippetsWrittenTotal,
	)
}
