// Package instrumentation defines the Prometheus metrics exported by
// klinehub.
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles all Prometheus collectors for the service.
type Metrics struct {
	FetchPagesTotal   prometheus.Counter
	FetchRetriesTotal prometheus.Counter
	FetchDurationSec  prometheus.Histogram
	LiveMessagesTotal *prometheus.CounterVec
	MergeDropsTotal   prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		FetchPagesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "klinehub_fetch_pages_total",
			Help: "Total history pages fetched from the upstream venue",
		}),
		FetchRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "klinehub_fetch_retries_total",
			Help: "Total transient-failure retries during history fetches",
		}),
		FetchDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "klinehub_fetch_duration_seconds",
			Help:    "Wall-clock duration of complete history fetches",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LiveMessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "klinehub_live_messages_total",
			Help: "Live feed messages processed, by topic kind",
		}, []string{"kind"}),
		MergeDropsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "klinehub_merge_drops_total",
			Help: "Live bar updates dropped by the out-of-order merge rule",
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "klinehub_errors_total",
			Help: "Errors by component and type",
		}, []string{"component", "error_type"}),
	}
}

// RecordPage counts one successfully fetched history page.
func (m *Metrics) RecordPage() {
	if m == nil {
		return
	}
	m.FetchPagesTotal.Inc()
}

// RecordRetry counts one transient-failure retry.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.FetchRetriesTotal.Inc()
}

// RecordMergeDrop counts one live bar dropped by the out-of-order merge rule.
func (m *Metrics) RecordMergeDrop() {
	if m == nil {
		return
	}
	m.MergeDropsTotal.Inc()
}

// RecordLiveMessage counts one processed feed message.
func (m *Metrics) RecordLiveMessage(kind string) {
	if m == nil {
		return
	}
	m.LiveMessagesTotal.WithLabelValues(kind).Inc()
}

// RecordError counts one error for a component.
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordFetch counts one completed history fetch.
func (m *Metrics) RecordFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDurationSec.Observe(seconds)
}
