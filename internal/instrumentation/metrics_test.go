package instrumentation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Registration on the default registry panics on duplicates, so one Metrics
// instance serves the whole test binary.
var metrics = NewMetrics()

func TestRecordHelpers(t *testing.T) {
	metrics.RecordPage()
	metrics.RecordPage()
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FetchPagesTotal))

	metrics.RecordRetry()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRetriesTotal))

	metrics.RecordMergeDrop()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MergeDropsTotal))

	metrics.RecordLiveMessage("kline")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LiveMessagesTotal.WithLabelValues("kline")))

	metrics.RecordError("aggregator", "backfill")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("aggregator", "backfill")))

	metrics.RecordFetch(0.2)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.FetchDurationSec))
}

func TestRecordHelpersNilReceiver(t *testing.T) {
	// Components run without collectors wired; every helper must be a no-op
	// on a nil receiver.
	var m *Metrics
	m.RecordPage()
	m.RecordRetry()
	m.RecordMergeDrop()
	m.RecordLiveMessage("kline")
	m.RecordError("a", "b")
	m.RecordFetch(1)
}
