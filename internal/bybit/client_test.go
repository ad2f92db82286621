package bybit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinehub/internal/util"
)

// fakeUpstream serves a deterministic minute-kline history ending at
// latestMs, newest rows first, capped at limit per request.
type fakeUpstream struct {
	latestMs int64
	totalLen int
	requests atomic.Int64
}

func (f *fakeUpstream) handler(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	endMs, _ := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	oldestMs := f.latestMs - int64(f.totalLen-1)*60_000
	rows := ""
	count := 0
	for t := f.latestMs; t >= oldestMs && count < limit; t -= 60_000 {
		if t > endMs {
			continue
		}
		if rows != "" {
			rows += ","
		}
		price := float64(t/60_000) / 100
		rows += fmt.Sprintf(`["%d","%.2f","%.2f","%.2f","%.2f","10","100"]`, t, price, price+1, price-1, price)
		count++
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","symbol":"BTCUSDT","list":[%s]}}`, rows)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	return NewClient(url, discardLogger(), opts...)
}

func TestFetchHistoryPagination(t *testing.T) {
	up := &fakeUpstream{latestMs: 1_700_000_040_000, totalLen: 5000}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.now = func() time.Time { return time.UnixMilli(up.latestMs) }

	bars, cursor, err := c.FetchHistory(context.Background(), "BTCUSDT", "1", 2500)
	require.NoError(t, err)
	require.Len(t, bars, 2500)
	assert.Equal(t, int64(3), up.requests.Load(), "2500 bars at 1000/page must not issue a 4th page")

	// Ascending, deduplicated, most recent targetCount entries.
	for i := 1; i < len(bars); i++ {
		require.Less(t, bars[i-1].Time, bars[i].Time)
	}
	assert.Equal(t, up.latestMs/1000, bars[len(bars)-1].Time)
	assert.Less(t, cursor, up.latestMs)
}

func TestFetchHistoryUpstreamExhausted(t *testing.T) {
	up := &fakeUpstream{latestMs: 1_700_000_040_000, totalLen: 150}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.now = func() time.Time { return time.UnixMilli(up.latestMs) }

	bars, _, err := c.FetchHistory(context.Background(), "BTCUSDT", "1", 1000)
	require.NoError(t, err)
	assert.Len(t, bars, 150, "shorter than target when the upstream runs out")
}

func TestFetchHistoryRetriesTransient(t *testing.T) {
	var calls atomic.Int64
	up := &fakeUpstream{latestMs: 1_700_000_040_000, totalLen: 100}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		up.handler(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetryPolicy(util.RetryPolicy{MaxAttempts: 3}))
	c.now = func() time.Time { return time.UnixMilli(up.latestMs) }

	bars, _, err := c.FetchHistory(context.Background(), "BTCUSDT", "1", 50)
	require.NoError(t, err, "a single 429 must be retried away")
	assert.Len(t, bars, 50)
}

func TestFetchHistoryMalformedIsFatal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"retCode":0,"result":{"list":[["not-a-number","1","2","0.5","1.5"]]}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, _, err := c.FetchHistoryFrom(context.Background(), "BTCUSDT", "1", 100, 1_700_000_000_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, int64(1), calls.Load(), "malformed payloads abort without retry")
}

func TestFetchHistoryPartialOnTransientExhaustion(t *testing.T) {
	// First page succeeds, every later page fails permanently with 502. The
	// gathered bars must come back alongside the error instead of being
	// discarded, with a cursor that resumes past the good page.
	up := &fakeUpstream{latestMs: 1_700_000_040_000, totalLen: 5000}
	var pages atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pages.Add(1) > 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		up.handler(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetryPolicy(util.RetryPolicy{MaxAttempts: 2}))
	c.now = func() time.Time { return time.UnixMilli(up.latestMs) }

	bars, cursor, err := c.FetchHistory(context.Background(), "BTCUSDT", "1", 2000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamTransient))

	require.Len(t, bars, 1000, "bars from the successful page survive the failure")
	for i := 1; i < len(bars); i++ {
		require.Less(t, bars[i-1].Time, bars[i].Time)
	}
	assert.Equal(t, up.latestMs/1000, bars[len(bars)-1].Time)
	assert.Less(t, cursor, bars[0].Time*1000, "cursor resumes before the oldest gathered bar")
}

func TestFetchHistoryExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetryPolicy(util.RetryPolicy{MaxAttempts: 3}))

	_, _, err := c.FetchHistoryFrom(context.Background(), "BTCUSDT", "1", 100, 1_700_000_000_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamTransient))
	assert.Equal(t, int64(3), calls.Load())
}

func TestParseRow(t *testing.T) {
	b, err := ParseRow([]string{"1700000040000", "100.5", "101", "99.5", "100.75", "12", "1200"})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000040), b.Time)
	assert.Equal(t, 100.5, b.Open)
	assert.Equal(t, 100.75, b.Close)

	// Missing trailing volume fields are tolerated.
	_, err = ParseRow([]string{"1700000040000", "1", "2", "0.5", "1.5"})
	assert.NoError(t, err)

	_, err = ParseRow([]string{"1700000040000", "1", "2"})
	assert.Error(t, err, "too few fields")

	_, err = ParseRow([]string{"1700000040000", "1", "2", "0.5", "NaN"})
	assert.Error(t, err, "non-finite prices are rejected at the boundary")
}

func TestIntervalStepMs(t *testing.T) {
	for interval, want := range map[string]int64{
		"1":  60_000,
		"15": 900_000,
		"D":  86_400_000,
	} {
		got, err := IntervalStepMs(interval)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := IntervalStepMs("banana")
	assert.Error(t, err)
}
