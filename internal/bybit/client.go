// Package bybit implements the upstream market-data REST client: bounded
// paged kline history fetching with an explicit retry policy, and the
// validating boundary that keeps malformed upstream rows out of the bar
// store.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"klinehub/internal/domain"
	"klinehub/internal/instrumentation"
	"klinehub/internal/series"
	"klinehub/internal/util"
)

const klinePath = "/v5/market/kline"

// Client talks to a Bybit-style v5 market-data REST API.
type Client struct {
	rest       *resty.Client
	category   string
	pageLimit  int
	pageBudget int
	retry      util.RetryPolicy
	limiter    *util.RateLimiter
	metrics    *instrumentation.Metrics
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithCategory sets the product category (default "linear").
func WithCategory(category string) Option {
	return func(c *Client) { c.category = category }
}

// WithPageLimit sets the per-call bar cap (default and maximum 1000).
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 && limit <= 1000 {
			c.pageLimit = limit
		}
	}
}

// WithPageBudget caps the number of pages one fetch may issue.
func WithPageBudget(pages int) Option {
	return func(c *Client) {
		if pages > 0 {
			c.pageBudget = pages
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p util.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimiter paces page requests with the given limiter.
func WithRateLimiter(rl *util.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithMetrics records page and retry counters on the given collectors.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

// NewClient creates a market-data client for the given base URL.
func NewClient(baseURL string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		rest:       resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		category:   "linear",
		pageLimit:  1000,
		pageBudget: 50,
		retry: util.RetryPolicy{
			MaxAttempts: 3,
			Backoff:     util.QuadraticBackoff(250 * time.Millisecond),
		},
		log: log.With("component", "bybit"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchHistory walks backward from now until targetCount bars are gathered
// or the upstream is exhausted. It returns the ascending, deduplicated bars
// together with a resumable cursor: passing the cursor to FetchHistoryFrom
// continues further into the past without re-fetching seen ranges.
//
// When a later page fails after exhausting its retries, the bars already
// gathered are returned alongside the error as a partial result; the cursor
// resumes the fetch where it stopped.
func (c *Client) FetchHistory(ctx context.Context, symbol, interval string, targetCount int) ([]domain.Bar, int64, error) {
	return c.FetchHistoryFrom(ctx, symbol, interval, targetCount, c.now().UnixMilli())
}

// FetchHistoryFrom is FetchHistory resuming from the given cursor (Unix ms,
// inclusive upper bound for bar open times).
func (c *Client) FetchHistoryFrom(ctx context.Context, symbol, interval string, targetCount int, cursorEndMs int64) ([]domain.Bar, int64, error) {
	stepMs, err := IntervalStepMs(interval)
	if err != nil {
		return nil, cursorEndMs, err
	}

	var acc []domain.Bar
	cursor := cursorEndMs
	for page := 0; page < c.pageBudget; page++ {
		if cursor <= 0 || len(acc) >= targetCount {
			break
		}
		if err := ctx.Err(); err != nil {
			return finalize(acc, targetCount), cursor, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return finalize(acc, targetCount), cursor, err
			}
		}

		bars, err := c.fetchPage(ctx, symbol, interval, cursor)
		if err != nil {
			return finalize(acc, targetCount), cursor, fmt.Errorf("page %d (end=%d): %w", page+1, cursor, err)
		}
		c.metrics.RecordPage()

		// Guard against rows past the cursor; the cursor stays an exclusive
		// upper bound for the next page.
		oldestMs := cursor
		kept := 0
		for _, b := range bars {
			ms := b.Time * 1000
			if ms > cursor {
				continue
			}
			if ms < oldestMs {
				oldestMs = ms
			}
			acc = append(acc, b)
			kept++
		}
		if kept == 0 {
			// Upstream exhausted.
			break
		}

		cursor = oldestMs - stepMs
		c.log.Debug("fetched history page",
			"symbol", symbol,
			"interval", interval,
			"page", page+1,
			"bars", kept,
			"accumulated", len(acc),
		)
	}

	return finalize(acc, targetCount), cursor, nil
}

// finalize sorts and deduplicates the accumulator and keeps the most recent
// targetCount bars. It is applied to partial results too, so callers always
// receive a well-formed series.
func finalize(acc []domain.Bar, targetCount int) []domain.Bar {
	clean := series.SortDedup(acc)
	if len(clean) > targetCount {
		clean = clean[len(clean)-targetCount:]
	}
	return clean
}

// fetchPage issues one bounded-range kline request, retrying transient
// failures under the client's retry policy.
func (c *Client) fetchPage(ctx context.Context, symbol, interval string, endMs int64) ([]domain.Bar, error) {
	var bars []domain.Bar

	attempt := 0
	err := c.retry.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			c.metrics.RecordRetry()
		}
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"category": c.category,
				"symbol":   symbol,
				"interval": interval,
				"limit":    strconv.Itoa(c.pageLimit),
				"end":      strconv.FormatInt(endMs, 10),
			}).
			Get(klinePath)
		if err != nil {
			// Network error or timeout.
			return fmt.Errorf("%w: %v", ErrUpstreamTransient, err)
		}

		code := resp.StatusCode()
		if code == 429 || code >= 500 {
			return fmt.Errorf("%w: HTTP %d", ErrUpstreamTransient, code)
		}
		if code != 200 {
			return util.Permanent(fmt.Errorf("unexpected HTTP status %d", code))
		}

		var kr klineResponse
		if err := json.Unmarshal(resp.Body(), &kr); err != nil {
			return util.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
		if kr.RetCode != 0 {
			return util.Permanent(fmt.Errorf("%w: retCode %d (%s)", ErrMalformedResponse, kr.RetCode, kr.RetMsg))
		}

		bars = bars[:0]
		for _, row := range kr.Result.List {
			b, err := ParseRow(row)
			if err != nil {
				return util.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
			}
			bars = append(bars, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}
