// Package klinehub provides a Go SDK for the klinehub-server HTTP API.
package klinehub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Bar is one OHLC candle. Time is a unix timestamp in seconds.
type Bar struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ChartPoint is one render-window entry. OHLC fields are nil for
// whitespace placeholders.
type ChartPoint struct {
	Time  int64    `json:"time"`
	Open  *float64 `json:"open,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Low   *float64 `json:"low,omitempty"`
	Close *float64 `json:"close,omitempty"`
}

// MAPoint is one moving-average sample.
type MAPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Series is the raw bar series for one (symbol, interval) pair.
type Series struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

// Window is one session's fixed-cadence render sequence.
type Window struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Offset   int          `json:"offset"`
	Start    int64        `json:"start"`
	End      int64        `json:"end"`
	Points   []ChartPoint `json:"points"`
}

// Indicators carries the derived series for one session window.
type Indicators struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Window   int    `json:"window"`
	Set      struct {
		MA    []MAPoint `json:"ma"`
		Upper []MAPoint `json:"upper,omitempty"`
		Lower []MAPoint `json:"lower,omitempty"`
	} `json:"indicators"`
}

// Marker is one chart marker in a signal overlay.
type Marker struct {
	Time     int64  `json:"time"`
	Position string `json:"position"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Text     string `json:"text"`
}

// Markers is the signal overlay for one session window.
type Markers struct {
	Symbol     string `json:"symbol"`
	Offset     int    `json:"offset"`
	Annotation struct {
		Markers []Marker        `json:"markers"`
		Notes   json.RawMessage `json:"notes"`
	} `json:"annotation"`
}

// Config wraps a symbol's thresholds. Thresholds is nil when the symbol has
// no stored configuration.
type Config struct {
	Symbol     string          `json:"symbol"`
	Thresholds json.RawMessage `json:"thresholds"`
}

// Client provides a Go SDK for interacting with the klinehub-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new klinehub API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Series retrieves the raw bar series for a symbol and interval.
func (c *Client) Series(ctx context.Context, symbol, interval string) (*Series, error) {
	var out Series
	path := fmt.Sprintf("/api/klines/%s/%s", url.PathEscape(symbol), url.PathEscape(interval))
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Window retrieves one session render window. offset is 0 for today and
// negative for prior sessions.
func (c *Client) Window(ctx context.Context, symbol, interval string, offset int) (*Window, error) {
	var out Window
	path := fmt.Sprintf("/api/window/%s/%s", url.PathEscape(symbol), url.PathEscape(interval))
	q := url.Values{"offset": {strconv.Itoa(offset)}}
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Indicators retrieves the moving average and envelope bands for a session.
// window is the MA period; thr <= 0 omits the bands.
func (c *Client) Indicators(ctx context.Context, symbol, interval string, offset, window int, thr float64) (*Indicators, error) {
	var out Indicators
	path := fmt.Sprintf("/api/indicators/%s/%s", url.PathEscape(symbol), url.PathEscape(interval))
	q := url.Values{
		"offset": {strconv.Itoa(offset)},
		"window": {strconv.Itoa(window)},
	}
	if thr > 0 {
		q.Set("thr", strconv.FormatFloat(thr, 'f', -1, 64))
	}
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Markers retrieves the signal overlay for a symbol's session window.
func (c *Client) Markers(ctx context.Context, symbol string, offset int) (*Markers, error) {
	var out Markers
	path := fmt.Sprintf("/api/markers/%s", url.PathEscape(symbol))
	q := url.Values{"offset": {strconv.Itoa(offset)}}
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config retrieves the stored thresholds for a symbol.
func (c *Client) Config(ctx context.Context, symbol string) (*Config, error) {
	var out Config
	path := fmt.Sprintf("/api/config/%s", url.PathEscape(symbol))
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
