package bybit

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"klinehub/internal/domain"
)

// Error taxonomy for upstream calls.
var (
	// ErrUpstreamTransient covers HTTP 429/5xx and timeouts; callers retry
	// these with bounded backoff.
	ErrUpstreamTransient = errors.New("transient upstream error")

	// ErrMalformedResponse covers non-JSON or unparseable payloads; fatal
	// for the whole fetch, never a silent partial success.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// klineResponse mirrors the upstream /v5/market/kline envelope. Rows arrive
// as arrays of strings: [startMs, open, high, low, close, volume, turnover],
// possibly with trailing fields missing.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string     `json:"category"`
		Symbol   string     `json:"symbol"`
		List     [][]string `json:"list"`
	} `json:"result"`
}

// ParseRow validates one raw kline row at the boundary. It returns the parsed
// bar, or an error when the row is malformed: too few fields, unparseable
// numerics, or non-finite prices. Nothing unchecked crosses into the bar
// store.
func ParseRow(row []string) (domain.Bar, error) {
	if len(row) < 5 {
		return domain.Bar{}, fmt.Errorf("row has %d fields, want at least 5", len(row))
	}

	startMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing start time %q: %w", row[0], err)
	}

	prices := make([]float64, 4)
	for i, field := range row[1:5] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("parsing price %q: %w", field, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Bar{}, fmt.Errorf("non-finite price %q", field)
		}
		prices[i] = v
	}

	return domain.Bar{
		Time:  startMs / 1000,
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}, nil
}

// IntervalStepMs returns the bar duration in milliseconds for an upstream
// interval token: minutes as "1", "3", "5", ..., plus "D", "W", and "M".
func IntervalStepMs(interval string) (int64, error) {
	switch interval {
	case "D":
		return 24 * 3600 * 1000, nil
	case "W":
		return 7 * 24 * 3600 * 1000, nil
	case "M":
		// Months are irregular; the cursor only needs a lower bound.
		return 28 * 24 * 3600 * 1000, nil
	}
	minutes, err := strconv.ParseInt(interval, 10, 64)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return minutes * 60 * 1000, nil
}
