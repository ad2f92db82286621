package series

import (
	"math"

	"klinehub/internal/domain"
)

// MAPoint is one point of a derived indicator series.
type MAPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// SMA computes a trailing simple moving average over the bar closes in a
// single pass with a running sum. A point is emitted only once exactly window
// closes have accumulated, so the output length is max(0, n-window+1) where n
// counts the finite-valued input bars. Bars with non-finite closes are
// filtered out before they can poison the running sum.
func SMA(bars []domain.Bar, window int) []MAPoint {
	if window <= 0 {
		return nil
	}

	out := make([]MAPoint, 0, max(0, len(bars)-window+1))
	queue := make([]float64, 0, window)
	sum := 0.0
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		queue = append(queue, b.Close)
		sum += b.Close
		if len(queue) > window {
			sum -= queue[0]
			queue = queue[1:]
		}
		if len(queue) == window {
			out = append(out, MAPoint{Time: b.Time, Value: sum / float64(window)})
		}
	}
	return out
}

// LatestMA returns the mean of the last window closes. The second return is
// false when fewer than window bars are available.
func LatestMA(bars []domain.Bar, window int) (float64, bool) {
	if window <= 0 || len(bars) < window {
		return 0, false
	}
	sum := 0.0
	for _, b := range bars[len(bars)-window:] {
		sum += b.Close
	}
	return sum / float64(window), true
}

// Envelope derives percentage bands above and below a moving-average series:
// upper = value*(1+thr), lower = value*(1-thr), pointwise over the same
// timestamps. A non-positive thr yields nil bands (no band at all), which is
// distinct from a band collapsed onto the MA line.
func Envelope(ma []MAPoint, thr float64) (upper, lower []MAPoint) {
	if thr <= 0 || len(ma) == 0 {
		return nil, nil
	}
	upper = make([]MAPoint, len(ma))
	lower = make([]MAPoint, len(ma))
	for i, p := range ma {
		upper[i] = MAPoint{Time: p.Time, Value: p.Value * (1 + thr)}
		lower[i] = MAPoint{Time: p.Time, Value: p.Value * (1 - thr)}
	}
	return upper, lower
}
