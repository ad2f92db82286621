// Package series maintains in-memory OHLC bar series and derives the views
// consumed by the chart: merged live series, moving-average and envelope
// indicator series, and fixed-cadence session render windows.
package series

import (
	"sort"
	"sync"

	"klinehub/internal/domain"
)

// Key identifies one bar series.
type Key struct {
	Symbol   string
	Interval string
}

// Store holds the bar series for one (symbol, interval) pair. All mutating
// operations re-establish the series invariant before returning: strictly
// ascending by time with no duplicate timestamps.
type Store struct {
	mu     sync.RWMutex
	bars   []domain.Bar
	maxLen int
}

// NewStore creates an empty store retaining at most maxLen bars. A maxLen of
// zero or less means unbounded.
func NewStore(maxLen int) *Store {
	return &Store{maxLen: maxLen}
}

// Len returns the current number of bars.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars)
}

// Snapshot returns a copy of the series.
func (s *Store) Snapshot() []domain.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// ReplaceAll swaps in a freshly fetched series, sorting and deduplicating
// first.
func (s *Store) ReplaceAll(bars []domain.Bar) {
	clean := SortDedup(bars)
	s.mu.Lock()
	s.bars = s.truncate(clean)
	s.mu.Unlock()
}

// ExtendBack prepends older history to the series. Overlapping timestamps
// keep the existing bar.
func (s *Store) ExtendBack(older []domain.Bar) {
	if len(older) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Existing bars go first: on a timestamp collision SortDedup keeps the
	// first occurrence, so the bar already in the store wins.
	merged := make([]domain.Bar, 0, len(s.bars)+len(older))
	merged = append(merged, s.bars...)
	merged = append(merged, older...)
	s.bars = s.truncate(SortDedup(merged))
}

// Merge reconciles one live bar update into the series under the merge rules
// of MergeBar, then enforces the retention limit. It reports whether the
// update was applied; false means the out-of-order rule dropped it.
func (s *Store) Merge(bar domain.Bar) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, applied := MergeBar(s.bars, bar)
	s.bars = s.truncate(merged)
	return applied
}

// truncate drops the oldest bars past the retention limit. Caller holds mu.
func (s *Store) truncate(bars []domain.Bar) []domain.Bar {
	if s.maxLen > 0 && len(bars) > s.maxLen {
		return bars[len(bars)-s.maxLen:]
	}
	return bars
}

// SortDedup sorts bars ascending by time and drops duplicate timestamps,
// keeping the first occurrence. The input slice is not modified.
func SortDedup(bars []domain.Bar) []domain.Bar {
	out := make([]domain.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time == out[i].Time {
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}
