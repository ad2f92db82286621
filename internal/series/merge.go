package series

import (
	"sort"

	"klinehub/internal/domain"
)

// MergeBar reconciles a live "current bar" update into a sorted, deduplicated
// series and returns the updated series. Rules, in order:
//
//  1. empty series: the update becomes the series;
//  2. timestamp equals the trailing bar: replace the trailing bar;
//  3. timestamp is newer than the trailing bar: append;
//  4. otherwise the update is late: overwrite in place when a bar with the
//     exact timestamp exists, drop it silently when none does.
//
// Late bars with no existing slot are never inserted; that would reorder the
// tail under concurrent interleaving with a paged fetch. The second return
// reports whether the update was applied; it is false only for the dropped
// case. The result is always strictly ascending with no duplicate timestamps,
// and the operation is idempotent per timestamp.
func MergeBar(bars []domain.Bar, update domain.Bar) ([]domain.Bar, bool) {
	if len(bars) == 0 {
		return []domain.Bar{update}, true
	}

	last := len(bars) - 1
	switch {
	case update.Time == bars[last].Time:
		out := make([]domain.Bar, len(bars))
		copy(out, bars)
		out[last] = update
		return out, true
	case update.Time > bars[last].Time:
		out := make([]domain.Bar, len(bars), len(bars)+1)
		copy(out, bars)
		return append(out, update), true
	}

	// Late arrival: binary search for an exact slot.
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= update.Time })
	if i < len(bars) && bars[i].Time == update.Time {
		out := make([]domain.Bar, len(bars))
		copy(out, bars)
		out[i] = update
		return out, true
	}
	return bars, false
}
