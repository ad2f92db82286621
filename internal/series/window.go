package series

import (
	"sort"

	"klinehub/internal/domain"
	"klinehub/internal/session"
)

// SliceWithBuffer returns up to bufferBars bars immediately preceding start
// (by index, not by duration) followed by every bar in [start, end). The
// buffer gives the indicator calculator enough trailing history to emit a
// moving-average value from the first in-session bar instead of window bars
// into the session.
func SliceWithBuffer(bars []domain.Bar, start, end int64, bufferBars int) []domain.Bar {
	lo := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= start })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= end })

	from := lo - bufferBars
	if bufferBars < 0 || from < 0 {
		from = 0
	}
	out := make([]domain.Bar, hi-from)
	copy(out, bars[from:hi])
	return out
}

// RenderWindow slices bars onto the fixed one-minute cadence of [start, end):
// the real bar when one exists exactly at the minute boundary, a whitespace
// placeholder otherwise. The result always has (end-start)/60 entries
// regardless of data gaps, which the charting contract requires for a
// contiguous time axis.
func RenderWindow(bars []domain.Bar, start, end int64) []domain.ChartPoint {
	return renderWindow(bars, start, end, end)
}

// RenderWindowLive is the variant used for the still-running session: minute
// boundaries after now render as placeholders unconditionally, representing
// the unrealized remainder of the session.
func RenderWindowLive(bars []domain.Bar, start, end, now int64) []domain.ChartPoint {
	return renderWindow(bars, start, end, now)
}

func renderWindow(bars []domain.Bar, start, end, realUntil int64) []domain.ChartPoint {
	byTime := make(map[int64]domain.Bar, len(bars))
	for _, b := range bars {
		if b.Time >= start && b.Time < end {
			byTime[b.Time] = b
		}
	}

	minutes := session.MinutePlaceholders(start, end)
	out := make([]domain.ChartPoint, 0, len(minutes))
	for _, t := range minutes {
		if b, ok := byTime[t]; ok && t <= realUntil {
			out = append(out, domain.PointFromBar(b))
			continue
		}
		out = append(out, domain.Placeholder(t))
	}
	return out
}
