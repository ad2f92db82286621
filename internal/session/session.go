// Package session implements the fixed 24-hour trading session arithmetic:
// mapping UTC instants to session keys, computing session windows anchored at
// a non-midnight local wall-clock time, and generating minute placeholders.
//
// The session zone is a fixed UTC offset with no DST. The default anchor is
// 06:50 KST (+9): a session runs from 06:50 local on one calendar day to
// 06:50 local on the next.
package session

import (
	"fmt"
	"time"
)

// SecondsPerDay is the length of one trading session.
const SecondsPerDay = 86400

// Anchor describes the session boundary: a fixed-offset local zone and the
// local wall-clock time at which one session ends and the next begins.
type Anchor struct {
	loc    *time.Location
	hour   int
	minute int
}

// NewAnchor creates an Anchor for the given UTC offset (whole hours, no DST)
// and local anchor time.
func NewAnchor(utcOffsetHours, hour, minute int) Anchor {
	name := fmt.Sprintf("UTC%+d", utcOffsetHours)
	return Anchor{
		loc:    time.FixedZone(name, utcOffsetHours*3600),
		hour:   hour,
		minute: minute,
	}
}

// Default returns the 06:50 KST anchor.
func Default() Anchor {
	return NewAnchor(9, 6, 50)
}

// offset is the anchor-of-day offset in seconds from local midnight.
func (a Anchor) offset() int64 {
	return int64(a.hour)*3600 + int64(a.minute)*60
}

// WallClock converts a UTC epoch second to the anchor's local wall clock.
func (a Anchor) WallClock(epochSec int64) time.Time {
	return time.Unix(epochSec, 0).In(a.loc)
}

// SessionKey maps a UTC instant to its session's calendar-date label,
// formatted YYYY-MM-DD. An instant before the day's anchor belongs to the
// previous session. The mapping is monotonic: one key per 24-hour bucket.
func (a Anchor) SessionKey(epochSec int64) string {
	shifted := time.Unix(epochSec-a.offset(), 0).In(a.loc)
	return shifted.Format("2006-01-02")
}

// SessionWindow returns the half-open [start, end) window of the session
// labelled by key. The window is exactly SecondsPerDay long and starts at the
// key's local midnight plus the anchor offset, converted back to UTC epoch.
func (a Anchor) SessionWindow(key string) (start, end int64, err error) {
	day, err := time.ParseInLocation("2006-01-02", key, a.loc)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing session key %q: %w", key, err)
	}
	start = day.Unix() + a.offset()
	return start, start + SecondsPerDay, nil
}

// NextSessionEnd returns the next anchor instant at or after now.
func (a Anchor) NextSessionEnd(nowSec int64) int64 {
	local := a.WallClock(nowSec)
	today := time.Date(local.Year(), local.Month(), local.Day(), a.hour, a.minute, 0, 0, a.loc)
	if nowSec <= today.Unix() {
		return today.Unix()
	}
	return today.Unix() + SecondsPerDay
}

// DayWindow returns the [start, end) session window at offsetDays from the
// session containing now. Offset 0 is the current (possibly still running)
// session; negative offsets walk back through completed sessions.
func (a Anchor) DayWindow(nowSec int64, offsetDays int) (start, end int64) {
	end = a.NextSessionEnd(nowSec) + int64(offsetDays)*SecondsPerDay
	return end - SecondsPerDay, end
}

// MinutePlaceholders returns every 60-second boundary in
// [floor(from/60)*60, floor(to/60)*60), ascending. It is a pure function of
// its inputs.
func MinutePlaceholders(fromSec, toSec int64) []int64 {
	from := (fromSec / 60) * 60
	to := (toSec / 60) * 60
	if from >= to {
		return nil
	}
	out := make([]int64, 0, (to-from)/60)
	for t := from; t < to; t += 60 {
		out = append(out, t)
	}
	return out
}
