package session

import (
	"testing"
	"time"
)

// kst returns the UTC epoch second for the given KST wall-clock time.
func kst(year int, month time.Month, day, hour, min, sec int) int64 {
	loc := time.FixedZone("KST", 9*3600)
	return time.Date(year, month, day, hour, min, sec, 0, loc).Unix()
}

func TestSessionKeyAnchorBoundary(t *testing.T) {
	a := Default()

	before := a.SessionKey(kst(2024, time.March, 15, 6, 49, 59))
	after := a.SessionKey(kst(2024, time.March, 15, 6, 50, 0))

	if before != "2024-03-14" {
		t.Errorf("key at 06:49:59 = %q, want 2024-03-14 (previous session)", before)
	}
	if after != "2024-03-15" {
		t.Errorf("key at 06:50:00 = %q, want 2024-03-15", after)
	}
	if before == after {
		t.Error("instants on either side of the anchor must map to different sessions")
	}
}

func TestSessionKeyIdempotentAndMonotonic(t *testing.T) {
	a := Default()
	start := kst(2024, time.June, 1, 0, 0, 0)

	prev := ""
	for i := int64(0); i < 3*SecondsPerDay; i += 977 {
		ts := start + i
		key := a.SessionKey(ts)
		if again := a.SessionKey(ts); again != key {
			t.Fatalf("SessionKey not stable at %d: %q then %q", ts, key, again)
		}
		if prev != "" && key < prev {
			t.Fatalf("SessionKey not monotonic at %d: %q after %q", ts, key, prev)
		}
		prev = key
	}
}

func TestSessionWindow(t *testing.T) {
	a := Default()

	start, end, err := a.SessionWindow("2024-03-15")
	if err != nil {
		t.Fatalf("SessionWindow: %v", err)
	}
	if end-start != SecondsPerDay {
		t.Errorf("window length = %d, want %d", end-start, SecondsPerDay)
	}
	if want := kst(2024, time.March, 15, 6, 50, 0); start != want {
		t.Errorf("window start = %d, want %d (06:50 KST)", start, want)
	}

	// Every instant inside the window maps back to the window's key.
	for _, ts := range []int64{start, start + 1, end - 1} {
		if key := a.SessionKey(ts); key != "2024-03-15" {
			t.Errorf("SessionKey(%d) = %q, want 2024-03-15", ts, key)
		}
	}
	if key := a.SessionKey(end); key == "2024-03-15" {
		t.Error("window end is exclusive and must belong to the next session")
	}
}

func TestNextSessionEnd(t *testing.T) {
	a := Default()

	anchor := kst(2024, time.March, 15, 6, 50, 0)

	if got := a.NextSessionEnd(anchor - 3600); got != anchor {
		t.Errorf("before anchor: got %d, want today's anchor %d", got, anchor)
	}
	if got := a.NextSessionEnd(anchor); got != anchor {
		t.Errorf("at anchor: got %d, want the same instant %d", got, anchor)
	}
	if got := a.NextSessionEnd(anchor + 1); got != anchor+SecondsPerDay {
		t.Errorf("after anchor: got %d, want tomorrow's anchor %d", got, anchor+SecondsPerDay)
	}
}

func TestDayWindow(t *testing.T) {
	a := Default()
	now := kst(2024, time.March, 15, 12, 0, 0)

	start, end := a.DayWindow(now, 0)
	if end-start != SecondsPerDay {
		t.Fatalf("window length = %d, want %d", end-start, SecondsPerDay)
	}
	if now < start || now >= end {
		t.Errorf("now %d outside its own session window [%d, %d)", now, start, end)
	}

	pStart, pEnd := a.DayWindow(now, -1)
	if pEnd != start || pStart != start-SecondsPerDay {
		t.Errorf("offset -1 window [%d, %d) does not abut [%d, %d)", pStart, pEnd, start, end)
	}
}

func TestMinutePlaceholders(t *testing.T) {
	got := MinutePlaceholders(120, 360)
	want := []int64{120, 180, 240, 300}
	if len(got) != len(want) {
		t.Fatalf("got %d placeholders, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("placeholder[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// Non-aligned bounds floor to the minute; the upper bound is exclusive.
	got = MinutePlaceholders(125, 361)
	want = []int64{120, 180, 240, 300}
	if len(got) != len(want) || got[0] != 120 || got[len(got)-1] != 300 {
		t.Errorf("non-aligned bounds: got %v, want %v", got, want)
	}

	if got := MinutePlaceholders(360, 120); got != nil {
		t.Errorf("inverted range should yield nil, got %v", got)
	}
}
