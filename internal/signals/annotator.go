// Package signals maps trade-signal events onto chart annotations: per-session
// sequence numbers, marker descriptors, and human-readable notes.
package signals

import (
	"fmt"
	"sort"
	"strings"

	"klinehub/internal/domain"
	"klinehub/internal/session"
)

// markerStyle is the fixed lookup keyed by (kind, side).
type markerStyle struct {
	position string
	color    string
	shape    string
}

var styleTable = map[[2]string]markerStyle{
	{string(domain.KindEntry), string(domain.SideLong)}:  {domain.MarkerBelowBar, "#26a69a", domain.ShapeArrowUp},
	{string(domain.KindEntry), string(domain.SideShort)}: {domain.MarkerAboveBar, "#ef5350", domain.ShapeArrowDown},
	{string(domain.KindExit), string(domain.SideLong)}:   {domain.MarkerAboveBar, "#26a69a", domain.ShapeArrowDown},
	{string(domain.KindExit), string(domain.SideShort)}:  {domain.MarkerBelowBar, "#ef5350", domain.ShapeArrowUp},
}

// Annotation is the full overlay for a set of signal events. Markers and
// notes are index-aligned and independently filterable by time window.
type Annotation struct {
	Markers []domain.Marker `json:"markers"`
	Notes   []domain.Note   `json:"notes"`
}

// Annotate groups events by trading session, assigns each event a per-session
// sequence number in ascending time order, and maps it to a marker descriptor
// and note. The result is ordered ascending by time.
func Annotate(anchor session.Anchor, events []domain.SignalEvent) Annotation {
	ordered := make([]domain.SignalEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })

	seqBySession := make(map[string]int)
	out := Annotation{
		Markers: make([]domain.Marker, 0, len(ordered)),
		Notes:   make([]domain.Note, 0, len(ordered)),
	}
	for _, ev := range ordered {
		key := anchor.SessionKey(ev.Time)
		seqBySession[key]++
		ev.Seq = seqBySession[key]

		style, ok := styleTable[[2]string{string(ev.Kind), string(ev.Side)}]
		if !ok {
			// Unknown (kind, side) pairs carry no chart shape; skip them.
			continue
		}

		out.Markers = append(out.Markers, domain.Marker{
			Time:     ev.Time,
			Position: style.position,
			Color:    style.color,
			Shape:    style.shape,
			Text:     fmt.Sprintf("#%d %s %s @ %g", ev.Seq, ev.Kind, ev.Side, ev.Price),
		})
		out.Notes = append(out.Notes, domain.Note{
			Time: ev.Time,
			Text: noteText(ev),
		})
	}
	return out
}

func noteText(ev domain.SignalEvent) string {
	text := fmt.Sprintf("#%d %s %s %s @ %g", ev.Seq, ev.Symbol, ev.Kind, ev.Side, ev.Price)
	if len(ev.Reasons) > 0 {
		text += " (" + strings.Join(ev.Reasons, "; ") + ")"
	}
	return text
}

// FilterWindow returns the annotation restricted to [start, end).
func (a Annotation) FilterWindow(start, end int64) Annotation {
	out := Annotation{}
	for _, m := range a.Markers {
		if m.Time >= start && m.Time < end {
			out.Markers = append(out.Markers, m)
		}
	}
	for _, n := range a.Notes {
		if n.Time >= start && n.Time < end {
			out.Notes = append(out.Notes, n)
		}
	}
	return out
}
