// Package domain defines the core types shared across klinehub: OHLC bars,
// rendered chart points, threshold snapshots, and trade signal events.
package domain

// Bar is one OHLC candle. Time is the bar open in Unix seconds (UTC) and is
// the unique key within a series.
type Bar struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ChartPoint is one entry of a fixed-cadence render window. A point with nil
// price fields is a whitespace placeholder: it keeps the chart's time axis
// contiguous without implying a trade occurred.
type ChartPoint struct {
	Time  int64    `json:"time"`
	Open  *float64 `json:"open,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Low   *float64 `json:"low,omitempty"`
	Close *float64 `json:"close,omitempty"`
}

// PointFromBar converts a real bar into a chart point.
func PointFromBar(b Bar) ChartPoint {
	o, h, l, c := b.Open, b.High, b.Low, b.Close
	return ChartPoint{Time: b.Time, Open: &o, High: &h, Low: &l, Close: &c}
}

// Placeholder returns a whitespace point at t.
func Placeholder(t int64) ChartPoint {
	return ChartPoint{Time: t}
}

// IsPlaceholder reports whether the point carries no price data.
func (p ChartPoint) IsPlaceholder() bool {
	return p.Open == nil && p.High == nil && p.Low == nil && p.Close == nil
}

// Side is the direction of a trade signal.
type Side string

// Signal sides.
const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// SignalKind distinguishes entries from exits.
type SignalKind string

// Signal kinds.
const (
	KindEntry SignalKind = "ENTRY"
	KindExit  SignalKind = "EXIT"
)

// SignalEvent is one trade signal sourced from the external log store. Seq is
// assigned per trading session in ascending time order by the annotator; it is
// zero until assigned.
type SignalEvent struct {
	Time    int64      `json:"timeSec"`
	Symbol  string     `json:"symbol"`
	Side    Side       `json:"side"`
	Kind    SignalKind `json:"kind"`
	Price   float64    `json:"price"`
	Reasons []string   `json:"reasons,omitempty"`
	Seq     int        `json:"seq,omitempty"`
}

// Marker positions and shapes use the charting library's vocabulary.
const (
	MarkerAboveBar = "aboveBar"
	MarkerBelowBar = "belowBar"

	ShapeArrowUp   = "arrowUp"
	ShapeArrowDown = "arrowDown"
)

// Marker is a chart marker descriptor derived from a signal event.
type Marker struct {
	Time     int64  `json:"time"`
	Position string `json:"position"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Text     string `json:"text"`
}

// Note is a human-readable annotation for a signal event.
type Note struct {
	Time int64  `json:"time"`
	Text string `json:"text"`
}

// CrossEvent is one directional moving-average crossing recorded in the
// threshold store.
type CrossEvent struct {
	Time      int64    `json:"time"`
	Price     float64  `json:"price"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

// Thresholds is the per-symbol configuration snapshot read from the external
// key-value store. Every field is nullable: a missing value is propagated as
// nil all the way to presentation, never as a computed zero.
type Thresholds struct {
	MAThreshold       *float64     `json:"ma_threshold"`
	MomentumThreshold *float64     `json:"momentum_threshold"`
	ExitThreshold     *float64     `json:"exit_threshold"`
	TargetCross       *int         `json:"target_cross"`
	ClosesNum         *int         `json:"closes_num"`
	CrossTimes        []CrossEvent `json:"cross_times,omitempty"`
}
