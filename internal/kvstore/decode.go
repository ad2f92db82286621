package kvstore

import (
	"encoding/json"
	"fmt"

	"klinehub/internal/domain"
)

// rawSignal tolerates the timestamp key variants the log store has
// accumulated over time: ts, time, or timeSec.
type rawSignal struct {
	Ts      *int64   `json:"ts"`
	Time    *int64   `json:"time"`
	TimeSec *int64   `json:"timeSec"`
	Symbol  string   `json:"symbol"`
	Side    string   `json:"side"`
	Kind    string   `json:"kind"`
	Price   float64  `json:"price"`
	Reasons []string `json:"reasons"`
}

// DecodeSignal parses one signal-log row into a SignalEvent. The timestamp
// may appear under ts, time, or timeSec; a row without any of them is
// malformed.
func DecodeSignal(raw []byte) (domain.SignalEvent, error) {
	var r rawSignal
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.SignalEvent{}, fmt.Errorf("decoding signal row: %w", err)
	}

	var ts int64
	switch {
	case r.Ts != nil:
		ts = *r.Ts
	case r.Time != nil:
		ts = *r.Time
	case r.TimeSec != nil:
		ts = *r.TimeSec
	default:
		return domain.SignalEvent{}, fmt.Errorf("signal row has no timestamp field")
	}

	return domain.SignalEvent{
		Time:    ts,
		Symbol:  r.Symbol,
		Side:    domain.Side(r.Side),
		Kind:    domain.SignalKind(r.Kind),
		Price:   r.Price,
		Reasons: r.Reasons,
	}, nil
}
