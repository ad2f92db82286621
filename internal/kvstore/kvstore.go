// Package kvstore reads and writes the hosted key-value state backing the
// dashboard: per-symbol threshold configuration and the trade-signal log.
// Both live in Redis; a fetch failure degrades to "no data" instead of
// blocking a view.
package kvstore

import (
	"context"
	"time"

	"klinehub/internal/domain"
)

// ConfigStore provides read access to per-symbol threshold snapshots. A
// missing symbol yields (nil, nil).
type ConfigStore interface {
	Thresholds(ctx context.Context, symbol string) (*domain.Thresholds, error)
}

// SignalStore provides access to the trade-signal log.
type SignalStore interface {
	Signals(ctx context.Context, symbol string) ([]domain.SignalEvent, error)
	AppendSignal(ctx context.Context, ev domain.SignalEvent) error
}

// fetchTimeout bounds every single-shot store call.
const fetchTimeout = 5 * time.Second
