// Package httpapi serves the aggregator's data to the dashboard front-end as
// JSON over HTTP.
package httpapi

import (
	"klinehub/internal/aggregator"
	"klinehub/internal/domain"
	"klinehub/internal/signals"
)

// SeriesResponse is the raw bar series for one (symbol, interval) pair.
type SeriesResponse struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Bars     []domain.Bar `json:"bars"`
}

// WindowResponse is one session's fixed-cadence render sequence. Placeholder
// entries carry only the time field.
type WindowResponse struct {
	Symbol   string              `json:"symbol"`
	Interval string              `json:"interval"`
	Offset   int                 `json:"offset"`
	Start    int64               `json:"start"`
	End      int64               `json:"end"`
	Points   []domain.ChartPoint `json:"points"`
}

// IndicatorsResponse carries the derived series for one session window.
type IndicatorsResponse struct {
	Symbol   string                  `json:"symbol"`
	Interval string                  `json:"interval"`
	Window   int                     `json:"window"`
	Set      aggregator.IndicatorSet `json:"indicators"`
}

// MarkersResponse is the signal overlay for one session window.
type MarkersResponse struct {
	Symbol     string             `json:"symbol"`
	Offset     int                `json:"offset"`
	Annotation signals.Annotation `json:"annotation"`
}

// ConfigResponse wraps a threshold snapshot; Thresholds is null when the
// symbol has no configuration, and consumers must render a placeholder
// rather than a computed zero.
type ConfigResponse struct {
	Symbol     string             `json:"symbol"`
	Thresholds *domain.Thresholds `json:"thresholds"`
}
