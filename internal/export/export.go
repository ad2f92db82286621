// Package export writes fetched bar series to disk for offline analysis,
// as Parquet or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"klinehub/internal/domain"
)

// BarRecord is the Parquet schema for exported bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Interval  string  `parquet:"interval"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
}

// WriteParquet writes bars to a Parquet file at path, creating parent
// directories as needed.
func WriteParquet(path, symbol, interval string, bars []domain.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = BarRecord{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: b.Time * 1000,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := parquet.NewGenericWriter[BarRecord](f)
	if _, err := w.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("writing parquet records: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return f.Close()
}

// ReadParquet reads an exported Parquet file back into records.
func ReadParquet(path string) ([]BarRecord, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// jsonExport is the JSON file layout.
type jsonExport struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Bars     []domain.Bar `json:"bars"`
}

// WriteJSON writes bars to a JSON file at path.
func WriteJSON(path, symbol, interval string, bars []domain.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	data, err := json.MarshalIndent(jsonExport{Symbol: symbol, Interval: interval, Bars: bars}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bars: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
