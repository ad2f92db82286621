package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinehub/internal/domain"
)

func TestSMALengthAndValues(t *testing.T) {
	var bars []domain.Bar
	for i := int64(0); i < 10; i++ {
		bars = append(bars, bar(i*60, float64(i+1)))
	}

	got := SMA(bars, 3)
	require.Len(t, got, 10-3+1)

	// Every point is the mean of exactly window consecutive closes ending at
	// its timestamp.
	for i, p := range got {
		want := (float64(i+1) + float64(i+2) + float64(i+3)) / 3
		assert.InDelta(t, want, p.Value, 1e-12)
		assert.Equal(t, bars[i+2].Time, p.Time)
	}
}

func TestSMAShortSeries(t *testing.T) {
	bars := []domain.Bar{bar(60, 1), bar(120, 2)}
	assert.Empty(t, SMA(bars, 3), "fewer than window closes produce no points")
	assert.Empty(t, SMA(bars, 0))
}

func TestSMAFiltersNonFinite(t *testing.T) {
	bars := []domain.Bar{
		bar(60, 1),
		bar(120, math.NaN()),
		bar(180, 2),
		bar(240, math.Inf(1)),
		bar(300, 3),
	}

	got := SMA(bars, 3)
	require.Len(t, got, 1, "non-finite closes must not enter the window")
	assert.InDelta(t, 2.0, got[0].Value, 1e-12)
	assert.Equal(t, int64(300), got[0].Time)
}

func TestLatestMA(t *testing.T) {
	bars := []domain.Bar{bar(60, 2), bar(120, 4), bar(180, 6)}

	v, ok := LatestMA(bars, 2)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-12)

	_, ok = LatestMA(bars, 4)
	assert.False(t, ok, "undefined when the series is shorter than the window")
}

func TestEnvelopeFlatMA(t *testing.T) {
	ma := []MAPoint{{Time: 60, Value: 100}, {Time: 120, Value: 100}}

	upper, lower := Envelope(ma, 0.01)
	require.Len(t, upper, 2)
	require.Len(t, lower, 2)
	for i := range ma {
		assert.InDelta(t, 101.0, upper[i].Value, 1e-12)
		assert.InDelta(t, 99.0, lower[i].Value, 1e-12)
		assert.Equal(t, ma[i].Time, upper[i].Time)
	}
}

func TestEnvelopeAbsentThreshold(t *testing.T) {
	ma := []MAPoint{{Time: 60, Value: 100}}

	upper, lower := Envelope(ma, 0)
	assert.Nil(t, upper, "non-positive threshold means no band, not a collapsed band")
	assert.Nil(t, lower)
}
