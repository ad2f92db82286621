package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinehub/internal/domain"
)

func TestDecodeSignalTimestampVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"ts", `{"ts":1700000100,"symbol":"BTCUSDT","side":"LONG","kind":"ENTRY","price":42000}`},
		{"time", `{"time":1700000100,"symbol":"BTCUSDT","side":"LONG","kind":"ENTRY","price":42000}`},
		{"timeSec", `{"timeSec":1700000100,"symbol":"BTCUSDT","side":"LONG","kind":"ENTRY","price":42000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeSignal([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, int64(1700000100), ev.Time)
			assert.Equal(t, domain.SideLong, ev.Side)
			assert.Equal(t, domain.KindEntry, ev.Kind)
			assert.Equal(t, 42000.0, ev.Price)
		})
	}
}

func TestDecodeSignalReasons(t *testing.T) {
	ev, err := DecodeSignal([]byte(`{"ts":1,"symbol":"ETHUSDT","side":"SHORT","kind":"EXIT","price":2000,"reasons":["ma cross","momentum fade"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ma cross", "momentum fade"}, ev.Reasons)
}

func TestDecodeSignalMalformed(t *testing.T) {
	_, err := DecodeSignal([]byte(`{"symbol":"BTCUSDT","side":"LONG"}`))
	assert.Error(t, err, "a row without any timestamp field is malformed")

	_, err = DecodeSignal([]byte(`not json`))
	assert.Error(t, err)
}
