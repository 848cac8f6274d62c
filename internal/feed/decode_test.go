package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/tradestream/internal/models"
)

func TestDecode_FullTrade(t *testing.T) {
	frame := []byte(`{"id":"a","timestamp":1000,"symbol":"BTC/USD","price":100,"size":1.5,"side":"buy","exchange":"X"}`)

	trade, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, models.Trade{
		ID:        "a",
		Timestamp: 1000,
		Symbol:    "BTC/USD",
		Price:     100,
		Size:      1.5,
		Side:      models.SideBuy,
		Exchange:  "X",
	}, trade)
}

func TestDecode_IgnoresTransmittedDirection(t *testing.T) {
	trade, err := Decode([]byte(`{"id":"a","symbol":"BTC/USD","price":1,"priceChangeDirection":"up"}`))
	require.NoError(t, err)
	assert.Empty(t, trade.PriceChangeDirection)
}

func TestDecode_Malformed(t *testing.T) {
	for _, frame := range []string{
		"not json",
		`{"id":"a",`,
		"",
		`{"id":"a"}}`,
	} {
		t.Run(frame, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFrame), "got %v", err)
			assert.False(t, errors.Is(err, ErrDroppedFrame))
		})
	}
}

func TestDecode_Dropped(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"missing price", `{"id":"a","symbol":"BTC/USD"}`},
		{"string price", `{"id":"a","symbol":"BTC/USD","price":"100"}`},
		{"null price", `{"id":"a","symbol":"BTC/USD","price":null}`},
		{"negative price", `{"id":"a","symbol":"BTC/USD","price":-3}`},
		{"missing id", `{"symbol":"BTC/USD","price":1}`},
		{"empty id", `{"id":"","symbol":"BTC/USD","price":1}`},
		{"numeric id", `{"id":7,"symbol":"BTC/USD","price":1}`},
		{"missing symbol", `{"id":"a","price":1}`},
		{"array payload", `[1,2,3]`},
		{"number payload", `42`},
		{"null payload", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDroppedFrame), "got %v", err)
			assert.False(t, errors.Is(err, ErrMalformedFrame))
		})
	}
}

func TestDecode_LenientOptionalFields(t *testing.T) {
	trade, err := Decode([]byte(`{"id":"a","symbol":"ETH/USD","price":0,"size":"big","side":"short","timestamp":"soon","exchange":9}`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, trade.Size)
	assert.Equal(t, models.Side("short"), trade.Side)
	assert.Equal(t, int64(0), trade.Timestamp)
	assert.Empty(t, trade.Exchange)
}
