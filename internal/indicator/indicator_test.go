package indicator

import (
	"math"
	"testing"
	"time"

	"golang-stock-tracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series builds prices from closes given oldest-first and returns them most-recent-first.
func series(closes ...float64) []entity.StockPrice {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]entity.StockPrice, len(closes))
	for i, c := range closes {
		out[len(closes)-1-i] = entity.StockPrice{
			Date:   start.AddDate(0, 0, i),
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func constant(v float64, n int) []entity.StockPrice {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = v
	}
	return series(closes...)
}

func assertClose(t *testing.T, want, got float64) {
	t.Helper()
	assert.InDelta(t, want, got, 1e-9)
}

func TestRSI_InsufficientData(t *testing.T) {
	_, ok := RSI(series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14), 14)
	assert.False(t, ok)
}

func TestRSI_AllGainsIs100(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(10 + i)
	}
	rsi, ok := RSI(series(closes...), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_FlatSeriesIs100(t *testing.T) {
	rsi, ok := RSI(constant(42, 20), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_KnownValue(t *testing.T) {
	// seven +2 moves and seven -1 moves: avgGain=1, avgLoss=0.5, RS=2
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+2)
		closes = append(closes, closes[len(closes)-1]-1)
	}
	rsi, ok := RSI(series(closes...), 14)
	require.True(t, ok)
	assertClose(t, 100-100/3.0, rsi)
}

func TestRSI_UsesMostRecentWindow(t *testing.T) {
	// an old crash outside the last 14 deltas must not matter
	closes := []float64{500, 10}
	for i := 0; i < 14; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
	}
	rsi, ok := RSI(series(closes...), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_Bounded(t *testing.T) {
	closes := []float64{50}
	for i := 1; i < 60; i++ {
		step := math.Sin(float64(i)*0.7) * 3
		closes = append(closes, math.Max(1, closes[i-1]+step))
	}
	prices := series(closes...)
	for n := 15; n <= len(prices); n++ {
		rsi, ok := RSI(prices[:n], 14)
		require.True(t, ok)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	}
}

func TestRSISignal(t *testing.T) {
	assert.Equal(t, entity.ActionSell, RSISignal(70.01))
	assert.Equal(t, entity.ActionHold, RSISignal(70))
	assert.Equal(t, entity.ActionHold, RSISignal(30))
	assert.Equal(t, entity.ActionBuy, RSISignal(29.99))
}

func TestSMA(t *testing.T) {
	v, ok := SMA(constant(12.5, 30), 20)
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	// most recent five of 1..10 are 6..10
	v, ok = SMA(series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), 5)
	require.True(t, ok)
	assertClose(t, 8, v)

	_, ok = SMA(series(1, 2, 3), 5)
	assert.False(t, ok)
}

func TestEMA_SeedsFromOldestAndWalksWholeSeries(t *testing.T) {
	prices := series(10, 11, 12)
	k := 2.0 / 3.0
	want := 10.0
	want = 11*k + want*(1-k)
	want = 12*k + want*(1-k)

	got, ok := EMA(prices, 2)
	require.True(t, ok)
	assertClose(t, want, got)
}

func TestEMA_DependsOnHistoryLength(t *testing.T) {
	closes := []float64{1, 50, 3, 40, 5, 30, 7, 20, 9, 10, 11, 12, 13}
	long, _ := EMA(series(closes...), 12)
	short, _ := EMA(series(closes[1:]...), 12)
	assert.NotEqual(t, long, short)
}

func TestEMA_Deterministic(t *testing.T) {
	prices := series(3.1, 4.1, 5.9, 2.6, 5.3, 5.8, 9.7, 9.3, 2.3, 8.4, 6.2, 6.4, 3.3)
	a, _ := EMA(prices, 12)
	b, _ := EMA(prices, 12)
	assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
}

func TestEMA_InsufficientData(t *testing.T) {
	_, ok := EMA(series(1, 2, 3), 12)
	assert.False(t, ok)
}

func TestMACD(t *testing.T) {
	_, ok := MACD(constant(10, 25))
	assert.False(t, ok)

	v, ok := MACD(constant(10, 26))
	require.True(t, ok)
	assertClose(t, 0, v)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	v, ok = MACD(series(closes...))
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	assert.Equal(t, entity.ActionBuy, MACDSignal(v))
}

func TestCalculate(t *testing.T) {
	assert.Empty(t, Calculate(series(1, 2)))

	values := Calculate(constant(10, 60))
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{
		entity.IndicatorRSI14, entity.IndicatorSMA20, entity.IndicatorSMA50,
		entity.IndicatorEMA12, entity.IndicatorEMA26, entity.IndicatorMACD,
	}, names)
	require.NotNil(t, values[0].Signal)
	assert.Equal(t, entity.ActionSell, *values[0].Signal)
	assert.Nil(t, values[1].Signal)
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(constant(10, 30))
	require.NotNil(t, s.RSI)
	require.NotNil(t, s.MACD)
	require.NotNil(t, s.MA20)
	assert.Nil(t, s.MA50)
}
