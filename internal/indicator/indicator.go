// Package indicator computes technical indicators over daily price series.
//
// Every function takes prices ordered most-recent-first and reports false
// when there is not enough history to produce a value.
package indicator

import (
	"golang-stock-tracker/internal/entity"
)

const (
	DefaultRSIPeriod = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26

	overbought = 70.0
	oversold   = 30.0
)

// Value is one named indicator reading with an optional signal.
type Value struct {
	Name   string
	Value  float64
	Signal *entity.Action
}

// RSI returns the relative strength index over the most recent period deltas.
func RSI(prices []entity.StockPrice, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := 0; i < period; i++ {
		change := prices[i].Close - prices[i+1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// RSISignal maps an RSI reading to SELL above 70, BUY below 30, otherwise HOLD.
func RSISignal(rsi float64) entity.Action {
	switch {
	case rsi > overbought:
		return entity.ActionSell
	case rsi < oversold:
		return entity.ActionBuy
	default:
		return entity.ActionHold
	}
}

// SMA returns the mean of the period most recent closes.
func SMA(prices []entity.StockPrice, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i].Close
	}
	return sum / float64(period), true
}

// EMA seeds from the oldest close and walks forward across the whole series,
// so the result depends on how much history is supplied.
func EMA(prices []entity.StockPrice, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	k := 2.0 / float64(period+1)
	last := len(prices) - 1
	ema := prices[last].Close
	for i := last - 1; i >= 0; i-- {
		ema = prices[i].Close*k + ema*(1-k)
	}
	return ema, true
}

// MACD returns EMA(12) - EMA(26).
func MACD(prices []entity.StockPrice) (float64, bool) {
	if len(prices) < MACDSlowPeriod {
		return 0, false
	}
	fast, _ := EMA(prices, MACDFastPeriod)
	slow, _ := EMA(prices, MACDSlowPeriod)
	return fast - slow, true
}

// MACDSignal is BUY above zero, SELL below zero and HOLD at zero.
func MACDSignal(macd float64) entity.Action {
	switch {
	case macd > 0:
		return entity.ActionBuy
	case macd < 0:
		return entity.ActionSell
	default:
		return entity.ActionHold
	}
}

// Calculate returns every indicator the pipeline stores that has enough data.
func Calculate(prices []entity.StockPrice) []Value {
	var values []Value

	if rsi, ok := RSI(prices, DefaultRSIPeriod); ok {
		signal := RSISignal(rsi)
		values = append(values, Value{Name: entity.IndicatorRSI14, Value: rsi, Signal: &signal})
	}
	if sma, ok := SMA(prices, 20); ok {
		values = append(values, Value{Name: entity.IndicatorSMA20, Value: sma})
	}
	if sma, ok := SMA(prices, 50); ok {
		values = append(values, Value{Name: entity.IndicatorSMA50, Value: sma})
	}
	if ema, ok := EMA(prices, MACDFastPeriod); ok {
		values = append(values, Value{Name: entity.IndicatorEMA12, Value: ema})
	}
	if ema, ok := EMA(prices, MACDSlowPeriod); ok {
		values = append(values, Value{Name: entity.IndicatorEMA26, Value: ema})
	}
	if macd, ok := MACD(prices); ok {
		signal := MACDSignal(macd)
		values = append(values, Value{Name: entity.IndicatorMACD, Value: macd, Signal: &signal})
	}

	return values
}

// Snapshot holds the indicator readings used to build an analysis prompt.
// Nil fields mean "not enough data".
type Snapshot struct {
	RSI  *float64
	MACD *float64
	MA20 *float64
	MA50 *float64
}

// NewSnapshot computes a Snapshot from prices.
func NewSnapshot(prices []entity.StockPrice) Snapshot {
	var s Snapshot
	if v, ok := RSI(prices, DefaultRSIPeriod); ok {
		s.RSI = &v
	}
	if v, ok := MACD(prices); ok {
		s.MACD = &v
	}
	if v, ok := SMA(prices, 20); ok {
		s.MA20 = &v
	}
	if v, ok := SMA(prices, 50); ok {
		s.MA50 = &v
	}
	return s
}
