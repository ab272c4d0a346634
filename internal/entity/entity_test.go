package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockPrice_Validate(t *testing.T) {
	assert.NoError(t, StockPrice{Close: 10, Volume: 0}.Validate())

	err := StockPrice{Close: 0, Volume: 10}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	err = StockPrice{Close: 1, Volume: -1}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidPrice))
}

func TestRecommendation_Validate(t *testing.T) {
	ok := Recommendation{Symbol: "AAPL", Action: ActionBuy, Confidence: 1}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Confidence = 1.01
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecommendation)

	bad = ok
	bad.Action = "STRONG_BUY"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecommendation)

	bad = ok
	bad.Symbol = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecommendation)
}
