package dto

import (
	"errors"
	"time"

	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/internal/indicator"
)

// ErrDataUnavailable means a symbol has no stock info or no price history.
var ErrDataUnavailable = errors.New("stock data unavailable")

// NewsHeadline is a single headline attached to an analysis prompt.
type NewsHeadline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	Link        string    `json:"link,omitempty"`
	Snippet     string    `json:"snippet,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// AnalysisRequest bundles everything the prompt needs for one symbol.
type AnalysisRequest struct {
	Stock       entity.Stock
	LatestPrice entity.StockPrice
	// History is ordered most-recent-first and includes LatestPrice at index 0.
	History    []entity.StockPrice
	Indicators indicator.Snapshot
	News       []NewsHeadline
}

// Symbol returns the stock symbol of the request.
func (r *AnalysisRequest) Symbol() string {
	return r.Stock.Symbol
}

// AnalysisResult is the normalized verdict produced by the orchestrator.
type AnalysisResult struct {
	Symbol      string             `json:"symbol"`
	Action      entity.Action      `json:"action"`
	Confidence  float64            `json:"confidence"`
	PriceTarget *float64           `json:"price_target,omitempty"`
	Reasoning   string             `json:"reasoning"`
	RiskLevel   entity.RiskLevel   `json:"risk_level"`
	TimeHorizon entity.TimeHorizon `json:"time_horizon"`
	Provider    string             `json:"provider,omitempty"`
	RawResponse string             `json:"raw_response,omitempty"`
	// Degraded is true when no provider produced the result.
	Degraded   bool      `json:"degraded"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}
