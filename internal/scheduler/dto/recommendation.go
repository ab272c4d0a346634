package dto

import (
	"time"
)

// ListRecommendationsRequest filters stored recommendations.
type ListRecommendationsRequest struct {
	Symbol string `query:"symbol" validate:"max=20"`
	Type   string `query:"type" validate:"omitempty,oneof=daily_opportunity manual custom"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// AnalyzeSymbolRequest runs a one-off analysis.
type AnalyzeSymbolRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=openai anthropic gemini openrouter ollama huggingface"`
}

// RecommendationResponse is the API view of a recommendation.
type RecommendationResponse struct {
	ID          uint      `json:"id"`
	Symbol      string    `json:"symbol"`
	Type        string    `json:"type"`
	Action      string    `json:"action"`
	Confidence  float64   `json:"confidence"`
	PriceTarget *float64  `json:"price_target,omitempty"`
	Reasoning   string    `json:"reasoning"`
	RiskLevel   string    `json:"risk_level"`
	TimeHorizon string    `json:"time_horizon"`
	Provider    string    `json:"provider,omitempty"`
	RunID       *string   `json:"run_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
