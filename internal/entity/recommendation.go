package entity

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type RecommendationType string

const (
	RecommendationTypeDailyOpportunity RecommendationType = "daily_opportunity"
	RecommendationTypeManual           RecommendationType = "manual"
	RecommendationTypeCustom           RecommendationType = "custom"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

type TimeHorizon string

const (
	HorizonShortTerm  TimeHorizon = "SHORT_TERM"
	HorizonMediumTerm TimeHorizon = "MEDIUM_TERM"
	HorizonLongTerm   TimeHorizon = "LONG_TERM"
)

var ErrInvalidRecommendation = errors.New("invalid recommendation")

// Recommendation is a persisted verdict. Rows are never updated, only deleted.
type Recommendation struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	StockID     uint               `gorm:"not null;index" json:"stock_id"`
	Symbol      string             `gorm:"size:20;not null;index" json:"symbol"`
	Type        RecommendationType `gorm:"size:32;not null;index" json:"type"`
	Action      Action             `gorm:"size:8;not null" json:"action"`
	Confidence  float64            `gorm:"not null" json:"confidence"`
	PriceTarget *float64           `json:"price_target,omitempty"`
	Reasoning   string             `gorm:"type:text" json:"reasoning"`
	RiskLevel   RiskLevel          `gorm:"size:8" json:"risk_level"`
	TimeHorizon TimeHorizon        `gorm:"size:16" json:"time_horizon"`
	Provider    string             `gorm:"size:32" json:"provider"`
	RunID       *string            `gorm:"size:36;index" json:"run_id,omitempty"`
	RawResponse datatypes.JSON     `gorm:"type:jsonb" json:"raw_response,omitempty"`
	CreatedAt   time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// Validate enforces the action set and 0 <= confidence <= 1.
func (r Recommendation) Validate() error {
	switch r.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRecommendation, r.Action)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidRecommendation, r.Confidence)
	}
	if r.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidRecommendation)
	}
	return nil
}
