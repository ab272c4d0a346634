package dto

import (
	"time"
)

// MarketHours is the exchange session the schedule is aligned to.
type MarketHours struct {
	Open     string `json:"open"`
	Close    string `json:"close"`
	TimeZone string `json:"time_zone"`
}

// StatusResponse describes the scheduler state.
type StatusResponse struct {
	Running        bool                 `json:"running"`
	RunInProgress  bool                 `json:"run_in_progress"`
	CronExpression string               `json:"cron_expression"`
	TimeZone       string               `json:"time_zone"`
	LastRun        *AnalysisRunResponse `json:"last_run,omitempty"`
	NextRun        *time.Time           `json:"next_run,omitempty"`
	Providers      []string             `json:"providers"`
	MarketHours    MarketHours          `json:"market_hours"`
}

// TriggerAnalysisRequest starts a manual run. Without symbols the scheduled symbol set is used.
type TriggerAnalysisRequest struct {
	Symbols []string `json:"symbols" validate:"max=100,dive,required,max=20"`
}

// TriggerAnalysisResponse acknowledges a manual run.
type TriggerAnalysisResponse struct {
	Message string   `json:"message"`
	Symbols []string `json:"symbols,omitempty"`
}
