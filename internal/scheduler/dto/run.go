package dto

import (
	"time"
)

// RunVerdict is one symbol's outcome stored in a run's output.
type RunVerdict struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider,omitempty"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// RunOutput is the JSON document persisted with a finished run.
type RunOutput struct {
	Verdicts []RunVerdict `json:"verdicts"`
	Skipped  []string     `json:"skipped,omitempty"`
}

// AnalysisRunResponse is the API view of an analysis run.
type AnalysisRunResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Symbols       []string   `json:"symbols"`
	AnalyzedCount int        `json:"analyzed_count"`
	SkippedCount  int        `json:"skipped_count"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Duration      int64      `json:"duration_ms"`
	Output        *RunOutput `json:"output,omitempty"`
}

// ListRunsRequest pages through run history.
type ListRunsRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=200"`
}
