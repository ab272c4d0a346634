package entity

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun records one execution of the analysis pipeline.
type AnalysisRun struct {
	ID            string             `gorm:"primaryKey;type:uuid"`
	Type          RecommendationType `gorm:"size:32;not null"`
	Status        RunStatus          `gorm:"size:16;not null;index"`
	Symbols       pq.StringArray     `gorm:"type:text[]"`
	AnalyzedCount int
	SkippedCount  int
	ErrorMessage  sql.NullString
	Output        datatypes.JSON `gorm:"type:jsonb"`
	StartedAt     time.Time      `gorm:"not null;index"`
	CompletedAt   sql.NullTime
}

func (AnalysisRun) TableName() string {
	return "analysis_runs"
}
