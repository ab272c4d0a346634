package service

import (
	"context"
	"encoding/json"

	"golang-stock-tracker/internal/analyzer/repository"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/pkg/logger"
)

// RunService exposes analysis run history.
type RunService interface {
	GetRunByID(ctx context.Context, id string) (*dto.AnalysisRunResponse, error)
	GetAllRuns(ctx context.Context, limit int) ([]*dto.AnalysisRunResponse, error)
}

// NewRunService creates a new run history service.
func NewRunService(runRepo repository.AnalysisRunRepository, logger *logger.Logger) RunService {
	return &runService{
		runRepo: runRepo,
		logger:  logger,
	}
}

type runService struct {
	runRepo repository.AnalysisRunRepository
	logger  *logger.Logger
}

// GetRunByID retrieves a run by its ID.
func (s *runService) GetRunByID(ctx context.Context, id string) (*dto.AnalysisRunResponse, error) {
	run, err := s.runRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to find analysis run", logger.ErrorField(err), logger.StringField("run_id", id))
		return nil, err
	}
	return toRunResponse(run), nil
}

// GetAllRuns retrieves the most recent runs.
func (s *runService) GetAllRuns(ctx context.Context, limit int) ([]*dto.AnalysisRunResponse, error) {
	runs, err := s.runRepo.FindAll(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to get analysis runs", logger.ErrorField(err))
		return nil, err
	}

	responses := make([]*dto.AnalysisRunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, toRunResponse(&runs[i]))
	}
	return responses, nil
}

func toRunResponse(run *entity.AnalysisRun) *dto.AnalysisRunResponse {
	resp := &dto.AnalysisRunResponse{
		ID:            run.ID,
		Type:          string(run.Type),
		Status:        string(run.Status),
		Symbols:       []string(run.Symbols),
		AnalyzedCount: run.AnalyzedCount,
		SkippedCount:  run.SkippedCount,
		StartedAt:     run.StartedAt,
	}
	if run.ErrorMessage.Valid {
		resp.Error = run.ErrorMessage.String
	}
	if run.CompletedAt.Valid {
		completed := run.CompletedAt.Time
		resp.CompletedAt = &completed
		resp.Duration = completed.Sub(run.StartedAt).Milliseconds()
	}
	if len(run.Output) > 0 {
		var output dto.RunOutput
		if err := json.Unmarshal(run.Output, &output); err == nil {
			resp.Output = &output
		}
	}
	return resp
}
