package service

import (
	"context"
	"strings"

	"golang-stock-tracker/internal/analyzer/repository"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/pkg/logger"
)

// RecommendationService reads and prunes stored recommendations.
type RecommendationService interface {
	List(ctx context.Context, req *dto.ListRecommendationsRequest) ([]*dto.RecommendationResponse, error)
	Delete(ctx context.Context, id uint) error
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(recRepo repository.RecommendationRepository, logger *logger.Logger) RecommendationService {
	return &recommendationService{
		recRepo: recRepo,
		logger:  logger,
	}
}

type recommendationService struct {
	recRepo repository.RecommendationRepository
	logger  *logger.Logger
}

func (s *recommendationService) List(ctx context.Context, req *dto.ListRecommendationsRequest) ([]*dto.RecommendationResponse, error) {
	recs, err := s.recRepo.List(ctx, repository.RecommendationFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Type:   entity.RecommendationType(req.Type),
		Limit:  req.Limit,
	})
	if err != nil {
		s.logger.Error("Failed to list recommendations", logger.ErrorField(err))
		return nil, err
	}

	responses := make([]*dto.RecommendationResponse, 0, len(recs))
	for i := range recs {
		responses = append(responses, ToRecommendationResponse(&recs[i]))
	}
	return responses, nil
}

func (s *recommendationService) Delete(ctx context.Context, id uint) error {
	if err := s.recRepo.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to delete recommendation", logger.ErrorField(err), logger.Field("id", id))
		return err
	}
	return nil
}

// ToRecommendationResponse maps a stored recommendation to its API view.
func ToRecommendationResponse(rec *entity.Recommendation) *dto.RecommendationResponse {
	return &dto.RecommendationResponse{
		ID:          rec.ID,
		Symbol:      rec.Symbol,
		Type:        string(rec.Type),
		Action:      string(rec.Action),
		Confidence:  rec.Confidence,
		PriceTarget: rec.PriceTarget,
		Reasoning:   rec.Reasoning,
		RiskLevel:   string(rec.RiskLevel),
		TimeHorizon: string(rec.TimeHorizon),
		Provider:    rec.Provider,
		RunID:       rec.RunID,
		CreatedAt:   rec.CreatedAt,
	}
}
