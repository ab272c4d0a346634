package repository

import (
	"context"
	"strings"
	"time"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
)

// RecommendationFilter narrows List results. Zero values are ignored.
type RecommendationFilter struct {
	Symbol string
	Type   entity.RecommendationType
	Limit  int
}

// RecommendationRepository stores AI verdicts.
type RecommendationRepository interface {
	Create(ctx context.Context, rec *entity.Recommendation) error
	ListRecentSymbols(ctx context.Context, since time.Time) ([]string, error)
	List(ctx context.Context, filter RecommendationFilter) ([]entity.Recommendation, error)
	Delete(ctx context.Context, id uint) error
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *entity.Recommendation) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListRecentSymbols returns the distinct symbols recommended since the given time,
// most recently recommended first.
func (r *recommendationRepository) ListRecentSymbols(ctx context.Context, since time.Time) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&entity.Recommendation{}).
		Where("created_at >= ?", since).
		Group("symbol").
		Order("MAX(created_at) DESC, symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

func (r *recommendationRepository) List(ctx context.Context, filter RecommendationFilter) ([]entity.Recommendation, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(filter.Symbol))
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []entity.Recommendation
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete removes a recommendation. Deleting an unknown id returns gorm.ErrRecordNotFound.
func (r *recommendationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&entity.Recommendation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
