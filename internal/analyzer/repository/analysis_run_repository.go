package repository

import (
	"context"
	"errors"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
)

// AnalysisRunRepository stores the history of pipeline runs.
type AnalysisRunRepository interface {
	Create(ctx context.Context, run *entity.AnalysisRun) error
	Update(ctx context.Context, run *entity.AnalysisRun) error
	FindByID(ctx context.Context, id string) (*entity.AnalysisRun, error)
	FindLast(ctx context.Context) (*entity.AnalysisRun, error)
	FindAll(ctx context.Context, limit int) ([]entity.AnalysisRun, error)
}

func NewAnalysisRunRepository(db *gorm.DB) AnalysisRunRepository {
	return &analysisRunRepository{db: db}
}

type analysisRunRepository struct {
	db *gorm.DB
}

func (r *analysisRunRepository) Create(ctx context.Context, run *entity.AnalysisRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *analysisRunRepository) Update(ctx context.Context, run *entity.AnalysisRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *analysisRunRepository) FindByID(ctx context.Context, id string) (*entity.AnalysisRun, error) {
	var run entity.AnalysisRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FindLast returns the most recently started run, or nil, nil if there is none.
func (r *analysisRunRepository) FindLast(ctx context.Context) (*entity.AnalysisRun, error) {
	var run entity.AnalysisRun
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *analysisRunRepository) FindAll(ctx context.Context, limit int) ([]entity.AnalysisRun, error) {
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []entity.AnalysisRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
