package repository

import (
	"context"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TechnicalIndicatorRepository stores indicator values keyed by (stock_id, date, name).
type TechnicalIndicatorRepository interface {
	Upsert(ctx context.Context, indicators []entity.TechnicalIndicator) error
	FindLatest(ctx context.Context, stockID uint) ([]entity.TechnicalIndicator, error)
}

type technicalIndicatorRepository struct {
	db *gorm.DB
}

func NewTechnicalIndicatorRepository(db *gorm.DB) TechnicalIndicatorRepository {
	return &technicalIndicatorRepository{db: db}
}

func (r *technicalIndicatorRepository) Upsert(ctx context.Context, indicators []entity.TechnicalIndicator) error {
	if len(indicators) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "signal", "updated_at"}),
	}).Create(&indicators).Error
}

// FindLatest returns the indicators of the most recent date stored for stockID.
func (r *technicalIndicatorRepository) FindLatest(ctx context.Context, stockID uint) ([]entity.TechnicalIndicator, error) {
	var latest entity.TechnicalIndicator
	err := r.db.WithContext(ctx).Where("stock_id = ?", stockID).Order("date DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return nil, err
	}
	if latest.ID == 0 {
		return nil, nil
	}

	var indicators []entity.TechnicalIndicator
	err = r.db.WithContext(ctx).
		Where("stock_id = ? AND date = ?", stockID, latest.Date).
		Order("name").
		Find(&indicators).Error
	if err != nil {
		return nil, err
	}
	return indicators, nil
}
