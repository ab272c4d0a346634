package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockPriceRepository stores daily bars, deduplicated on (stock_id, date).
type StockPriceRepository interface {
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.StockPrice, error)
	Upsert(ctx context.Context, prices []entity.StockPrice) error
}

type stockPriceRepository struct {
	db *gorm.DB
}

func NewStockPriceRepository(db *gorm.DB) StockPriceRepository {
	return &stockPriceRepository{db: db}
}

// FindBySymbol returns up to limit bars, most recent first.
func (r *stockPriceRepository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.StockPrice, error) {
	var prices []entity.StockPrice
	q := r.db.WithContext(ctx).
		Joins("JOIN stocks ON stocks.id = stock_prices.stock_id").
		Where("stocks.symbol = ?", strings.ToUpper(symbol)).
		Order("stock_prices.date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// Upsert validates and writes prices; an existing (stock_id, date) row is overwritten.
func (r *stockPriceRepository) Upsert(ctx context.Context, prices []entity.StockPrice) error {
	if len(prices) == 0 {
		return nil
	}
	for _, p := range prices {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("price for stock %d on %s: %w", p.StockID, p.Date.Format("2006-01-02"), err)
		}
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "updated_at"}),
	}).Create(&prices).Error
}
