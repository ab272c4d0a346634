package repository

import (
	"context"
	"errors"
	"strings"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
)

// StocksRepository stores stock metadata.
type StocksRepository interface {
	FindBySymbol(ctx context.Context, symbol string) (*entity.Stock, error)
	Create(ctx context.Context, stock *entity.Stock) error
	Update(ctx context.Context, stock *entity.Stock) error
}

type stocksRepository struct {
	db *gorm.DB
}

func NewStocksRepository(db *gorm.DB) StocksRepository {
	return &stocksRepository{db: db}
}

// FindBySymbol returns nil, nil when the symbol is unknown.
func (r *stocksRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.Stock, error) {
	var stock entity.Stock
	err := r.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stocksRepository) Create(ctx context.Context, stock *entity.Stock) error {
	stock.Symbol = strings.ToUpper(stock.Symbol)
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *stocksRepository) Update(ctx context.Context, stock *entity.Stock) error {
	return r.db.WithContext(ctx).Save(stock).Error
}
