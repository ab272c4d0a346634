package repository

import (
	"context"
	"strings"

	"golang-stock-tracker/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchlistRepository stores user watchlists.
type WatchlistRepository interface {
	ListSymbols(ctx context.Context) ([]string, error)
	List(ctx context.Context, userID uint) ([]entity.WatchlistItem, error)
	Add(ctx context.Context, item *entity.WatchlistItem) error
	Remove(ctx context.Context, userID uint, symbol string) error
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

// ListSymbols returns every symbol on any user's watchlist, in the order first added.
func (r *watchlistRepository) ListSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&entity.WatchlistItem{}).
		Group("symbol").
		Order("MIN(id)").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

func (r *watchlistRepository) List(ctx context.Context, userID uint) ([]entity.WatchlistItem, error) {
	var items []entity.WatchlistItem
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Add inserts the item; adding an existing (user, symbol) pair is a no-op.
func (r *watchlistRepository) Add(ctx context.Context, item *entity.WatchlistItem) error {
	item.Symbol = strings.ToUpper(item.Symbol)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

func (r *watchlistRepository) Remove(ctx context.Context, userID uint, symbol string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, strings.ToUpper(symbol)).
		Delete(&entity.WatchlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
