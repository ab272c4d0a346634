package entity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPrice = errors.New("invalid price point")

// StockPrice is one daily OHLCV bar. (stock_id, date) is unique.
type StockPrice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StockID   uint      `gorm:"not null;uniqueIndex:idx_stock_prices_stock_date" json:"stock_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_stock_prices_stock_date" json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `gorm:"not null" json:"close"`
	Volume    int64     `json:"volume"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StockPrice) TableName() string {
	return "stock_prices"
}

// Validate checks close > 0 and volume >= 0.
func (p StockPrice) Validate() error {
	if p.Close <= 0 {
		return fmt.Errorf("%w: close must be positive, got %v", ErrInvalidPrice, p.Close)
	}
	if p.Volume < 0 {
		return fmt.Errorf("%w: volume must not be negative, got %d", ErrInvalidPrice, p.Volume)
	}
	return nil
}
