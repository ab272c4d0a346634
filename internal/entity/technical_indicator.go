package entity

import (
	"time"
)

const (
	IndicatorRSI14 = "RSI_14"
	IndicatorSMA20 = "SMA_20"
	IndicatorSMA50 = "SMA_50"
	IndicatorEMA12 = "EMA_12"
	IndicatorEMA26 = "EMA_26"
	IndicatorMACD  = "MACD"
)

// TechnicalIndicator is a computed indicator value keyed by (stock_id, date, name).
type TechnicalIndicator struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StockID   uint      `gorm:"not null;uniqueIndex:idx_technical_indicators_key" json:"stock_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_technical_indicators_key" json:"date"`
	Name      string    `gorm:"size:32;not null;uniqueIndex:idx_technical_indicators_key" json:"name"`
	Value     float64   `json:"value"`
	Signal    *string   `gorm:"size:8" json:"signal,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TechnicalIndicator) TableName() string {
	return "technical_indicators"
}
