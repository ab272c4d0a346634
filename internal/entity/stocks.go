package entity

import (
	"time"
)

// Stock is a tradable symbol and its latest quote metadata.
type Stock struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Symbol           string    `gorm:"size:20;uniqueIndex;not null" json:"symbol"`
	Name             string    `gorm:"not null" json:"name"`
	Exchange         string    `json:"exchange"`
	Sector           string    `json:"sector,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	MarketCap        float64   `json:"market_cap,omitempty"`
	LastPrice        float64   `json:"last_price,omitempty"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}
