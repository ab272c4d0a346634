package dto

import (
	"time"
)

// DefaultUserID owns watchlist entries created without an explicit user.
const DefaultUserID uint = 1

// AddWatchlistRequest adds a symbol to a user's watchlist.
type AddWatchlistRequest struct {
	UserID uint   `json:"user_id" default:"1" validate:"gte=1"`
	Symbol string `json:"symbol" validate:"required,max=20"`
}

// ListWatchlistRequest filters the watchlist by user.
type ListWatchlistRequest struct {
	UserID uint `query:"user_id" default:"1" validate:"gte=1"`
}

// WatchlistItemResponse is the API view of a watchlist entry.
type WatchlistItemResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Exchange  string    `json:"exchange,omitempty"`
	LastPrice float64   `json:"last_price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
