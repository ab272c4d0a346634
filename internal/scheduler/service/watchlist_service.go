package service

import (
	"context"
	"strings"

	"golang-stock-tracker/internal/analyzer/repository"
	analyzer "golang-stock-tracker/internal/analyzer/service"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/pkg/logger"
)

// WatchlistService maintains the user watchlists that feed the daily run.
type WatchlistService interface {
	List(ctx context.Context, userID uint) ([]*dto.WatchlistItemResponse, error)
	Add(ctx context.Context, req *dto.AddWatchlistRequest) (*dto.WatchlistItemResponse, error)
	Remove(ctx context.Context, userID uint, symbol string) error
}

// NewWatchlistService creates a new watchlist service. Listed entries are enriched
// with stock info from stockData.
func NewWatchlistService(watchlistRepo repository.WatchlistRepository, stockData analyzer.StockDataService, logger *logger.Logger) WatchlistService {
	return &watchlistService{
		watchlistRepo: watchlistRepo,
		stockData:     stockData,
		logger:        logger,
	}
}

type watchlistService struct {
	watchlistRepo repository.WatchlistRepository
	stockData     analyzer.StockDataService
	logger        *logger.Logger
}

func (s *watchlistService) List(ctx context.Context, userID uint) ([]*dto.WatchlistItemResponse, error) {
	items, err := s.watchlistRepo.List(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list watchlist", logger.ErrorField(err), logger.Field("user_id", userID))
		return nil, err
	}

	symbols := make([]string, len(items))
	for i := range items {
		symbols[i] = items[i].Symbol
	}
	stocks := s.stockData.GetMultipleStockInfo(ctx, symbols)

	responses := make([]*dto.WatchlistItemResponse, 0, len(items))
	for i := range items {
		resp := toWatchlistResponse(&items[i])
		if i < len(stocks) && stocks[i] != nil {
			resp.Name = stocks[i].Name
			resp.Exchange = stocks[i].Exchange
			resp.LastPrice = stocks[i].LastPrice
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Add stores the symbol upper-cased. Adding an existing symbol is not an error.
func (s *watchlistService) Add(ctx context.Context, req *dto.AddWatchlistRequest) (*dto.WatchlistItemResponse, error) {
	item := &entity.WatchlistItem{
		UserID: req.UserID,
		Symbol: strings.ToUpper(strings.TrimSpace(req.Symbol)),
	}
	if err := s.watchlistRepo.Add(ctx, item); err != nil {
		s.logger.Error("Failed to add watchlist item", logger.ErrorField(err), logger.StringField("symbol", item.Symbol))
		return nil, err
	}
	return toWatchlistResponse(item), nil
}

func (s *watchlistService) Remove(ctx context.Context, userID uint, symbol string) error {
	return s.watchlistRepo.Remove(ctx, userID, strings.ToUpper(strings.TrimSpace(symbol)))
}

func toWatchlistResponse(item *entity.WatchlistItem) *dto.WatchlistItemResponse {
	return &dto.WatchlistItemResponse{
		ID:        item.ID,
		UserID:    item.UserID,
		Symbol:    item.Symbol,
		CreatedAt: item.CreatedAt,
	}
}
