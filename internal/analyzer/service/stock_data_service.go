package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/analyzer/repository"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/utils"

	"github.com/patrickmn/go-cache"
)

const (
	stockInfoBatchSize = 5
	// bars older than this are refreshed from the quote API
	maxLocalPriceAge = 96 * time.Hour
)

// StockDataService resolves stock info and price history, preferring local data.
type StockDataService interface {
	GetStockInfo(ctx context.Context, symbol string) (*entity.Stock, error)
	GetStockPrices(ctx context.Context, symbol string, days int) ([]entity.StockPrice, error)
	GetMultipleStockInfo(ctx context.Context, symbols []string) []*entity.Stock
}

type stockDataService struct {
	stocksRepo repository.StocksRepository
	pricesRepo repository.StockPriceRepository
	yahooRepo  repository.YahooFinanceRepository
	cache      *cache.Cache
	log        *logger.Logger
	now        func() time.Time
}

func NewStockDataService(stocksRepo repository.StocksRepository, pricesRepo repository.StockPriceRepository, yahooRepo repository.YahooFinanceRepository, log *logger.Logger) StockDataService {
	return &stockDataService{
		stocksRepo: stocksRepo,
		pricesRepo: pricesRepo,
		yahooRepo:  yahooRepo,
		cache:      cache.New(15*time.Minute, 30*time.Minute),
		log:        log,
		now:        time.Now,
	}
}

// GetStockInfo looks in memory, then the database, then the quote API. A stock
// seen for the first time is created. Unknown symbols yield dto.ErrDataUnavailable.
func (s *stockDataService) GetStockInfo(ctx context.Context, symbol string) (*entity.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", dto.ErrDataUnavailable)
	}

	if cached, ok := s.cache.Get(symbol); ok {
		return cached.(*entity.Stock), nil
	}

	stock, err := s.stocksRepo.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock %s: %w", symbol, err)
	}
	if stock != nil {
		s.cache.SetDefault(symbol, stock)
		return stock, nil
	}

	quote, err := s.yahooRepo.GetQuote(ctx, symbol, 5)
	if err != nil {
		if errors.Is(err, dto.ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", dto.ErrDataUnavailable, err)
	}

	stock = &quote.Stock
	if err := s.stocksRepo.Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to create stock %s: %w", symbol, err)
	}
	s.log.InfoContext(ctx, "Created stock from quote API", logger.StringField("symbol", symbol))

	s.cache.SetDefault(symbol, stock)
	return stock, nil
}

// GetStockPrices returns up to days bars, most recent first. Local bars are used when
// there are enough of them and they are fresh; otherwise the quote API is consulted
// and its bars upserted.
func (s *stockDataService) GetStockPrices(ctx context.Context, symbol string, days int) ([]entity.StockPrice, error) {
	stock, err := s.GetStockInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}

	local, err := s.pricesRepo.FindBySymbol(ctx, stock.Symbol, days)
	if err != nil {
		return nil, fmt.Errorf("failed to find prices for %s: %w", stock.Symbol, err)
	}
	if len(local) >= days && s.isFresh(local[0]) {
		return local, nil
	}

	quote, err := s.yahooRepo.GetQuote(ctx, stock.Symbol, days)
	if err != nil {
		if len(local) > 0 {
			s.log.WarnContext(ctx, "Quote API unavailable, using stored prices",
				logger.StringField("symbol", stock.Symbol), logger.IntField("bars", len(local)), logger.ErrorField(err))
			return local, nil
		}
		return nil, fmt.Errorf("%w: no prices for %s: %v", dto.ErrDataUnavailable, stock.Symbol, err)
	}

	prices := make([]entity.StockPrice, 0, len(quote.Prices))
	for _, p := range quote.Prices {
		p.StockID = stock.ID
		if p.Validate() != nil {
			continue
		}
		prices = append(prices, p)
	}
	if len(prices) == 0 {
		if len(local) > 0 {
			return local, nil
		}
		return nil, fmt.Errorf("%w: quote API returned no bars for %s", dto.ErrDataUnavailable, stock.Symbol)
	}

	if err := s.pricesRepo.Upsert(ctx, prices); err != nil {
		return nil, fmt.Errorf("failed to upsert prices for %s: %w", stock.Symbol, err)
	}

	if quote.Stock.LastPrice > 0 {
		stock.LastPrice = quote.Stock.LastPrice
		stock.FiftyTwoWeekHigh = quote.Stock.FiftyTwoWeekHigh
		stock.FiftyTwoWeekLow = quote.Stock.FiftyTwoWeekLow
		if err := s.stocksRepo.Update(ctx, stock); err != nil {
			s.log.WarnContext(ctx, "Failed to refresh stock quote", logger.StringField("symbol", stock.Symbol), logger.ErrorField(err))
		}
	}

	return s.pricesRepo.FindBySymbol(ctx, stock.Symbol, days)
}

func (s *stockDataService) isFresh(latest entity.StockPrice) bool {
	return s.now().Sub(latest.Date) <= maxLocalPriceAge
}

// GetMultipleStockInfo resolves symbols five at a time. The result is aligned with
// symbols; unavailable entries are nil.
func (s *stockDataService) GetMultipleStockInfo(ctx context.Context, symbols []string) []*entity.Stock {
	out := make([]*entity.Stock, len(symbols))

	for start := 0; start < len(symbols); start += stockInfoBatchSize {
		end := start + stockInfoBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			utils.GoSafe(func() {
				defer wg.Done()
				stock, err := s.GetStockInfo(ctx, symbols[i])
				if err != nil {
					s.log.WarnContext(ctx, "Failed to get stock info", logger.StringField("symbol", symbols[i]), logger.ErrorField(err))
					return
				}
				out[i] = stock
			})
		}
		wg.Wait()
	}
	return out
}
