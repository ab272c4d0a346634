package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/pkg/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Quote is the stock metadata plus daily bars returned by the chart API.
type Quote struct {
	Stock  entity.Stock
	Prices []entity.StockPrice // most recent first, StockID unset
}

// YahooFinanceRepository fetches quotes from the public Yahoo chart API.
type YahooFinanceRepository interface {
	GetQuote(ctx context.Context, symbol string, days int) (*Quote, error)
}

type yahooFinanceRepository struct {
	cfg            config.YahooFinance
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	cache          redis.Cmdable
	cacheTTL       time.Duration
}

// NewYahooFinanceRepository creates the repository. cache may be nil.
func NewYahooFinanceRepository(cfg config.YahooFinance, log *logger.Logger, cache redis.Cmdable) YahooFinanceRepository {
	requestLimiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MaxRequestPerMinute > 0 {
		secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)
		requestLimiter = rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	}
	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: config.MustDuration(cfg.Timeout, 10*time.Second),
		},
		requestLimiter: requestLimiter,
		cache:          cache,
		cacheTTL:       config.MustDuration(cfg.CacheTTL, 15*time.Minute),
	}
}

// GetQuote returns dto.ErrDataUnavailable when Yahoo knows nothing about symbol.
func (r *yahooFinanceRepository) GetQuote(ctx context.Context, symbol string, days int) (*Quote, error) {
	symbol = strings.ToUpper(symbol)
	rng := chartRange(days)

	body, err := r.fetchChart(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}

	var chart dto.YahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode yahoo chart for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo %s: %s", dto.ErrDataUnavailable, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", dto.ErrDataUnavailable, symbol)
	}

	return toQuote(symbol, chart.Chart.Result[0]), nil
}

func (r *yahooFinanceRepository) fetchChart(ctx context.Context, symbol, rng string) ([]byte, error) {
	cacheKey := fmt.Sprintf("yahoo:chart:%s:%s", symbol, rng)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "Failed to read yahoo chart from cache", logger.ErrorField(err), logger.StringField("symbol", symbol))
		}
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		strings.TrimRight(r.cfg.BaseURL, "/"), url.PathEscape(symbol), rng)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Yahoo Finance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: yahoo has no chart for %s", dto.ErrDataUnavailable, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		r.log.WarnContext(ctx, "Received non-OK response from Yahoo Finance", logger.IntField("status_code", resp.StatusCode), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("received non-OK response from Yahoo Finance: %d", resp.StatusCode)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, body, r.cacheTTL).Err(); err != nil {
			r.log.WarnContext(ctx, "Failed to cache yahoo chart", logger.ErrorField(err), logger.StringField("symbol", symbol))
		}
	}
	return body, nil
}

func toQuote(symbol string, result dto.YahooChartResult) *Quote {
	meta := result.Meta
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}

	q := &Quote{
		Stock: entity.Stock{
			Symbol:           symbol,
			Name:             name,
			Exchange:         exchange,
			Currency:         meta.Currency,
			LastPrice:        meta.RegularMarketPrice,
			FiftyTwoWeekHigh: meta.FiftyTwoWeekHigh,
			FiftyTwoWeekLow:  meta.FiftyTwoWeekLow,
		},
	}

	if len(result.Indicators.Quote) == 0 {
		return q
	}
	bars := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		c := valueAt(bars.Close, i)
		if c <= 0 {
			// null bars show up on holidays and halted sessions
			continue
		}
		var volume int64
		if i < len(bars.Volume) && bars.Volume[i] != nil {
			volume = *bars.Volume[i]
		}
		day := time.Unix(ts, 0).UTC()
		q.Prices = append(q.Prices, entity.StockPrice{
			Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:   valueAt(bars.Open, i),
			High:   valueAt(bars.High, i),
			Low:    valueAt(bars.Low, i),
			Close:  c,
			Volume: volume,
		})
	}

	sort.Slice(q.Prices, func(i, j int) bool { return q.Prices[i].Date.After(q.Prices[j].Date) })
	return q
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

func chartRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}
