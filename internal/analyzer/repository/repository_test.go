package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang-stock-tracker/internal/entity"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.Stock{},
		&entity.StockPrice{},
		&entity.TechnicalIndicator{},
		&entity.Recommendation{},
		&entity.WatchlistItem{},
		&entity.AnalysisRun{},
	))
	return db
}

func seedStock(t *testing.T, db *gorm.DB, symbol string) *entity.Stock {
	t.Helper()
	stock := &entity.Stock{Symbol: symbol, Name: symbol + " Corp"}
	require.NoError(t, NewStocksRepository(db).Create(context.Background(), stock))
	return stock
}

func TestStocksRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewStocksRepository(db)
	ctx := context.Background()

	missing, err := repo.FindBySymbol(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Create(ctx, &entity.Stock{Symbol: "msft", Name: "Microsoft"}))
	found, err := repo.FindBySymbol(ctx, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "MSFT", found.Symbol)

	found.Sector = "Technology"
	require.NoError(t, repo.Update(ctx, found))
	again, err := repo.FindBySymbol(ctx, "msft")
	require.NoError(t, err)
	assert.Equal(t, "Technology", again.Sector)
}

func TestStockPriceRepository_UpsertDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	stock := seedStock(t, db, "AAPL")
	repo := NewStockPriceRepository(db)

	day1 := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, repo.Upsert(ctx, []entity.StockPrice{
		{StockID: stock.ID, Date: day1, Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10},
		{StockID: stock.ID, Date: day2, Open: 2, High: 3, Low: 2, Close: 2.5, Volume: 20},
	}))
	require.NoError(t, repo.Upsert(ctx, []entity.StockPrice{
		{StockID: stock.ID, Date: day2, Open: 2, High: 3, Low: 2, Close: 2.75, Volume: 25},
	}))

	var count int64
	require.NoError(t, db.Model(&entity.StockPrice{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	prices, err := repo.FindBySymbol(ctx, "AAPL", 50)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 2.75, prices[0].Close)
	assert.EqualValues(t, 25, prices[0].Volume)
	assert.Equal(t, 1.5, prices[1].Close)

	limited, err := repo.FindBySymbol(ctx, "AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStockPriceRepository_RejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	stock := seedStock(t, db, "AAPL")
	err := NewStockPriceRepository(db).Upsert(context.Background(), []entity.StockPrice{
		{StockID: stock.ID, Date: time.Now(), Close: 0},
	})
	assert.ErrorIs(t, err, entity.ErrInvalidPrice)
}

func TestTechnicalIndicatorRepository_UpsertDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	stock := seedStock(t, db, "AAPL")
	repo := NewTechnicalIndicatorRepository(db)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	buy := string(entity.ActionBuy)
	hold := string(entity.ActionHold)

	for _, v := range []float64{25, 45} {
		signal := &buy
		if v > 30 {
			signal = &hold
		}
		require.NoError(t, repo.Upsert(ctx, []entity.TechnicalIndicator{
			{StockID: stock.ID, Date: day, Name: entity.IndicatorRSI14, Value: v, Signal: signal},
			{StockID: stock.ID, Date: day, Name: entity.IndicatorSMA20, Value: v * 2},
		}))
	}

	var count int64
	require.NoError(t, db.Model(&entity.TechnicalIndicator{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	require.NoError(t, repo.Upsert(ctx, []entity.TechnicalIndicator{
		{StockID: stock.ID, Date: day.AddDate(0, 0, -1), Name: entity.IndicatorRSI14, Value: 10},
	}))

	latest, err := repo.FindLatest(ctx, stock.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, entity.IndicatorRSI14, latest[0].Name)
	assert.Equal(t, 45.0, latest[0].Value)
	require.NotNil(t, latest[0].Signal)
	assert.Equal(t, hold, *latest[0].Signal)

	none, err := repo.FindLatest(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecommendationRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRecommendationRepository(db)
	now := time.Now()

	recs := []entity.Recommendation{
		{StockID: 1, Symbol: "OLD", Type: entity.RecommendationTypeDailyOpportunity, Action: entity.ActionHold, Confidence: 0.5, CreatedAt: now.AddDate(0, 0, -30)},
		{StockID: 2, Symbol: "E", Type: entity.RecommendationTypeManual, Action: entity.ActionBuy, Confidence: 0.8, CreatedAt: now.Add(-48 * time.Hour)},
		{StockID: 3, Symbol: "F", Type: entity.RecommendationTypeDailyOpportunity, Action: entity.ActionSell, Confidence: 0.7, CreatedAt: now.Add(-time.Hour), RawResponse: datatypes.JSON(`{"text":"x"}`)},
		{StockID: 2, Symbol: "E", Type: entity.RecommendationTypeDailyOpportunity, Action: entity.ActionHold, Confidence: 0.6, CreatedAt: now.Add(-72 * time.Hour)},
	}
	for i := range recs {
		require.NoError(t, repo.Create(ctx, &recs[i]))
	}

	symbols, err := repo.ListRecentSymbols(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "E"}, symbols)

	daily, err := repo.List(ctx, RecommendationFilter{Type: entity.RecommendationTypeDailyOpportunity})
	require.NoError(t, err)
	assert.Len(t, daily, 3)
	assert.Equal(t, "F", daily[0].Symbol)

	bySymbol, err := repo.List(ctx, RecommendationFilter{Symbol: "e", Limit: 1})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, entity.ActionBuy, bySymbol[0].Action)

	require.NoError(t, repo.Delete(ctx, recs[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, recs[0].ID), gorm.ErrRecordNotFound)

	bad := entity.Recommendation{Symbol: "X", Action: entity.ActionBuy, Confidence: 2}
	assert.ErrorIs(t, repo.Create(ctx, &bad), entity.ErrInvalidRecommendation)
}

func TestWatchlistRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewWatchlistRepository(db)

	require.NoError(t, repo.Add(ctx, &entity.WatchlistItem{UserID: 1, Symbol: "a"}))
	require.NoError(t, repo.Add(ctx, &entity.WatchlistItem{UserID: 2, Symbol: "B"}))
	require.NoError(t, repo.Add(ctx, &entity.WatchlistItem{UserID: 2, Symbol: "A"}))
	require.NoError(t, repo.Add(ctx, &entity.WatchlistItem{UserID: 1, Symbol: "A"}))

	symbols, err := repo.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, symbols)

	items, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, repo.Remove(ctx, 2, "b"))
	assert.ErrorIs(t, repo.Remove(ctx, 2, "b"), gorm.ErrRecordNotFound)
}

func TestAnalysisRunRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAnalysisRunRepository(db)

	last, err := repo.FindLast(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	started := time.Now().Add(-time.Minute)
	first := &entity.AnalysisRun{ID: "run-1", Type: entity.RecommendationTypeDailyOpportunity, Status: entity.RunStatusRunning, Symbols: pq.StringArray{"A", "B"}, StartedAt: started.Add(-time.Hour)}
	second := &entity.AnalysisRun{ID: "run-2", Type: entity.RecommendationTypeManual, Status: entity.RunStatusRunning, Symbols: pq.StringArray{"C"}, StartedAt: started}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	second.Status = entity.RunStatusCompleted
	second.AnalyzedCount = 1
	second.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	require.NoError(t, repo.Update(ctx, second))

	last, err = repo.FindLast(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, entity.RunStatusCompleted, last.Status)
	assert.True(t, last.CompletedAt.Valid)

	got, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"A", "B"}, got.Symbols)

	all, err := repo.FindAll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
