package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	analyzerdto "golang-stock-tracker/internal/analyzer/dto"
	analyzerrepo "golang-stock-tracker/internal/analyzer/repository"
	analyzer "golang-stock-tracker/internal/analyzer/service"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCron struct {
	mu      sync.Mutex
	jobs    []func()
	started int
	stopped int
}

func (f *fakeCron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, cmd)
	return cron.EntryID(len(f.jobs)), nil
}

func (f *fakeCron) Remove(cron.EntryID) {}

func (f *fakeCron) Start() {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (f *fakeCron) fire() {
	f.mu.Lock()
	jobs := append([]func(){}, f.jobs...)
	f.mu.Unlock()
	for _, job := range jobs {
		job()
	}
}

type fakeStockData struct {
	unavailable map[string]bool
	blockOn     string
	release     chan struct{}
	entered     chan struct{}
}

func (f *fakeStockData) GetStockInfo(ctx context.Context, symbol string) (*entity.Stock, error) {
	if f.unavailable[symbol] {
		return nil, analyzerdto.ErrDataUnavailable
	}
	if symbol == f.blockOn {
		close(f.entered)
		<-f.release
	}
	return &entity.Stock{ID: uint(len(symbol)), Symbol: symbol, Name: symbol + " Corp"}, nil
}

func (f *fakeStockData) GetStockPrices(ctx context.Context, symbol string, days int) ([]entity.StockPrice, error) {
	prices := make([]entity.StockPrice, 0, 30)
	latest := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		prices = append(prices, entity.StockPrice{Date: latest.AddDate(0, 0, -i), Open: 10, High: 11, Low: 9, Close: 10 + float64(i%5), Volume: 100})
	}
	return prices, nil
}

func (f *fakeStockData) GetMultipleStockInfo(ctx context.Context, symbols []string) []*entity.Stock {
	return nil
}

type fakeAnalysis struct {
	mu        sync.Mutex
	analyzed  []string
	preferred string
}

func (f *fakeAnalysis) result(req *analyzerdto.AnalysisRequest) *analyzerdto.AnalysisResult {
	return &analyzerdto.AnalysisResult{
		Symbol:      req.Symbol(),
		Action:      entity.ActionBuy,
		Confidence:  0.7,
		Reasoning:   "trend",
		RiskLevel:   entity.RiskLow,
		TimeHorizon: entity.HorizonShortTerm,
		Provider:    "openai",
		RawResponse: `{"action":"BUY"}`,
	}
}

func (f *fakeAnalysis) Analyze(ctx context.Context, req *analyzerdto.AnalysisRequest, preferred string) *analyzerdto.AnalysisResult {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, req.Symbol())
	f.preferred = preferred
	f.mu.Unlock()
	return f.result(req)
}

func (f *fakeAnalysis) AnalyzeMultiple(ctx context.Context, reqs []*analyzerdto.AnalysisRequest) []*analyzerdto.AnalysisResult {
	out := make([]*analyzerdto.AnalysisResult, 0, len(reqs))
	for _, r := range reqs {
		f.mu.Lock()
		f.analyzed = append(f.analyzed, r.Symbol())
		f.mu.Unlock()
		out = append(out, f.result(r))
	}
	return out
}

func (f *fakeAnalysis) AvailableProviders() []string { return []string{"openai"} }

type fakeIndicatorRepo struct {
	mu   sync.Mutex
	rows []entity.TechnicalIndicator
	err  error
}

func (f *fakeIndicatorRepo) Upsert(ctx context.Context, rows []entity.TechnicalIndicator) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.rows = append(f.rows, rows...)
	f.mu.Unlock()
	return nil
}

func (f *fakeIndicatorRepo) FindLatest(ctx context.Context, stockID uint) ([]entity.TechnicalIndicator, error) {
	return nil, nil
}

type fakeRecRepo struct {
	mu     sync.Mutex
	recent []string
	saved  []entity.Recommendation
	since  time.Time
}

func (f *fakeRecRepo) Create(ctx context.Context, rec *entity.Recommendation) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = uint(len(f.saved) + 1)
	f.saved = append(f.saved, *rec)
	return nil
}

func (f *fakeRecRepo) ListRecentSymbols(ctx context.Context, since time.Time) ([]string, error) {
	f.since = since
	return f.recent, nil
}

func (f *fakeRecRepo) List(ctx context.Context, filter analyzerrepo.RecommendationFilter) ([]entity.Recommendation, error) {
	return f.saved, nil
}

func (f *fakeRecRepo) Delete(ctx context.Context, id uint) error { return nil }

type fakeWatchlistRepo struct {
	symbols []string
}

func (f *fakeWatchlistRepo) ListSymbols(ctx context.Context) ([]string, error) { return f.symbols, nil }
func (f *fakeWatchlistRepo) List(ctx context.Context, userID uint) ([]entity.WatchlistItem, error) {
	return nil, nil
}
func (f *fakeWatchlistRepo) Add(ctx context.Context, item *entity.WatchlistItem) error { return nil }
func (f *fakeWatchlistRepo) Remove(ctx context.Context, userID uint, symbol string) error {
	return nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[string]entity.AnalysisRun
	last string
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[string]entity.AnalysisRun)}
}

func (f *fakeRunRepo) Create(ctx context.Context, run *entity.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	f.last = run.ID
	return nil
}

func (f *fakeRunRepo) Update(ctx context.Context, run *entity.AnalysisRun) error {
	return f.Create(ctx, run)
}

func (f *fakeRunRepo) FindByID(ctx context.Context, id string) (*entity.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &run, nil
}

func (f *fakeRunRepo) FindLast(ctx context.Context) (*entity.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == "" {
		return nil, nil
	}
	run := f.runs[f.last]
	return &run, nil
}

func (f *fakeRunRepo) FindAll(ctx context.Context, limit int) ([]entity.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AnalysisRun
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) SendMessage(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

type brokenStocksRepo struct {
	err error
}

func (r *brokenStocksRepo) FindBySymbol(ctx context.Context, symbol string) (*entity.Stock, error) {
	return nil, r.err
}

func (r *brokenStocksRepo) Create(ctx context.Context, stock *entity.Stock) error { return r.err }
func (r *brokenStocksRepo) Update(ctx context.Context, stock *entity.Stock) error { return r.err }

type emptyStocksRepo struct{}

func (emptyStocksRepo) FindBySymbol(ctx context.Context, symbol string) (*entity.Stock, error) {
	return nil, nil
}

func (emptyStocksRepo) Create(ctx context.Context, stock *entity.Stock) error { return nil }
func (emptyStocksRepo) Update(ctx context.Context, stock *entity.Stock) error { return nil }

type emptyPricesRepo struct{}

func (emptyPricesRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.StockPrice, error) {
	return nil, nil
}

func (emptyPricesRepo) Upsert(ctx context.Context, prices []entity.StockPrice) error { return nil }

type unknownSymbolQuotes struct{}

func (unknownSymbolQuotes) GetQuote(ctx context.Context, symbol string, days int) (*analyzerrepo.Quote, error) {
	return nil, analyzerdto.ErrDataUnavailable
}

type schedulerFixture struct {
	svc        *schedulerService
	cron       *fakeCron
	stockData  *fakeStockData
	analysis   *fakeAnalysis
	indicators *fakeIndicatorRepo
	recs       *fakeRecRepo
	runs       *fakeRunRepo
	notifier   *fakeNotifier
}

var fixtureNow = time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC)

func newSchedulerFixture(watchlist, popular, recent []string) *schedulerFixture {
	f := &schedulerFixture{
		cron:       &fakeCron{},
		stockData:  &fakeStockData{unavailable: map[string]bool{}},
		analysis:   &fakeAnalysis{},
		indicators: &fakeIndicatorRepo{},
		recs:       &fakeRecRepo{recent: recent},
		runs:       newFakeRunRepo(),
		notifier:   &fakeNotifier{},
	}

	cfg := config.Scheduler{
		CronExpression:           "0 18 * * *",
		TimeZone:                 "America/New_York",
		SymbolDelay:              "500ms",
		PriceHistoryLimit:        50,
		RecentRecommendationDays: 7,
		PopularSymbols:           popular,
		MarketOpen:               "09:30",
		MarketClose:              "16:00",
	}
	deps := SchedulerDependencies{
		StockData:       f.stockData,
		Analysis:        f.analysis,
		Indicators:      f.indicators,
		Recommendations: f.recs,
		Watchlist:       &fakeWatchlistRepo{symbols: watchlist},
		Runs:            f.runs,
		Notifier:        f.notifier,
		Runner:          f.cron,
	}

	f.svc = NewSchedulerService(deps, cfg, 5, logger.NewNop()).(*schedulerService)
	f.svc.now = func() time.Time { return fixtureNow }
	f.svc.sleep = func(context.Context, time.Duration) {}
	return f
}

func TestSymbolsToAnalyze_Union(t *testing.T) {
	f := newSchedulerFixture([]string{"A", "B"}, []string{"B", "C"}, []string{"D", "A", "E"})

	symbols, err := f.svc.SymbolsToAnalyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, symbols)
	assert.Equal(t, fixtureNow.AddDate(0, 0, -7), f.recs.since)
}

func TestSymbolsToAnalyze_NormalizesCase(t *testing.T) {
	f := newSchedulerFixture([]string{"aapl"}, []string{"AAPL", " msft "}, nil)

	symbols, err := f.svc.SymbolsToAnalyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestStartStop_Idempotent(t *testing.T) {
	f := newSchedulerFixture(nil, nil, nil)

	require.NoError(t, f.svc.Start(context.Background()))
	require.NoError(t, f.svc.Start(context.Background()))
	assert.True(t, f.svc.IsRunning())
	assert.Equal(t, 1, f.cron.started)
	assert.Len(t, f.cron.jobs, 1)

	f.svc.Stop()
	f.svc.Stop()
	assert.False(t, f.svc.IsRunning())
	assert.Equal(t, 1, f.cron.stopped)

	require.NoError(t, f.svc.Start(context.Background()))
	assert.Equal(t, 2, f.cron.started)
	assert.Len(t, f.cron.jobs, 1)
}

func TestStart_InvalidCron(t *testing.T) {
	f := newSchedulerFixture(nil, nil, nil)
	f.svc.cfg.CronExpression = "not a cron"

	assert.Error(t, f.svc.Start(context.Background()))
	assert.False(t, f.svc.IsRunning())
}

func TestPerformScheduledAnalysis_SkipsUnavailableSymbols(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL", "GONE"}, []string{"MSFT"}, nil)
	f.stockData.unavailable["GONE"] = true

	run, err := f.svc.PerformScheduledAnalysis(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.AnalyzedCount)
	assert.Equal(t, 1, run.SkippedCount)
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.analysis.analyzed)

	require.Len(t, f.recs.saved, 2)
	for _, rec := range f.recs.saved {
		assert.Equal(t, entity.RecommendationTypeDailyOpportunity, rec.Type)
		require.NotNil(t, rec.RunID)
		assert.Equal(t, run.ID, *rec.RunID)
	}

	stored, err := f.runs.FindByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, stored.Status)
	assert.True(t, stored.CompletedAt.Valid)

	assert.NotEmpty(t, f.indicators.rows)
	require.NotEmpty(t, f.notifier.messages)
	assert.Contains(t, f.notifier.messages[0], "GONE")
}

func TestPerformScheduledAnalysis_PersistenceErrorPropagates(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL"}, nil, nil)
	f.indicators.err = errors.New("disk full")

	run, err := f.svc.PerformScheduledAnalysis(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, run)
	assert.Equal(t, entity.RunStatusFailed, run.Status)
	assert.Empty(t, f.recs.saved)

	stored, _ := f.runs.FindByID(context.Background(), run.ID)
	assert.Equal(t, entity.RunStatusFailed, stored.Status)
	assert.True(t, strings.Contains(stored.ErrorMessage.String, "disk full"))
}

func TestTriggerManualAnalysis(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL"}, []string{"MSFT"}, nil)

	run, err := f.svc.TriggerManualAnalysis(context.Background(), []string{"nvda", "NVDA", "tsla"})

	require.NoError(t, err)
	assert.Equal(t, entity.RecommendationTypeManual, run.Type)
	assert.Equal(t, []string{"NVDA", "TSLA"}, f.analysis.analyzed)
	for _, rec := range f.recs.saved {
		assert.Equal(t, entity.RecommendationTypeManual, rec.Type)
	}
}

func TestTriggerManualAnalysis_WithoutSymbolsUsesSchedule(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL"}, []string{"MSFT"}, nil)

	run, err := f.svc.TriggerManualAnalysis(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, entity.RecommendationTypeDailyOpportunity, run.Type)
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.analysis.analyzed)
}

func TestCronTick_RunsAnalysis(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL"}, nil, nil)
	require.NoError(t, f.svc.Start(context.Background()))

	f.cron.fire()

	assert.Equal(t, []string{"AAPL"}, f.analysis.analyzed)
	assert.Len(t, f.recs.saved, 1)
}

func TestCronTick_SkippedWhileRunInProgress(t *testing.T) {
	f := newSchedulerFixture([]string{"SLOW"}, nil, nil)
	f.stockData.blockOn = "SLOW"
	f.stockData.entered = make(chan struct{})
	f.stockData.release = make(chan struct{})
	require.NoError(t, f.svc.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.svc.TriggerManualAnalysis(context.Background(), []string{"SLOW"})
	}()
	<-f.stockData.entered

	_, err := f.svc.PerformScheduledAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	f.cron.fire()

	close(f.stockData.release)
	<-done

	assert.Equal(t, []string{"SLOW"}, f.analysis.analyzed)
	assert.Len(t, f.recs.saved, 1)
}

func TestAnalyzeSymbol_Custom(t *testing.T) {
	f := newSchedulerFixture(nil, nil, nil)

	rec, err := f.svc.AnalyzeSymbol(context.Background(), "amd", "anthropic")

	require.NoError(t, err)
	assert.Equal(t, "AMD", rec.Symbol)
	assert.Equal(t, entity.RecommendationTypeCustom, rec.Type)
	assert.Nil(t, rec.RunID)
	assert.Equal(t, "anthropic", f.analysis.preferred)
	assert.NotEmpty(t, rec.RawResponse)
}

func TestAnalyzeSymbol_Unavailable(t *testing.T) {
	f := newSchedulerFixture(nil, nil, nil)
	f.stockData.unavailable["NOPE"] = true

	_, err := f.svc.AnalyzeSymbol(context.Background(), "nope", "")

	assert.ErrorIs(t, err, analyzerdto.ErrDataUnavailable)
}

func TestStatus(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL"}, nil, nil)

	status, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.NextRun)
	assert.Nil(t, status.LastRun)
	assert.Equal(t, "America/New_York", status.TimeZone)
	assert.Equal(t, []string{"openai"}, status.Providers)
	assert.Equal(t, "09:30", status.MarketHours.Open)

	require.NoError(t, f.svc.Start(context.Background()))
	_, err = f.svc.PerformScheduledAnalysis(context.Background())
	require.NoError(t, err)

	status, err = f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)
	require.NotNil(t, status.NextRun)
	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, time.Date(2024, 3, 9, 18, 0, 0, 0, ny).Equal(*status.NextRun), "next run %s", status.NextRun)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "completed", status.LastRun.Status)
	require.NotNil(t, status.LastRun.Output)
	assert.Len(t, status.LastRun.Output.Verdicts, 1)
}

func TestPerformScheduledAnalysis_DatabaseOutageFailsRun(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL", "MSFT"}, nil, nil)
	stocks := &brokenStocksRepo{err: errors.New("dial tcp 127.0.0.1:5432: connection refused")}
	f.svc.deps.StockData = analyzer.NewStockDataService(stocks, emptyPricesRepo{}, unknownSymbolQuotes{}, logger.NewNop())

	run, err := f.svc.PerformScheduledAnalysis(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "connection refused")
	require.NotNil(t, run)
	assert.Equal(t, entity.RunStatusFailed, run.Status)
	assert.Empty(t, f.analysis.analyzed)
	assert.Empty(t, f.recs.saved)

	stored, err := f.runs.FindByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFailed, stored.Status)
	require.NotEmpty(t, f.notifier.messages)
}

func TestPerformScheduledAnalysis_UnknownSymbolsAreSkippedWithRealStockData(t *testing.T) {
	f := newSchedulerFixture([]string{"AAPL", "MSFT"}, nil, nil)
	f.svc.deps.StockData = analyzer.NewStockDataService(emptyStocksRepo{}, emptyPricesRepo{}, unknownSymbolQuotes{}, logger.NewNop())

	run, err := f.svc.PerformScheduledAnalysis(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.AnalyzedCount)
	assert.Equal(t, 2, run.SkippedCount)
}

func TestStartManualAnalysis_ClaimsRunSlotBeforeReturning(t *testing.T) {
	f := newSchedulerFixture(nil, nil, nil)
	f.stockData.blockOn = "SLOW"
	f.stockData.entered = make(chan struct{})
	f.stockData.release = make(chan struct{})

	require.NoError(t, f.svc.StartManualAnalysis(context.Background(), []string{"slow"}))
	assert.True(t, f.svc.RunInProgress())

	<-f.stockData.entered
	assert.ErrorIs(t, f.svc.StartManualAnalysis(context.Background(), []string{"AAPL"}), ErrRunInProgress)
	_, err := f.svc.PerformScheduledAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(f.stockData.release)
	assert.Eventually(t, func() bool { return !f.svc.RunInProgress() }, 2*time.Second, 10*time.Millisecond)

	f.analysis.mu.Lock()
	defer f.analysis.mu.Unlock()
	assert.Equal(t, []string{"SLOW"}, f.analysis.analyzed)
}
