package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	analyzerdto "golang-stock-tracker/internal/analyzer/dto"
	analyzerrepo "golang-stock-tracker/internal/analyzer/repository"
	analyzer "golang-stock-tracker/internal/analyzer/service"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/internal/indicator"
	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/metrics"
	"golang-stock-tracker/pkg/telegram"
	"golang-stock-tracker/pkg/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
)

var (
	// ErrPersistence wraps database failures that abort a run.
	ErrPersistence = errors.New("persistence failure")
	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("analysis run already in progress")
)

const (
	defaultSymbolDelay       = 500 * time.Millisecond
	defaultPriceHistoryLimit = 50
	defaultRecentDays        = 7
)

// CronRunner is the subset of *cron.Cron the scheduler drives.
type CronRunner interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Remove(id cron.EntryID)
	Start()
	Stop() context.Context
}

// SchedulerService runs the daily analysis pipeline.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	RunInProgress() bool
	Status(ctx context.Context) (*dto.StatusResponse, error)
	SymbolsToAnalyze(ctx context.Context) ([]string, error)
	PerformScheduledAnalysis(ctx context.Context) (*entity.AnalysisRun, error)
	TriggerManualAnalysis(ctx context.Context, symbols []string) (*entity.AnalysisRun, error)
	StartManualAnalysis(ctx context.Context, symbols []string) error
	AnalyzeSymbol(ctx context.Context, symbol, provider string) (*entity.Recommendation, error)
}

// SchedulerDependencies groups the collaborators of the scheduler.
type SchedulerDependencies struct {
	StockData       analyzer.StockDataService
	Analysis        analyzer.AnalysisService
	News            analyzerrepo.NewsRepository
	Indicators      analyzerrepo.TechnicalIndicatorRepository
	Recommendations analyzerrepo.RecommendationRepository
	Watchlist       analyzerrepo.WatchlistRepository
	Runs            analyzerrepo.AnalysisRunRepository
	Notifier        telegram.Notifier
	Metrics         *metrics.Recorder
	Runner          CronRunner
}

type schedulerService struct {
	deps SchedulerDependencies
	cfg  config.Scheduler
	log  *logger.Logger

	symbolDelay time.Duration
	runTimeout  time.Duration
	newsLimit   int
	location    *time.Location
	cronParser  cron.Parser

	mu      sync.Mutex
	running bool
	entryID cron.EntryID
	baseCtx context.Context

	runMu      sync.Mutex
	inProgress bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewSchedulerService creates a new scheduler service. News headlines are only
// fetched when deps.News is set.
func NewSchedulerService(deps SchedulerDependencies, cfg config.Scheduler, newsLimit int, log *logger.Logger) SchedulerService {
	if cfg.PriceHistoryLimit <= 0 {
		cfg.PriceHistoryLimit = defaultPriceHistoryLimit
	}
	if cfg.RecentRecommendationDays <= 0 {
		cfg.RecentRecommendationDays = defaultRecentDays
	}

	return &schedulerService{
		deps:        deps,
		cfg:         cfg,
		log:         log,
		symbolDelay: config.MustDuration(cfg.SymbolDelay, defaultSymbolDelay),
		runTimeout:  config.MustDuration(cfg.RunTimeout, 0),
		newsLimit:   newsLimit,
		location:    utils.LoadLocation(cfg.TimeZone),
		cronParser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		baseCtx:     context.Background(),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Start registers the daily job and starts the cron runner. Calling it while
// already running is a no-op.
func (s *schedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Info("Scheduler already running")
		return nil
	}

	if s.entryID == 0 {
		id, err := s.deps.Runner.AddFunc(s.cfg.CronExpression, s.tick)
		if err != nil {
			return fmt.Errorf("failed to register cron expression %q: %w", s.cfg.CronExpression, err)
		}
		s.entryID = id
	}

	if ctx != nil {
		s.baseCtx = ctx
	}
	s.deps.Runner.Start()
	s.running = true

	s.log.Info("Scheduler started",
		logger.StringField("cron", s.cfg.CronExpression),
		logger.StringField("time_zone", s.location.String()))
	return nil
}

// Stop halts the cron runner. An in-flight run is allowed to finish.
func (s *schedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.log.Info("Scheduler not running")
		return
	}

	s.deps.Runner.Stop()
	s.running = false
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *schedulerService) RunInProgress() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.inProgress
}

func (s *schedulerService) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if _, err := s.PerformScheduledAnalysis(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Warn("Previous analysis still running, skipping tick")
			return
		}
		s.log.Error("Scheduled analysis failed", logger.ErrorField(err))
	}
}

// SymbolsToAnalyze returns watchlist symbols, then popular symbols, then symbols
// recommended recently, without duplicates.
func (s *schedulerService) SymbolsToAnalyze(ctx context.Context) ([]string, error) {
	watchlist, err := s.deps.Watchlist.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list watchlist symbols: %w", ErrPersistence, err)
	}

	since := s.now().AddDate(0, 0, -s.cfg.RecentRecommendationDays)
	recent, err := s.deps.Recommendations.ListRecentSymbols(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: list recent recommendation symbols: %w", ErrPersistence, err)
	}

	return utils.UniqueStrings(normalizeSymbols(watchlist), normalizeSymbols(s.cfg.PopularSymbols), normalizeSymbols(recent)), nil
}

// PerformScheduledAnalysis analyzes the full symbol set and stores daily opportunities.
func (s *schedulerService) PerformScheduledAnalysis(ctx context.Context) (*entity.AnalysisRun, error) {
	if !s.tryBeginRun() {
		return nil, ErrRunInProgress
	}
	defer s.endRun()
	return s.runManual(ctx, nil)
}

// TriggerManualAnalysis analyzes the given symbols, or the scheduled set when none are given.
func (s *schedulerService) TriggerManualAnalysis(ctx context.Context, symbols []string) (*entity.AnalysisRun, error) {
	if !s.tryBeginRun() {
		return nil, ErrRunInProgress
	}
	defer s.endRun()
	return s.runManual(ctx, symbols)
}

// StartManualAnalysis claims the run slot and returns, leaving the analysis to a
// background goroutine. ErrRunInProgress is returned when the slot is taken.
func (s *schedulerService) StartManualAnalysis(ctx context.Context, symbols []string) error {
	if !s.tryBeginRun() {
		return ErrRunInProgress
	}

	utils.GoSafe(func() {
		defer s.endRun()
		if _, err := s.runManual(ctx, symbols); err != nil {
			s.log.Error("Manual analysis failed", logger.ErrorField(err))
		}
	})
	return nil
}

// runManual expects the caller to hold the run slot.
func (s *schedulerService) runManual(ctx context.Context, symbols []string) (*entity.AnalysisRun, error) {
	symbols = utils.UniqueStrings(normalizeSymbols(symbols))
	if len(symbols) > 0 {
		return s.run(ctx, entity.RecommendationTypeManual, symbols)
	}

	symbols, err := s.SymbolsToAnalyze(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, entity.RecommendationTypeDailyOpportunity, symbols)
}

// AnalyzeSymbol runs a single custom analysis outside of any run.
func (s *schedulerService) AnalyzeSymbol(ctx context.Context, symbol, provider string) (*entity.Recommendation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	req, err := s.buildRequest(ctx, symbol)
	if err != nil {
		return nil, err
	}

	result := s.deps.Analysis.Analyze(ctx, req, provider)
	rec := newRecommendation(req.Stock.ID, result, entity.RecommendationTypeCustom, nil)
	if err := s.deps.Recommendations.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: save recommendation for %s: %w", ErrPersistence, symbol, err)
	}
	s.deps.Metrics.RecordRecommendation(string(rec.Type), string(rec.Action))
	return rec, nil
}

func (s *schedulerService) Status(ctx context.Context) (*dto.StatusResponse, error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	inProgress := s.RunInProgress()

	status := &dto.StatusResponse{
		Running:        running,
		RunInProgress:  inProgress,
		CronExpression: s.cfg.CronExpression,
		TimeZone:       s.location.String(),
		Providers:      s.deps.Analysis.AvailableProviders(),
		MarketHours: dto.MarketHours{
			Open:     s.cfg.MarketOpen,
			Close:    s.cfg.MarketClose,
			TimeZone: s.location.String(),
		},
	}

	last, err := s.deps.Runs.FindLast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find last run: %w", err)
	}
	if last != nil {
		status.LastRun = toRunResponse(last)
	}

	if running {
		if schedule, err := s.cronParser.Parse(s.cfg.CronExpression); err == nil {
			next := schedule.Next(s.now().In(s.location))
			status.NextRun = &next
		}
	}
	return status, nil
}

func (s *schedulerService) tryBeginRun() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

func (s *schedulerService) endRun() {
	s.runMu.Lock()
	s.inProgress = false
	s.runMu.Unlock()
}

// run expects the caller to hold the run slot.
func (s *schedulerService) run(ctx context.Context, recType entity.RecommendationType, symbols []string) (*entity.AnalysisRun, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	started := s.now()

	run := &entity.AnalysisRun{
		ID:        runID,
		Type:      recType,
		Status:    entity.RunStatusRunning,
		Symbols:   symbols,
		StartedAt: started,
	}
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: create analysis run: %w", ErrPersistence, err)
	}

	s.log.InfoContext(ctx, "Analysis run started",
		logger.StringField("type", string(recType)), logger.IntField("symbols", len(symbols)))

	requests, skipped, err := s.collect(ctx, symbols)
	if err != nil {
		return run, s.fail(ctx, run, skipped, err)
	}

	results := s.deps.Analysis.AnalyzeMultiple(ctx, requests)

	output := dto.RunOutput{Skipped: skipped}
	for i, result := range results {
		rec := newRecommendation(requests[i].Stock.ID, result, recType, &runID)
		if err := s.deps.Recommendations.Create(ctx, rec); err != nil {
			return run, s.fail(ctx, run, skipped, fmt.Errorf("%w: save recommendation for %s: %w", ErrPersistence, rec.Symbol, err))
		}
		s.deps.Metrics.RecordRecommendation(string(rec.Type), string(rec.Action))
		output.Verdicts = append(output.Verdicts, dto.RunVerdict{
			Symbol:     result.Symbol,
			Action:     string(result.Action),
			Confidence: result.Confidence,
			Provider:   result.Provider,
			Degraded:   result.Degraded,
		})
	}

	run.Status = entity.RunStatusCompleted
	run.AnalyzedCount = len(results)
	run.SkippedCount = len(skipped)
	run.Output = marshalOutput(output)
	run.CompletedAt.Time = s.now()
	run.CompletedAt.Valid = true
	if err := s.deps.Runs.Update(ctx, run); err != nil {
		return run, fmt.Errorf("%w: update analysis run: %w", ErrPersistence, err)
	}

	duration := run.CompletedAt.Time.Sub(started)
	s.deps.Metrics.RecordRun(string(recType), string(run.Status), duration.Seconds())
	s.log.InfoContext(ctx, "Analysis run completed",
		logger.IntField("analyzed", run.AnalyzedCount),
		logger.IntField("skipped", run.SkippedCount),
		logger.DurationField("duration", duration))

	s.notify(ctx, run, results, skipped)
	return run, nil
}

// collect builds analysis requests one symbol at a time. Symbols without data are
// skipped; only persistence failures stop the loop.
func (s *schedulerService) collect(ctx context.Context, symbols []string) ([]*analyzerdto.AnalysisRequest, []string, error) {
	var requests []*analyzerdto.AnalysisRequest
	var skipped []string

	for i, symbol := range symbols {
		if i > 0 && s.symbolDelay > 0 {
			s.sleep(ctx, s.symbolDelay)
		}
		if !utils.ShouldContinue(ctx, s.log) {
			skipped = append(skipped, symbols[i:]...)
			break
		}

		req, err := s.buildRequest(ctx, symbol)
		if err != nil {
			if errors.Is(err, ErrPersistence) {
				return nil, skipped, err
			}
			s.log.WarnContext(ctx, "Skipping symbol", logger.StringField("symbol", symbol), logger.ErrorField(err))
			s.deps.Metrics.RecordSkippedSymbol()
			skipped = append(skipped, symbol)
			continue
		}
		requests = append(requests, req)
	}
	return requests, skipped, nil
}

func (s *schedulerService) buildRequest(ctx context.Context, symbol string) (*analyzerdto.AnalysisRequest, error) {
	stock, err := s.deps.StockData.GetStockInfo(ctx, symbol)
	if err != nil {
		return nil, classifyFetchError(symbol, err)
	}

	prices, err := s.deps.StockData.GetStockPrices(ctx, symbol, s.cfg.PriceHistoryLimit)
	if err != nil {
		return nil, classifyFetchError(symbol, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no prices for %s", analyzerdto.ErrDataUnavailable, symbol)
	}

	if err := s.saveIndicators(ctx, stock.ID, prices); err != nil {
		return nil, fmt.Errorf("%w: save indicators for %s: %w", ErrPersistence, symbol, err)
	}

	req := &analyzerdto.AnalysisRequest{
		Stock:       *stock,
		LatestPrice: prices[0],
		History:     prices,
		Indicators:  indicator.NewSnapshot(prices),
	}

	if s.deps.News != nil {
		headlines, err := s.deps.News.GetHeadlines(ctx, symbol, s.newsLimit)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to get news headlines", logger.StringField("symbol", symbol), logger.ErrorField(err))
		}
		req.News = headlines
	}
	return req, nil
}

// classifyFetchError keeps missing data as a per-symbol skip and turns anything
// else, such as a lost database connection, into a run failure.
func classifyFetchError(symbol string, err error) error {
	if errors.Is(err, analyzerdto.ErrDataUnavailable) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: load data for %s: %w", ErrPersistence, symbol, err)
}

func (s *schedulerService) saveIndicators(ctx context.Context, stockID uint, prices []entity.StockPrice) error {
	values := indicator.Calculate(prices)
	if len(values) == 0 {
		return nil
	}

	date := utils.TruncateToDay(prices[0].Date)
	rows := make([]entity.TechnicalIndicator, 0, len(values))
	for _, v := range values {
		row := entity.TechnicalIndicator{
			StockID: stockID,
			Date:    date,
			Name:    v.Name,
			Value:   v.Value,
		}
		if v.Signal != nil {
			row.Signal = utils.ToPointer(string(*v.Signal))
		}
		rows = append(rows, row)
	}
	return s.deps.Indicators.Upsert(ctx, rows)
}

func (s *schedulerService) fail(ctx context.Context, run *entity.AnalysisRun, skipped []string, cause error) error {
	run.Status = entity.RunStatusFailed
	run.SkippedCount = len(skipped)
	run.ErrorMessage.String = cause.Error()
	run.ErrorMessage.Valid = true
	run.CompletedAt.Time = s.now()
	run.CompletedAt.Valid = true

	if err := s.deps.Runs.Update(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to update analysis run", logger.ErrorField(err))
	}
	s.deps.Metrics.RecordRun(string(run.Type), string(run.Status), run.CompletedAt.Time.Sub(run.StartedAt).Seconds())
	s.log.ErrorContext(ctx, "Analysis run failed", logger.ErrorField(cause))

	s.notify(ctx, run, nil, skipped)
	return cause
}

func (s *schedulerService) notify(ctx context.Context, run *entity.AnalysisRun, results []*analyzerdto.AnalysisResult, skipped []string) {
	if s.deps.Notifier == nil {
		return
	}
	// a timed out run still reports its failure
	ctx = context.WithoutCancel(ctx)

	summary := telegram.RunSummary{
		RunID:       run.ID,
		Type:        string(run.Type),
		Status:      string(run.Status),
		StartedAt:   run.StartedAt.In(s.location),
		Duration:    run.CompletedAt.Time.Sub(run.StartedAt),
		Skipped:     skipped,
		ErrorDetail: run.ErrorMessage.String,
	}
	for _, r := range results {
		summary.Verdicts = append(summary.Verdicts, telegram.Verdict{
			Symbol:      r.Symbol,
			Action:      string(r.Action),
			Confidence:  r.Confidence,
			PriceTarget: r.PriceTarget,
			RiskLevel:   string(r.RiskLevel),
			Provider:    r.Provider,
		})
	}

	for _, msg := range telegram.FormatRunSummary(summary) {
		if err := s.deps.Notifier.SendMessage(ctx, msg); err != nil {
			s.log.WarnContext(ctx, "Failed to send telegram summary", logger.ErrorField(err))
			return
		}
	}
}

func newRecommendation(stockID uint, result *analyzerdto.AnalysisResult, recType entity.RecommendationType, runID *string) *entity.Recommendation {
	rec := &entity.Recommendation{
		StockID:     stockID,
		Symbol:      result.Symbol,
		Type:        recType,
		Action:      result.Action,
		Confidence:  result.Confidence,
		PriceTarget: result.PriceTarget,
		Reasoning:   result.Reasoning,
		RiskLevel:   result.RiskLevel,
		TimeHorizon: result.TimeHorizon,
		Provider:    result.Provider,
		RunID:       runID,
	}
	if result.RawResponse != "" {
		if raw, err := json.Marshal(map[string]string{"text": result.RawResponse}); err == nil {
			rec.RawResponse = datatypes.JSON(raw)
		}
	}
	return rec
}

func marshalOutput(output dto.RunOutput) datatypes.JSON {
	raw, err := json.Marshal(output)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
