package main

import (
	"context"
	"fmt"

	"golang-stock-tracker/internal/analyzer/repository"
	analyzer "golang-stock-tracker/internal/analyzer/service"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/internal/scheduler/service"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/metrics"
	"golang-stock-tracker/pkg/postgres"
	"golang-stock-tracker/pkg/redis"
	"golang-stock-tracker/pkg/telegram"
	"golang-stock-tracker/pkg/utils"

	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"google.golang.org/genai"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger *logger.Logger

	analysisService       analyzer.AnalysisService
	schedulerService      service.SchedulerService
	runService            service.RunService
	watchlistService      service.WatchlistService
	recommendationService service.RecommendationService

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, recorder *metrics.Recorder) (*app, error) {
	a := &app{cfg: cfg, logger: appLogger}

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	var quoteCache goredis.Cmdable
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, quote cache disabled", logger.ErrorField(err))
		} else {
			quoteCache = redisClient.Client
			a.closers = append(a.closers, func() { _ = redisClient.Close() })
		}
	}

	var genAiClient *genai.Client
	if cfg.Providers.Gemini.Enabled && cfg.Providers.Gemini.APIKey != "" {
		genAiClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Providers.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			appLogger.Warn("Failed to initialize Gemini token counter", logger.ErrorField(err))
			genAiClient = nil
		}
	}

	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Warn("Failed to initialize Telegram notifier", logger.ErrorField(err))
			notifier = nil
		}
	}

	// Initialize repositories
	stocksRepo := repository.NewStocksRepository(db.DB)
	pricesRepo := repository.NewStockPriceRepository(db.DB)
	indicatorRepo := repository.NewTechnicalIndicatorRepository(db.DB)
	recRepo := repository.NewRecommendationRepository(db.DB)
	watchlistRepo := repository.NewWatchlistRepository(db.DB)
	runRepo := repository.NewAnalysisRunRepository(db.DB)
	yahooRepo := repository.NewYahooFinanceRepository(cfg.YahooFinance, appLogger, quoteCache)

	var newsRepo repository.NewsRepository
	if cfg.Analysis.IncludeNews {
		newsRepo = repository.NewNewsRepository(cfg.News, appLogger)
	}

	// Initialize services
	providers := repository.NewProviders(cfg.Providers, appLogger, genAiClient)
	if len(providers) == 0 {
		appLogger.Warn("No AI providers configured, every analysis will default to HOLD")
	}

	a.analysisService = analyzer.NewAnalysisService(providers, analyzer.AnalysisOptions{
		BatchSize:         cfg.Analysis.BatchSize,
		BatchDelay:        config.MustDuration(cfg.Analysis.BatchDelay, 0),
		PreferredProvider: cfg.Analysis.PreferredProvider,
	}, recorder, appLogger)

	stockDataService := analyzer.NewStockDataService(stocksRepo, pricesRepo, yahooRepo, appLogger)

	cronLogger := service.NewCronLogger(appLogger)
	runner := cron.New(
		cron.WithLocation(utils.LoadLocation(cfg.Scheduler.TimeZone)),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	a.schedulerService = service.NewSchedulerService(service.SchedulerDependencies{
		StockData:       stockDataService,
		Analysis:        a.analysisService,
		News:            newsRepo,
		Indicators:      indicatorRepo,
		Recommendations: recRepo,
		Watchlist:       watchlistRepo,
		Runs:            runRepo,
		Notifier:        notifier,
		Metrics:         recorder,
		Runner:          runner,
	}, cfg.Scheduler, cfg.News.MaxItems, appLogger)

	a.runService = service.NewRunService(runRepo, appLogger)
	a.watchlistService = service.NewWatchlistService(watchlistRepo, stockDataService, appLogger)
	a.recommendationService = service.NewRecommendationService(recRepo, appLogger)

	return a, nil
}
