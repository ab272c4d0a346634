package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang-stock-tracker/internal/config"
	delivery "golang-stock-tracker/internal/scheduler/delivery/http"
	_ "golang-stock-tracker/internal/scheduler/docs"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var (
	configPath string
	symbolsArg string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the tracker API and the daily analysis scheduler",
	Run:   runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Runs one analysis immediately and exits",
	Run:   runAnalyze,
}

func loadConfigAndLogger() (*config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfigAndLogger()
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Tracker Service", logger.Field("name", cfg.App.Name), logger.Field("env", cfg.App.Env))

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	a, err := newApp(ctx, cfg, appLogger, recorder)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer a.Close()

	if cfg.Scheduler.AutoStart {
		if err := a.schedulerService.Start(ctx); err != nil {
			appLogger.Fatal("Failed to start scheduler", logger.ErrorField(err))
		}
	}
	defer a.schedulerService.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(requestID)

	apiV1 := e.Group("/api/v1")
	delivery.NewSchedulerHandler(ctx, a.schedulerService, appLogger).RegisterRoutes(apiV1.Group("/scheduler"))
	delivery.NewAnalysisHandler(a.schedulerService, a.analysisService, appLogger).RegisterRoutes(apiV1.Group("/analysis"))
	delivery.NewRecommendationHandler(a.recommendationService, appLogger).RegisterRoutes(apiV1.Group("/recommendations"))
	delivery.NewRunHandler(a.runService, appLogger).RegisterRoutes(apiV1.Group("/runs"))
	delivery.NewWatchlistHandler(a.watchlistService, appLogger).RegisterRoutes(apiV1.Group("/watchlist"))

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.Handler()))
	}
	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfigAndLogger()
	defer func() { _ = appLogger.Sync() }()

	a, err := newApp(ctx, cfg, appLogger, nil)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer a.Close()

	var symbols []string
	for _, s := range strings.Split(symbolsArg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	run, err := a.schedulerService.TriggerManualAnalysis(ctx, symbols)
	if err != nil {
		appLogger.Error("Analysis failed", logger.ErrorField(err))
		os.Exit(1)
	}
	appLogger.Info("Analysis finished",
		logger.StringField("run_id", run.ID),
		logger.IntField("analyzed", run.AnalyzedCount),
		logger.IntField("skipped", run.SkippedCount))
}

// requestID tags each request context with an id picked up by the context-aware log helpers.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		c.SetRequest(c.Request().WithContext(logger.WithRequestID(c.Request().Context(), id)))
		return next(c)
	}
}

// @title Stock Tracker API
// @version 1.0
// @description Daily AI-assisted stock analysis: scheduler control, recommendations, runs and watchlists.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "tracker-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")
	analyzeCmd.Flags().StringVarP(&symbolsArg, "symbols", "s", "", "Comma separated symbols; empty analyzes the scheduled set")

	rootCmd.AddCommand(serveCmd, analyzeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing tracker-service CLI: %s\n", err)
		os.Exit(1)
	}
}
