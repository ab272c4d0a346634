package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/analyzer/repository"
	"golang-stock-tracker/internal/entity"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/metrics"
	"golang-stock-tracker/pkg/utils"
)

const (
	defaultBatchSize = 3

	noProvidersReason    = "No AI providers configured; defaulting to HOLD"
	allFailedReason      = "All AI providers failed; defaulting to HOLD"
	invalidRequestReason = "Analysis request was empty; defaulting to HOLD"
)

// AnalysisService turns analysis requests into recommendations using the
// configured AI providers. It never returns an error: when no provider can
// answer, a HOLD result with confidence 0.5 is produced instead.
type AnalysisService interface {
	Analyze(ctx context.Context, req *dto.AnalysisRequest, preferred string) *dto.AnalysisResult
	AnalyzeMultiple(ctx context.Context, reqs []*dto.AnalysisRequest) []*dto.AnalysisResult
	AvailableProviders() []string
}

// AnalysisOptions tunes batch processing.
type AnalysisOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	// PreferredProvider is tried first by AnalyzeMultiple.
	PreferredProvider string
}

type analysisService struct {
	providers []repository.AIProvider
	opts      AnalysisOptions
	metrics   *metrics.Recorder
	log       *logger.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration)
}

func NewAnalysisService(providers []repository.AIProvider, opts AnalysisOptions, recorder *metrics.Recorder, log *logger.Logger) AnalysisService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &analysisService{
		providers: providers,
		opts:      opts,
		metrics:   recorder,
		log:       log,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func (s *analysisService) AvailableProviders() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// Analyze tries the preferred provider first and then the rest in priority order.
// The first provider that answers wins.
func (s *analysisService) Analyze(ctx context.Context, req *dto.AnalysisRequest, preferred string) *dto.AnalysisResult {
	if req == nil {
		return s.degraded("", invalidRequestReason)
	}
	symbol := req.Symbol()

	if len(s.providers) == 0 {
		s.log.WarnContext(ctx, "No AI providers available", logger.StringField("symbol", symbol))
		return s.degraded(symbol, noProvidersReason)
	}

	prompt := repository.BuildStockAnalysisPrompt(req)

	for _, provider := range s.ordered(preferred) {
		if ctx.Err() != nil {
			s.log.WarnContext(ctx, "Analysis cancelled", logger.StringField("symbol", symbol), logger.ErrorField(ctx.Err()))
			break
		}

		start := time.Now()
		raw, err := s.complete(ctx, provider, prompt)
		s.metrics.RecordProviderCall(provider.Name(), err == nil, time.Since(start).Seconds())
		if err != nil {
			s.log.WarnContext(ctx, "AI provider failed, trying next",
				logger.StringField("provider", provider.Name()),
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			continue
		}

		result := ParseAnalysisResponse(raw)
		result.Symbol = symbol
		result.Provider = provider.Name()
		result.RawResponse = raw
		result.AnalyzedAt = s.now()

		s.log.InfoContext(ctx, "Analysis completed",
			logger.StringField("symbol", symbol),
			logger.StringField("provider", provider.Name()),
			logger.StringField("action", string(result.Action)),
			logger.FloatField("confidence", result.Confidence))
		return &result
	}

	s.log.ErrorContext(ctx, "All AI providers failed", logger.StringField("symbol", symbol))
	return s.degraded(symbol, allFailedReason)
}

// AnalyzeMultiple analyzes requests in concurrent batches, pausing between batches.
// Results are aligned with reqs.
func (s *analysisService) AnalyzeMultiple(ctx context.Context, reqs []*dto.AnalysisRequest) []*dto.AnalysisResult {
	results := make([]*dto.AnalysisResult, len(reqs))

	for start := 0; start < len(reqs); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(reqs) {
			end = len(reqs)
		}

		if start > 0 && s.opts.BatchDelay > 0 {
			s.sleep(ctx, s.opts.BatchDelay)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			utils.GoSafe(func() {
				defer wg.Done()
				results[i] = s.Analyze(ctx, reqs[i], s.opts.PreferredProvider)
			})
		}
		wg.Wait()

		s.log.DebugContext(ctx, "Analysis batch completed",
			logger.IntField("from", start), logger.IntField("to", end), logger.IntField("total", len(reqs)))
	}

	for i, r := range results {
		if r == nil {
			symbol := ""
			if reqs[i] != nil {
				symbol = reqs[i].Symbol()
			}
			results[i] = s.degraded(symbol, allFailedReason)
		}
	}
	return results
}

// ordered puts the preferred provider, when known, ahead of the priority order.
func (s *analysisService) ordered(preferred string) []repository.AIProvider {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" {
		return s.providers
	}

	out := make([]repository.AIProvider, 0, len(s.providers))
	for _, p := range s.providers {
		if p.Name() == preferred {
			out = append(out, p)
		}
	}
	for _, p := range s.providers {
		if p.Name() != preferred {
			out = append(out, p)
		}
	}
	return out
}

func (s *analysisService) complete(ctx context.Context, provider repository.AIProvider, prompt string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", provider.Name(), r)
		}
	}()

	raw, err = provider.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = fmt.Errorf("provider %s returned an empty response", provider.Name())
	}
	return raw, err
}

func (s *analysisService) degraded(symbol, reason string) *dto.AnalysisResult {
	return &dto.AnalysisResult{
		Symbol:      symbol,
		Action:      entity.ActionHold,
		Confidence:  defaultConfidence,
		Reasoning:   reason,
		RiskLevel:   entity.RiskMedium,
		TimeHorizon: entity.HorizonMediumTerm,
		Degraded:    true,
		AnalyzedAt:  s.now(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
