package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
	"golang-stock-tracker/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderOpenRouter  = "openrouter"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

const defaultProviderTimeout = 30 * time.Second

var allProviders = []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOpenRouter, ProviderOllama, ProviderHuggingFace}

// AIProvider is a text completion backend.
type AIProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderError is returned by every AIProvider when a call fails.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviders builds the available providers in priority order. A provider is
// available when it is enabled and has credentials; ollama only needs a base URL.
func NewProviders(cfg config.Providers, log *logger.Logger, genAiClient *genai.Client) []AIProvider {
	builders := map[string]func() AIProvider{
		ProviderOpenAI:      func() AIProvider { return NewOpenAIRepository(cfg.OpenAI, log) },
		ProviderAnthropic:   func() AIProvider { return NewAnthropicRepository(cfg.Anthropic, log) },
		ProviderGemini:      func() AIProvider { return NewGeminiAIRepository(cfg.Gemini, log, genAiClient) },
		ProviderOpenRouter:  func() AIProvider { return NewOpenRouterRepository(cfg.OpenRouter, log) },
		ProviderOllama:      func() AIProvider { return NewOllamaRepository(cfg.Ollama, log) },
		ProviderHuggingFace: func() AIProvider { return NewHuggingFaceRepository(cfg.HuggingFace, log) },
	}
	settings := map[string]config.Provider{
		ProviderOpenAI:      cfg.OpenAI,
		ProviderAnthropic:   cfg.Anthropic,
		ProviderGemini:      cfg.Gemini,
		ProviderOpenRouter:  cfg.OpenRouter,
		ProviderOllama:      cfg.Ollama,
		ProviderHuggingFace: cfg.HuggingFace,
	}

	order := append(append([]string{}, cfg.Priority...), allProviders...)

	seen := make(map[string]bool)
	var providers []AIProvider
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true

		build, ok := builders[name]
		if !ok {
			log.Warn("Unknown AI provider in priority list", logger.StringField("provider", name))
			continue
		}
		if !isAvailable(name, settings[name]) {
			continue
		}
		providers = append(providers, build())
		log.Info("AI provider enabled", logger.StringField("provider", name), logger.StringField("model", settings[name].Model))
	}
	return providers
}

func isAvailable(name string, p config.Provider) bool {
	if !p.Enabled {
		return false
	}
	if name == ProviderOllama {
		return p.BaseURL != ""
	}
	return p.APIKey != ""
}

// baseProvider carries what every HTTP backend shares.
type baseProvider struct {
	name           string
	apiName        string
	client         *http.Client
	cfg            config.Provider
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	tokenLimiter   *ratelimit.TokenLimiter
}

func newBaseProvider(name, apiName string, cfg config.Provider, log *logger.Logger) baseProvider {
	requestLimiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MaxRequestPerMinute > 0 {
		secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)
		requestLimiter = rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	}

	return baseProvider{
		name:    name,
		apiName: apiName,
		client: &http.Client{
			Timeout: config.MustDuration(cfg.Timeout, defaultProviderTimeout),
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.MaxTokenPerMinute),
	}
}

func (b *baseProvider) Name() string {
	return b.name
}

func (b *baseProvider) fail(status int, err error) error {
	return &ProviderError{Provider: b.name, StatusCode: status, Err: err}
}

// postJSON sends payload to url and decodes a 200 response into out.
func (b *baseProvider) postJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error {
	if err := b.requestLimiter.Wait(ctx); err != nil {
		return b.fail(0, fmt.Errorf("failed to wait for request limit: %w", err))
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return b.fail(0, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return b.fail(0, fmt.Errorf("failed to create new http request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	b.logger.DebugContext(ctx, fmt.Sprintf("Sending request to %s API", b.apiName), logger.StringField("model", b.cfg.Model))

	resp, err := b.client.Do(req)
	if err != nil {
		return b.fail(0, fmt.Errorf("failed to send request to %s API: %w", b.apiName, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		b.logger.WarnContext(ctx, fmt.Sprintf("Received non-OK response from %s API", b.apiName),
			logger.IntField("status_code", resp.StatusCode), logger.StringField("model", b.cfg.Model))
		return b.fail(resp.StatusCode, fmt.Errorf("received non-OK response from %s API: %s", b.apiName, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return b.fail(resp.StatusCode, fmt.Errorf("failed to decode response body: %w", err))
	}
	return nil
}

// spendTokens charges used tokens against the per-minute budget.
func (b *baseProvider) spendTokens(ctx context.Context, used int) error {
	if b.cfg.MaxTokenPerMinute <= 0 {
		return nil
	}
	if used > b.cfg.MaxTokenPerMinute/2 {
		b.logger.WarnContext(ctx, "Token has exceeded 50% of the limit", logger.IntField("remaining", b.tokenLimiter.GetRemaining()))
	}
	if used > b.cfg.MaxTokenPerMinute {
		used = b.cfg.MaxTokenPerMinute
	}
	if err := b.tokenLimiter.Wait(ctx, used); err != nil {
		return b.fail(0, fmt.Errorf("failed to wait for token limit: %w", err))
	}
	return nil
}
