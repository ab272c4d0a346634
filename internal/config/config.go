package config

import (
	"fmt"
	"time"

	"golang-stock-tracker/pkg/config"
)

// Scheduler holds the daily analysis schedule.
type Scheduler struct {
	AutoStart                bool     `mapstructure:"auto_start" default:"true"`
	CronExpression           string   `mapstructure:"cron_expression" default:"0 18 * * *"`
	TimeZone                 string   `mapstructure:"time_zone" default:"America/New_York"`
	SymbolDelay              string   `mapstructure:"symbol_delay" default:"500ms"`
	PriceHistoryLimit        int      `mapstructure:"price_history_limit" default:"50"`
	RecentRecommendationDays int      `mapstructure:"recent_recommendation_days" default:"7"`
	PopularSymbols           []string `mapstructure:"popular_symbols" default:"[\"AAPL\",\"MSFT\",\"GOOGL\",\"AMZN\",\"NVDA\",\"META\",\"TSLA\"]"`
	MarketOpen               string   `mapstructure:"market_open" default:"09:30"`
	MarketClose              string   `mapstructure:"market_close" default:"16:00"`
	RunTimeout               string   `mapstructure:"run_timeout" default:"30m"`
}

// Analysis holds orchestrator settings.
type Analysis struct {
	BatchSize         int    `mapstructure:"batch_size" default:"3"`
	BatchDelay        string `mapstructure:"batch_delay" default:"2s"`
	PreferredProvider string `mapstructure:"preferred_provider"`
	IncludeNews       bool   `mapstructure:"include_news"`
}

// Provider holds the settings shared by every AI backend.
type Provider struct {
	Enabled             bool    `mapstructure:"enabled"`
	APIKey              string  `mapstructure:"api_key"`
	BaseURL             string  `mapstructure:"base_url"`
	Model               string  `mapstructure:"model"`
	MaxTokens           int     `mapstructure:"max_tokens" default:"1000"`
	Temperature         float64 `mapstructure:"temperature" default:"0.3"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute" default:"30"`
	MaxTokenPerMinute   int     `mapstructure:"max_token_per_minute"`
	Timeout             string  `mapstructure:"timeout" default:"30s"`
}

// Providers lists every backend plus the order they are tried in.
type Providers struct {
	Priority    []string `mapstructure:"priority" default:"[\"openai\",\"anthropic\",\"gemini\",\"openrouter\",\"ollama\",\"huggingface\"]"`
	OpenAI      Provider `mapstructure:"openai"`
	Anthropic   Provider `mapstructure:"anthropic"`
	Gemini      Provider `mapstructure:"gemini"`
	OpenRouter  Provider `mapstructure:"openrouter"`
	Ollama      Provider `mapstructure:"ollama"`
	HuggingFace Provider `mapstructure:"huggingface"`
}

// YahooFinance holds quote API settings.
type YahooFinance struct {
	BaseURL             string `mapstructure:"base_url" default:"https://query1.finance.yahoo.com"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute" default:"60"`
	Timeout             string `mapstructure:"timeout" default:"10s"`
	CacheTTL            string `mapstructure:"cache_ttl" default:"15m"`
}

// News holds headline feed settings.
type News struct {
	BaseURL     string `mapstructure:"base_url" default:"https://news.google.com/rss"`
	QueryParams string `mapstructure:"query_params" default:"hl=en-US&gl=US&ceid=US:en"`
	MaxItems    int    `mapstructure:"max_items" default:"5"`
	Timeout     string `mapstructure:"timeout" default:"10s"`
}

// Telegram holds notifier settings.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Metrics holds Prometheus exposition settings.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// Config holds the full configuration for the tracker service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Scheduler    Scheduler       `mapstructure:"scheduler"`
	Analysis     Analysis        `mapstructure:"analysis"`
	Providers    Providers       `mapstructure:"providers"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	News         News            `mapstructure:"news"`
	Telegram     Telegram        `mapstructure:"telegram"`
	Metrics      Metrics         `mapstructure:"metrics"`
}

// Load loads the tracker configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.Providers.applyEndpointDefaults()

	if _, err := ParseDuration(cfg.Scheduler.SymbolDelay, 0); err != nil {
		return nil, fmt.Errorf("invalid scheduler.symbol_delay: %w", err)
	}
	if _, err := ParseDuration(cfg.Analysis.BatchDelay, 0); err != nil {
		return nil, fmt.Errorf("invalid analysis.batch_delay: %w", err)
	}
	return &cfg, nil
}

func (p *Providers) applyEndpointDefaults() {
	fill(&p.OpenAI, "https://api.openai.com/v1/chat/completions", "gpt-4o-mini")
	fill(&p.Anthropic, "https://api.anthropic.com/v1/messages", "claude-3-haiku-20240307")
	fill(&p.Gemini, "https://generativelanguage.googleapis.com/v1beta/models", "gemini-1.5-flash")
	fill(&p.OpenRouter, "https://openrouter.ai/api/v1/chat/completions", "meta-llama/llama-3.1-8b-instruct")
	fill(&p.Ollama, "http://localhost:11434", "llama3")
	fill(&p.HuggingFace, "https://api-inference.huggingface.co/models", "mistralai/Mistral-7B-Instruct-v0.2")
}

func fill(p *Provider, baseURL, model string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Model == "" {
		p.Model = model
	}
}

// ParseDuration parses s, returning fallback when s is empty.
func ParseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// MustDuration parses s and returns fallback when it is empty or invalid.
func MustDuration(s string, fallback time.Duration) time.Duration {
	d, err := ParseDuration(s, fallback)
	if err != nil {
		return fallback
	}
	return d
}
