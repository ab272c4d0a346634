package repository

import (
	"context"
	"fmt"

	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
)

const (
	openRouterReferer = "https://github.com/golang-stock-tracker"
	openRouterTitle   = "Stock Tracker"
)

// openRouterRepository talks to the OpenAI compatible OpenRouter gateway.
type openRouterRepository struct {
	baseProvider
}

// NewOpenRouterRepository creates a new instance of openRouterRepository.
func NewOpenRouterRepository(cfg config.Provider, log *logger.Logger) AIProvider {
	return &openRouterRepository{baseProvider: newBaseProvider(ProviderOpenRouter, "OpenRouter", cfg, log)}
}

func (r *openRouterRepository) Complete(ctx context.Context, prompt string) (string, error) {
	return completeChat(ctx, &r.baseProvider, prompt, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", r.cfg.APIKey),
		"HTTP-Referer":  openRouterReferer,
		"X-Title":       openRouterTitle,
	})
}
