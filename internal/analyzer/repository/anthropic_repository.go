package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
)

const anthropicVersion = "2023-06-01"

type anthropicRepository struct {
	baseProvider
}

// NewAnthropicRepository creates a messages API backend using the x-api-key header.
func NewAnthropicRepository(cfg config.Provider, log *logger.Logger) AIProvider {
	return &anthropicRepository{baseProvider: newBaseProvider(ProviderAnthropic, "Anthropic", cfg, log)}
}

func (r *anthropicRepository) Complete(ctx context.Context, prompt string) (string, error) {
	payload := dto.AnthropicRequest{
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Messages:    []dto.Message{{Role: "user", Content: prompt}},
	}

	var resp dto.AnthropicResponse
	err := r.postJSON(ctx, r.cfg.BaseURL, map[string]string{
		"x-api-key":         r.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}, payload, &resp)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", r.fail(0, fmt.Errorf("no text content in Anthropic response"))
	}

	if err := r.spendTokens(ctx, resp.Usage.InputTokens+resp.Usage.OutputTokens); err != nil {
		return "", err
	}
	return text.String(), nil
}
