package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
)

type openaiAIRepository struct {
	baseProvider
}

// NewOpenAIRepository creates a chat completions backend authenticated with a bearer token.
func NewOpenAIRepository(cfg config.Provider, log *logger.Logger) AIProvider {
	return &openaiAIRepository{baseProvider: newBaseProvider(ProviderOpenAI, "OpenAI", cfg, log)}
}

func (r *openaiAIRepository) Complete(ctx context.Context, prompt string) (string, error) {
	return completeChat(ctx, &r.baseProvider, prompt, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", r.cfg.APIKey),
	})
}

// completeChat runs an OpenAI compatible chat completion.
func completeChat(ctx context.Context, b *baseProvider, prompt string, headers map[string]string) (string, error) {
	payload := dto.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []dto.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	}

	var resp dto.ChatCompletionResponse
	if err := b.postJSON(ctx, b.cfg.BaseURL, headers, payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", b.fail(0, fmt.Errorf("no content found in %s response", b.apiName))
	}

	if err := b.spendTokens(ctx, resp.Usage.TotalTokens); err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}
