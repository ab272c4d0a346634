package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
)

type ollamaRepository struct {
	baseProvider
}

// NewOllamaRepository creates a backend for a self-hosted Ollama server. No auth.
func NewOllamaRepository(cfg config.Provider, log *logger.Logger) AIProvider {
	return &ollamaRepository{baseProvider: newBaseProvider(ProviderOllama, "Ollama", cfg, log)}
}

func (r *ollamaRepository) Complete(ctx context.Context, prompt string) (string, error) {
	payload := dto.OllamaRequest{
		Model:  r.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: dto.OllamaOptions{
			Temperature: r.cfg.Temperature,
			NumPredict:  r.cfg.MaxTokens,
		},
	}

	var resp dto.OllamaResponse
	apiURL := strings.TrimRight(r.cfg.BaseURL, "/") + "/api/generate"
	if err := r.postJSON(ctx, apiURL, nil, payload, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", r.fail(0, fmt.Errorf("empty response from Ollama"))
	}
	return resp.Response, nil
}
