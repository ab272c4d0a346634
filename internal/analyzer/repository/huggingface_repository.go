package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"
)

type huggingFaceRepository struct {
	baseProvider
}

// NewHuggingFaceRepository creates an inference API backend authenticated with a bearer token.
func NewHuggingFaceRepository(cfg config.Provider, log *logger.Logger) AIProvider {
	return &huggingFaceRepository{baseProvider: newBaseProvider(ProviderHuggingFace, "HuggingFace", cfg, log)}
}

func (r *huggingFaceRepository) Complete(ctx context.Context, prompt string) (string, error) {
	payload := dto.HuggingFaceRequest{
		Inputs: prompt,
		Parameters: dto.HuggingFaceParameters{
			MaxNewTokens:   r.cfg.MaxTokens,
			Temperature:    r.cfg.Temperature,
			ReturnFullText: false,
		},
	}

	var resp []dto.HuggingFaceResponse
	apiURL := strings.TrimRight(r.cfg.BaseURL, "/") + "/" + r.cfg.Model
	err := r.postJSON(ctx, apiURL, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", r.cfg.APIKey),
	}, payload, &resp)
	if err != nil {
		return "", err
	}

	if len(resp) == 0 || strings.TrimSpace(resp[0].GeneratedText) == "" {
		return "", r.fail(0, fmt.Errorf("no generated text in HuggingFace response"))
	}
	return resp[0].GeneratedText, nil
}
