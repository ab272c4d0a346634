package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"

	"google.golang.org/genai"
)

// geminiAIRepository calls generateContent over HTTP and uses the genai SDK for token counting.
type geminiAIRepository struct {
	baseProvider
	genAiClient *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository. genAiClient may be nil,
// in which case prompts are sent without counting tokens first.
func NewGeminiAIRepository(cfg config.Provider, log *logger.Logger, genAiClient *genai.Client) AIProvider {
	return &geminiAIRepository{
		baseProvider: newBaseProvider(ProviderGemini, "Gemini", cfg, log),
		genAiClient:  genAiClient,
	}
}

func (r *geminiAIRepository) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.reserveTokens(ctx, prompt); err != nil {
		return "", err
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Role: "user", Parts: []dto.Part{{Text: prompt}}}},
		GenerationConfig: &dto.GeminiGenerationConfig{
			MaxOutputTokens: r.cfg.MaxTokens,
			Temperature:     r.cfg.Temperature,
		},
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", strings.TrimRight(r.cfg.BaseURL, "/"), r.cfg.Model, url.QueryEscape(r.cfg.APIKey))

	var resp dto.GeminiAPIResponse
	if err := r.postJSON(ctx, apiURL, nil, payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", r.fail(0, fmt.Errorf("invalid response from Gemini API: no content found"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

func (r *geminiAIRepository) reserveTokens(ctx context.Context, prompt string) error {
	if r.genAiClient == nil || r.cfg.MaxTokenPerMinute <= 0 {
		return nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Model, contents, nil)
	if err != nil {
		return r.fail(0, fmt.Errorf("failed to count tokens: %w", err))
	}

	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	return r.spendTokens(ctx, int(tokenResp.TotalTokens))
}
