package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxSnippetLength = 280

// NewsRepository reads recent headlines for a symbol from an RSS search feed.
type NewsRepository interface {
	GetHeadlines(ctx context.Context, symbol string, limit int) ([]dto.NewsHeadline, error)
}

type newsRepository struct {
	cfg    config.News
	log    *logger.Logger
	client *http.Client
}

func NewNewsRepository(cfg config.News, log *logger.Logger) NewsRepository {
	return &newsRepository{
		cfg: cfg,
		log: log,
		client: &http.Client{
			Timeout: config.MustDuration(cfg.Timeout, 10*time.Second),
		},
	}
}

func (r *newsRepository) GetHeadlines(ctx context.Context, symbol string, limit int) ([]dto.NewsHeadline, error) {
	if limit <= 0 {
		limit = r.cfg.MaxItems
	}

	query := url.QueryEscape(fmt.Sprintf("%s stock", strings.ToUpper(symbol)))
	feedURL := fmt.Sprintf("%s/search?q=%s", strings.TrimRight(r.cfg.BaseURL, "/"), query)
	if r.cfg.QueryParams != "" {
		feedURL += "&" + r.cfg.QueryParams
	}

	r.log.DebugContext(ctx, "Processing RSS feed", logger.StringField("url", feedURL))

	fp := gofeed.NewParser()
	fp.Client = r.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed for %s: %w", symbol, err)
	}

	headlines := make([]dto.NewsHeadline, 0, limit)
	for _, item := range feed.Items {
		if len(headlines) >= limit {
			break
		}
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}

		title, source := splitSource(item.Title)
		h := dto.NewsHeadline{
			Title:   title,
			Source:  source,
			Link:    item.Link,
			Snippet: extractText(item.Description),
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = item.PublishedParsed.UTC()
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}

// splitSource splits Google News titles of the form "Headline - Publisher".
func splitSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

// extractText strips markup from an RSS description.
func extractText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(text) > maxSnippetLength {
		text = text[:maxSnippetLength] + "..."
	}
	return text
}
