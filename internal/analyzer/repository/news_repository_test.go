package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-stock-tracker/internal/config"
	"golang-stock-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>AAPL stock - Google News</title>
<item>
  <title>Apple beats quarterly estimates - Reuters</title>
  <link>https://example.com/a</link>
  <pubDate>Thu, 09 May 2024 20:15:00 GMT</pubDate>
  <description>&lt;a href="https://example.com/a"&gt;Apple beats   quarterly estimates&lt;/a&gt;&amp;nbsp;&lt;font&gt;Reuters&lt;/font&gt;</description>
</item>
<item>
  <title>iPhone sales slow in China</title>
  <link>https://example.com/b</link>
  <pubDate>Wed, 08 May 2024 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Third item - Bloomberg</title>
  <link>https://example.com/c</link>
</item>
</channel></rss>`

func TestNewsRepository_GetHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "AAPL stock", r.URL.Query().Get("q"))
		assert.Equal(t, "en-US", r.URL.Query().Get("hl"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	repo := NewNewsRepository(config.News{BaseURL: srv.URL, QueryParams: "hl=en-US", MaxItems: 5}, logger.NewNop())
	headlines, err := repo.GetHeadlines(context.Background(), "aapl", 2)
	require.NoError(t, err)
	require.Len(t, headlines, 2)

	assert.Equal(t, "Apple beats quarterly estimates", headlines[0].Title)
	assert.Equal(t, "Reuters", headlines[0].Source)
	assert.Contains(t, headlines[0].Snippet, "Apple beats quarterly estimates")
	assert.NotContains(t, headlines[0].Snippet, "<a")
	assert.Equal(t, 2024, headlines[0].PublishedAt.Year())

	assert.Equal(t, "iPhone sales slow in China", headlines[1].Title)
	assert.Empty(t, headlines[1].Source)
}

func TestNewsRepository_FeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := NewNewsRepository(config.News{BaseURL: srv.URL, MaxItems: 5}, logger.NewNop())
	_, err := repo.GetHeadlines(context.Background(), "AAPL", 0)
	assert.Error(t, err)
}

func TestSplitSource(t *testing.T) {
	title, source := splitSource("A - B - Yahoo Finance")
	assert.Equal(t, "A - B", title)
	assert.Equal(t, "Yahoo Finance", source)
}
