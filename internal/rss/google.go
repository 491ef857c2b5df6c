package rss

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gofeedrss "github.com/mmcdole/gofeed/rss"

	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/region"
	"github.com/tkrnews/newsgather/internal/retry"
)

const (
	googleNewsBaseURL = "https://news.google.com/rss/search"
	unknownSource     = "Unknown Source"
)

// GoogleNews searches the Google News RSS endpoint, one query per term.
type GoogleNews struct {
	fetcher
	baseURL string
}

func NewGoogleNews(client *http.Client, cfg retry.RetryConfig, log *slog.Logger) *GoogleNews {
	return &GoogleNews{
		fetcher: fetcher{client: client, retry: cfg, logger: logger.Component(log, "google_news")},
		baseURL: googleNewsBaseURL,
	}
}

func (g *GoogleNews) Name() string     { return "google_news" }
func (g *GoogleNews) Scope() news.Scope { return news.PerTerm }

// SearchURL builds the Canadian English search feed URL for term.
func (g *GoogleNews) SearchURL(term string) string {
	return g.baseURL + "?q=" + url.QueryEscape(term) + "&hl=en&gl=CA&ceid=CA:en"
}

func (g *GoogleNews) Search(ctx context.Context, term string, _ region.Region) ([]news.RawEntry, error) {
	body, err := g.get(ctx, g.SearchURL(term))
	if err != nil {
		return nil, fmt.Errorf("google news search %q: %w", term, err)
	}

	parser := &gofeedrss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse google news feed for %q: %w", term, err)
	}

	entries := make([]news.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		e := news.RawEntry{
			Title:      item.Title,
			Link:       item.Link,
			SourceName: publisher(item),
			Summary:    item.Description,
		}
		if item.GUID != nil {
			e.ID = item.GUID.Value
		}
		if item.PubDateParsed != nil {
			e.Published = *item.PubDateParsed
		}
		entries = append(entries, e)
	}
	g.logger.Debug("google news search", "term", term, "items", len(entries))
	return entries, nil
}

// publisher prefers the <source> element, then the " - Publisher" title
// suffix Google appends, then the item author.
func publisher(item *gofeedrss.Item) string {
	if item.Source != nil && strings.TrimSpace(item.Source.Title) != "" {
		return strings.TrimSpace(item.Source.Title)
	}
	if i := strings.LastIndex(item.Title, " - "); i > 0 {
		if name := strings.TrimSpace(item.Title[i+3:]); name != "" {
			return name
		}
	}
	if a := strings.TrimSpace(item.Author); a != "" {
		return a
	}
	return unknownSource
}
