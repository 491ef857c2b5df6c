package rss

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/region"
	"github.com/tkrnews/newsgather/internal/retry"
)

// FeedList polls fixed national and regional RSS/Atom feeds. It is queried
// once per region, not per search term.
type FeedList struct {
	fetcher
	national  []region.Feed
	overrides map[string][]region.Feed
}

func NewFeedList(client *http.Client, cfg retry.RetryConfig, national []region.Feed, log *slog.Logger) *FeedList {
	return &FeedList{
		fetcher:  fetcher{client: client, retry: cfg, logger: logger.Component(log, "feed_list")},
		national: national,
	}
}

// WithOverrides replaces the national list and, per region, the built-in
// feeds with those from cfg. Regions absent from cfg keep their defaults.
func (l *FeedList) WithOverrides(cfg *FeedsConfig) *FeedList {
	if cfg == nil {
		return l
	}
	if len(cfg.National) > 0 {
		l.national = cfg.National
	}
	l.overrides = make(map[string][]region.Feed, len(cfg.Regions))
	for name, feeds := range cfg.Regions {
		l.overrides[strings.ToLower(name)] = feeds
	}
	return l
}

func (l *FeedList) Name() string     { return "regional_feeds" }
func (l *FeedList) Scope() news.Scope { return news.PerRegion }

// FeedsFor lists the feeds polled for reg, national first.
func (l *FeedList) FeedsFor(reg region.Region) []region.Feed {
	regional := reg.Feeds
	if o, ok := l.overrides[strings.ToLower(reg.Name)]; ok {
		regional = o
	}
	feeds := make([]region.Feed, 0, len(l.national)+len(regional))
	feeds = append(feeds, l.national...)
	return append(feeds, regional...)
}

// Search ignores term. A failing feed is skipped; the call fails only when
// every feed failed.
func (l *FeedList) Search(ctx context.Context, _ string, reg region.Region) ([]news.RawEntry, error) {
	feeds := l.FeedsFor(reg)
	if len(feeds) == 0 {
		return nil, nil
	}

	var entries []news.RawEntry
	failed := 0
	var lastErr error
	for _, f := range feeds {
		items, err := l.fetchFeed(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			l.logger.Warn("feed failed", "feed", f.Name, "url", f.URL, "error", err)
			continue
		}
		entries = append(entries, items...)
		l.logger.Debug("feed loaded", "feed", f.Name, "items", len(items))
	}

	if failed == len(feeds) {
		return nil, fmt.Errorf("all %d feeds for %s failed: %w", failed, reg.Name, lastErr)
	}
	return entries, nil
}

func (l *FeedList) fetchFeed(ctx context.Context, f region.Feed) ([]news.RawEntry, error) {
	body, err := l.get(ctx, f.URL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.URL, err)
	}

	out := make([]news.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		e := news.RawEntry{
			ID:         item.GUID,
			Title:      item.Title,
			Link:       item.Link,
			SourceName: f.Name,
			Summary:    item.Description,
		}
		switch {
		case item.PublishedParsed != nil:
			e.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			e.Published = *item.UpdatedParsed
		}
		out = append(out, e)
	}
	return out, nil
}
