// Package app wires the news pipeline: region lookup, aggregation, content
// extraction, rewriting and optional session persistence.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tkrnews/newsgather/internal/host"
	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/ratelimit"
	"github.com/tkrnews/newsgather/internal/region"
	"github.com/tkrnews/newsgather/internal/scraper"
	"github.com/tkrnews/newsgather/internal/storage"
)

const (
	DefaultFetchLimit = 10
	MaxFetchLimit     = 50
	MaxScrapeURLs     = 20

	StatusSuccess = "success"
)

var (
	ErrUnknownRegion  = errors.New("unknown region")
	ErrNoContentFound = errors.New("no content found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTooManyURLs    = fmt.Errorf("%w: more than %d urls", ErrInvalidInput, MaxScrapeURLs)
)

// NewsAggregator is satisfied by *news.Aggregator.
type NewsAggregator interface {
	Aggregate(ctx context.Context, reg region.Region, limit int) ([]news.ArticleRecord, error)
}

// ContentExtractor is satisfied by *scraper.Extractor.
type ContentExtractor interface {
	ExtractMany(ctx context.Context, urls []string) []scraper.ExtractedContent
}

// Deps are the collaborators of a Service. Store may be nil.
type Deps struct {
	Regions    *region.Directory
	Aggregator NewsAggregator
	Extractor  ContentExtractor
	Rewriter   *host.Rewriter
	Store      storage.Store
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	// DefaultLimit applies when FetchOptions.Limit is unset.
	DefaultLimit int
}

// Service runs pipeline operations. It keeps no state between calls.
type Service struct {
	regions    *region.Directory
	aggregator NewsAggregator
	extractor  ContentExtractor
	rewriter   *host.Rewriter
	store      storage.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	defaultLimit int

	info    Info
	limiter *ratelimit.Limiter
	closer  any
}

func NewService(d Deps) *Service {
	if d.Regions == nil {
		d.Regions = region.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Global
	}
	if d.DefaultLimit < 1 || d.DefaultLimit > MaxFetchLimit {
		d.DefaultLimit = DefaultFetchLimit
	}
	return &Service{
		regions:    d.Regions,
		aggregator: d.Aggregator,
		extractor:  d.Extractor,
		rewriter:   d.Rewriter,
		store:      d.Store,
		logger:     logger.Component(d.Logger, "pipeline"),
		metrics:    d.Metrics,
		now:        time.Now,

		defaultLimit: d.DefaultLimit,
	}
}

// FetchOptions control a Fetch call. A zero Limit means the service default;
// anything above MaxFetchLimit is capped.
type FetchOptions struct {
	Limit  int
	Enrich bool
	Save   bool
}

// Regions lists every known region in table order.
func (s *Service) Regions() []region.Region {
	return s.regions.All()
}

func (s *Service) resolve(name string) (region.Region, error) {
	reg, ok := s.regions.Lookup(name)
	if !ok {
		return region.Region{}, fmt.Errorf("%w: %q (want one of %s)",
			ErrUnknownRegion, strings.TrimSpace(name), strings.Join(s.regions.Names(), ", "))
	}
	return reg, nil
}

// Fetch aggregates articles for a region and optionally scrapes their full
// text. Persistence failures are logged; they never fail the fetch.
func (s *Service) Fetch(ctx context.Context, regionName string, opts FetchOptions) (*FetchResult, error) {
	reg, err := s.resolve(regionName)
	if err != nil {
		return nil, err
	}
	limit := clamp(opts.Limit, s.defaultLimit, MaxFetchLimit)

	records, err := s.aggregator.Aggregate(ctx, reg, limit)
	if err != nil {
		s.metrics.SetError(err.Error())
		return nil, fmt.Errorf("aggregate %s: %w", reg.Name, err)
	}

	if opts.Enrich && len(records) > 0 {
		s.enrich(ctx, records)
	}

	result := &FetchResult{
		Status:       StatusSuccess,
		TotalResults: len(records),
		Results:      records,
		Metadata: FetchMetadata{
			Province:  reg.Name,
			Timestamp: s.now().UTC(),
			Limit:     limit,
			Scraped:   opts.Enrich,
		},
	}

	if opts.Save {
		result.Metadata.SessionID = s.save(ctx, result)
	}

	s.metrics.SetLastRun()
	s.logger.Info("fetch complete",
		"region", reg.Name, "articles", len(records), "limit", limit, "scraped", opts.Enrich)
	return result, nil
}

// enrich scrapes every record's canonical URL and merges the text back by
// URL. Records whose scrape failed are left untouched.
func (s *Service) enrich(ctx context.Context, records []news.ArticleRecord) {
	urls := make([]string, len(records))
	for i, r := range records {
		urls[i] = r.CanonicalURL
	}
	byURL := make(map[string]scraper.ExtractedContent, len(records))
	for _, c := range s.extractor.ExtractMany(ctx, urls) {
		byURL[c.URL] = c
	}
	for i := range records {
		if c, ok := byURL[records[i].CanonicalURL]; ok {
			records[i].Enrich(c.Content, c.Summary, c.ScrapedAt)
		}
	}
}

func (s *Service) save(ctx context.Context, r *FetchResult) string {
	if s.store == nil {
		s.logger.Warn("session save requested but no store is configured")
		return ""
	}
	id, err := s.store.SaveSession(ctx, storage.Session{
		Region:    r.Metadata.Province,
		CreatedAt: r.Metadata.Timestamp,
		Metadata: map[string]any{
			"limit":   r.Metadata.Limit,
			"scraped": r.Metadata.Scraped,
			"total":   r.TotalResults,
		},
		Articles: r.Results,
	})
	if err != nil {
		s.metrics.SetError(err.Error())
		s.logger.Error("failed to save session", "region", r.Metadata.Province, "error", err)
		return ""
	}
	s.metrics.IncrementSessionsSaved()
	s.logger.Info("session saved", "session_id", id, "articles", len(r.Results))
	return id
}

// Scrape extracts content from caller-supplied URLs. Blank entries are
// ignored; failed URLs are missing from the result.
func (s *Service) Scrape(ctx context.Context, urls []string) (*ScrapeResult, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no urls given", ErrInvalidInput)
	}
	if len(clean) > MaxScrapeURLs {
		return nil, ErrTooManyURLs
	}

	return &ScrapeResult{
		Status:    StatusSuccess,
		Results:   s.extractor.ExtractMany(ctx, clean),
		ScrapedAt: s.now().UTC(),
	}, nil
}

// Rewrite narrates caller-supplied articles in the voice of hostType.
// regionName is optional; a known region is normalized to its table name.
func (s *Service) Rewrite(ctx context.Context, articles []news.ArticleRecord, hostType, regionName string) (*RewriteResult, error) {
	key, err := host.ParseKey(hostType)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no articles given", ErrInvalidInput)
	}
	regionName = strings.TrimSpace(regionName)
	if reg, ok := s.regions.Lookup(regionName); ok {
		regionName = reg.Name
	}
	return s.rewrite(ctx, articles, key, regionName)
}

func (s *Service) rewrite(ctx context.Context, articles []news.ArticleRecord, key host.Key, regionName string) (*RewriteResult, error) {
	narrated, err := s.rewriter.RewriteAll(ctx, articles, key, regionName)
	if err != nil {
		return nil, err
	}
	return &RewriteResult{
		Status:      StatusSuccess,
		HostType:    key,
		Articles:    narrated,
		ProcessedAt: s.now().UTC(),
	}, nil
}

// FetchAndRewrite fetches a region's news and narrates it. An empty fetch
// fails with ErrNoContentFound before any completion call is made.
func (s *Service) FetchAndRewrite(ctx context.Context, regionName, hostType string, opts FetchOptions) (*CombinedResult, error) {
	key, err := host.ParseKey(hostType)
	if err != nil {
		return nil, err
	}

	fetched, err := s.Fetch(ctx, regionName, opts)
	if err != nil {
		return nil, err
	}
	if len(fetched.Results) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoContentFound, fetched.Metadata.Province)
	}

	processed, err := s.rewrite(ctx, fetched.Results, key, fetched.Metadata.Province)
	if err != nil {
		return nil, err
	}
	return &CombinedResult{
		News:       fetched,
		Processed:  processed,
		CombinedAt: s.now().UTC(),
	}, nil
}

// FetchAndRewriteAll fetches a region's news once and narrates the same
// records with every personality in hostTypes (all of them when empty).
// Every host type is validated before the fetch. The fetched session is
// saved, and each batch of narrations is attached to it.
func (s *Service) FetchAndRewriteAll(ctx context.Context, regionName string, hostTypes []string, opts FetchOptions) (*PipelineResult, error) {
	keys, err := parseKeys(hostTypes)
	if err != nil {
		return nil, err
	}

	opts.Save = true
	fetched, err := s.Fetch(ctx, regionName, opts)
	if err != nil {
		return nil, err
	}
	if len(fetched.Results) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoContentFound, fetched.Metadata.Province)
	}

	result := &PipelineResult{
		Status:    StatusSuccess,
		HostTypes: keys,
		News:      fetched,
		Processed: make([]*RewriteResult, 0, len(keys)),
	}
	for _, key := range keys {
		processed, err := s.rewrite(ctx, fetched.Results, key, fetched.Metadata.Province)
		if err != nil {
			return nil, fmt.Errorf("rewrite as %s: %w", key, err)
		}
		s.saveRewrites(ctx, fetched, processed)
		result.Processed = append(result.Processed, processed)
	}
	result.CompletedAt = s.now().UTC()

	s.logger.Info("pipeline complete",
		"region", fetched.Metadata.Province, "articles", len(fetched.Results), "hosts", len(keys))
	return result, nil
}

// parseKeys validates every host type, dropping repeats.
func parseKeys(hostTypes []string) ([]host.Key, error) {
	if len(hostTypes) == 0 {
		return host.Keys(), nil
	}
	keys := make([]host.Key, 0, len(hostTypes))
	seen := make(map[host.Key]bool, len(hostTypes))
	for _, h := range hostTypes {
		key, err := host.ParseKey(h)
		if err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Service) saveRewrites(ctx context.Context, fetched *FetchResult, r *RewriteResult) {
	if s.store == nil || fetched.Metadata.SessionID == "" {
		return
	}
	err := s.store.SaveRewrites(ctx, storage.Rewrites{
		SessionID:   fetched.Metadata.SessionID,
		Region:      fetched.Metadata.Province,
		HostType:    r.HostType,
		ProcessedAt: r.ProcessedAt,
		Articles:    r.Articles,
	})
	if err != nil {
		s.metrics.SetError(err.Error())
		s.logger.Error("failed to save rewrites",
			"session_id", fetched.Metadata.SessionID, "host", r.HostType, "error", err)
	}
}

// Info reports how the service was assembled.
func (s *Service) Info() Info {
	return s.info
}

// Stats merges pipeline counters with completion throttle usage.
func (s *Service) Stats() map[string]any {
	stats := s.metrics.GetStats()
	if s.limiter != nil {
		stats["llm"] = s.limiter.GetStats()
	}
	return stats
}

// Close releases the store and the completion client.
func (s *Service) Close() error {
	closeQuietly(s.closer)
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func clamp(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
