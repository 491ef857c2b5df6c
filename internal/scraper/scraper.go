package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/metrics"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 10

	maxPageBytes = 5 << 20
)

// ErrExtractionFailed covers every per-URL failure: fetch, status, parse.
var ErrExtractionFailed = errors.New("content extraction failed")

// FetchError carries the HTTP detail of a failed page fetch.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtractionFailed}
	}
	return []error{ErrExtractionFailed, e.Err}
}

// ExtractedContent is the readable part of one page.
type ExtractedContent struct {
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type Options struct {
	Timeout     time.Duration // per URL, covers fetch and body read
	Concurrency int           // parallel fetches in ExtractMany
}

// Extractor fetches pages over a shared client and pulls out article text.
type Extractor struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func New(client *http.Client, opts Options, log *slog.Logger, m *metrics.Metrics) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if m == nil {
		m = metrics.Global
	}
	return &Extractor{
		client:      client,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      logger.Component(log, "scraper"),
		metrics:     m,
		now:         time.Now,
	}
}

// Extract fetches rawURL and extracts its content. Timeouts and non-2xx
// responses are reported as errors wrapping ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*ExtractedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrExtractionFailed, rawURL, err)
	}

	content := ExtractDocument(doc)
	content.URL = rawURL
	content.Domain = domainOf(rawURL)
	content.ScrapedAt = e.now().UTC()

	e.logger.Debug("page extracted", "url", rawURL, "title", content.Title, "chars", len(content.Content))
	return content, nil
}

// ExtractMany extracts every URL concurrently, bounded by the configured
// concurrency. Failed URLs are logged and omitted; the result keeps the
// input order of the URLs that succeeded.
func (e *Extractor) ExtractMany(ctx context.Context, urls []string) []ExtractedContent {
	slots := make([]*ExtractedContent, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			c, err := e.Extract(gctx, u)
			if err != nil {
				e.metrics.IncrementScrapes(false)
				e.logger.Warn("scrape failed", "url", u, "error", err)
				return nil
			}
			e.metrics.IncrementScrapes(true)
			slots[i] = c
			return nil
		})
	}
	g.Wait()

	out := make([]ExtractedContent, 0, len(urls))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	e.logger.Info("batch scrape complete", "requested", len(urls), "succeeded", len(out))
	return out
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
