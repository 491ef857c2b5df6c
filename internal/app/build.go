package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tkrnews/newsgather/internal/config"
	"github.com/tkrnews/newsgather/internal/host"
	"github.com/tkrnews/newsgather/internal/httpclient"
	"github.com/tkrnews/newsgather/internal/llm"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/ratelimit"
	"github.com/tkrnews/newsgather/internal/region"
	"github.com/tkrnews/newsgather/internal/retry"
	"github.com/tkrnews/newsgather/internal/rss"
	"github.com/tkrnews/newsgather/internal/scraper"
	"github.com/tkrnews/newsgather/internal/storage"
)

// New assembles a Service from cfg. The returned service owns the store
// and the completion client; call Close when done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Service, error) {
	m := metrics.Global
	regions := region.Default()

	// Feed and page fetches share one client; each call bounds itself with
	// a context deadline. Completion calls may run for minutes, so their
	// client has no overall timeout.
	client := httpclient.New(httpclient.Options{UserAgent: cfg.UserAgent, Timeout: cfg.ScrapeTimeout})
	llmClient := httpclient.New(httpclient.Options{UserAgent: cfg.UserAgent})

	retryCfg := retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}
	sources, err := buildSources(cfg, client, retryCfg, regions, log)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(ctx, cfg.LLMProvider, llmParams(cfg, llmClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
	}
	rewriteWith, limiter := throttle(cfg, completer, log)

	store, err := storage.Open(ctx, cfg.StoreBackend, storage.Options{
		Dir:         cfg.LocalStoreDir,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		closeQuietly(completer)
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}

	svc := NewService(Deps{
		Regions:    regions,
		Aggregator: news.NewAggregator(sources, log, m),
		Extractor: scraper.New(client, scraper.Options{
			Timeout:     cfg.ScrapeTimeout,
			Concurrency: cfg.MaxConcurrentScrapes,
		}, log, m),
		Rewriter: host.NewRewriter(rewriteWith, cfg.RewriteConcurrency, log, m),
		Store:    store,
		Logger:   log,
		Metrics:  m,

		DefaultLimit: cfg.DefaultNewsLimit,
	})
	svc.closer = completer
	svc.info = Info{
		LLMProvider:   cfg.LLMProvider,
		LLMConfigured: cfg.LLMConfigured(),
		Sources:       cfg.NewsSources,
		StoreBackend:  cfg.StoreBackend,
	}
	svc.limiter = limiter
	return svc, nil
}

// throttle wraps completer in the rate limiter. Without an API key every
// call fails immediately, so there is nothing to throttle or budget.
func throttle(cfg *config.Config, completer llm.Completer, log *slog.Logger) (llm.Completer, *ratelimit.Limiter) {
	if !cfg.LLMConfigured() {
		log.Warn("no API key for llm provider; rewrites will return original text", "provider", cfg.LLMProvider)
		return completer, nil
	}
	limited := ratelimit.New(completer, cfg.LLMRequestsPerMinute, cfg.LLMMaxRequestsPerDay, log)
	return limited, limited
}

func buildSources(cfg *config.Config, client *http.Client, retryCfg retry.RetryConfig, regions *region.Directory, log *slog.Logger) ([]news.Source, error) {
	var sources []news.Source
	for _, name := range cfg.NewsSources {
		switch name {
		case "google":
			sources = append(sources, rss.NewGoogleNews(client, retryCfg, log))
		case "feeds":
			list := rss.NewFeedList(client, retryCfg, regions.NationalFeeds(), log)
			if cfg.FeedsConfigPath != "" {
				overrides, err := rss.LoadFeeds(cfg.FeedsConfigPath)
				if err != nil {
					return nil, fmt.Errorf("failed to load feeds config: %w", err)
				}
				list.WithOverrides(overrides)
			}
			sources = append(sources, list)
		default:
			return nil, fmt.Errorf("unknown news source %q", name)
		}
	}
	return sources, nil
}

func llmParams(cfg *config.Config, client *http.Client) llm.Params {
	p := llm.Params{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		HTTPClient:  client,
	}
	switch cfg.LLMProvider {
	case "anthropic":
		p.APIKey, p.Model, p.BaseURL = cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL
	case "gemini":
		p.APIKey, p.Model = cfg.GeminiAPIKey, cfg.GeminiModel
	case "openai":
		p.APIKey, p.Model = cfg.OpenAIAPIKey, cfg.OpenAIModel
	}
	return p
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}
