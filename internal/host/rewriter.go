package host

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tkrnews/newsgather/internal/llm"
	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/news"
)

// ErrCompletionFailed wraps a failed completion call for one article.
var ErrCompletionFailed = errors.New("completion failed")

// NarratedArticle is the rewrite of one article by one personality.
type NarratedArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	SourceName    string `json:"source"`
	Fingerprint   string `json:"wtkr_id"`
	NarrationText string `json:"content"`
	OriginalText  string `json:"original_content"`

	// Degraded is set when the completion failed and NarrationText is the
	// original text.
	Degraded bool  `json:"-"`
	Err      error `json:"-"`
}

// Rewriter makes one completion call per article.
type Rewriter struct {
	llm         llm.Completer
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewRewriter(c llm.Completer, concurrency int, log *slog.Logger, m *metrics.Metrics) *Rewriter {
	if concurrency < 1 {
		concurrency = 1
	}
	if m == nil {
		m = metrics.Global
	}
	return &Rewriter{
		llm:         c,
		concurrency: concurrency,
		logger:      logger.Component(log, "rewriter"),
		metrics:     m,
	}
}

// Rewrite narrates a single article. A completion failure never returns an
// error: the result is degraded to the original text instead.
func (r *Rewriter) Rewrite(ctx context.Context, a news.ArticleRecord, p Personality, regionName string) NarratedArticle {
	original := a.BestText()
	out := NarratedArticle{
		Title:        a.Title,
		URL:          a.CanonicalURL,
		SourceName:   a.SourceName,
		Fingerprint:  a.Fingerprint,
		OriginalText: original,
	}

	text, err := r.llm.Complete(ctx, systemPrompt(p, regionName), userPrompt(a.Title, a.SourceName, original))
	if err == nil {
		text = llm.Sanitize(text)
		if text == "" {
			err = llm.ErrEmptyCompletion
		}
	}
	if err != nil {
		r.logger.Warn("rewrite failed, using original text",
			"title", a.Title, "host", p.Key, "error", err)
		r.metrics.IncrementRewrites(true)
		out.NarrationText = original
		out.Degraded = true
		out.Err = errors.Join(ErrCompletionFailed, err)
		return out
	}

	r.metrics.IncrementRewrites(false)
	out.NarrationText = text
	return out
}

// RewriteAll narrates every article concurrently. The result has one entry
// per input article, in input order. Validation of key happens before any
// completion call.
func (r *Rewriter) RewriteAll(ctx context.Context, articles []news.ArticleRecord, key Key, regionName string) ([]NarratedArticle, error) {
	p, err := Lookup(key)
	if err != nil {
		return nil, err
	}

	out := make([]NarratedArticle, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, a := range articles {
		g.Go(func() error {
			out[i] = r.Rewrite(gctx, a, p, regionName)
			return nil
		})
	}
	g.Wait()

	degraded := 0
	for _, n := range out {
		if n.Degraded {
			degraded++
		}
	}
	r.logger.Info("rewrite batch complete",
		"host", key, "articles", len(out), "degraded", degraded)
	return out, nil
}
