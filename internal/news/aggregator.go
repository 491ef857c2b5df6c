package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/redirect"
	"github.com/tkrnews/newsgather/internal/region"
)

// ErrUpstreamUnavailable means every upstream query of an aggregation failed.
var ErrUpstreamUnavailable = errors.New("upstream news sources unavailable")

// Aggregator merges results from several sources into one deduplicated,
// deterministically ordered list.
type Aggregator struct {
	sources []Source
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAggregator(sources []Source, log *slog.Logger, m *metrics.Metrics) *Aggregator {
	if m == nil {
		m = metrics.Global
	}
	return &Aggregator{
		sources: sources,
		logger:  logger.Component(log, "aggregator"),
		metrics: m,
		now:     time.Now,
	}
}

type query struct {
	source Source
	term   string
}

// plan orders queries: every per-term source for each search term in
// order, then each per-region source once.
func (a *Aggregator) plan(reg region.Region) []query {
	var qs []query
	for _, term := range reg.SearchTerms {
		for _, src := range a.sources {
			if src.Scope() == PerTerm {
				qs = append(qs, query{source: src, term: term})
			}
		}
	}
	for _, src := range a.sources {
		if src.Scope() == PerRegion {
			qs = append(qs, query{source: src})
		}
	}
	return qs
}

// Aggregate returns at most limit records for reg. First-seen canonical URL
// wins and scanning stops once limit is reached. A failed query is logged
// and skipped; only when every query fails is ErrUpstreamUnavailable returned.
func (a *Aggregator) Aggregate(ctx context.Context, reg region.Region, limit int) ([]ArticleRecord, error) {
	if limit <= 0 {
		return []ArticleRecord{}, nil
	}

	queries := a.plan(reg)
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrUpstreamUnavailable)
	}

	records := make([]ArticleRecord, 0, limit)
	seen := make(map[string]struct{}, limit)
	failures := 0
	var lastErr error

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := q.source.Search(ctx, q.term, reg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failures++
			lastErr = err
			a.metrics.IncrementSourceFailures()
			a.logger.Warn("source query failed, skipping",
				"source", q.source.Name(), "term", q.term, "region", reg.Name, "error", err)
			continue
		}
		a.logger.Debug("source query ok",
			"source", q.source.Name(), "term", q.term, "entries", len(entries))

		now := a.now()
		for _, e := range entries {
			canonical := redirect.Decode(e.Link)
			if canonical == "" {
				continue
			}
			if _, dup := seen[canonical]; dup {
				a.metrics.IncrementDuplicatesFiltered()
				continue
			}
			seen[canonical] = struct{}{}
			records = append(records, newRecord(e, canonical, now))

			if len(records) == limit {
				a.metrics.AddArticlesAggregated(len(records))
				return records, nil
			}
		}
	}

	if failures == len(queries) {
		return nil, fmt.Errorf("%w: all %d queries for %s failed: %v",
			ErrUpstreamUnavailable, failures, reg.Name, lastErr)
	}

	a.metrics.AddArticlesAggregated(len(records))
	a.logger.Info("aggregation complete",
		"region", reg.Name, "records", len(records), "limit", limit, "failed_queries", failures)
	return records, nil
}
