package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesAggregated int64
	DuplicatesFiltered int64
	SourceFailures     int64
	ScrapesSucceeded   int64
	ScrapesFailed      int64
	RewritesSucceeded  int64
	RewritesDegraded   int64
	SessionsSaved      int64
	RequestsHandled    int64

	// Timings
	LastRequestTime    time.Duration
	AverageRequestTime time.Duration
	TotalRequestTime   time.Duration
	RequestCount       int64

	// Status
	StartedAt     time.Time
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, StartedAt: time.Now()}
}

func (m *Metrics) AddArticlesAggregated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesAggregated += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) IncrementScrapes(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.ScrapesSucceeded++
	} else {
		m.ScrapesFailed++
	}
}

func (m *Metrics) IncrementRewrites(degraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if degraded {
		m.RewritesDegraded++
	} else {
		m.RewritesSucceeded++
	}
}

func (m *Metrics) IncrementSessionsSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsSaved++
}

func (m *Metrics) RecordRequest(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RequestsHandled++
	m.LastRequestTime = duration
	m.TotalRequestTime += duration
	m.RequestCount++
	m.AverageRequestTime = m.TotalRequestTime / time.Duration(m.RequestCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"articles_aggregated":     m.ArticlesAggregated,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"source_failures":         m.SourceFailures,
		"scrapes_succeeded":       m.ScrapesSucceeded,
		"scrapes_failed":          m.ScrapesFailed,
		"rewrites_succeeded":      m.RewritesSucceeded,
		"rewrites_degraded":       m.RewritesDegraded,
		"sessions_saved":          m.SessionsSaved,
		"requests_handled":        m.RequestsHandled,
		"last_request_time_ms":    m.LastRequestTime.Milliseconds(),
		"average_request_time_ms": m.AverageRequestTime.Milliseconds(),
		"uptime_seconds":          int64(time.Since(m.StartedAt).Seconds()),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}

