package app

import (
	"time"

	"github.com/tkrnews/newsgather/internal/host"
	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/scraper"
)

type FetchResult struct {
	Status       string               `json:"status"`
	TotalResults int                  `json:"totalResults"`
	Results      []news.ArticleRecord `json:"results"`
	Metadata     FetchMetadata        `json:"metadata"`
}

type FetchMetadata struct {
	Province  string    `json:"province"`
	Timestamp time.Time `json:"timestamp"`
	Limit     int       `json:"limit"`
	Scraped   bool      `json:"scraped"`
	SessionID string    `json:"session_id,omitempty"`
}

type ScrapeResult struct {
	Status    string                     `json:"status"`
	Results   []scraper.ExtractedContent `json:"results"`
	ScrapedAt time.Time                  `json:"scraped_at"`
}

type RewriteResult struct {
	Status      string                 `json:"status"`
	HostType    host.Key               `json:"host_type"`
	Articles    []host.NarratedArticle `json:"articles"`
	ProcessedAt time.Time              `json:"processed_at"`
}

// CombinedResult is the output of FetchAndRewrite.
type CombinedResult struct {
	News       *FetchResult   `json:"news"`
	Processed  *RewriteResult `json:"processed"`
	CombinedAt time.Time      `json:"combined_at"`
}

// PipelineResult is the output of FetchAndRewriteAll: one fetch, narrated
// once per host type.
type PipelineResult struct {
	Status      string           `json:"status"`
	HostTypes   []host.Key       `json:"host_types"`
	News        *FetchResult     `json:"news"`
	Processed   []*RewriteResult `json:"processed"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Info describes how the service was assembled, for health reporting.
type Info struct {
	LLMProvider   string   `json:"llm_provider"`
	LLMConfigured bool     `json:"llm_configured"`
	Sources       []string `json:"news_sources"`
	StoreBackend  string   `json:"store_backend"`
}
