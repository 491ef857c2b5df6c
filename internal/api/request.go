// Package api is the request/response boundary shared by the HTTP server,
// the job endpoint and the serverless handler.
package api

import (
	"strings"

	"github.com/tkrnews/newsgather/internal/news"
	"github.com/tkrnews/newsgather/internal/redirect"
)

type Action string

const (
	ActionGetNews         Action = "get_news"
	ActionScrapeURLs      Action = "scrape_urls"
	ActionProcessNews     Action = "process_news"
	ActionFetchAndProcess Action = "fetch_and_process"
	ActionGetProvinces    Action = "get_provinces"
	ActionRunPipeline     Action = "run_pipeline"
)

// Limits enforced before the pipeline is invoked. An unset get_news limit
// falls through to the service default, DEFAULT_NEWS_LIMIT.
const (
	DefaultNewsLimit    = 10
	MaxNewsLimit        = 50
	DefaultProcessLimit = 5
	MaxProcessLimit     = 20

	DefaultPipelineLimit = 10
)

// Request is the input of every action. Region and Province are aliases.
type Request struct {
	Action      string         `json:"action"`
	Region      string         `json:"region,omitempty"`
	Province    string         `json:"province,omitempty"`
	Limit       *int           `json:"limit,omitempty"`
	Scrape      *bool          `json:"scrape,omitempty"`
	HostType    string         `json:"host_type,omitempty"`
	HostTypes   []string       `json:"host_types,omitempty"`
	Articles    []ArticleInput `json:"articles,omitempty"`
	URLs        []string       `json:"urls,omitempty"`
	SaveToDB    bool           `json:"save_to_db,omitempty"`
	SaveToLocal bool           `json:"save_to_local,omitempty"`
}

func (r Request) regionName() string {
	if s := strings.TrimSpace(r.Region); s != "" {
		return s
	}
	return strings.TrimSpace(r.Province)
}

// scrape defaults to true when unset.
func (r Request) scrape() bool {
	return r.Scrape == nil || *r.Scrape
}

// Response is the envelope of every action result.
type Response struct {
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Job is the queued-job envelope: {"id": "...", "input": {...}}.
type Job struct {
	ID    string  `json:"id"`
	Input Request `json:"input"`
}

type JobResult struct {
	ID string `json:"id,omitempty"`
	Response
}

// ProvincesOutput is the get_provinces result.
type ProvincesOutput struct {
	Provinces any `json:"provinces"`
	Total     int `json:"total"`
}

// ArticleInput accepts the article shapes callers send for rewriting: the
// fetch output itself, or a looser {url, content} form.
type ArticleInput struct {
	ID          string `json:"article_id,omitempty"`
	Fingerprint string `json:"wtkr_id,omitempty"`
	Title       string `json:"title"`
	Link        string `json:"link,omitempty"`
	URL         string `json:"url,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	Source      string `json:"source,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Record converts the input to an ArticleRecord. A missing fingerprint is
// computed from the decoded link and title.
func (a ArticleInput) Record() news.ArticleRecord {
	link := firstNonEmpty(a.Link, a.URL)
	canonical := redirect.Decode(link)
	title := strings.TrimSpace(a.Title)
	fp := a.Fingerprint
	if fp == "" {
		fp = news.Fingerprint(canonical, title)
	}
	return news.ArticleRecord{
		ID:           firstNonEmpty(a.ID, canonical),
		Fingerprint:  fp,
		Title:        title,
		CanonicalURL: canonical,
		ProviderURL:  link,
		SourceName:   firstNonEmpty(a.SourceName, a.Source),
		Summary:      news.StripHTML(firstNonEmpty(a.Summary, a.Description)),
		Language:     news.DefaultLanguage,
		RegionCode:   news.DefaultRegionCode,
		FullText:     strings.TrimSpace(a.Content),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// clampLimit returns def when n is unset and otherwise pins n to [1, max].
func clampLimit(n *int, def, max int) int {
	if n == nil {
		return def
	}
	switch {
	case *n < 1:
		return 1
	case *n > max:
		return max
	}
	return *n
}
