package news

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultLanguage   = "en"
	DefaultRegionCode = "ca"
)

// RawEntry is one item as returned by an upstream source, before URL
// decoding and dedup.
type RawEntry struct {
	ID         string
	Title      string
	Link       string
	SourceName string
	Published  time.Time // zero when the upstream date was missing or unparseable
	Summary    string
}

// ArticleRecord is a discovered news item. CanonicalURL is unique within a
// single aggregation result.
type ArticleRecord struct {
	ID           string     `json:"article_id"`
	Fingerprint  string     `json:"wtkr_id"`
	Title        string     `json:"title"`
	CanonicalURL string     `json:"link"`
	ProviderURL  string     `json:"original_link"`
	SourceName   string     `json:"source_name"`
	PublishedAt  time.Time  `json:"pub_date"`
	Summary      string     `json:"summary"`
	Language     string     `json:"language"`
	RegionCode   string     `json:"country"`
	FullText     string     `json:"content,omitempty"`
	ScrapedAt    *time.Time `json:"scraped_at,omitempty"`
}

// Fingerprint is the stable article handle: "wtkr-" followed by the first
// 16 hex chars of sha256(canonicalURL + title).
func Fingerprint(canonicalURL, title string) string {
	sum := sha256.Sum256([]byte(canonicalURL + title))
	return "wtkr-" + hex.EncodeToString(sum[:])[:16]
}

// newRecord builds a record from an upstream entry whose link has already
// been decoded to canonical.
func newRecord(e RawEntry, canonical string, now time.Time) ArticleRecord {
	title := strings.TrimSpace(e.Title)
	id := e.ID
	if id == "" {
		id = canonical
	}
	published := e.Published
	if published.IsZero() {
		published = now
	}
	return ArticleRecord{
		ID:           id,
		Fingerprint:  Fingerprint(canonical, title),
		Title:        title,
		CanonicalURL: canonical,
		ProviderURL:  e.Link,
		SourceName:   e.SourceName,
		PublishedAt:  published.UTC(),
		Summary:      StripHTML(e.Summary),
		Language:     DefaultLanguage,
		RegionCode:   DefaultRegionCode,
	}
}

// Enrich attaches scraped text. A non-empty summary replaces the upstream one.
func (a *ArticleRecord) Enrich(fullText, summary string, scrapedAt time.Time) {
	a.FullText = fullText
	if summary != "" {
		a.Summary = summary
	}
	t := scrapedAt.UTC()
	a.ScrapedAt = &t
}

// BestText is the text fed to rewriting: full text when scraped, else summary.
func (a ArticleRecord) BestText() string {
	if a.FullText != "" {
		return a.FullText
	}
	return a.Summary
}

// StripHTML reduces an HTML fragment to whitespace-normalized text.
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
