package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	MaxContentChars = 5000
	MaxSummaryChars = 500

	minContentChars  = 200
	minSentenceChars = 20
	summarySentences = 3

	noTitle = "No title found"
)

// Content-area candidates, most specific first.
var contentSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	".article-content",
	".entry-content",
	".post-content",
	".content",
	"#content",
}

const stripSelectors = "script, style, nav, header, footer, aside, iframe"

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// ExtractDocument pulls title, body text and summary out of a parsed page.
// URL, Domain and ScrapedAt are left for the caller. The document is
// modified: non-content elements are removed.
func ExtractDocument(doc *goquery.Document) *ExtractedContent {
	title := extractTitle(doc)

	doc.Find(stripSelectors).Remove()
	body := extractBody(doc)

	return &ExtractedContent{
		Title:   title,
		Content: body,
		Summary: Summarize(body),
	}
}

// extractTitle tries <h1>, then <title>, then og:title.
func extractTitle(doc *goquery.Document) string {
	if t := squash(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := squash(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := squash(og); t != "" {
			return t
		}
	}
	return noTitle
}

// extractBody returns the first content area longer than minContentChars,
// or all body paragraphs when none qualifies. Result is line-cleaned and
// capped at MaxContentChars.
func extractBody(doc *goquery.Document) string {
	var content string
	for _, sel := range contentSelectors {
		area := doc.Find(sel).First()
		if area.Length() == 0 {
			continue
		}
		content = nodeLines(area.Nodes[0])
		if utf8.RuneCountInString(content) > minContentChars {
			break
		}
	}

	if utf8.RuneCountInString(content) < minContentChars {
		var paras []string
		doc.Find("body p").Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				paras = append(paras, t)
			}
		})
		content = strings.Join(paras, "\n")
	}

	return truncateRunes(cleanLines(content), MaxContentChars)
}

// nodeLines joins the trimmed text nodes under n with newlines, in
// document order.
func nodeLines(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, "\n")
}

// Summarize keeps the first three sentences longer than 20 characters,
// joined with ". " and ending in a period, capped at MaxSummaryChars.
// Empty input yields an empty summary.
func Summarize(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	var picked []string
	for _, s := range sentenceSplit.Split(body, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) <= minSentenceChars {
			continue
		}
		picked = append(picked, s)
		if len(picked) == summarySentences {
			break
		}
	}
	summary := strings.Join(picked, ". ")
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return truncateRunes(summary, MaxSummaryChars)
}

func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
