package news

import (
	"strings"
	"testing"
	"time"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("https://www.cbc.ca/news/1", "Title")
	b := Fingerprint("https://www.cbc.ca/news/1", "Title")
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "wtkr-") || len(a) != len("wtkr-")+16 {
		t.Errorf("unexpected format %q", a)
	}
	if Fingerprint("https://www.cbc.ca/news/1", "Other") == a {
		t.Error("different titles should not collide")
	}
	if Fingerprint("https://www.cbc.ca/news/2", "Title") == a {
		t.Error("different urls should not collide")
	}
}

func TestFingerprintKnownValue(t *testing.T) {
	// sha256("") prefix
	if got := Fingerprint("", ""); got != "wtkr-e3b0c44298fc1c14" {
		t.Errorf("Fingerprint(\"\", \"\") = %q", got)
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := RawEntry{
		Title:      "  Calgary flood  ",
		Link:       "https://news.google.com/x?url=https%3A%2F%2Fcbc.ca%2F1",
		SourceName: "CBC",
		Summary:    "<p>Water <b>rising</b></p>",
	}
	r := newRecord(e, "https://cbc.ca/1", now)

	if r.Title != "Calgary flood" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.ID != "https://cbc.ca/1" {
		t.Errorf("ID should fall back to canonical url, got %q", r.ID)
	}
	if r.ProviderURL != e.Link {
		t.Errorf("ProviderURL = %q", r.ProviderURL)
	}
	if !r.PublishedAt.Equal(now) {
		t.Errorf("PublishedAt = %v, want retrieval time", r.PublishedAt)
	}
	if r.Summary != "Water rising" {
		t.Errorf("Summary = %q", r.Summary)
	}
	if r.Language != "en" || r.RegionCode != "ca" {
		t.Errorf("lang/region = %q/%q", r.Language, r.RegionCode)
	}
	if r.Fingerprint != Fingerprint("https://cbc.ca/1", "Calgary flood") {
		t.Errorf("Fingerprint = %q", r.Fingerprint)
	}
}

func TestEnrichAndBestText(t *testing.T) {
	r := ArticleRecord{Summary: "upstream"}
	if r.BestText() != "upstream" {
		t.Errorf("BestText = %q", r.BestText())
	}
	at := time.Now()
	r.Enrich("full body", "", at)
	if r.Summary != "upstream" {
		t.Errorf("empty summary should keep upstream, got %q", r.Summary)
	}
	if r.BestText() != "full body" || r.ScrapedAt == nil {
		t.Errorf("after enrich: %+v", r)
	}
	r.Enrich("full body", "better", at)
	if r.Summary != "better" {
		t.Errorf("Summary = %q", r.Summary)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain   text", "plain text"},
		{`<a href="x">Link</a>&nbsp;<font>Source</font>`, "Link Source"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
