package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tkrnews/newsgather/internal/llm"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/news"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func articles() []news.ArticleRecord {
	return []news.ArticleRecord{
		{Title: "Flood warning", CanonicalURL: "https://a.ca/1", SourceName: "CBC", Fingerprint: "wtkr-1", Summary: "River rising.", FullText: "The Bow River is rising fast."},
		{Title: "Budget passes", CanonicalURL: "https://a.ca/2", SourceName: "", Fingerprint: "wtkr-2", Summary: "Council approved the budget."},
		{Title: "Oil prices", CanonicalURL: "https://a.ca/3", SourceName: "Global", Fingerprint: "wtkr-3", Summary: "Prices climbed."},
	}
}

func TestParseKey(t *testing.T) {
	for _, in := range []string{"anchor", "Friend", " NEWSREEL "} {
		if _, err := ParseKey(in); err != nil {
			t.Errorf("ParseKey(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "pirate", "anchors"} {
		if _, err := ParseKey(in); !errors.Is(err, ErrInvalidHostType) {
			t.Errorf("ParseKey(%q) err = %v, want ErrInvalidHostType", in, err)
		}
	}
}

func TestAllPersonalities(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}
	for i, k := range Keys() {
		if all[i].Key != k || all[i].DisplayName == "" || all[i].Instructions == "" {
			t.Errorf("personality %d = %+v", i, all[i])
		}
	}
}

func TestPrompts(t *testing.T) {
	p, _ := Lookup(Anchor)
	sys := systemPrompt(p, "Alberta")
	if !strings.Contains(sys, "Professional News Anchor") || !strings.Contains(sys, "Add local relevance for Alberta") {
		t.Errorf("system prompt = %q", sys)
	}
	if strings.Contains(systemPrompt(p, ""), "local relevance for") {
		t.Error("region guideline should be omitted without a region")
	}

	user := userPrompt("Title", "", "Body")
	if !strings.Contains(user, "Source: Local News") || !strings.Contains(user, "Content:\nBody") {
		t.Errorf("user prompt = %q", user)
	}
}

func TestRewriteAllFixedCompletion(t *testing.T) {
	var calls int32
	fixed := llm.CompleterFunc(func(_ context.Context, system, user string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "This just in!", nil
	})
	m := metrics.New()
	r := NewRewriter(fixed, 2, quietLogger(), m)

	in := articles()
	out, err := r.RewriteAll(context.Background(), in, Newsreel, "Ontario")
	if err != nil {
		t.Fatalf("RewriteAll: %v", err)
	}
	if len(out) != len(in) || calls != int32(len(in)) {
		t.Fatalf("out = %d calls = %d", len(out), calls)
	}
	for i, n := range out {
		if n.NarrationText != "This just in!" {
			t.Errorf("[%d] narration = %q", i, n.NarrationText)
		}
		if n.OriginalText != in[i].BestText() {
			t.Errorf("[%d] original = %q, want %q", i, n.OriginalText, in[i].BestText())
		}
		if n.URL != in[i].CanonicalURL || n.Fingerprint != in[i].Fingerprint || n.Degraded {
			t.Errorf("[%d] = %+v", i, n)
		}
	}
	if out[0].OriginalText != "The Bow River is rising fast." {
		t.Errorf("full text should be preferred, got %q", out[0].OriginalText)
	}
	if m.RewritesSucceeded != 3 {
		t.Errorf("rewrites succeeded = %d", m.RewritesSucceeded)
	}
}

func TestRewriteAllDegradesPerArticle(t *testing.T) {
	boom := errors.New("overloaded")
	flaky := llm.CompleterFunc(func(_ context.Context, _, user string) (string, error) {
		if strings.Contains(user, "Budget passes") {
			return "", boom
		}
		return "Rewritten", nil
	})
	m := metrics.New()
	r := NewRewriter(flaky, 3, quietLogger(), m)

	out, err := r.RewriteAll(context.Background(), articles(), Friend, "")
	if err != nil {
		t.Fatalf("RewriteAll: %v", err)
	}
	if out[0].NarrationText != "Rewritten" || out[2].NarrationText != "Rewritten" {
		t.Errorf("healthy articles not rewritten: %+v", out)
	}
	bad := out[1]
	if !bad.Degraded || bad.NarrationText != "Council approved the budget." || bad.OriginalText != bad.NarrationText {
		t.Errorf("degraded article = %+v", bad)
	}
	if !errors.Is(bad.Err, ErrCompletionFailed) || !errors.Is(bad.Err, boom) {
		t.Errorf("Err = %v", bad.Err)
	}
	if m.RewritesDegraded != 1 || m.RewritesSucceeded != 2 {
		t.Errorf("metrics degraded=%d ok=%d", m.RewritesDegraded, m.RewritesSucceeded)
	}
}

func TestRewriteAllInvalidKeyMakesNoCalls(t *testing.T) {
	var calls int32
	c := llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "x", nil
	})
	r := NewRewriter(c, 1, quietLogger(), metrics.New())

	out, err := r.RewriteAll(context.Background(), articles(), Key("pirate"), "")
	if !errors.Is(err, ErrInvalidHostType) {
		t.Fatalf("err = %v, want ErrInvalidHostType", err)
	}
	if out != nil || calls != 0 {
		t.Errorf("out = %v calls = %d", out, calls)
	}
}

func TestRewriteEmptyCompletionDegrades(t *testing.T) {
	blank := llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "  Note: nothing to add.  ", nil
	})
	r := NewRewriter(blank, 1, quietLogger(), metrics.New())
	p, _ := Lookup(Anchor)

	n := r.Rewrite(context.Background(), articles()[2], p, "")
	if !n.Degraded || n.NarrationText != "Prices climbed." {
		t.Errorf("got %+v", n)
	}
}
