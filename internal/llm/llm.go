// Package llm wraps the external text-completion providers behind a single
// Completer interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrNotConfigured is returned by a provider built without an API key.
var ErrNotConfigured = errors.New("llm provider not configured")

// ErrEmptyCompletion is returned when the provider answered with no text.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Completer produces a completion for one system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Params are shared by every provider.
type Params struct {
	APIKey      string
	Model       string
	BaseURL     string // optional endpoint override
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// New builds the provider named by provider ("anthropic", "gemini" or
// "openai"). A missing key yields a Completer that always fails with
// ErrNotConfigured so callers can degrade per request.
func New(ctx context.Context, provider string, p Params) (Completer, error) {
	if p.APIKey == "" {
		return unconfigured(provider), nil
	}
	if p.HTTPClient == nil {
		p.HTTPClient = http.DefaultClient
	}
	switch provider {
	case "anthropic":
		return NewAnthropic(p), nil
	case "gemini":
		g, err := NewGemini(ctx, p)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		return NewOpenAI(p), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

func unconfigured(provider string) Completer {
	return CompleterFunc(func(context.Context, string, string) (string, error) {
		return "", fmt.Errorf("%w: %s API key is not set", ErrNotConfigured, provider)
	})
}

var (
	parenNote   = regexp.MustCompile(`(?is)\(\s*note:[^)]*\)`)
	bracketNote = regexp.MustCompile(`(?is)\[\s*note:[^\]]*\]`)
	lineNote    = regexp.MustCompile(`(?im)^\s*note:.*$`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Sanitize trims model output and drops "Note: ..." meta commentary that
// models append to rewritten text.
func Sanitize(s string) string {
	s = parenNote.ReplaceAllString(s, "")
	s = bracketNote.ReplaceAllString(s, "")
	s = lineNote.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	s = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
