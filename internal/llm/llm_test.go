package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  This just in!  ", "This just in!"},
		{
			"inline parenthesized note",
			"Good evening.\n(Note: This rewrite keeps all facts from the original.) Calgary council met today.",
			"Good evening.\nCalgary council met today.",
		},
		{
			"full line note",
			"Note: I have kept the facts accurate.\nDid you hear about the new park?",
			"Did you hear about the new park?",
		},
		{"bracketed note", "[Note: broadcast style] Extraordinary developments!", "Extraordinary developments!"},
		{"blank runs", "One.\n\n\n\n  \nTwo.", "One.\n\nTwo."},
		{"notebook is not a note", "The notebook was found downtown.", "The notebook was found downtown."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewWithoutKeyIsNotConfigured(t *testing.T) {
	for _, provider := range []string{"anthropic", "gemini", "openai"} {
		c, err := New(context.Background(), provider, Params{})
		if err != nil {
			t.Fatalf("%s: New: %v", provider, err)
		}
		if _, err := c.Complete(context.Background(), "s", "u"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("%s: err = %v, want ErrNotConfigured", provider, err)
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), "cohere", Params{APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(_ context.Context, system, user string) (string, error) {
		return system + "|" + user, nil
	})
	got, err := c.Complete(context.Background(), "a", "b")
	if err != nil || got != "a|b" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("headers = %v", r.Header)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "claude-3-haiku-20240307" || req.MaxTokens != 2000 {
			t.Errorf("request = %+v", req)
		}
		if len(req.System) != 1 || req.System[0].Text != "sys" {
			t.Errorf("system = %+v", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" ||
			len(req.Messages[0].Content) != 1 || req.Messages[0].Content[0].Text != "usr" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku-20240307",`+
			`"content":[{"type":"text","text":"Good evening, "},{"type":"text","text":"Alberta."}],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	a := NewAnthropic(Params{
		APIKey:      "test-key",
		Model:       "claude-3-haiku-20240307",
		BaseURL:     srv.URL,
		Temperature: 0.7,
		MaxTokens:   2000,
		HTTPClient:  srv.Client(),
	})
	got, err := a.Complete(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Good evening, Alberta." {
		t.Errorf("got %q", got)
	}
}

func TestAnthropicErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`)
	}))
	defer srv.Close()

	a := NewAnthropic(Params{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client(), MaxTokens: 10})
	_, err := a.Complete(context.Background(), "s", "u")
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want a 400 API error", err)
	}
	if !strings.Contains(err.Error(), "invalid_request_error") {
		t.Errorf("error should carry the API error type: %v", err)
	}
}

func TestAnthropicEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","content":[],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a := NewAnthropic(Params{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client(), MaxTokens: 10})
	if _, err := a.Complete(context.Background(), "s", "u"); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "usr" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hey neighbour!"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(Params{APIKey: "k", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client(), MaxTokens: 100})
	got, err := o.Complete(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Hey neighbour!" {
		t.Errorf("got %q", got)
	}
}
