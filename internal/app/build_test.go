package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tkrnews/newsgather/internal/config"
	"github.com/tkrnews/newsgather/internal/llm"
)

func TestThrottleSkipsUnconfiguredProvider(t *testing.T) {
	cfg := &config.Config{LLMProvider: "anthropic", LLMRequestsPerMinute: 1, LLMMaxRequestsPerDay: 1}
	completer, err := llm.New(context.Background(), cfg.LLMProvider, llm.Params{})
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}

	wrapped, limiter := throttle(cfg, completer, quietLogger())
	if limiter != nil {
		t.Fatal("no limiter expected without an API key")
	}

	// One call per minute and a budget of one would stall or reject the
	// second call if the limiter were in the path.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if _, err := wrapped.Complete(ctx, "s", "u"); !errors.Is(err, llm.ErrNotConfigured) {
			t.Fatalf("call %d: err = %v, want ErrNotConfigured", i, err)
		}
	}
}

func TestThrottleWrapsConfiguredProvider(t *testing.T) {
	cfg := &config.Config{LLMProvider: "openai", OpenAIAPIKey: "k", LLMRequestsPerMinute: 60}
	echo := llm.CompleterFunc(func(_ context.Context, _, user string) (string, error) {
		return user, nil
	})

	wrapped, limiter := throttle(cfg, echo, quietLogger())
	if limiter == nil {
		t.Fatal("expected a limiter")
	}
	if got, err := wrapped.Complete(context.Background(), "s", "hello"); err != nil || got != "hello" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
	if used := limiter.GetStats()["completions_used"]; used != 1 {
		t.Errorf("completions_used = %v, want 1", used)
	}
}
