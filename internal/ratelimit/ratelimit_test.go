package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tkrnews/newsgather/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echo() llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, _, user string) (string, error) {
		return user, nil
	})
}

func TestDailyBudget(t *testing.T) {
	l := New(echo(), 0, 2, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.Complete(ctx, "s", "u"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := l.Complete(ctx, "s", "u"); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}

	stats := l.GetStats()
	if stats["completions_used"].(int) != 2 || stats["completions_rejected"].(int) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestBudgetResetsAfterWindow(t *testing.T) {
	l := New(echo(), 0, 1, quietLogger())
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Complete(ctx, "s", "u")
	if _, err := l.Complete(ctx, "s", "u"); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected exhausted budget, got %v", err)
	}

	now = now.Add(25 * time.Hour)
	if _, err := l.Complete(ctx, "s", "u"); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestUnlimitedPassesThrough(t *testing.T) {
	l := New(echo(), 0, 0, quietLogger())
	for i := 0; i < 100; i++ {
		got, err := l.Complete(context.Background(), "s", "hello")
		if err != nil || got != "hello" {
			t.Fatalf("got %q, %v", got, err)
		}
	}
}

func TestRateWaitHonoursContext(t *testing.T) {
	l := New(echo(), 1, 0, quietLogger())
	ctx := context.Background()
	if _, err := l.Complete(ctx, "s", "u"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := l.Complete(ctx, "s", "u"); err == nil {
		t.Fatal("expected second call to fail waiting for a slot")
	}
}

func TestFailuresCounted(t *testing.T) {
	boom := errors.New("boom")
	l := New(llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "", boom
	}), 0, 0, quietLogger())

	if _, err := l.Complete(context.Background(), "s", "u"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if l.GetStats()["completions_failed"].(int) != 1 {
		t.Errorf("stats = %v", l.GetStats())
	}
}
