package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tkrnews/newsgather/internal/llm"
	"github.com/tkrnews/newsgather/internal/logger"
)

// ErrBudgetExhausted is returned once the daily completion budget is spent.
var ErrBudgetExhausted = errors.New("daily completion budget exhausted")

// Limiter throttles completion calls to a steady per-minute rate and an
// optional daily budget. It is safe for concurrent use.
type Limiter struct {
	next    llm.Completer
	limiter *rate.Limiter // nil = unthrottled
	logger  *slog.Logger

	mu        sync.Mutex
	maxDaily  int
	used      int
	rejected  int
	failed    int
	resetTime time.Time
	now       func() time.Time
}

// New wraps next. perMinute <= 0 disables throttling and maxPerDay <= 0
// disables the daily budget.
func New(next llm.Completer, perMinute, maxPerDay int, log *slog.Logger) *Limiter {
	l := &Limiter{
		next:     next,
		logger:   logger.Component(log, "llm_limiter"),
		maxDaily: maxPerDay,
		now:      time.Now,
	}
	if perMinute > 0 {
		burst := perMinute / 10
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
	l.resetTime = l.now().Add(24 * time.Hour)
	return l
}

// Complete reserves budget, waits for a rate token and calls the wrapped
// completer.
func (l *Limiter) Complete(ctx context.Context, system, user string) (string, error) {
	if err := l.reserve(); err != nil {
		return "", err
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for completion slot: %w", err)
		}
	}
	out, err := l.next.Complete(ctx, system, user)
	if err != nil {
		l.mu.Lock()
		l.failed++
		l.mu.Unlock()
	}
	return out, err
}

func (l *Limiter) reserve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if l.maxDaily > 0 && l.used >= l.maxDaily {
		l.rejected++
		l.logger.Warn("completion budget reached", "used", l.used, "limit", l.maxDaily)
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, l.used, l.maxDaily)
	}
	l.used++
	return nil
}

// GetStats returns current limiter statistics.
func (l *Limiter) GetStats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := map[string]any{
		"completions_used":     l.used,
		"completions_limit":    l.maxDaily,
		"completions_rejected": l.rejected,
		"completions_failed":   l.failed,
		"reset_time":           l.resetTime.Format(time.RFC3339),
	}
	if l.limiter != nil {
		stats["rate_per_second"] = float64(l.limiter.Limit())
	}
	return stats
}

// checkReset resets counters once the daily window has passed.
func (l *Limiter) checkReset() {
	if l.now().After(l.resetTime) {
		l.logger.Info("resetting completion counters",
			"used", l.used, "rejected", l.rejected, "failed", l.failed)
		l.used = 0
		l.rejected = 0
		l.failed = 0
		l.resetTime = l.now().Add(24 * time.Hour)
	}
}
