package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/model"
)

// Policy controls how transient failures are retried.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int
	// BaseDelay is the delay before the first retry, doubled on each subsequent retry.
	BaseDelay time.Duration
}

// DefaultPolicy matches the mailer's defaults: two retries starting at 5s.
var DefaultPolicy = Policy{MaxRetries: 2, BaseDelay: 5 * time.Second}

// Do calls fn, retrying transient errors with exponential backoff and jitter.
// Non-retryable errors are returned immediately.
func Do(ctx context.Context, p Policy, logger *slog.Logger, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Network, DNS and similar failures.
	return true
}

var _ adapter.Source = (*RetrySource)(nil)

// RetrySource is a decorator that retries transient page fetch failures.
type RetrySource struct {
	adapter.Source
	policy Policy
	logger *slog.Logger
}

// NewRetrySource wraps src with the given retry policy.
func NewRetrySource(src adapter.Source, policy Policy, logger *slog.Logger) *RetrySource {
	return &RetrySource{
		Source: src,
		policy: policy,
		logger: logger.With("source", src.Name()),
	}
}

// FetchPage fetches one page, retrying transient errors.
func (s *RetrySource) FetchPage(ctx context.Context, page int) ([]model.RawRecord, error) {
	var records []model.RawRecord
	err := Do(ctx, s.policy, s.logger.With("page", page), func(ctx context.Context) error {
		var err error
		records, err = s.Source.FetchPage(ctx, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
