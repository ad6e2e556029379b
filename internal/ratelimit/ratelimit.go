package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/model"
)

// SourceLimiter enforces a minimum delay between requests to the same source.
type SourceLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewSourceLimiter creates a limiter allowing one request per minDelay for each
// source. overrides sets a different delay for named sources.
func NewSourceLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceLimiter {
	return &SourceLimiter{
		limiters:  make(map[string]*rate.Limiter),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

func (r *SourceLimiter) limiter(source string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[source]; ok {
		return l
	}
	delay := r.minDelay
	if d, ok := r.overrides[source]; ok {
		delay = d
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	l := rate.NewLimiter(limit, 1)
	r.limiters[source] = l
	return l
}

// Wait blocks until a request to source is allowed. The first request for a
// source never waits.
func (r *SourceLimiter) Wait(ctx context.Context, source string) error {
	if err := r.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

var _ adapter.Source = (*LimitedSource)(nil)

// LimitedSource is a decorator that waits on the limiter before each page fetch.
type LimitedSource struct {
	adapter.Source
	limiter *SourceLimiter
}

// NewLimitedSource wraps src. Sources sharing a name should share a limiter.
func NewLimitedSource(src adapter.Source, limiter *SourceLimiter) *LimitedSource {
	return &LimitedSource{Source: src, limiter: limiter}
}

// FetchPage waits for the limiter, then delegates to the wrapped source.
func (s *LimitedSource) FetchPage(ctx context.Context, page int) ([]model.RawRecord, error) {
	if err := s.limiter.Wait(ctx, s.Name()); err != nil {
		return nil, err
	}
	return s.Source.FetchPage(ctx, page)
}
