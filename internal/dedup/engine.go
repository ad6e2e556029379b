package dedup

import (
	"context"
	"fmt"

	"github.com/amishk599/jobfinder/internal/model"
)

// DefaultThreshold is the similarity both axes must reach for a duplicate.
const DefaultThreshold = 0.85

// Match describes the stored pair a candidate was judged a duplicate of.
type Match struct {
	Existing     model.CompanyTitle
	TitleRatio   float64
	CompanyRatio float64
}

// Engine decides fuzzy duplicates by title and normalized company similarity.
type Engine struct {
	threshold float64
	ratio     func(a, b string) float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(th float64) Option {
	return func(e *Engine) { e.threshold = th }
}

// WithRatio replaces the similarity function.
func WithRatio(fn func(a, b string) float64) Option {
	return func(e *Engine) { e.ratio = fn }
}

// NewEngine returns an engine using Ratio and DefaultThreshold unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{threshold: DefaultThreshold, ratio: Ratio}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsDuplicate scans existing in order and reports the first pair whose title
// ratio and normalized company ratio both meet the threshold.
func (e *Engine) IsDuplicate(candidate model.CompanyTitle, existing []model.CompanyTitle) (bool, *Match) {
	company := NormalizeCompany(candidate.Company)
	for _, old := range existing {
		titleRatio := e.ratio(candidate.Title, old.Title)
		if titleRatio < e.threshold {
			continue
		}
		companyRatio := e.ratio(company, NormalizeCompany(old.Company))
		if companyRatio < e.threshold {
			continue
		}
		return true, &Match{Existing: old, TitleRatio: titleRatio, CompanyRatio: companyRatio}
	}
	return false, nil
}

// DetailLookup is the store query backing the exact-key tier.
type DetailLookup interface {
	ExistingDetails(ctx context.Context, details []string) (map[string]bool, error)
}

// FilterExistingDetails returns the details already present in the store.
// Empty details are never reported as existing.
func FilterExistingDetails(ctx context.Context, store DetailLookup, details []string) (map[string]bool, error) {
	keys := make([]string, 0, len(details))
	for _, d := range details {
		if d != "" {
			keys = append(keys, d)
		}
	}
	if len(keys) == 0 {
		return map[string]bool{}, nil
	}
	found, err := store.ExistingDetails(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("filter existing details: %w", err)
	}
	return found, nil
}
