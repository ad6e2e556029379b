package adapter

import (
	"context"
	"fmt"

	"github.com/amishk599/jobfinder/internal/model"
)

// Source is one external job board, fetched page by page.
type Source interface {
	// Name identifies the source in config and logs.
	Name() string
	// BaseURL is the prefix for relative detail links.
	BaseURL() string
	// FetchPage returns the raw postings on a 1-based page.
	FetchPage(ctx context.Context, page int) ([]model.RawRecord, error)
	// StopRule decides when pagination ends.
	StopRule() StopRule
}

// StopRule is evaluated after each page fetch. It returns the records to
// process and whether the run ends after them.
type StopRule interface {
	Apply(records []model.RawRecord) (keep []model.RawRecord, stop bool)
}

// MinItems stops as soon as a page has fewer than n records. That page is not
// processed.
type MinItems int

func (n MinItems) Apply(records []model.RawRecord) ([]model.RawRecord, bool) {
	if len(records) < int(n) {
		return nil, true
	}
	return records, false
}

// FullPages stops on an empty page, and after processing the first page with
// fewer than n records.
type FullPages int

func (n FullPages) Apply(records []model.RawRecord) ([]model.RawRecord, bool) {
	if len(records) == 0 {
		return nil, true
	}
	return records, len(records) < int(n)
}

// PageVisitor handles the records of one page. Returning stop=true ends the
// run after this page.
type PageVisitor func(ctx context.Context, page int, records []model.RawRecord) (stop bool, err error)

// Paginate fetches pages 1..maxPages from src until its stop rule fires, visit
// asks to stop, or maxPages is reached. It returns the number of pages fetched.
// A fetch error aborts the run and is returned as a *model.FetchError; pages
// already visited are not undone.
func Paginate(ctx context.Context, src Source, maxPages int, visit PageVisitor) (int, error) {
	rule := src.StopRule()
	fetched := 0
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}

		records, err := src.FetchPage(ctx, page)
		if err != nil {
			return fetched, &model.FetchError{Source: src.Name(), Page: page, Err: err}
		}
		fetched++

		keep, stop := rule.Apply(records)
		if len(keep) > 0 {
			visitorStop, err := visit(ctx, page, keep)
			if err != nil {
				return fetched, fmt.Errorf("%s page %d: %w", src.Name(), page, err)
			}
			stop = stop || visitorStop
		}
		if stop {
			break
		}
	}
	return fetched, nil
}
