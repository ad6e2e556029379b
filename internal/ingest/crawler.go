package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/dedup"
	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/normalize"
)

// Options controls one source's crawl.
type Options struct {
	MaxPages int
	// FuzzyDedup enables the company/title similarity tier.
	FuzzyDedup bool
	// StopOnKnownPage ends the run at the first page whose records were all
	// already stored.
	StopOnKnownPage bool
}

// Result summarizes one crawl run.
type Result struct {
	RunID      string
	Source     string
	Pages      int
	Fetched    int
	Filtered   int
	ExactDupes int
	FuzzyDupes int
	Inserted   int
	Duration   time.Duration
}

// SourceCrawler owns the ingest pipeline for a single source:
// fetch → normalize → filter → dedup → store.
type SourceCrawler struct {
	src        adapter.Source
	opts       Options
	filter     model.JobFilter
	normalizer *normalize.Normalizer
	engine     *dedup.Engine
	store      model.JobStore
	logger     *slog.Logger
}

// NewSourceCrawler creates a crawler wired with all its dependencies.
// filter may be nil to keep every record.
func NewSourceCrawler(
	src adapter.Source,
	opts Options,
	filter model.JobFilter,
	normalizer *normalize.Normalizer,
	engine *dedup.Engine,
	store model.JobStore,
	logger *slog.Logger,
) *SourceCrawler {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &SourceCrawler{
		src:        src,
		opts:       opts,
		filter:     filter,
		normalizer: normalizer,
		engine:     engine,
		store:      store,
		logger:     logger,
	}
}

// Name returns the source name.
func (c *SourceCrawler) Name() string { return c.src.Name() }

// Crawl runs one pass over the source. Pages are stored as they are
// processed, so a fetch or store failure keeps the pages inserted before it.
func (c *SourceCrawler) Crawl(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), Source: c.src.Name()}
	logger := c.logger.With("source", res.Source, "run_id", res.RunID)
	started := time.Now()

	var corpus []model.CompanyTitle
	if c.opts.FuzzyDedup {
		var err error
		corpus, err = c.store.CompanyTitles(ctx)
		if err != nil {
			return res, fmt.Errorf("crawling %s: loading corpus: %w", res.Source, err)
		}
	}
	batch := c.engine.NewBatch(corpus, c.opts.FuzzyDedup)

	pages, err := adapter.Paginate(ctx, c.src, c.opts.MaxPages, func(ctx context.Context, page int, records []model.RawRecord) (bool, error) {
		return c.processPage(ctx, logger, batch, page, records, &res)
	})
	res.Pages = pages
	res.Duration = time.Since(started)

	if err != nil {
		logger.Error("crawl aborted", "pages", res.Pages, "inserted", res.Inserted, "error", err)
		return res, fmt.Errorf("crawling %s: %w", res.Source, err)
	}

	logger.Info("crawled source",
		"pages", res.Pages,
		"fetched", res.Fetched,
		"filtered", res.Filtered,
		"exact_dupes", res.ExactDupes,
		"fuzzy_dupes", res.FuzzyDupes,
		"inserted", res.Inserted,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func (c *SourceCrawler) processPage(ctx context.Context, logger *slog.Logger, batch *dedup.Batch, page int, records []model.RawRecord, res *Result) (bool, error) {
	res.Fetched += len(records)

	candidates := make([]model.Job, 0, len(records))
	for _, raw := range records {
		job := c.normalizer.Normalize(raw, c.src.Name(), c.src.BaseURL())
		if c.filter != nil && !c.filter.Match(job) {
			res.Filtered++
			continue
		}
		candidates = append(candidates, job)
	}
	if len(candidates) == 0 {
		return false, nil
	}

	outcomes, err := batch.Filter(ctx, c.store, candidates)
	if err != nil {
		return false, err
	}

	known := 0
	for _, o := range outcomes {
		switch o.Verdict {
		case dedup.ExactDuplicate:
			res.ExactDupes++
			known++
		case dedup.FuzzyDuplicate:
			res.FuzzyDupes++
			logger.Debug("fuzzy duplicate",
				"company", o.Job.Company,
				"title", o.Job.Title,
				"matched_company", o.Match.Existing.Company,
				"matched_title", o.Match.Existing.Title,
				"title_ratio", o.Match.TitleRatio,
				"company_ratio", o.Match.CompanyRatio,
			)
		}
	}

	fresh := dedup.UniqueJobs(outcomes)
	if len(fresh) > 0 {
		inserted, err := c.store.InsertBatch(ctx, fresh)
		if err != nil {
			return false, fmt.Errorf("storing %d jobs: %w", len(fresh), err)
		}
		res.Inserted += len(inserted)
	}

	logger.Debug("processed page", "page", page, "records", len(records), "new", len(fresh))

	if c.opts.StopOnKnownPage && known == len(outcomes) {
		logger.Info("stopping at known page", "page", page)
		return true, nil
	}
	return false, nil
}

// RunAll crawls each source in turn. A failing source is logged and does not
// stop the others; the returned error joins every source failure.
func RunAll(ctx context.Context, crawlers []*SourceCrawler, logger *slog.Logger) ([]Result, error) {
	results := make([]Result, 0, len(crawlers))
	var errs []error
	for _, c := range crawlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := c.Crawl(ctx)
		results = append(results, res)
		if err != nil {
			logger.Error("source failed", "source", c.Name(), "error", err)
			errs = append(errs, err)
		}
	}

	total := 0
	for _, r := range results {
		total += r.Inserted
	}
	logger.Info("crawl cycle complete", "sources", len(crawlers), "failed", len(errs), "inserted", total)
	return results, errors.Join(errs...)
}
