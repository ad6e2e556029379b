package dedup

import (
	"context"

	"github.com/amishk599/jobfinder/internal/model"
)

// Verdict is the outcome for one candidate.
type Verdict int

const (
	Unique Verdict = iota
	ExactDuplicate
	FuzzyDuplicate
)

func (v Verdict) String() string {
	switch v {
	case ExactDuplicate:
		return "exact_duplicate"
	case FuzzyDuplicate:
		return "fuzzy_duplicate"
	default:
		return "unique"
	}
}

// Outcome pairs a candidate with its verdict.
type Outcome struct {
	Job     model.Job
	Verdict Verdict
	Match   *Match // set for FuzzyDuplicate
}

// Batch holds the dedup state for one crawl run of one source. Candidates it
// accepts are added to the in-memory corpus immediately so later candidates in
// the same run are compared against them. A Batch must be used from a single
// goroutine.
type Batch struct {
	engine  *Engine
	fuzzy   bool
	corpus  []model.CompanyTitle
	details map[string]bool
}

// NewBatch starts a batch. corpus is the stored (company, title) set and is
// only consulted when fuzzy is true.
func (e *Engine) NewBatch(corpus []model.CompanyTitle, fuzzy bool) *Batch {
	c := make([]model.CompanyTitle, len(corpus))
	copy(c, corpus)
	return &Batch{
		engine:  e,
		fuzzy:   fuzzy,
		corpus:  c,
		details: make(map[string]bool),
	}
}

// Filter runs the exact-key tier against store and this batch, then the fuzzy
// tier when enabled. It returns one outcome per candidate in input order.
// Unique candidates are recorded in the batch before Filter returns.
func (b *Batch) Filter(ctx context.Context, store DetailLookup, candidates []model.Job) ([]Outcome, error) {
	details := make([]string, 0, len(candidates))
	for _, c := range candidates {
		details = append(details, c.Detail)
	}
	stored, err := FilterExistingDetails(ctx, store, details)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(candidates))
	for _, c := range candidates {
		if c.Detail != "" && (stored[c.Detail] || b.details[c.Detail]) {
			outcomes = append(outcomes, Outcome{Job: c, Verdict: ExactDuplicate})
			continue
		}
		if b.fuzzy {
			if dup, m := b.engine.IsDuplicate(c.Pair(), b.corpus); dup {
				outcomes = append(outcomes, Outcome{Job: c, Verdict: FuzzyDuplicate, Match: m})
				continue
			}
		}
		b.accept(c)
		outcomes = append(outcomes, Outcome{Job: c, Verdict: Unique})
	}
	return outcomes, nil
}

func (b *Batch) accept(j model.Job) {
	if j.Detail != "" {
		b.details[j.Detail] = true
	}
	b.corpus = append(b.corpus, j.Pair())
}

// Size returns the number of pairs the fuzzy tier compares against.
func (b *Batch) Size() int {
	return len(b.corpus)
}

// UniqueJobs returns the jobs in outcomes with a Unique verdict.
func UniqueJobs(outcomes []Outcome) []model.Job {
	var jobs []model.Job
	for _, o := range outcomes {
		if o.Verdict == Unique {
			jobs = append(jobs, o.Job)
		}
	}
	return jobs
}
