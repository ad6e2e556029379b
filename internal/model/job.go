package model

import (
	"context"
	"time"
)

// Placeholder is stored for company or title text a source did not provide.
const Placeholder = "정보없음"

// RawRecord is a single posting as parsed from a source page, before normalization.
// Date fields are either free text (StartText/EndText/Period) or explicit
// timestamps when the source exposes them.
type RawRecord struct {
	Company   string
	Title     string
	Period    string     // combined "start ~ end" text, used when StartText/EndText are empty
	StartText string     // loose start date text
	EndText   string     // loose deadline text, e.g. "~ 12/13(토)"
	StartAt   *time.Time // explicit start, takes precedence over StartText
	EndAt     *time.Time // explicit deadline, takes precedence over EndText
	Detail    string     // absolute URL, relative path, or source key
}

// Job is the canonical stored posting. A Job is never updated once inserted.
type Job struct {
	ID        int64      // store-assigned, zero until inserted
	Company   string     // company name as published
	Title     string     // posting title
	StartAt   *time.Time // nullable
	EndAt     *time.Time // nullable deadline
	Detail    string     // canonical URL or source key
	CreatedAt time.Time  // assigned at insert
	Source    string     // source name, not persisted
}

// CompanyTitle is the pair compared by the fuzzy duplicate tier.
type CompanyTitle struct {
	Company string
	Title   string
}

// Pair returns the job's (company, title) pair.
func (j Job) Pair() CompanyTitle {
	return CompanyTitle{Company: j.Company, Title: j.Title}
}

// JobStore persists jobs and answers the lookups the pipeline and digest need.
type JobStore interface {
	// ExistingDetails returns the subset of details already stored.
	ExistingDetails(ctx context.Context, details []string) (map[string]bool, error)
	// Insert stores one job and returns it with ID and CreatedAt assigned.
	Insert(ctx context.Context, job Job) (Job, error)
	// InsertBatch stores all jobs in one transaction; either all are stored or none.
	InsertBatch(ctx context.Context, jobs []Job) ([]Job, error)
	// CompanyTitles returns every stored (company, title) pair.
	CompanyTitles(ctx context.Context) ([]CompanyTitle, error)
	// JobsCreatedSince returns jobs created at or after since whose title, detail,
	// or company contains keyword (case-sensitive), newest first.
	JobsCreatedSince(ctx context.Context, since time.Time, keyword string) ([]Job, error)
	// SearchJobs returns up to limit jobs containing keyword, earliest deadline first.
	SearchJobs(ctx context.Context, keyword string, limit int) ([]Job, error)
	// ListJobs returns jobs created at or after since, newest first.
	ListJobs(ctx context.Context, since time.Time) ([]Job, error)
}

// JobFilter decides whether a posting is worth ingesting.
type JobFilter interface {
	Match(job Job) bool
}

// MailSender delivers one plain-text message.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
