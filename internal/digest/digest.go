package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

const (
	// DefaultWindow is how far back a digest looks for new postings.
	DefaultWindow = 24 * time.Hour

	createdLayout = "2006-01-02 15:04:05"
)

// Summary counts the outcome of one dispatch run.
type Summary struct {
	Subscribers int
	Sent        int
	Skipped     int // no matching postings
	Failed      int
}

// Dispatcher mails each subscriber the postings added in the last window
// that contain their keyword.
type Dispatcher struct {
	jobs   model.JobStore
	users  model.UserStore
	mail   model.MailSender
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
	window time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLocation sets the zone creation times are printed in.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func WithWindow(w time.Duration) Option {
	return func(d *Dispatcher) {
		if w > 0 {
			d.window = w
		}
	}
}

func NewDispatcher(jobs model.JobStore, users model.UserStore, mail model.MailSender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		jobs:   jobs,
		users:  users,
		mail:   mail,
		logger: logger,
		now:    time.Now,
		loc:    time.Local,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run sends one digest per subscriber with matching postings. Subscribers
// without matches are skipped silently. Individual failures are logged; Run
// returns an error only if the subscriber list cannot be read or every
// attempted send failed. Running twice in one window sends twice.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	subs, err := d.users.Subscribers(ctx)
	if err != nil {
		return sum, fmt.Errorf("loading subscribers: %w", err)
	}
	sum.Subscribers = len(subs)
	since := d.now().Add(-d.window)

	for _, u := range subs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		n, err := d.send(ctx, u.Email, u.KeywordValue(), since)
		switch {
		case err != nil:
			sum.Failed++
			d.logger.Error("digest failed", "email", u.Email, "keyword", u.KeywordValue(), "error", err)
		case n == 0:
			sum.Skipped++
		default:
			sum.Sent++
			d.logger.Info("digest sent", "email", u.Email, "keyword", u.KeywordValue(), "jobs", n)
		}
	}

	d.logger.Info("digest run complete",
		"subscribers", sum.Subscribers,
		"sent", sum.Sent,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	if sum.Failed > 0 && sum.Sent == 0 {
		return sum, fmt.Errorf("all %d digests failed", sum.Failed)
	}
	return sum, nil
}

// SendTo composes the digest for keyword and mails it to email regardless
// of subscription state. It returns the number of postings included; zero
// means nothing was sent.
func (d *Dispatcher) SendTo(ctx context.Context, email, keyword string) (int, error) {
	return d.send(ctx, email, keyword, d.now().Add(-d.window))
}

func (d *Dispatcher) send(ctx context.Context, email, keyword string, since time.Time) (int, error) {
	jobs, err := d.jobs.JobsCreatedSince(ctx, since, keyword)
	if err != nil {
		return 0, fmt.Errorf("selecting jobs for %q: %w", keyword, err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	subject, body := Compose(keyword, jobs, d.loc)
	if err := d.mail.Send(ctx, email, subject, body); err != nil {
		return 0, fmt.Errorf("sending digest: %w", err)
	}
	return len(jobs), nil
}

// Compose renders the digest subject and body for keyword.
func Compose(keyword string, jobs []model.Job, loc *time.Location) (subject, body string) {
	subject = fmt.Sprintf("[취업 알림] '%s' 관련 신규 공고 %d건 안내", keyword, len(jobs))

	lines := []string{fmt.Sprintf("[%s] 최근 24시간 동안 추가된 공고 목록입니다.", keyword), ""}
	for _, j := range jobs {
		lines = append(lines, fmt.Sprintf("- %s / %s / 등록일: %s", j.Company, j.Title, j.CreatedAt.In(loc).Format(createdLayout)))
		if j.Detail != "" {
			lines = append(lines, "  상세: "+j.Detail)
		}
		lines = append(lines, "")
	}
	return subject, strings.Join(lines, "\n")
}
