package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/dedup"
	"github.com/amishk599/jobfinder/internal/filter"
	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/normalize"
	"github.com/amishk599/jobfinder/internal/store"
)

// --- Fakes ---

// fakeSource serves canned pages; pages past the end are empty.
type fakeSource struct {
	name    string
	pages   map[int][]model.RawRecord
	errPage int
	calls   int
}

func (f *fakeSource) Name() string               { return f.name }
func (f *fakeSource) BaseURL() string            { return "https://" + f.name + ".example" }
func (f *fakeSource) StopRule() adapter.StopRule { return adapter.MinItems(1) }

func (f *fakeSource) FetchPage(_ context.Context, page int) ([]model.RawRecord, error) {
	f.calls++
	if page == f.errPage {
		return nil, errors.New("connection reset")
	}
	return f.pages[page], nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var crawlTime = time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

func newCrawler(src adapter.Source, opts Options, f model.JobFilter, s model.JobStore) *SourceCrawler {
	return NewSourceCrawler(src, opts, f,
		normalize.New(time.UTC, func() time.Time { return crawlTime }),
		dedup.NewEngine(), s, discardLogger())
}

func raw(company, title, detail string) model.RawRecord {
	return model.RawRecord{Company: company, Title: title, Detail: detail}
}

// --- Tests ---

func TestCrawl_InsertsNormalizedJobs(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "jasoseol", pages: map[int][]model.RawRecord{
		1: {
			{Company: "ACME", Title: "Backend Engineer", EndText: "2025-11-30", Detail: "/recruit/1"},
			{Company: "", Title: "보안 관제", Detail: "https://other.example/2"},
		},
	}}

	res, err := newCrawler(src, Options{MaxPages: 5}, nil, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 2 || res.Fetched != 2 || res.Pages != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.RunID == "" || res.Source != "jasoseol" {
		t.Errorf("run metadata missing: %+v", res)
	}

	jobs := s.Jobs()
	if jobs[0].Detail != "https://jasoseol.example/recruit/1" {
		t.Errorf("detail = %q, want absolute URL", jobs[0].Detail)
	}
	if jobs[0].EndAt == nil || jobs[0].EndAt.Day() != 30 {
		t.Errorf("end date = %v", jobs[0].EndAt)
	}
	if jobs[1].Company != model.Placeholder {
		t.Errorf("company = %q, want placeholder", jobs[1].Company)
	}
}

func TestCrawl_Idempotent(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend Engineer", "https://saramin.example/1")},
	}}
	c := newCrawler(src, Options{MaxPages: 3}, nil, s)

	for i := 0; i < 2; i++ {
		if _, err := c.Crawl(context.Background()); err != nil {
			t.Fatalf("Crawl %d: %v", i, err)
		}
	}
	if n := len(s.Jobs()); n != 1 {
		t.Fatalf("expected exactly 1 stored job, got %d", n)
	}
}

func TestCrawl_ExactDuplicateWithinBatch(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend", "/1"), raw("ACME", "Backend (재공고)", "/1")},
		2: {raw("Beta", "Frontend", "/1")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 3}, nil, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 1 || res.ExactDupes != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestCrawl_FuzzyAcrossSources(t *testing.T) {
	s := store.NewMemoryStore(nil)
	first := &fakeSource{name: "jasoseol", pages: map[int][]model.RawRecord{
		1: {raw("ACME Inc.", "Backend Engineer", "https://a.example/u1")},
	}}
	second := &fakeSource{name: "linkareer", pages: map[int][]model.RawRecord{
		1: {raw("acme", "Backend Engineer", "https://b.example/u2")},
	}}

	results, err := RunAll(context.Background(), []*SourceCrawler{
		newCrawler(first, Options{MaxPages: 2, FuzzyDedup: true}, nil, s),
		newCrawler(second, Options{MaxPages: 2, FuzzyDedup: true}, nil, s),
	}, discardLogger())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if results[1].FuzzyDupes != 1 || results[1].Inserted != 0 {
		t.Errorf("second source result = %+v", results[1])
	}
	if n := len(s.Jobs()); n != 1 {
		t.Fatalf("expected 1 stored job, got %d", n)
	}
}

func TestCrawl_FuzzyDisabledKeepsNearDuplicates(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME Inc.", "Backend Engineer", "/u1"), raw("acme", "Backend Engineer", "/u2")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 2}, nil, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 2 || res.FuzzyDupes != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCrawl_FuzzyWithinBatch(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "jasoseol", pages: map[int][]model.RawRecord{
		1: {raw("(주)에이씨엠이", "백엔드 개발자 채용", "/u1")},
		2: {raw("에이씨엠이", "백엔드 개발자 채용", "/u2")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 3, FuzzyDedup: true}, nil, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 1 || res.FuzzyDupes != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestCrawl_TitleFilter(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend Engineer", "/1"), raw("ACME", "Sales Manager", "/2"), raw("ACME", "Senior Backend Intern", "/3")},
	}}
	f := filter.NewTitleFilter([]string{"backend"}, []string{"intern"})

	res, err := newCrawler(src, Options{MaxPages: 2}, f, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 1 || res.Filtered != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestCrawl_StopOnKnownPage(t *testing.T) {
	s := store.NewMemoryStore(nil)
	if _, err := s.Insert(context.Background(), model.Job{Company: "ACME", Title: "Old", Detail: "https://linkareer.example/old"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	src := &fakeSource{name: "linkareer", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "New", "/new")},
		2: {raw("ACME", "Old", "/old")},
		3: {raw("Beta", "Never fetched", "/never")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 5, StopOnKnownPage: true}, nil, s).Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Pages != 2 || src.calls != 2 {
		t.Errorf("expected stop after page 2, got pages=%d calls=%d", res.Pages, src.calls)
	}
	if res.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", res.Inserted)
	}
}

func TestCrawl_FetchErrorKeepsEarlierPages(t *testing.T) {
	s := store.NewMemoryStore(nil)
	src := &fakeSource{name: "jasoseol", errPage: 2, pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend", "/1")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 5}, nil, s).Crawl(context.Background())
	if !errors.Is(err, model.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var fe *model.FetchError
	if !errors.As(err, &fe) || fe.Page != 2 {
		t.Fatalf("expected FetchError for page 2, got %v", err)
	}
	if res.Inserted != 1 || len(s.Jobs()) != 1 {
		t.Errorf("page 1 should stay stored: result=%+v stored=%d", res, len(s.Jobs()))
	}
}

func TestCrawl_StoreFailureAborts(t *testing.T) {
	s := store.NewMemoryStore(nil)
	s.FailInsertAfter = 1
	src := &fakeSource{name: "jasoseol", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend", "/1")},
		2: {raw("Beta", "Frontend", "/2"), raw("Gamma", "Data", "/3")},
		3: {raw("Delta", "Infra", "/4")},
	}}

	res, err := newCrawler(src, Options{MaxPages: 5}, nil, s).Crawl(context.Background())
	if err == nil {
		t.Fatal("expected store failure")
	}
	if errors.Is(err, model.ErrFetch) {
		t.Fatalf("store failure reported as fetch failure: %v", err)
	}
	if res.Inserted != 1 || len(s.Jobs()) != 1 || src.calls != 2 {
		t.Errorf("result=%+v stored=%d calls=%d", res, len(s.Jobs()), src.calls)
	}
}

func TestCrawl_DryRunStoresNothing(t *testing.T) {
	src := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend", "/1")},
	}}
	c := newCrawler(src, Options{MaxPages: 2, FuzzyDedup: true}, nil, store.NewNopStore())

	for i := 0; i < 2; i++ {
		res, err := c.Crawl(context.Background())
		if err != nil {
			t.Fatalf("Crawl: %v", err)
		}
		if res.Inserted != 1 {
			t.Errorf("run %d: every posting should look new in dry-run, got %+v", i, res)
		}
	}
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	s := store.NewMemoryStore(nil)
	broken := &fakeSource{name: "jasoseol", errPage: 1}
	healthy := &fakeSource{name: "saramin", pages: map[int][]model.RawRecord{
		1: {raw("ACME", "Backend", "/1")},
	}}

	results, err := RunAll(context.Background(), []*SourceCrawler{
		newCrawler(broken, Options{MaxPages: 2}, nil, s),
		newCrawler(healthy, Options{MaxPages: 2}, nil, s),
	}, discardLogger())

	if !errors.Is(err, model.ErrFetch) {
		t.Fatalf("expected joined fetch error, got %v", err)
	}
	if len(results) != 2 || results[1].Inserted != 1 {
		t.Fatalf("healthy source should still run: %+v", results)
	}
}
