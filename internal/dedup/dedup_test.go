package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/amishk599/jobfinder/internal/model"
)

// fakeLookup reports a fixed set of stored details.
type fakeLookup struct {
	stored map[string]bool
	err    error
	calls  int
}

func (f *fakeLookup) ExistingDetails(_ context.Context, details []string) (map[string]bool, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, d := range details {
		if f.stored[d] {
			out[d] = true
		}
	}
	return out, nil
}

func pair(company, title string) model.CompanyTitle {
	return model.CompanyTitle{Company: company, Title: title}
}

func job(company, title, detail string) model.Job {
	return model.Job{Company: company, Title: title, Detail: detail}
}

func TestRatio(t *testing.T) {
	if got := Ratio("", ""); got != 1 {
		t.Errorf("Ratio of empty strings = %v, want 1", got)
	}
	if got := Ratio("abcd", "wxyz"); got != 0 {
		t.Errorf("Ratio of disjoint strings = %v, want 0", got)
	}
	// 17 of 20 runes match on each side: 2*17/40.
	if got := Ratio("abcdefghijklmnopqrst", "abcdefghijklmnopqXYZ"); got != 0.85 {
		t.Errorf("Ratio = %v, want 0.85", got)
	}
	// Ratios are computed on runes, not bytes.
	if got := Ratio("보안엔지니어", "보안엔지니어"); got != 1 {
		t.Errorf("Ratio of equal hangul = %v, want 1", got)
	}
	if got := Ratio("보안", "보완"); got != 0.5 {
		t.Errorf("Ratio(보안, 보완) = %v, want 0.5", got)
	}
}

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ABC(주)", "abc"},
		{"abc", "abc"},
		{"(주)ABC", "abc"},
		{"㈜ 카카오", "카카오"},
		{"주식회사 토스", "토스"},
		{"ACME Inc.", "acme"},
		{"ACME, Inc.", "acme"},
		{"Acme Co., Ltd.", "acme"},
		{"Globex LLC", "globex"},
		{"Incheon Airport", "incheon airport"},
		{"  Many   Spaces  ", "many spaces"},
	}
	for _, tt := range tests {
		if got := NormalizeCompany(tt.in); got != tt.want {
			t.Errorf("NormalizeCompany(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDuplicate_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name         string
		titleRatio   float64
		companyRatio float64
		want         bool
	}{
		{"both at threshold", 0.85, 0.85, true},
		{"title just below", 0.849, 0.85, false},
		{"company just below", 0.85, 0.849, false},
		{"both above", 0.9, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithRatio(func(a, b string) float64 {
				if a == "title" || b == "title" {
					return tt.titleRatio
				}
				return tt.companyRatio
			}))
			got, _ := e.IsDuplicate(pair("co", "title"), []model.CompanyTitle{pair("co2", "title2")})
			if got != tt.want {
				t.Errorf("IsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicate_RealStringsAtBoundary(t *testing.T) {
	e := NewEngine()
	dup, m := e.IsDuplicate(
		pair("abcdefghijklmnopqrst", "abcdefghijklmnopqrst"),
		[]model.CompanyTitle{pair("abcdefghijklmnopqXYZ", "abcdefghijklmnopqXYZ")},
	)
	if !dup {
		t.Fatal("expected 0.85 on both axes to count as duplicate")
	}
	if m.TitleRatio != 0.85 || m.CompanyRatio != 0.85 {
		t.Errorf("ratios = %v/%v, want 0.85/0.85", m.TitleRatio, m.CompanyRatio)
	}
}

func TestIsDuplicate_CompanySuffixIgnored(t *testing.T) {
	e := NewEngine()
	dup, _ := e.IsDuplicate(pair("ABC(주)", "보안 엔지니어"), []model.CompanyTitle{pair("abc", "보안 엔지니어")})
	if !dup {
		t.Error("expected ABC(주) and abc to be treated as the same company")
	}
}

func TestIsDuplicate_FirstMatchWins(t *testing.T) {
	e := NewEngine()
	existing := []model.CompanyTitle{
		pair("Other", "Frontend Engineer"),
		pair("acme", "Backend Engineers"),
		pair("ACME", "Backend Engineer"),
	}
	dup, m := e.IsDuplicate(pair("ACME Inc.", "Backend Engineer"), existing)
	if !dup {
		t.Fatal("expected duplicate")
	}
	// The exact match comes later; the first qualifying pair is reported.
	if m.Existing != existing[1] {
		t.Errorf("matched %+v, want %+v", m.Existing, existing[1])
	}
}

func TestBatch_ExactTierAgainstStore(t *testing.T) {
	lookup := &fakeLookup{stored: map[string]bool{"u1": true}}
	b := NewEngine().NewBatch(nil, false)

	outcomes, err := b.Filter(context.Background(), lookup, []model.Job{
		job("ACME", "Backend", "u1"),
		job("ACME", "Frontend", "u2"),
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if outcomes[0].Verdict != ExactDuplicate {
		t.Errorf("u1 verdict = %v, want exact_duplicate", outcomes[0].Verdict)
	}
	if outcomes[1].Verdict != Unique {
		t.Errorf("u2 verdict = %v, want unique", outcomes[1].Verdict)
	}
	if got := UniqueJobs(outcomes); len(got) != 1 || got[0].Detail != "u2" {
		t.Errorf("UniqueJobs = %+v", got)
	}
}

func TestBatch_SameDetailTwiceInOneRun(t *testing.T) {
	lookup := &fakeLookup{}
	b := NewEngine().NewBatch(nil, false)

	first, err := b.Filter(context.Background(), lookup, []model.Job{job("ACME", "Backend", "u1")})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	second, err := b.Filter(context.Background(), lookup, []model.Job{job("ACME", "Backend", "u1")})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if first[0].Verdict != Unique || second[0].Verdict != ExactDuplicate {
		t.Errorf("verdicts = %v, %v; want unique, exact_duplicate", first[0].Verdict, second[0].Verdict)
	}
}

func TestBatch_FuzzyAcrossSources(t *testing.T) {
	lookup := &fakeLookup{}
	b := NewEngine().NewBatch(nil, true)

	outcomes, err := b.Filter(context.Background(), lookup, []model.Job{
		job("ACME Inc.", "Backend Engineer", "u1"),
		job("acme", "Backend Engineer", "u2"),
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if outcomes[0].Verdict != Unique {
		t.Errorf("first verdict = %v, want unique", outcomes[0].Verdict)
	}
	if outcomes[1].Verdict != FuzzyDuplicate {
		t.Fatalf("second verdict = %v, want fuzzy_duplicate", outcomes[1].Verdict)
	}
	if outcomes[1].Match.Existing.Company != "ACME Inc." {
		t.Errorf("matched %+v", outcomes[1].Match.Existing)
	}
}

func TestBatch_FuzzyDisabledKeepsNearDuplicates(t *testing.T) {
	b := NewEngine().NewBatch([]model.CompanyTitle{pair("acme", "Backend Engineer")}, false)

	outcomes, err := b.Filter(context.Background(), &fakeLookup{}, []model.Job{job("ACME Inc.", "Backend Engineer", "u9")})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if outcomes[0].Verdict != Unique {
		t.Errorf("verdict = %v, want unique", outcomes[0].Verdict)
	}
}

func TestBatch_EmptyDetailSkipsStoreLookup(t *testing.T) {
	lookup := &fakeLookup{}
	b := NewEngine().NewBatch(nil, false)

	outcomes, err := b.Filter(context.Background(), lookup, []model.Job{job("A", "B", ""), job("A", "C", "")})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if lookup.calls != 0 {
		t.Errorf("store called %d times, want 0", lookup.calls)
	}
	if len(UniqueJobs(outcomes)) != 2 {
		t.Errorf("expected both detail-less jobs to pass the exact tier")
	}
}

func TestBatch_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("db down")
	b := NewEngine().NewBatch(nil, true)

	_, err := b.Filter(context.Background(), &fakeLookup{err: storeErr}, []model.Job{job("A", "B", "u1")})
	if !errors.Is(err, storeErr) {
		t.Errorf("err = %v, want wrapping %v", err, storeErr)
	}
}
