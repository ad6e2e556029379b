package filter

import (
	"strings"

	"github.com/amishk599/jobfinder/internal/model"
)

var _ model.JobFilter = (*TitleFilter)(nil)

// TitleFilter matches jobs whose title contains any include keyword and none of
// the exclude keywords. Matching is case-insensitive. An empty include list
// matches every title.
type TitleFilter struct {
	include []string
	exclude []string
}

// NewTitleFilter returns a filter over posting titles.
func NewTitleFilter(include, exclude []string) *TitleFilter {
	return &TitleFilter{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
}

// Match returns true if the job's title passes the include and exclude lists.
func (f *TitleFilter) Match(job model.Job) bool {
	title := strings.ToLower(job.Title)

	for _, kw := range f.exclude {
		if strings.Contains(title, kw) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// ContainsKeyword reports whether keyword occurs in the job's title, detail,
// or company. The comparison is case-sensitive; an empty keyword matches all.
func ContainsKeyword(job model.Job, keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(job.Title, keyword) ||
		strings.Contains(job.Detail, keyword) ||
		strings.Contains(job.Company, keyword)
}

// FirstKeyword returns the first comma-separated term of a search query, trimmed.
func FirstKeyword(query string) string {
	first, _, _ := strings.Cut(query, ",")
	return strings.TrimSpace(first)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
