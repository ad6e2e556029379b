package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

// rolloverDays is how far in the past a yearless date may fall before it is
// assumed to belong to next year.
const rolloverDays = 200

var (
	fullDateRe  = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})(?:\.?\s*(?:\([^)]*\))?\s*(\d{1,2}):(\d{2}))?`)
	shortDateRe = regexp.MustCompile(`(?:^|\D)(\d{1,2})[./](\d{1,2})(?:\D|$)`)
)

// Normalizer maps raw source records onto the canonical Job shape.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// New returns a normalizer that interprets dates in loc. now may be nil, in
// which case time.Now is used.
func New(loc *time.Location, now func() time.Time) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{loc: loc, now: now}
}

// Normalize converts raw into a Job for the named source. Relative detail paths
// are made absolute against baseURL. Missing text becomes model.Placeholder and
// unparseable dates become nil.
func (n *Normalizer) Normalize(raw model.RawRecord, source, baseURL string) model.Job {
	now := n.now().In(n.loc)

	startText, endText := raw.StartText, raw.EndText
	if startText == "" && endText == "" && raw.Period != "" {
		startText, endText = SplitPeriod(raw.Period)
	}

	job := model.Job{
		Company: textOrPlaceholder(raw.Company),
		Title:   textOrPlaceholder(raw.Title),
		Detail:  AbsoluteURL(strings.TrimSpace(raw.Detail), baseURL),
		StartAt: raw.StartAt,
		EndAt:   raw.EndAt,
		Source:  source,
	}
	if job.StartAt == nil {
		job.StartAt = ParseDate(startText, now)
	}
	if job.EndAt == nil {
		job.EndAt = ParseDate(endText, now)
	}
	return job
}

// ParseDate parses loose date text relative to now. Full dates with a year
// parse directly. "MM/DD" and "MM.DD" resolve to now's year, moved to the next
// year if more than 200 whole days in the past. Anything else returns nil.
func ParseDate(text string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	loc := now.Location()

	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, min := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			min, _ = strconv.Atoi(m[5])
		}
		return calendarDate(year, month, day, hour, min, loc)
	}

	m := shortDateRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	t := calendarDate(now.Year(), month, day, 0, 0, loc)
	if t == nil {
		return nil
	}
	if t.Before(now) && int(now.Sub(*t)/(24*time.Hour)) > rolloverDays {
		t = calendarDate(now.Year()+1, month, day, 0, 0, loc)
	}
	return t
}

// calendarDate builds a date, rejecting values time.Date would silently
// normalize (Feb 30, month 13).
func calendarDate(year, month, day, hour, min int, loc *time.Location) *time.Time {
	if month < 1 || month > 12 || day < 1 || hour > 23 || min > 59 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, hour, min, 0, 0, loc)
	if t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}

// SplitPeriod splits "start ~ end" into its halves. Text without a "~" is
// treated as a deadline.
func SplitPeriod(period string) (start, end string) {
	before, after, found := strings.Cut(period, "~")
	if !found {
		return "", strings.TrimSpace(period)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// AbsoluteURL prefixes relative paths with baseURL. Absolute URLs, empty
// details and opaque keys without a leading slash are returned unchanged when
// baseURL is empty.
func AbsoluteURL(detail, baseURL string) string {
	if detail == "" || baseURL == "" {
		return detail
	}
	if strings.HasPrefix(detail, "http://") || strings.HasPrefix(detail, "https://") {
		return detail
	}
	if strings.HasPrefix(detail, "//") {
		return "https:" + detail
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(detail, "/")
}

func textOrPlaceholder(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return model.Placeholder
	}
	return s
}
