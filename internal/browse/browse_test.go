package browse

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobfinder/internal/model"
)

func timePtr(t time.Time) *time.Time { return &t }

func sampleJobs() []model.Job {
	return []model.Job{
		{Company: "ACME", Title: "Backend", Detail: "https://example.com/1", EndAt: timePtr(time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC))},
		{Company: "Beta", Title: "Frontend", Detail: "https://example.com/2"},
		{Company: "Gamma", Title: "Security", Detail: "/activity/3"},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(t *testing.T, m browseModel, msgs ...tea.Msg) browseModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(browseModel)
	}
	return m
}

func sized(jobs []model.Job) browseModel {
	m := newModel(Pane{Title: "Results", Jobs: jobs}, Pane{Title: "Open", Jobs: jobs[:1]}, time.UTC)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(browseModel)
}

func TestBrowse_CursorClampsToPane(t *testing.T) {
	m := update(t, sized(sampleJobs()), key("j"), key("j"), key("j"), key("j"))
	if m.cursors[0] != 2 {
		t.Errorf("left cursor = %d, want 2", m.cursors[0])
	}

	m = update(t, m, key("tab"), key("j"))
	if m.activePane != 1 {
		t.Fatalf("activePane = %d, want 1", m.activePane)
	}
	if m.cursors[1] != 0 {
		t.Errorf("right cursor = %d, want 0 (one job)", m.cursors[1])
	}
}

func TestBrowse_DetailViewAndBack(t *testing.T) {
	var opened []string
	m := sized(sampleJobs())
	m.open = func(url string) { opened = append(opened, url) }

	m = update(t, m, key("j"), key("enter"))
	if m.view != viewDetail {
		t.Fatal("expected detail view")
	}
	if m.detailJob.Company != "Beta" {
		t.Errorf("detail job = %q, want Beta", m.detailJob.Company)
	}
	if !strings.Contains(m.renderDetail(), "https://example.com/2") {
		t.Error("detail should show the link")
	}

	m = update(t, m, key("o"))
	if len(opened) != 1 || opened[0] != "https://example.com/2" {
		t.Errorf("opened = %v", opened)
	}

	m = update(t, m, key("esc"))
	if m.view != viewList {
		t.Error("esc should return to list view")
	}
}

func TestBrowse_OpenIgnoresRelativeDetail(t *testing.T) {
	var opened []string
	m := sized(sampleJobs())
	m.open = func(url string) { opened = append(opened, url) }

	m = update(t, m, key("j"), key("j"), key("enter"), key("o"))
	if len(opened) != 0 {
		t.Errorf("relative detail should not be opened, got %v", opened)
	}
}

func TestBrowse_QuitVersusBack(t *testing.T) {
	m := update(t, sized(sampleJobs()), key("q"))
	if !m.wantQuit {
		t.Error("q should request quit")
	}
	m = update(t, sized(sampleJobs()), key("esc"))
	if m.wantQuit {
		t.Error("esc should go back, not quit")
	}
}

func TestBrowse_EmptyPane(t *testing.T) {
	m := newModel(Pane{Title: "Results"}, Pane{Title: "Open"}, time.UTC)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20}, key("enter"))
	if m.view != viewList {
		t.Error("enter on an empty pane should stay in list view")
	}
	if !strings.Contains(m.View(), "(no jobs)") {
		t.Error("empty pane should render placeholder")
	}
}

func TestRenderJobs_MissingDeadline(t *testing.T) {
	out := renderJobs(sampleJobs()[1:2], 0, true, time.UTC, time.Now())
	if !strings.Contains(out, "Beta · ~"+model.Placeholder) {
		t.Errorf("missing deadline should render placeholder, got %q", out)
	}
}

func TestDDay(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	now := time.Date(2025, 11, 28, 22, 0, 0, 0, kst)

	tests := []struct {
		name string
		end  *time.Time
		want string
		soon bool
	}{
		{"no deadline", nil, "", false},
		{"same day", timePtr(time.Date(2025, 11, 28, 23, 59, 0, 0, kst)), "D-Day", true},
		{"next calendar day", timePtr(time.Date(2025, 11, 29, 1, 0, 0, 0, kst)), "D-1", true},
		{"a week out", timePtr(time.Date(2025, 12, 5, 23, 59, 0, 0, kst)), "D-7", false},
		{"passed", timePtr(time.Date(2025, 11, 27, 23, 59, 0, 0, kst)), "마감", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dday(tt.end, now, kst); got != tt.want {
				t.Errorf("dday = %q, want %q", got, tt.want)
			}
			if got := closingSoon(tt.end, now); got != tt.soon {
				t.Errorf("closingSoon = %v, want %v", got, tt.soon)
			}
		})
	}
}

func TestOpenJobs(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	open := OpenJobs(sampleJobs(), now)
	if len(open) != 2 {
		t.Fatalf("expected 2 open jobs, got %d", len(open))
	}
	for _, j := range open {
		if j.Company == "ACME" {
			t.Error("ACME deadline has passed")
		}
	}
}

func TestPicker(t *testing.T) {
	m := pickerModel{title: "Select", items: []string{"jasoseol", "saramin"}, chosen: noChoice}
	next, _ := m.Update(key("j"))
	next, _ = next.Update(key("enter"))
	if got := next.(pickerModel).chosen; got != 1 {
		t.Errorf("chosen = %d, want 1", got)
	}

	next, _ = m.Update(key("q"))
	if got := next.(pickerModel).chosen; got != quitChoice {
		t.Errorf("chosen = %d, want quit", got)
	}
}
