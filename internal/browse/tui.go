package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfinder/internal/model"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	colorAccent   = lipgloss.Color("39")
	colorMuted    = lipgloss.Color("240")
	colorText     = lipgloss.Color("252")
	colorSelected = lipgloss.Color("24")
	colorUrgent   = lipgloss.Color("203")

	// Deadlines this close are highlighted in the list.
	urgentWithin = 3 * 24 * time.Hour
)

type paneStyles struct {
	border lipgloss.Style
	header lipgloss.Style
}

func newPaneStyles(c lipgloss.Color) paneStyles {
	return paneStyles{
		border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c),
		header: lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(c),
	}
}

type rowStyles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	urgent   lipgloss.Style
}

var (
	activePaneStyles   = newPaneStyles(colorAccent)
	inactivePaneStyles = newPaneStyles(colorMuted)

	plainRow = rowStyles{
		title:    lipgloss.NewStyle().Bold(true),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		urgent:   lipgloss.NewStyle().Foreground(colorUrgent),
	}
	selectedRow = rowStyles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(colorSelected),
		subtitle: lipgloss.NewStyle().Foreground(colorText).Background(colorSelected),
		urgent:   lipgloss.NewStyle().Bold(true).Foreground(colorUrgent).Background(colorSelected),
	}

	statusBarStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(colorText).Background(lipgloss.Color("236"))
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Width(12)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).MarginBottom(1)
)

// Pane is one titled column of jobs.
type Pane struct {
	Title string
	Jobs  []model.Job
}

type browseModel struct {
	panes      [2]Pane
	viewports  [2]viewport.Model
	cursors    [2]int
	activePane int
	width      int
	height     int
	loc        *time.Location
	now        func() time.Time
	ready      bool

	view           viewState
	detailJob      model.Job
	detailViewport viewport.Model

	open     func(url string)
	wantQuit bool
}

func newModel(left, right Pane, loc *time.Location) browseModel {
	if loc == nil {
		loc = time.Local
	}
	return browseModel{panes: [2]Pane{left, right}, loc: loc, now: time.Now, open: openURL}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// pgup/pgdn/home/end scroll the active pane.
	var cmd tea.Cmd
	m.viewports[m.activePane], cmd = m.viewports[m.activePane].Update(msg)
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if strings.HasPrefix(m.detailJob.Detail, "http") {
			m.open(m.detailJob.Detail)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	p := m.activePane
	m.cursors[p] = clamp(m.cursors[p]+delta, 0, max(len(m.panes[p].Jobs)-1, 0))
}

func (m *browseModel) ensureCursorVisible() {
	vp := &m.viewports[m.activePane]
	cursorTop := m.cursors[m.activePane] * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	jobs := m.panes[m.activePane].Jobs
	if len(jobs) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.detailJob = jobs[m.cursors[m.activePane]]
	m.detailViewport = viewport.New(max(m.width-4, 20), max(m.height-4, 5))
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	for i := range m.viewports {
		if !m.ready {
			m.viewports[i] = viewport.New(paneWidth, paneHeight)
			continue
		}
		m.viewports[i].Width = paneWidth
		m.viewports[i].Height = paneHeight
	}
	m.ready = true
	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	for i := range m.viewports {
		m.viewports[i].SetContent(renderJobs(m.panes[i].Jobs, m.cursors[i], m.activePane == i, m.loc, m.now()))
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.viewports[0].Width

	var headers, bodies [2]string
	for i, p := range m.panes {
		st := inactivePaneStyles
		if i == m.activePane {
			st = activePaneStyles
		}
		headers[i] = st.header.Render(fmt.Sprintf(" %s (%d)", p.Title, len(p.Jobs)))
		bodies[i] = st.border.Width(paneWidth).Render(m.viewports[i].View())
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(headers[0]),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(headers[1]),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top, bodies[0], " ", bodies[1])

	statusText := fmt.Sprintf(" %d %s | %d %s    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.panes[0].Jobs), strings.ToLower(m.panes[0].Title),
		len(m.panes[1].Jobs), strings.ToLower(m.panes[1].Title))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := titleStyle.Render("Job Details")
	content := activePaneStyles.border.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" o open link  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	j := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("회사명", j.Company)
	addField("제목", j.Title)
	addField("Source", j.Source)
	b.WriteByte('\n')
	addField("채용시작일", formatDate(j.StartAt, m.loc))
	addField("채용마감일", strings.TrimSpace(formatDate(j.EndAt, m.loc)+" "+dday(j.EndAt, m.now(), m.loc)))
	if !j.CreatedAt.IsZero() {
		addField("등록일", j.CreatedAt.In(m.loc).Format("2006-01-02 15:04"))
	}
	b.WriteByte('\n')
	addField("링크", j.Detail)
	return b.String()
}

func renderJobs(jobs []model.Job, cursor int, isActive bool, loc *time.Location, now time.Time) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		st, prefix := plainRow, "  "
		if isActive && i == cursor {
			st, prefix = selectedRow, "> "
		}

		b.WriteString(prefix)
		b.WriteString(st.title.Render(j.Title))
		b.WriteByte('\n')
		b.WriteString(prefix)
		b.WriteString(st.subtitle.Render(fmt.Sprintf("%s · ~%s", j.Company, formatDate(j.EndAt, loc))))
		if tag := dday(j.EndAt, now, loc); tag != "" {
			style := st.subtitle
			if closingSoon(j.EndAt, now) {
				style = st.urgent
			}
			b.WriteString(style.Render(" " + tag))
		}
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// dday labels a deadline relative to now in calendar days: "D-3", "D-Day",
// or "마감" once it has passed. A nil deadline has no label.
func dday(end *time.Time, now time.Time, loc *time.Location) string {
	if end == nil {
		return ""
	}
	if end.Before(now) {
		return "마감"
	}
	y1, m1, d1 := now.In(loc).Date()
	y2, m2, d2 := end.In(loc).Date()
	days := int(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Sub(time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if days == 0 {
		return "D-Day"
	}
	return fmt.Sprintf("D-%d", days)
}

func closingSoon(end *time.Time, now time.Time) bool {
	return end != nil && !end.Before(now) && end.Sub(now) <= urgentWithin
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return model.Placeholder
	}
	return t.In(loc).Format("2006-01-02")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane browser. It returns wantQuit=true when the
// user pressed q or ctrl+c and false when they pressed esc to go back.
func Run(left, right Pane, loc *time.Location) (bool, error) {
	result, err := tea.NewProgram(newModel(left, right, loc), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}

// OpenJobs returns the jobs whose deadline has not passed at now. Jobs
// without a deadline count as open.
func OpenJobs(jobs []model.Job, now time.Time) []model.Job {
	var open []model.Job
	for _, j := range jobs {
		if j.EndAt == nil || !j.EndAt.Before(now) {
			open = append(open, j)
		}
	}
	return open
}
