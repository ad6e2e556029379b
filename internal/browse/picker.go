package browse

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(1, 0, 1, 2)
	pickerItemStyle     = lipgloss.NewStyle().PaddingLeft(4)
	pickerSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).PaddingLeft(2)
	pickerHintStyle     = lipgloss.NewStyle().Foreground(colorMuted).Padding(1, 0, 0, 2)
)

const (
	noChoice   = -1
	quitChoice = -2
)

type pickerModel struct {
	title  string
	items  []string
	cursor int
	chosen int
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		m.chosen = quitChoice
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render(m.title))
	b.WriteByte('\n')
	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> " + item))
		} else {
			b.WriteString(pickerItemStyle.Render(item))
		}
		b.WriteByte('\n')
	}
	b.WriteString(pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit"))
	return b.String()
}

// RunPicker shows an interactive list selector and returns the chosen index,
// or -1 if the user quit.
func RunPicker(title string, items []string) (int, error) {
	m := pickerModel{title: title, items: items, chosen: noChoice}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return noChoice, err
	}
	final := result.(pickerModel)
	if final.chosen < 0 {
		return noChoice, nil
	}
	return final.chosen, nil
}
