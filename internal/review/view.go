package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/winnow/internal/cli"
)

// listWindow bounds how many items render at once.
const listWindow = 10

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(cli.PrimaryColor).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

// View renders the review screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case StateDone:
		return m.renderDone()
	case StateSourceEntry:
		return m.renderSourceEntry()
	default:
		return m.renderDeciding()
	}
}

func (m Model) renderDeciding() string {
	sections := []string{
		m.renderTitle(),
		"",
		m.renderList(),
		"",
		m.renderDetail(),
	}
	if m.err != nil {
		sections = append(sections, "", cli.FormatError(m.err.Error()))
	}
	sections = append(sections, "", m.renderFooter())
	if m.showHelp {
		sections = append(sections, "", m.renderFullHelp())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderSourceEntry() string {
	prompt := cli.PromptStyle.Render("Matched source for subject " +
		fmt.Sprintf("%d", m.items[m.cursor].SubjectID))

	sections := []string{
		m.renderTitle(),
		"",
		m.renderDetail(),
		"",
		prompt,
		m.input.View(),
		"",
		cli.StyleSubtle("[Enter] Confirm · [Esc] Back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderDone() string {
	s := m.Summary()
	content := fmt.Sprintf("%s matched, %s clear, %s left unresolved",
		cli.StyleSuccess(fmt.Sprintf("%d", s.Matched)),
		cli.StyleInfo(fmt.Sprintf("%d", s.NoMatch)),
		cli.StyleSubtle(fmt.Sprintf("%d", s.Remaining)),
	)
	box := cli.RenderBox("Review complete", content)
	return lipgloss.JoinVertical(lipgloss.Left,
		box,
		"",
		cli.StyleSubtle("Press any key to exit."),
	)
}

func (m Model) renderTitle() string {
	key := m.runKey
	if len(key) > 8 {
		key = key[:8]
	}
	return cli.StyleTitle(cli.StarIcon + " Unresolved lookups · run " + key)
}

// renderList shows a window of items around the cursor with their current
// verdicts.
func (m Model) renderList() string {
	start := 0
	if m.cursor >= listWindow {
		start = m.cursor - listWindow + 1
	}
	end := start + listWindow
	if end > len(m.items) {
		end = len(m.items)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.items[i]
		label := fmt.Sprintf("subject %d · %s", item.SubjectID, item.Catalog)

		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
			label = selectedStyle.Render(label)
		}

		lines = append(lines, prefix+label+" "+m.renderVerdict(m.decisions[i]))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderVerdict(d Decision) string {
	switch d {
	case DecisionMatched:
		return cli.StyleSuccess(cli.SuccessIcon + " matched")
	case DecisionNoMatch:
		return cli.StyleInfo("○ clear")
	case DecisionSkipped:
		return cli.StyleSubtle("– skipped")
	default:
		return ""
	}
}

// renderDetail shows the current item's coordinates and viewer links.
func (m Model) renderDetail() string {
	if len(m.items) == 0 {
		return ""
	}
	item := m.items[m.cursor]

	lines := []string{
		fmt.Sprintf("Subject %s · %s",
			cli.BoldStyle.Render(fmt.Sprintf("%d", item.SubjectID)),
			item.Catalog),
	}
	if item.HasCoords {
		lines = append(lines, fmt.Sprintf("RA %.5f°  Dec %.5f°", item.RA, item.Dec))
	} else {
		lines = append(lines, cli.StyleWarning("no imported coordinates"))
	}
	lines = append(lines, cli.StyleSubtle("queried "+item.QueriedAt.Format("Jan 2, 2006 15:04 MST")))
	if item.WiseView != "" {
		lines = append(lines, "WiseView  "+cli.StyleInfo(item.WiseView))
	}
	if item.Simbad != "" {
		lines = append(lines, "SIMBAD    "+cli.StyleInfo(item.Simbad))
	}

	return cli.BoxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	s := m.Summary()
	progress := fmt.Sprintf("%d matched · %d clear · %d left", s.Matched, s.NoMatch, s.Remaining)

	helps := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		helps = append(helps, b.Help().Key+" "+b.Help().Desc)
	}
	return progress + "   " + cli.StyleSubtle(strings.Join(helps, " · "))
}

func (m Model) renderFullHelp() string {
	var lines []string
	for _, group := range m.keys.FullHelp() {
		parts := make([]string, 0, len(group))
		for _, b := range group {
			parts = append(parts, b.Help().Key+" "+b.Help().Desc)
		}
		lines = append(lines, strings.Join(parts, " · "))
	}
	return cli.StyleSubtle(strings.Join(lines, "\n"))
}
