package review

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// State represents the current screen state.
type State int

// Screen states.
const (
	StateDeciding State = iota
	StateSourceEntry
	StateDone
)

// Model holds the review screen state. Items are preloaded; every verdict
// is written through to storage before the cursor advances.
type Model struct {
	storage   service.Storage
	err       error
	runKey    string
	items     []Item
	decisions []Decision
	input     textinput.Model
	keys      KeyMap
	cursor    int
	width     int
	height    int
	state     State
	showHelp  bool
	quitting  bool
}

// New creates a review model over the given unresolved items.
func New(storage service.Storage, runKey string, items []Item) Model {
	input := textinput.New()
	input.Placeholder = "source designation (optional)"
	input.CharLimit = 64
	input.Width = 40

	state := StateDeciding
	if len(items) == 0 {
		state = StateDone
	}

	return Model{
		storage:   storage,
		runKey:    runKey,
		items:     items,
		decisions: make([]Decision, len(items)),
		input:     input,
		keys:      DefaultKeyMap(),
		state:     state,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resolvedMsg:
		m.decisions[msg.index] = msg.decision
		m.err = nil
		m.advance()
		return m, nil

	case errorMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateDeciding:
			return m.updateDeciding(msg)
		case StateSourceEntry:
			return m.updateSourceEntry(msg)
		case StateDone:
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// updateDeciding handles keys on the item list.
func (m Model) updateDeciding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if len(m.items) > 0 {
			m.cursor = (m.cursor + 1) % len(m.items)
		}

	case key.Matches(msg, m.keys.Up):
		if len(m.items) > 0 {
			m.cursor = (m.cursor + len(m.items) - 1) % len(m.items)
		}

	case key.Matches(msg, m.keys.Matched):
		if m.decisions[m.cursor] == DecisionPending {
			m.state = StateSourceEntry
			m.input.SetValue("")
			m.input.Focus()
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.NoMatch):
		if m.decisions[m.cursor] == DecisionPending {
			return m, m.resolve(m.cursor, model.MatchNone, "")
		}

	case key.Matches(msg, m.keys.Skip):
		if m.decisions[m.cursor] == DecisionPending {
			m.decisions[m.cursor] = DecisionSkipped
			m.advance()
		}

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}

	return m, nil
}

// updateSourceEntry handles the optional source designation prompt shown
// before a matched verdict is persisted.
func (m Model) updateSourceEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		source := strings.TrimSpace(m.input.Value())
		if source == "" {
			source = "manual"
		}
		m.state = StateDeciding
		m.input.Blur()
		return m, m.resolve(m.cursor, model.MatchFound, source)

	case "esc":
		m.state = StateDeciding
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// advance moves the cursor to the next undecided item, or finishes the
// session when none remain.
func (m *Model) advance() {
	if m.state == StateDone {
		return
	}
	if m.pending() == 0 {
		m.state = StateDone
		return
	}
	for offset := 1; offset <= len(m.items); offset++ {
		next := (m.cursor + offset) % len(m.items)
		if m.decisions[next] == DecisionPending {
			m.cursor = next
			return
		}
	}
}

// pending counts items still awaiting a verdict.
func (m Model) pending() int {
	count := 0
	for _, d := range m.decisions {
		if d == DecisionPending {
			count++
		}
	}
	return count
}

// Summary reports the session's outcomes.
func (m Model) Summary() Summary {
	var s Summary
	for _, d := range m.decisions {
		switch d {
		case DecisionMatched:
			s.Matched++
		case DecisionNoMatch:
			s.NoMatch++
		default:
			s.Remaining++
		}
	}
	return s
}
