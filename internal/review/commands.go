package review

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/winnow/internal/model"
)

// resolveTimeout bounds each storage write so a wedged database cannot
// freeze the screen.
const resolveTimeout = 10 * time.Second

// resolve persists a verdict for the item at index.
func (m Model) resolve(index int, status model.MatchStatus, sourceID string) tea.Cmd {
	item := m.items[index]
	storage := m.storage
	runKey := m.runKey

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		if err := storage.ResolveCatalogResult(ctx, runKey, item.SubjectID, item.Catalog, status, sourceID); err != nil {
			return errorMsg{err: err}
		}

		decision := DecisionNoMatch
		if status == model.MatchFound {
			decision = DecisionMatched
		}
		return resolvedMsg{index: index, decision: decision}
	}
}
