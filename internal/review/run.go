package review

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/winnow/internal/service"
)

// Run drives an interactive review session over items. It blocks until the
// reviewer finishes or quits, and returns a tally of the verdicts entered.
func Run(ctx context.Context, storage service.Storage, runKey string, items []Item) (Summary, error) {
	if storage == nil {
		return Summary{}, fmt.Errorf("storage is required")
	}

	p := tea.NewProgram(New(storage, runKey, items), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Summary{}, fmt.Errorf("review session failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, fmt.Errorf("unexpected final model type %T", final)
	}
	return m.Summary(), nil
}
