package review

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/testutil"
)

const testRunKey = "cafe0123"

func newTestStorage(t *testing.T) service.Storage {
	t.Helper()
	return testutil.SetupTestDB(t)
}

// testItems builds n unresolved items alternating between the two catalogs.
func testItems(n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		catalog := "simbad"
		if i%2 == 1 {
			catalog = "gaia"
		}
		items = append(items, Item{
			SubjectID: int64(100 + i),
			Catalog:   catalog,
			RA:        133.70005,
			Dec:       22.10001,
			HasCoords: true,
			QueriedAt: time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC),
		})
	}
	return items
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func updatedModel(t *testing.T, tm tea.Model) Model {
	t.Helper()
	m, ok := tm.(Model)
	require.True(t, ok, "expected review.Model, got %T", tm)
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		items     []Item
		wantState State
	}{
		{
			name:      "items pending start on the list",
			items:     testItems(2),
			wantState: StateDeciding,
		},
		{
			name:      "no items goes straight to done",
			items:     nil,
			wantState: StateDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, testRunKey, tt.items)

			assert.Equal(t, tt.wantState, m.state)
			assert.Equal(t, 0, m.cursor)
			assert.Len(t, m.decisions, len(tt.items))
			for _, d := range m.decisions {
				assert.Equal(t, DecisionPending, d)
			}
			assert.Nil(t, m.Init())
		})
	}
}

func TestModelUpdate_Navigation(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		startCursor int
		wantCursor  int
	}{
		{name: "down from first", key: "j", startCursor: 0, wantCursor: 1},
		{name: "down with arrow", key: "down", startCursor: 1, wantCursor: 2},
		{name: "down wraps to beginning", key: "j", startCursor: 2, wantCursor: 0},
		{name: "up from middle", key: "k", startCursor: 1, wantCursor: 0},
		{name: "up wraps to end", key: "up", startCursor: 0, wantCursor: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Model{
				items:     testItems(3),
				decisions: make([]Decision, 3),
				keys:      DefaultKeyMap(),
				cursor:    tt.startCursor,
			}

			updated, cmd := m.Update(keyMsg(tt.key))

			assert.Nil(t, cmd)
			assert.Equal(t, tt.wantCursor, updatedModel(t, updated).cursor)
		})
	}
}

func TestModelUpdate_Skip(t *testing.T) {
	m := Model{
		items:     testItems(2),
		decisions: make([]Decision, 2),
		keys:      DefaultKeyMap(),
	}

	updated, cmd := m.Update(keyMsg("s"))
	um := updatedModel(t, updated)

	assert.Nil(t, cmd)
	assert.Equal(t, DecisionSkipped, um.decisions[0])
	assert.Equal(t, 1, um.cursor)
	assert.Equal(t, StateDeciding, um.state)

	// Skipping the last pending item ends the session.
	updated, _ = um.Update(keyMsg("s"))
	um = updatedModel(t, updated)

	assert.Equal(t, StateDone, um.state)
	assert.Equal(t, Summary{Remaining: 2}, um.Summary())
}

func TestModelUpdate_SourceEntry(t *testing.T) {
	t.Run("matched opens the source prompt", func(t *testing.T) {
		m := Model{
			items:     testItems(1),
			decisions: make([]Decision, 1),
			keys:      DefaultKeyMap(),
		}

		updated, cmd := m.Update(keyMsg("m"))
		um := updatedModel(t, updated)

		assert.NotNil(t, cmd)
		assert.Equal(t, StateSourceEntry, um.state)
		assert.True(t, um.input.Focused())
	})

	t.Run("enter confirms and returns to the list", func(t *testing.T) {
		m := Model{
			items:     testItems(1),
			decisions: make([]Decision, 1),
			keys:      DefaultKeyMap(),
		}

		updated, _ := m.Update(keyMsg("m"))
		um := updatedModel(t, updated)

		for _, r := range "W0830" {
			next, _ := um.Update(keyMsg(string(r)))
			um = updatedModel(t, next)
		}
		assert.Equal(t, "W0830", um.input.Value())

		next, cmd := um.Update(keyMsg("enter"))
		um = updatedModel(t, next)

		assert.NotNil(t, cmd)
		assert.Equal(t, StateDeciding, um.state)
		assert.False(t, um.input.Focused())
		// The verdict lands with the resolvedMsg, not before.
		assert.Equal(t, DecisionPending, um.decisions[0])
	})

	t.Run("esc abandons the prompt", func(t *testing.T) {
		m := Model{
			items:     testItems(1),
			decisions: make([]Decision, 1),
			keys:      DefaultKeyMap(),
		}

		updated, _ := m.Update(keyMsg("m"))
		um := updatedModel(t, updated)

		next, cmd := um.Update(keyMsg("esc"))
		um = updatedModel(t, next)

		assert.Nil(t, cmd)
		assert.Equal(t, StateDeciding, um.state)
		assert.Equal(t, DecisionPending, um.decisions[0])
	})
}

func TestModelUpdate_ResolvedMsg(t *testing.T) {
	m := Model{
		items:     testItems(2),
		decisions: make([]Decision, 2),
		keys:      DefaultKeyMap(),
		err:       assert.AnError,
	}

	updated, cmd := m.Update(resolvedMsg{index: 0, decision: DecisionMatched})
	um := updatedModel(t, updated)

	assert.Nil(t, cmd)
	assert.NoError(t, um.err)
	assert.Equal(t, DecisionMatched, um.decisions[0])
	assert.Equal(t, 1, um.cursor)

	updated, _ = um.Update(resolvedMsg{index: 1, decision: DecisionNoMatch})
	um = updatedModel(t, updated)

	assert.Equal(t, StateDone, um.state)
	assert.Equal(t, Summary{Matched: 1, NoMatch: 1}, um.Summary())
}

func TestModelUpdate_ErrorMsg(t *testing.T) {
	m := Model{
		items:     testItems(1),
		decisions: make([]Decision, 1),
		keys:      DefaultKeyMap(),
	}

	updated, cmd := m.Update(errorMsg{err: assert.AnError})
	um := updatedModel(t, updated)

	assert.Nil(t, cmd)
	assert.Error(t, um.err)
	assert.Equal(t, DecisionPending, um.decisions[0])
}

func TestModelUpdate_Quit(t *testing.T) {
	t.Run("q quits from the list", func(t *testing.T) {
		m := Model{
			items:     testItems(1),
			decisions: make([]Decision, 1),
			keys:      DefaultKeyMap(),
		}

		updated, cmd := m.Update(keyMsg("q"))
		um := updatedModel(t, updated)

		assert.NotNil(t, cmd)
		assert.True(t, um.quitting)
		assert.Empty(t, um.View())
	})

	t.Run("any key exits the done screen", func(t *testing.T) {
		m := New(nil, testRunKey, nil)

		updated, cmd := m.Update(keyMsg("x"))
		um := updatedModel(t, updated)

		assert.NotNil(t, cmd)
		assert.True(t, um.quitting)
	})
}

func TestModelView(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() Model
		contains []string
	}{
		{
			name: "deciding shows list, detail, and help",
			setup: func() Model {
				return Model{
					runKey:    testRunKey,
					items:     testItems(2),
					decisions: make([]Decision, 2),
					keys:      DefaultKeyMap(),
				}
			},
			contains: []string{
				"Unresolved lookups",
				"cafe0123",
				"subject 100 · simbad",
				"subject 101 · gaia",
				"RA 133.70005",
				"Dec 22.10001",
				"0 matched · 0 clear · 2 left",
				"mark matched",
				"mark clear",
			},
		},
		{
			name: "verdicts and errors are visible",
			setup: func() Model {
				m := Model{
					runKey:    testRunKey,
					items:     testItems(3),
					decisions: []Decision{DecisionMatched, DecisionNoMatch, DecisionPending},
					keys:      DefaultKeyMap(),
					cursor:    2,
					err:       assert.AnError,
				}
				return m
			},
			contains: []string{
				"matched",
				"clear",
				"1 matched · 1 clear · 1 left",
				assert.AnError.Error(),
			},
		},
		{
			name: "missing coordinates are called out",
			setup: func() Model {
				return Model{
					runKey:    testRunKey,
					items:     []Item{{SubjectID: 42, Catalog: "gaia"}},
					decisions: make([]Decision, 1),
					keys:      DefaultKeyMap(),
				}
			},
			contains: []string{
				"subject 42 · gaia",
				"no imported coordinates",
			},
		},
		{
			name: "source entry shows the prompt",
			setup: func() Model {
				m := New(nil, testRunKey, testItems(1))
				updated, _ := m.Update(keyMsg("m"))
				return updated.(Model)
			},
			contains: []string{
				"Matched source for subject 100",
				"Confirm",
				"Back",
			},
		},
		{
			name: "done shows the summary",
			setup: func() Model {
				return Model{
					runKey:    testRunKey,
					items:     testItems(2),
					decisions: []Decision{DecisionMatched, DecisionSkipped},
					keys:      DefaultKeyMap(),
					state:     StateDone,
				}
			},
			contains: []string{
				"Review complete",
				"Press any key to exit",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.setup().View()
			for _, want := range tt.contains {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestResolveCommand(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	unknown := model.CatalogMatch{
		SubjectID: 7,
		Catalog:   "gaia",
		Status:    model.MatchUnknown,
		QueriedAt: time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveCatalogResult(ctx, testRunKey, unknown))

	m := Model{
		storage:   store,
		runKey:    testRunKey,
		items:     []Item{{SubjectID: 7, Catalog: "gaia"}},
		decisions: make([]Decision, 1),
		keys:      DefaultKeyMap(),
	}

	msg := m.resolve(0, model.MatchFound, "J0830+2844")()
	resolved, ok := msg.(resolvedMsg)
	require.True(t, ok, "expected resolvedMsg, got %T", msg)
	assert.Equal(t, 0, resolved.index)
	assert.Equal(t, DecisionMatched, resolved.decision)

	got, err := store.GetCatalogResults(ctx, testRunKey, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.MatchFound, got[0].Status)
	assert.Equal(t, "J0830+2844", got[0].SourceID)

	// A second verdict on the same item fails; the error surfaces on screen.
	msg = m.resolve(0, model.MatchNone, "")()
	errMsg, ok := msg.(errorMsg)
	require.True(t, ok, "expected errorMsg, got %T", msg)
	assert.Error(t, errMsg.err)
}

func TestLoadItems(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	subject := model.Subject{
		ID:  5,
		RA:  133.70005,
		Dec: 22.10001,
		FOV: 120,
		Metadata: []model.MetadataField{
			{Key: "WISEVIEW", Value: "[WiseView](+tab+http://byw.tools/wiseview#ra=133.70005&dec=22.10001)"},
			{Key: "SIMBAD", Value: "[SIMBAD](+tab+http://simbad.u-strasbg.fr/simbad/sim-coo?Coord=133.70005d22.10001)"},
		},
	}
	require.NoError(t, store.SaveSubjects(ctx, []model.Subject{subject}))

	queried := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	matches := []model.CatalogMatch{
		{SubjectID: 5, Catalog: "simbad", Status: model.MatchUnknown, QueriedAt: queried},
		{SubjectID: 5, Catalog: "gaia", Status: model.MatchFound, SourceID: "src-1", QueriedAt: queried},
		{SubjectID: 9, Catalog: "gaia", Status: model.MatchUnknown, QueriedAt: queried},
	}
	for _, match := range matches {
		require.NoError(t, store.SaveCatalogResult(ctx, testRunKey, match))
	}

	items, err := LoadItems(ctx, store, testRunKey)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Only unresolved lookups appear, ascending by subject.
	assert.Equal(t, int64(5), items[0].SubjectID)
	assert.Equal(t, "simbad", items[0].Catalog)
	assert.True(t, items[0].HasCoords)
	assert.Equal(t, 133.70005, items[0].RA)
	assert.Equal(t, "http://byw.tools/wiseview#ra=133.70005&dec=22.10001", items[0].WiseView)
	assert.True(t, items[0].QueriedAt.Equal(queried))

	// Subject 9 was never imported; review proceeds on the ID alone.
	assert.Equal(t, int64(9), items[1].SubjectID)
	assert.False(t, items[1].HasCoords)
	assert.Empty(t, items[1].WiseView)
}

func TestLoadItems_Empty(t *testing.T) {
	store := newTestStorage(t)

	items, err := LoadItems(context.Background(), store, "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, items)

	// The sentinel for absent subjects is what LoadItems relies on.
	_, err = store.GetSubject(context.Background(), 12345)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
