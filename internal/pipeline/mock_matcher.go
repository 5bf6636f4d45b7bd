package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/winnow/internal/catalog"
	"github.com/Veraticus/winnow/internal/model"
)

// MockMatcher is a test implementation of the Matcher interface. It returns
// canned outcomes keyed by subject and catalog and records every call.
type MockMatcher struct {
	results  map[string]model.CatalogMatch
	errors   map[string]error
	calls    []MockMatchCall
	catalogs []string
	mu       sync.Mutex
}

// MockMatchCall records one Match invocation.
type MockMatchCall struct {
	Catalog   string
	SubjectID int64
}

// NewMockMatcher creates a mock matcher over the given catalogs, defaulting
// to the standard pair. Lookups without a canned outcome resolve to a
// clean miss.
func NewMockMatcher(catalogs ...string) *MockMatcher {
	if len(catalogs) == 0 {
		catalogs = []string{catalog.CatalogGaia, catalog.CatalogSimbad}
	}
	return &MockMatcher{
		results:  make(map[string]model.CatalogMatch),
		errors:   make(map[string]error),
		catalogs: catalogs,
	}
}

// SetResult cans the outcome for one subject and catalog.
func (m *MockMatcher) SetResult(subjectID int64, cat string, status model.MatchStatus, sourceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[mockKey(subjectID, cat)] = model.CatalogMatch{
		SubjectID:    subjectID,
		Catalog:      cat,
		Status:       status,
		SourceID:     sourceID,
		RadiusArcsec: 110,
		QueriedAt:    time.Now().UTC(),
	}
}

// SetError makes the lookup fail with err. The match returned alongside it
// is unresolved, matching the real matcher's degraded contract.
func (m *MockMatcher) SetError(subjectID int64, cat string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[mockKey(subjectID, cat)] = err
}

// ClearError removes an injected failure so later lookups succeed.
func (m *MockMatcher) ClearError(subjectID int64, cat string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errors, mockKey(subjectID, cat))
}

// Match implements Matcher.
func (m *MockMatcher) Match(_ context.Context, subject model.Subject, cat string) (model.CatalogMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockMatchCall{Catalog: cat, SubjectID: subject.ID})

	key := mockKey(subject.ID, cat)
	if err, ok := m.errors[key]; ok {
		return model.CatalogMatch{
			SubjectID:    subject.ID,
			Catalog:      cat,
			Status:       model.MatchUnknown,
			RadiusArcsec: 110,
			QueriedAt:    time.Now().UTC(),
		}, err
	}
	if match, ok := m.results[key]; ok {
		return match, nil
	}
	return model.CatalogMatch{
		SubjectID:    subject.ID,
		Catalog:      cat,
		Status:       model.MatchNone,
		RadiusArcsec: 110,
		QueriedAt:    time.Now().UTC(),
	}, nil
}

// Catalogs implements Matcher.
func (m *MockMatcher) Catalogs() []string {
	return m.catalogs
}

// Calls returns a copy of every recorded Match invocation in order.
func (m *MockMatcher) Calls() []MockMatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockMatchCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns how many times one subject and catalog were queried.
func (m *MockMatcher) CallCount(subjectID int64, cat string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call.SubjectID == subjectID && call.Catalog == cat {
			count++
		}
	}
	return count
}

func mockKey(subjectID int64, cat string) string {
	return fmt.Sprintf("%d/%s", subjectID, cat)
}
