// Package searchtest provides test helpers for the search package.
package searchtest

import (
	"context"
	"sync"

	"github.com/ytclab/ytcbot/internal/search"
)

// MockSearcher records queries and answers with Result or SearchFunc.
// Safe for concurrent use.
type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string) (string, error)
	Result     string

	mu      sync.Mutex
	queries []string
}

// Search implements search.Searcher.
func (m *MockSearcher) Search(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return m.Result, nil
}

// Queries returns every query received, in order.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

var _ search.Searcher = (*MockSearcher)(nil)
