package search

import (
	"context"
	"fmt"
	"log/slog"
)

// Searcher looks something up and returns a text excerpt.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) (string, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Stub is a placeholder Searcher that echoes the query. It keeps the
// decision path exercised until a real engine is plugged in.
type Stub struct {
	Logger *slog.Logger
}

// Search implements Searcher.
func (s Stub) Search(_ context.Context, query string) (string, error) {
	if s.Logger != nil {
		s.Logger.Info("stub search", "query", query)
	}
	return fmt.Sprintf("Search results for %q will appear here.", query), nil
}
