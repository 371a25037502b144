package retrieval

import (
	"context"

	"github.com/mosaic-search/mosaic/internal/domain/search/result"
)

// LexicalSearcher ranks documents by term-overlap relevance.
type LexicalSearcher interface {
	Query(ctx context.Context, text string, k int) ([]result.Result, error)
}

// SemanticSearcher ranks documents by embedding-space proximity.
type SemanticSearcher interface {
	Query(ctx context.Context, text string, k int) ([]result.Result, error)
}
