// Package semantic ranks documents by embedding-space proximity using
// an external vector index and embedding provider.
package semantic

import (
	"context"
	"fmt"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
)

// Index answers nearest-neighbor queries over an already-built corpus.
// Read-only; concurrent queries need no locking.
type Index struct {
	corpus *document.Corpus
	vecs   domain.VectorIndex
	embed  domain.Embedder
}

// NewIndex wraps a built vector index for query serving.
func NewIndex(corpus *document.Corpus, vecs domain.VectorIndex, embed domain.Embedder) *Index {
	return &Index{corpus: corpus, vecs: vecs, embed: embed}
}

// WithQueryEmbedder swaps the embedder used for queries. Documents and
// queries may carry different instruction prefixes.
func (idx *Index) WithQueryEmbedder(embed domain.Embedder) *Index {
	idx.embed = embed
	return idx
}

// Query embeds the query text and returns the top k documents by
// similarity descending. The query embedding call is not retried here;
// a provider failure propagates wrapped in domain.ErrEmbeddingProvider.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidRequest
	}

	embRes, err := idx.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := idx.vecs.Query(ctx, embRes.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	results := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		doc := idx.corpus.ByID(h.ID)
		if doc == nil {
			// Stale entry from a previous corpus; the index owner
			// should have Reset before rebuild.
			continue
		}
		results = append(results, result.New(
			doc.ID(), h.Score, doc.Text(), doc.Metadata(), result.SourceSemantic, doc.Ordinal(),
		))
	}
	return results, nil
}
