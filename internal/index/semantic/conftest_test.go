package semantic

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
)

func buildCorpus(t *testing.T, texts ...string) *document.Corpus {
	t.Helper()
	entries := make([]document.Entry, len(texts))
	for i, text := range texts {
		entries[i] = document.Entry{Text: text}
	}
	corpus, err := document.BuildCorpus(entries)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return corpus
}

// mockEmbedder maps text to a fixed vector; failAfter > 0 fails every
// call past that count.
type mockEmbedder struct {
	vectors   map[string][]float32
	err       error
	failAfter int32
	calls     atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	n := m.calls.Add(1)
	if m.err != nil && (m.failAfter == 0 || n > m.failAfter) {
		return domain.EmbeddingResult{}, m.err
	}
	if vec, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 0, 1}, TotalTokens: 1}, nil
}

// mockVectorIndex records calls; queryHits drives Query responses.
type mockVectorIndex struct {
	mu        sync.Mutex
	resets    int
	upserted  []domain.VectorItem
	queryHits []domain.VectorHit
	resetErr  error
	upsertErr error
	queryErr  error
}

func (m *mockVectorIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets++
	m.upserted = nil
	return nil
}

func (m *mockVectorIndex) UpsertBatch(_ context.Context, items []domain.VectorItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, items...)
	return nil
}

func (m *mockVectorIndex) Query(_ context.Context, _ []float32, k int) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	hits := m.queryHits
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
