package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mosaic-search/mosaic/internal/domain"
)

// MemoryIndex is a brute-force cosine similarity index. It serves the
// memory database driver and tests; exact, no ANN approximation.
type MemoryIndex struct {
	mu    sync.RWMutex
	items []memoryItem
}

type memoryItem struct {
	id      string
	ordinal int
	vector  []float32 // L2-normalized at insert
}

var _ domain.VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Reset drops all stored entries.
func (m *MemoryIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}

// UpsertBatch stores normalized copies of the given vectors.
func (m *MemoryIndex) UpsertBatch(_ context.Context, items []domain.VectorItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		normalized := normalizeCopy(item.Vector)
		replaced := false
		for i := range m.items {
			if m.items[i].id == item.ID {
				m.items[i] = memoryItem{id: item.ID, ordinal: item.Ordinal, vector: normalized}
				replaced = true
				break
			}
		}
		if !replaced {
			m.items = append(m.items, memoryItem{id: item.ID, ordinal: item.Ordinal, vector: normalized})
		}
	}
	return nil
}

// Query scores every stored vector by cosine similarity and returns the
// top k descending, ties broken by corpus order.
func (m *MemoryIndex) Query(_ context.Context, vec []float32, k int) ([]domain.VectorHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := normalizeCopy(vec)

	type scored struct {
		id      string
		ordinal int
		score   float64
	}
	hits := make([]scored, 0, len(m.items))
	for _, item := range m.items {
		if len(item.vector) != len(q) {
			continue
		}
		hits = append(hits, scored{id: item.id, ordinal: item.ordinal, score: dot(q, item.vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].ordinal < hits[j].ordinal
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.VectorHit, len(hits))
	for i, h := range hits {
		out[i] = domain.VectorHit{ID: h.id, Score: h.score}
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalizeCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	var norm2 float64
	for _, f := range v {
		norm2 += float64(f) * float64(f)
	}
	if norm2 == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(norm2)
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}
