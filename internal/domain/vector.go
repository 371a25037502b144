package domain

import "context"

// KeyPrefix namespaces every key this service writes to shared storage.
const KeyPrefix = "mosaic:"

// VectorItem is one (document, embedding) pair stored in a vector index.
type VectorItem struct {
	ID      string
	Ordinal int
	Text    string
	Vector  []float32
}

// VectorHit is a single nearest-neighbor match, similarity descending.
type VectorHit struct {
	ID    string
	Score float64
}

// VectorIndex is the external nearest-neighbor store contract.
// Implementations own persistence and the similarity metric; callers
// must query with vectors produced under the same metric the index was
// built with.
type VectorIndex interface {
	// Reset drops all stored entries so a fresh build starts empty.
	Reset(ctx context.Context) error
	// UpsertBatch stores a batch of (id, vector) pairs.
	UpsertBatch(ctx context.Context, items []VectorItem) error
	// Query returns the top k entries by similarity to the given vector.
	Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
}
