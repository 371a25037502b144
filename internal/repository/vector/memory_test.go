package vector

import (
	"context"
	"math"
	"testing"

	"github.com/mosaic-search/mosaic/internal/domain"
)

func TestMemoryIndex_QueryRanksByCosine(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	err := idx.UpsertBatch(ctx, []domain.VectorItem{
		{ID: "x", Ordinal: 0, Vector: []float32{1, 0}},
		{ID: "y", Ordinal: 1, Vector: []float32{0, 1}},
		{ID: "diag", Ordinal: 2, Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != "x" || math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("expected exact match first with score 1, got %s %v", hits[0].ID, hits[0].Score)
	}
	if hits[1].ID != "diag" {
		t.Errorf("expected diagonal second, got %s", hits[1].ID)
	}
	if math.Abs(hits[1].Score-1/math.Sqrt2) > 1e-6 {
		t.Errorf("expected cos 45° score, got %v", hits[1].Score)
	}
}

func TestMemoryIndex_MagnitudeInvariant(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{
		{ID: "short", Ordinal: 0, Vector: []float32{0.1, 0}},
		{ID: "long", Ordinal: 1, Vector: []float32{100, 0}},
	})

	hits, _ := idx.Query(ctx, []float32{1, 0}, 10)
	if math.Abs(hits[0].Score-hits[1].Score) > 1e-6 {
		t.Errorf("cosine must ignore magnitude: %v vs %v", hits[0].Score, hits[1].Score)
	}
}

func TestMemoryIndex_TopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{
		{ID: "a", Ordinal: 0, Vector: []float32{1, 0}},
		{ID: "b", Ordinal: 1, Vector: []float32{0.9, 0.1}},
		{ID: "c", Ordinal: 2, Vector: []float32{0, 1}},
	})

	hits, _ := idx.Query(ctx, []float32{1, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "a" || hits[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", hits[0].ID, hits[1].ID)
	}
}

func TestMemoryIndex_TiesBrokenByOrdinal(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{
		{ID: "later", Ordinal: 5, Vector: []float32{1, 0}},
		{ID: "earlier", Ordinal: 2, Vector: []float32{1, 0}},
	})

	hits, _ := idx.Query(ctx, []float32{1, 0}, 10)
	if hits[0].ID != "earlier" {
		t.Errorf("expected ordinal tie-break, got %s first", hits[0].ID)
	}
}

func TestMemoryIndex_UpsertReplacesByID(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{{ID: "a", Ordinal: 0, Vector: []float32{1, 0}}})
	_ = idx.UpsertBatch(ctx, []domain.VectorItem{{ID: "a", Ordinal: 0, Vector: []float32{0, 1}}})

	hits, _ := idx.Query(ctx, []float32{0, 1}, 10)
	if len(hits) != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", len(hits))
	}
	if math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("expected replaced vector to match, score %v", hits[0].Score)
	}
}

func TestMemoryIndex_Reset(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{{ID: "a", Ordinal: 0, Vector: []float32{1, 0}}})
	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	hits, _ := idx.Query(ctx, []float32{1, 0}, 10)
	if len(hits) != 0 {
		t.Fatalf("expected empty index after reset, got %d hits", len(hits))
	}
}

func TestMemoryIndex_DimensionMismatchSkipped(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_ = idx.UpsertBatch(ctx, []domain.VectorItem{
		{ID: "ok", Ordinal: 0, Vector: []float32{1, 0}},
		{ID: "odd", Ordinal: 1, Vector: []float32{1, 0, 0}},
	})

	hits, _ := idx.Query(ctx, []float32{1, 0}, 10)
	if len(hits) != 1 || hits[0].ID != "ok" {
		t.Fatalf("expected mismatched dimension skipped, got %d hits", len(hits))
	}
}
