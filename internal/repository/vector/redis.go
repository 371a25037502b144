// Package vector provides VectorIndex implementations: a Redis-backed
// index over FT.SEARCH KNN and an in-memory brute-force index.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mosaic-search/mosaic/internal/db"
	"github.com/mosaic-search/mosaic/internal/domain"
)

const (
	docKeyPrefix = domain.KeyPrefix + "doc:"
	indexName    = domain.KeyPrefix + "idx"
)

// store is the consumer interface for the Redis vector index (ISP).
type store interface {
	db.HashStore
	db.IndexManager
	db.VectorSearcher
}

// HNSWConfig holds HNSW build parameters for the FT index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// RedisIndex implements domain.VectorIndex on Redis 8+ via FT.SEARCH.
type RedisIndex struct {
	store store
	dim   int
	hnsw  HNSWConfig
}

var _ domain.VectorIndex = (*RedisIndex)(nil)

// NewRedisIndex creates a Redis-backed vector index for the given dimension.
func NewRedisIndex(s store, dim int) *RedisIndex {
	return &RedisIndex{store: s, dim: dim}
}

// WithHNSW switches the index from FLAT to HNSW with the given parameters.
func (r *RedisIndex) WithHNSW(cfg HNSWConfig) *RedisIndex {
	r.hnsw = cfg
	return r
}

// Reset drops all stored documents and recreates the FT index.
func (r *RedisIndex) Reset(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan existing docs: %w", err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete existing docs: %w", err)
	}

	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		if err := r.store.DropIndex(ctx, indexName); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
	}

	def := &db.IndexDefinition{
		Name:           indexName,
		Prefixes:       []string{docKeyPrefix},
		VectorField:    "vector",
		VectorDim:      r.dim,
		VectorDistance: db.DistanceCosine,
		VectorAlgo:     db.VectorFlat,
	}
	if r.hnsw.M > 0 {
		def.VectorAlgo = db.VectorHNSW
		def.VectorM = r.hnsw.M
		def.VectorEFConstruct = r.hnsw.EFConstruct
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// UpsertBatch stores a batch of document vectors as hashes in one round-trip.
func (r *RedisIndex) UpsertBatch(ctx context.Context, items []domain.VectorItem) error {
	hashes := make([]db.HashSetItem, len(items))
	for i, item := range items {
		if len(item.Vector) != r.dim {
			return fmt.Errorf("item %s: vector dim %d, index dim %d", item.ID, len(item.Vector), r.dim)
		}
		hashes[i] = db.HashSetItem{
			Key: docKeyPrefix + item.ID,
			Fields: map[string]string{
				"vector":  vectorToBlob(item.Vector),
				"text":    item.Text,
				"ordinal": strconv.Itoa(item.Ordinal),
			},
		}
	}
	if err := r.store.HSetMulti(ctx, hashes); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// Query runs a KNN search and returns hits with cosine similarity scores.
func (r *RedisIndex) Query(ctx context.Context, vec []float32, k int) ([]domain.VectorHit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{"__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	hits := make([]domain.VectorHit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, domain.VectorHit{
			ID:    strings.TrimPrefix(e.Key, docKeyPrefix),
			Score: e.Score,
		})
	}
	return hits, nil
}

func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
