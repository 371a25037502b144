package semantic

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
)

// Build defaults.
const (
	DefaultBatchSize   = 64
	DefaultParallelism = 4
)

// Builder embeds a corpus and loads the vectors into a VectorIndex.
type Builder struct {
	vecs        domain.VectorIndex
	embed       domain.Embedder
	batchSize   int
	parallelism int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewBuilder creates a semantic index builder.
func NewBuilder(vecs domain.VectorIndex, embed domain.Embedder, logger *zap.Logger) *Builder {
	return &Builder{
		vecs:        vecs,
		embed:       embed,
		batchSize:   DefaultBatchSize,
		parallelism: DefaultParallelism,
		logger:      logger,
	}
}

// WithBatchSize bounds how many texts go into one provider call.
func (b *Builder) WithBatchSize(n int) *Builder {
	if n > 0 {
		b.batchSize = n
	}
	return b
}

// WithParallelism bounds how many provider calls run at once.
func (b *Builder) WithParallelism(n int) *Builder {
	if n > 0 {
		b.parallelism = n
	}
	return b
}

// WithRateLimit caps provider calls per second (0 = unlimited).
func (b *Builder) WithRateLimit(callsPerSec float64) *Builder {
	if callsPerSec > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(callsPerSec), 1)
	}
	return b
}

// Build embeds every document and flushes the result into the vector
// index. The build is all-or-nothing: vectors are staged in memory and
// nothing touches the index until every batch has succeeded, so a
// failed build leaves no partial index behind. Any provider failure
// (after the embedder chain's own retries) aborts the whole build.
func (b *Builder) Build(ctx context.Context, corpus *document.Corpus) (*Index, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	docs := corpus.Documents()
	staged := make([][]float32, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for start := 0; start < len(docs); start += b.batchSize {
		end := min(start+b.batchSize, len(docs))
		start, end := start, end

		g.Go(func() error {
			if b.limiter != nil {
				if err := b.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("rate limit wait: %w", err)
				}
			}

			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = docs[i].Text()
			}

			res, err := batchEmbed(gctx, b.embed, texts)
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(res.Embeddings) != len(texts) {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors for %d texts: %w",
					start, end, len(res.Embeddings), len(texts), domain.ErrEmbeddingProvider)
			}

			// Distinct slice region per goroutine; no lock needed.
			copy(staged[start:end], res.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("semantic build: %w", err)
	}

	items := make([]domain.VectorItem, len(docs))
	for i := range docs {
		items[i] = domain.VectorItem{
			ID:      docs[i].ID(),
			Ordinal: docs[i].Ordinal(),
			Text:    docs[i].Text(),
			Vector:  staged[i],
		}
	}

	if err := b.vecs.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset vector index: %w", err)
	}
	if err := b.vecs.UpsertBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("flush vectors: %w", err)
	}

	b.logger.Info("Semantic index built",
		zap.Int("documents", len(docs)),
		zap.Int("batch_size", b.batchSize),
	)

	return NewIndex(corpus, b.vecs, b.embed), nil
}

func batchEmbed(ctx context.Context, e domain.Embedder, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, e, texts)
}
