package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
)

// RetryingEmbedder retries transient provider failures with bounded
// exponential backoff. It wraps the build-time embedder only; the
// query path is not retried transparently, so failures there propagate
// to the retrieval layer's degradation policy instead.
type RetryingEmbedder struct {
	inner           domain.Embedder
	provider        string
	maxAttempts     uint64
	initialInterval time.Duration
	logger          *zap.Logger
}

// NewRetryingEmbedder wraps an embedder with retry.
func NewRetryingEmbedder(inner domain.Embedder, provider string, logger *zap.Logger) *RetryingEmbedder {
	return &RetryingEmbedder{
		inner:           inner,
		provider:        provider,
		maxAttempts:     DefaultMaxAttempts,
		initialInterval: DefaultInitialInterval,
		logger:          logger,
	}
}

// WithMaxAttempts bounds the total attempt count (first try included).
func (r *RetryingEmbedder) WithMaxAttempts(n int) *RetryingEmbedder {
	if n > 0 {
		r.maxAttempts = uint64(n)
	}
	return r
}

// WithInitialInterval sets the first backoff delay.
func (r *RetryingEmbedder) WithInitialInterval(d time.Duration) *RetryingEmbedder {
	if d > 0 {
		r.initialInterval = d
	}
	return r
}

// Embed delegates to the inner embedder, retrying failed calls until
// the attempt budget is spent. Context cancellation stops the retries.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var result domain.EmbeddingResult

	op := func() error {
		var err error
		result, err = r.inner.Embed(ctx, text)
		return err
	}

	if err := backoff.Retry(op, r.newBackOff(ctx)); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed after %d attempts: %w", r.maxAttempts, err)
	}
	return result, nil
}

// BatchEmbed retries the whole batch; the provider call is atomic from
// the caller's point of view.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var result domain.BatchEmbeddingResult

	op := func() error {
		var err error
		result, err = batchEmbed(ctx, r.inner, texts)
		return err
	}

	if err := backoff.Retry(op, r.newBackOff(ctx)); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed after %d attempts: %w", r.maxAttempts, err)
	}
	return result, nil
}

func (r *RetryingEmbedder) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval

	var b backoff.BackOff = backoff.WithMaxRetries(bo, r.maxAttempts-1)
	b = backoff.WithContext(b, ctx)

	return &notifyingBackOff{
		BackOff:  b,
		provider: r.provider,
		logger:   r.logger,
	}
}

// notifyingBackOff counts and logs each retry wait.
type notifyingBackOff struct {
	backoff.BackOff
	provider string
	logger   *zap.Logger
}

func (n *notifyingBackOff) NextBackOff() time.Duration {
	d := n.BackOff.NextBackOff()
	if d != backoff.Stop {
		metrics.EmbeddingRetriesTotal.WithLabelValues(n.provider).Inc()
		n.logger.Warn("Retrying embedding call",
			zap.String("provider", n.provider),
			zap.Duration("backoff", d),
		)
	}
	return d
}

func batchEmbed(ctx context.Context, e domain.Embedder, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, e, texts)
}
