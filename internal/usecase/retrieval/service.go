// Package retrieval orchestrates the hybrid query: both indices are
// queried concurrently and their rankings fused into one list.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/request"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
	"github.com/mosaic-search/mosaic/internal/metrics"
	"github.com/mosaic-search/mosaic/internal/usecase/fusion"
)

// Defaults holds the configured fusion parameters; per-request weight
// overrides take precedence.
type Defaults struct {
	LexicalWeight  float64
	SemanticWeight float64
	Smoothing      float64
}

// Retrieval is the outcome of a hybrid query. Degraded marks a
// partial-failure result produced from a single surviving source.
type Retrieval struct {
	Results      []result.Result
	Degraded     bool
	FailedSource result.Source
}

// Service runs lexical and semantic queries in parallel and fuses them.
type Service struct {
	lexical  LexicalSearcher
	semantic SemanticSearcher
	defaults Defaults
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(lexical LexicalSearcher, semantic SemanticSearcher, defaults Defaults, logger *zap.Logger) *Service {
	if defaults.Smoothing <= 0 {
		defaults.Smoothing = fusion.DefaultSmoothing
	}
	return &Service{lexical: lexical, semantic: semantic, defaults: defaults, logger: logger}
}

type legOutcome struct {
	results []result.Result
	err     error
}

// Retrieve issues both index queries concurrently, joins, and fuses.
// Policy on partial failure: the surviving list is fused alone and the
// result is flagged degraded; the failure is logged, not surfaced. Both
// legs failing surfaces domain.ErrRetrieval wrapping both causes.
// Context cancellation aborts both legs and discards partial results.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) (Retrieval, error) {
	opts, err := s.fusionOptions(req)
	if err != nil {
		return Retrieval{}, err
	}

	lexCh := make(chan legOutcome, 1)
	semCh := make(chan legOutcome, 1)

	go func() {
		res, err := s.lexical.Query(ctx, req.Query(), req.TopK())
		metrics.ObserveRetrievalLeg(string(result.SourceLexical), err)
		lexCh <- legOutcome{results: res, err: err}
	}()
	go func() {
		res, err := s.semantic.Query(ctx, req.Query(), req.TopK())
		metrics.ObserveRetrievalLeg(string(result.SourceSemantic), err)
		semCh <- legOutcome{results: res, err: err}
	}()

	lex := <-lexCh
	sem := <-semCh

	if err := ctx.Err(); err != nil {
		return Retrieval{}, fmt.Errorf("retrieval canceled: %w", err)
	}

	switch {
	case lex.err != nil && sem.err != nil:
		return Retrieval{}, fmt.Errorf("%w: lexical: %w; semantic: %w",
			domain.ErrRetrieval, lex.err, sem.err)

	case lex.err != nil:
		s.logDegraded(result.SourceLexical, lex.err)
		return Retrieval{
			Results:      fusion.Fuse(nil, sem.results, opts),
			Degraded:     true,
			FailedSource: result.SourceLexical,
		}, nil

	case sem.err != nil:
		s.logDegraded(result.SourceSemantic, sem.err)
		return Retrieval{
			Results:      fusion.Fuse(lex.results, nil, opts),
			Degraded:     true,
			FailedSource: result.SourceSemantic,
		}, nil
	}

	return Retrieval{Results: fusion.Fuse(lex.results, sem.results, opts)}, nil
}

// fusionOptions maps request weights onto fusion options. A request with
// no weights uses the configured defaults; a request carrying any weight
// replaces both, so supplying only one zeroes the other.
func (s *Service) fusionOptions(req *request.Request) (fusion.Options, error) {
	wLex, wSem := req.LexicalWeight(), req.SemanticWeight()
	if wLex == nil && wSem == nil {
		wLex, wSem = &s.defaults.LexicalWeight, &s.defaults.SemanticWeight
	}

	opts, err := fusion.NewOptions(wLex, wSem, req.TopK(), s.defaults.Smoothing)
	if err != nil {
		return fusion.Options{}, fmt.Errorf("fusion options: %w", err)
	}
	return opts, nil
}

func (s *Service) logDegraded(source result.Source, cause error) {
	metrics.RetrievalDegradedTotal.WithLabelValues(string(source)).Inc()
	s.logger.Warn("Retrieval degraded to single source",
		zap.String("failed_source", string(source)),
		zap.Error(cause),
	)
}
