// Package answer orchestrates a full question: hybrid retrieval, then
// language model generation grounded on the retrieved passages.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/request"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
)

// DefaultMaxPassages is how many fused passages go to the model.
const DefaultMaxPassages = 5

// Answer is the model's reply plus the passages it was grounded on.
// Passages double as citations for audit.
type Answer struct {
	Text         string
	Passages     []result.Result
	Degraded     bool
	FailedSource result.Source
	PromptTokens int
	TotalTokens  int
}

// Service is the retrieval-augmented answerer.
type Service struct {
	retriever   Retriever
	generator   Generator
	maxPassages int
	logger      *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		retriever:   retriever,
		generator:   generator,
		maxPassages: DefaultMaxPassages,
		logger:      logger,
	}
}

// WithMaxPassages bounds how many passages are handed to the model.
func (s *Service) WithMaxPassages(n int) *Service {
	if n > 0 {
		s.maxPassages = n
	}
	return s
}

// Ask retrieves passages for the question and asks the model to answer
// from them. Retrieval degradation (one source down) is passed through
// on the Answer, never surfaced as an error; generation failure after
// the generator's own retries surfaces wrapped in domain.ErrGeneration.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	req, err := request.New(question, s.maxPassages, nil, nil)
	if err != nil {
		return Answer{}, fmt.Errorf("build request: %w", err)
	}

	ret, err := s.retriever.Retrieve(ctx, &req)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve passages: %w", err)
	}

	passages := make([]domain.Passage, len(ret.Results))
	for i := range ret.Results {
		passages[i] = domain.Passage{ID: ret.Results[i].ID(), Text: ret.Results[i].Text()}
	}

	gen, err := s.generator.Generate(ctx, question, passages)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Debug("Question answered",
		zap.Int("passages", len(passages)),
		zap.Bool("degraded", ret.Degraded),
		zap.Int("total_tokens", gen.TotalTokens),
	)

	return Answer{
		Text:         gen.Text,
		Passages:     ret.Results,
		Degraded:     ret.Degraded,
		FailedSource: ret.FailedSource,
		PromptTokens: gen.PromptTokens,
		TotalTokens:  gen.TotalTokens,
	}, nil
}
