package answer

import (
	"context"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/request"
	"github.com/mosaic-search/mosaic/internal/usecase/retrieval"
)

// Retriever produces the fused passage list for a question.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) (retrieval.Retrieval, error)
}

// Generator phrases a grounded answer from the question and passages.
type Generator interface {
	Generate(ctx context.Context, question string, passages []domain.Passage) (domain.GenerationResult, error)
}
