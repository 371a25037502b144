package request

import (
	"fmt"

	"github.com/mosaic-search/mosaic/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 500
)

// Request is a validated retrieval query. Weight overrides are optional:
// with both nil the configured fusion weights apply; supplying either
// weight overrides both, the absent one dropping to zero.
type Request struct {
	query          string
	topK           int
	lexicalWeight  *float64
	semanticWeight *float64
}

// New validates and normalizes query parameters.
// Defaults: topK=10, clamped to MaxTopK. Weights, when set, must be >= 0.
func New(query string, topK int, lexicalWeight, semanticWeight *float64) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if lexicalWeight != nil && *lexicalWeight < 0 {
		return Request{}, fmt.Errorf("lexical weight must be >= 0: %w", domain.ErrInvalidRequest)
	}
	if semanticWeight != nil && *semanticWeight < 0 {
		return Request{}, fmt.Errorf("semantic weight must be >= 0: %w", domain.ErrInvalidRequest)
	}

	return Request{
		query:          query,
		topK:           topK,
		lexicalWeight:  lexicalWeight,
		semanticWeight: semanticWeight,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of fused results to return.
func (r *Request) TopK() int { return r.topK }

// LexicalWeight returns the lexical weight override, nil when unset.
func (r *Request) LexicalWeight() *float64 { return r.lexicalWeight }

// SemanticWeight returns the semantic weight override, nil when unset.
func (r *Request) SemanticWeight() *float64 { return r.semanticWeight }
