package domain

import "errors"

var (
	// ErrEmptyCorpus signals an attempt to build an index over zero documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyText signals a document with no text content.
	ErrEmptyText = errors.New("empty document text")
	// ErrInvalidRequest signals a malformed query request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")

	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrRetrieval signals that both retrieval sources failed.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration signals a language model failure after retry.
	ErrGeneration = errors.New("generation failed")
)
