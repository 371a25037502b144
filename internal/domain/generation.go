package domain

import "context"

// Passage is one retrieved text given to the language model as context.
type Passage struct {
	ID   string
	Text string
}

// GenerationResult carries the model answer and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator is the language model contract: given the user question and
// supporting passages, produce a grounded prose answer.
type Generator interface {
	Generate(ctx context.Context, question string, passages []Passage) (GenerationResult, error)
}
