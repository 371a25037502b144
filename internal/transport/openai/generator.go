package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/metrics"
)

const systemPrompt = "You are a helpful assistant. Answer the question using only the " +
	"numbered context passages below. If the passages do not contain the answer, say so. " +
	"Cite passage numbers like [1] where relevant."

// Generator produces grounded answers via an OpenAI-compatible chat API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	maxAttempts int
	provider    string
	logger      *zap.Logger
}

// GeneratorConfig holds the chat provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	Provider    string
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		maxAttempts: maxAttempts,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator. Passages are numbered in the prompt
// in the order given, matching the citation markers the model is asked to use.
func (g *Generator) Generate(ctx context.Context, question string, passages []domain.Passage) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(question, passages)},
		},
	}

	var resp openai.ChatCompletionResponse

	operation := func() error {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		start := time.Now()

		var err error
		resp, err = g.client.CreateChatCompletion(callCtx, req)

		duration := time.Since(start)

		if err != nil {
			metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
		metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond

	notify := func(err error, next time.Duration) {
		g.logger.Warn("chat completion retry",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(g.maxAttempts-1)), ctx),
		notify)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return domain.GenerationResult{}, parseGenerationError(err)
	}

	if len(resp.Choices) == 0 {
		return domain.GenerationResult{}, fmt.Errorf("chat completion returned no choices: %w", domain.ErrGeneration)
	}

	usage := resp.Usage
	if usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(usage.CompletionTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "total").Add(float64(usage.TotalTokens))
	}

	return domain.GenerationResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildUserPrompt(question string, passages []domain.Passage) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, p.Text)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

// isRetryable reports whether a chat API error is worth retrying.
// Rate limits and server errors are transient; 4xx client errors are not.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// transport-level failures (timeouts, connection resets)
	return true
}

func parseGenerationError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGeneration)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrGeneration)
	}
	return fmt.Errorf("chat completion failed: %w: %w", err, domain.ErrGeneration)
}
