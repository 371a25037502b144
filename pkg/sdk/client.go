// Package sdk provides a Go client for the mosaic hybrid search service.
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	res, _ := client.Search(ctx, sdk.SearchRequest{Query: "rank fusion", TopK: 5})
//	ans, _ := client.Ask(ctx, "how is rank fusion smoothed?")
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client talks to a running mosaic instance over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k,omitempty"`
	LexicalWeight  *float64 `json:"lexical_weight,omitempty"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty"`
}

// Result is a single fused hit.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results      []Result `json:"results"`
	Degraded     bool     `json:"degraded"`
	FailedSource string   `json:"failed_source,omitempty"`
}

// AskResponse is the body of a successful ask.
type AskResponse struct {
	Answer       string   `json:"answer"`
	Passages     []Result `json:"passages"`
	Degraded     bool     `json:"degraded"`
	FailedSource string   `json:"failed_source,omitempty"`
	PromptTokens int      `json:"prompt_tokens,omitempty"`
	TotalTokens  int      `json:"total_tokens,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// APIError is a non-2xx response decoded from the service error body.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mosaic: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Search runs a hybrid query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	err := c.post(ctx, "/api/v1/search", req, &out)
	return out, err
}

// Ask runs retrieval-augmented answering for the question.
func (c *Client) Ask(ctx context.Context, question string) (AskResponse, error) {
	var out AskResponse
	err := c.post(ctx, "/api/v1/ask", map[string]string{"question": question}, &out)
	return out, err
}

// Health fetches service health. A degraded service returns the report
// alongside a non-nil error.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("build request: %w", err)
	}

	var out HealthResponse
	if err := c.do(req, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(raw)
		}
		// error bodies may still carry a payload worth decoding (health)
		_ = json.Unmarshal(raw, out)
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
