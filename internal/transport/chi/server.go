package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/request"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
	answeruc "github.com/mosaic-search/mosaic/internal/usecase/answer"
	healthuc "github.com/mosaic-search/mosaic/internal/usecase/health"
	retrievaluc "github.com/mosaic-search/mosaic/internal/usecase/retrieval"
	"github.com/mosaic-search/mosaic/internal/version"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUpstreamError    = "upstream_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval and answer services over HTTP.
type Server struct {
	retrieval     *retrievaluc.Service
	answer        *answeruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	answer *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		answer:    answer,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes registers all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type searchRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	LexicalWeight  *float64 `json:"lexical_weight,omitempty"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty"`
}

type resultJSON struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results      []resultJSON `json:"results"`
	Degraded     bool         `json:"degraded"`
	FailedSource string       `json:"failed_source,omitempty"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	domReq, err := request.New(req.Query, req.TopK, req.LexicalWeight, req.SemanticWeight)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ret, err := s.retrieval.Retrieve(r.Context(), &domReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:      resultsToJSON(ret.Results),
		Degraded:     ret.Degraded,
		FailedSource: failedSourceString(ret.Degraded, ret.FailedSource),
	})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer       string       `json:"answer"`
	Passages     []resultJSON `json:"passages"`
	Degraded     bool         `json:"degraded"`
	FailedSource string       `json:"failed_source,omitempty"`
	PromptTokens int          `json:"prompt_tokens,omitempty"`
	TotalTokens  int          `json:"total_tokens,omitempty"`
}

// handleAsk handles POST /api/v1/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ans, err := s.answer.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:       ans.Text,
		Passages:     resultsToJSON(ans.Passages),
		Degraded:     ans.Degraded,
		FailedSource: failedSourceString(ans.Degraded, ans.FailedSource),
		PromptTokens: ans.PromptTokens,
		TotalTokens:  ans.TotalTokens,
	})
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

func resultsToJSON(results []result.Result) []resultJSON {
	out := make([]resultJSON, len(results))
	for i := range results {
		out[i] = resultJSON{
			ID:       results[i].ID(),
			Score:    results[i].Score(),
			Text:     results[i].Text(),
			Metadata: results[i].Metadata(),
		}
	}
	return out
}

func failedSourceString(degraded bool, src result.Source) string {
	if !degraded {
		return ""
	}
	return string(src)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns a client-safe message: the sentinel text for
// known domain errors, a generic message otherwise.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrRetrieval,
		domain.ErrGeneration,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
