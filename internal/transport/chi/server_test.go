package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
	answeruc "github.com/mosaic-search/mosaic/internal/usecase/answer"
	healthuc "github.com/mosaic-search/mosaic/internal/usecase/health"
	retrievaluc "github.com/mosaic-search/mosaic/internal/usecase/retrieval"
)

type stubSearcher struct {
	results []result.Result
	err     error
}

func (s *stubSearcher) Query(_ context.Context, _ string, _ int) ([]result.Result, error) {
	return s.results, s.err
}

type stubGenerator struct {
	result domain.GenerationResult
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ []domain.Passage) (domain.GenerationResult, error) {
	return s.result, s.err
}

type stubChecker struct{ err error }

func (s *stubChecker) HealthCheck(_ context.Context) error { return s.err }

func hit(id string, ordinal int, src result.Source) result.Result {
	return result.New(id, 0.5, "text-"+id, map[string]string{"k": "v"}, src, ordinal)
}

func newTestServer(lexical, semantic *stubSearcher, gen *stubGenerator, embErr, genErr error) http.Handler {
	logger := zap.NewNop()
	defaults := retrievaluc.Defaults{LexicalWeight: 0.5, SemanticWeight: 0.5}
	retrievalSvc := retrievaluc.New(lexical, semantic, defaults, logger)
	answerSvc := answeruc.New(retrievalSvc, gen, logger)
	healthSvc := healthuc.New(nil, &stubChecker{err: embErr}, &stubChecker{err: genErr})

	r := chirouter.NewRouter()
	NewServer(retrievalSvc, answerSvc, healthSvc, logger).Routes(r)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSearch_OK(t *testing.T) {
	handler := newTestServer(
		&stubSearcher{results: []result.Result{hit("a", 0, result.SourceLexical)}},
		&stubSearcher{results: []result.Result{hit("a", 0, result.SourceSemantic)}},
		&stubGenerator{}, nil, nil,
	)

	rr := doJSON(t, handler, "POST", "/api/v1/search", searchRequest{Query: "hello", TopK: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[0].Text != "text-a" || resp.Results[0].Metadata["k"] != "v" {
		t.Errorf("result payload wrong: %+v", resp.Results[0])
	}
	if resp.Degraded {
		t.Error("expected non-degraded response")
	}
}

func TestSearch_Degraded(t *testing.T) {
	handler := newTestServer(
		&stubSearcher{err: errors.New("lexical down")},
		&stubSearcher{results: []result.Result{hit("a", 0, result.SourceSemantic)}},
		&stubGenerator{}, nil, nil,
	)

	rr := doJSON(t, handler, "POST", "/api/v1/search", searchRequest{Query: "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("degraded search still answers 200, got %d", rr.Code)
	}

	var resp searchResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Degraded || resp.FailedSource != string(result.SourceLexical) {
		t.Errorf("expected degraded lexical, got %+v", resp)
	}
}

func TestSearch_BothSourcesDown_502(t *testing.T) {
	handler := newTestServer(
		&stubSearcher{err: errors.New("down")},
		&stubSearcher{err: errors.New("down")},
		&stubGenerator{}, nil, nil,
	)

	rr := doJSON(t, handler, "POST", "/api/v1/search", searchRequest{Query: "hello"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}

	var resp errorResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Code != codeUpstreamError {
		t.Errorf("expected upstream_error code, got %s", resp.Code)
	}
}

func TestSearch_EmptyQuery_400(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubSearcher{}, &stubGenerator{}, nil, nil)

	rr := doJSON(t, handler, "POST", "/api/v1/search", searchRequest{Query: ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}

	var resp errorResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Code != codeValidationFailed {
		t.Errorf("expected validation_failed code, got %s", resp.Code)
	}
}

func TestSearch_MalformedBody_400(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubSearcher{}, &stubGenerator{}, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestAsk_OK(t *testing.T) {
	handler := newTestServer(
		&stubSearcher{results: []result.Result{hit("a", 0, result.SourceLexical)}},
		&stubSearcher{results: []result.Result{hit("b", 1, result.SourceSemantic)}},
		&stubGenerator{result: domain.GenerationResult{Text: "the answer", TotalTokens: 42}},
		nil, nil,
	)

	rr := doJSON(t, handler, "POST", "/api/v1/ask", askRequest{Question: "why?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp askResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "the answer" || resp.TotalTokens != 42 {
		t.Errorf("unexpected answer payload: %+v", resp)
	}
	if len(resp.Passages) != 2 {
		t.Errorf("expected 2 citation passages, got %d", len(resp.Passages))
	}
}

func TestAsk_GenerationFailure_502(t *testing.T) {
	handler := newTestServer(
		&stubSearcher{results: []result.Result{hit("a", 0, result.SourceLexical)}},
		&stubSearcher{},
		&stubGenerator{err: domain.ErrGeneration},
		nil, nil,
	)

	rr := doJSON(t, handler, "POST", "/api/v1/ask", askRequest{Question: "why?"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
}

func TestAsk_EmptyQuestion_400(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubSearcher{}, &stubGenerator{}, nil, nil)

	rr := doJSON(t, handler, "POST", "/api/v1/ask", askRequest{Question: ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHealth_OK(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubSearcher{}, &stubGenerator{}, nil, nil)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}

	var resp healthResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected ok status, got %s", resp.Status)
	}
	if resp.Checks["embedding"] != "ok" || resp.Checks["generation"] != "ok" {
		t.Errorf("unexpected checks: %v", resp.Checks)
	}
}

func TestHealth_Degraded_503(t *testing.T) {
	handler := newTestServer(&stubSearcher{}, &stubSearcher{}, &stubGenerator{},
		errors.New("provider down"), nil)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}

	var resp healthResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Checks["embedding"] != "error" {
		t.Errorf("expected embedding check error, got %v", resp.Checks)
	}
}
