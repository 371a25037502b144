package retrieval

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
	"github.com/mosaic-search/mosaic/internal/domain/search/request"
	"github.com/mosaic-search/mosaic/internal/index/lexical"
	"github.com/mosaic-search/mosaic/internal/index/semantic"
	"github.com/mosaic-search/mosaic/internal/repository/vector"
)

// mapEmbedder returns a fixed vector per exact text.
type mapEmbedder struct {
	vectors map[string][]float32
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec, ok := m.vectors[text]
	if !ok {
		vec = []float32{0, 0, 0}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// TestRetrieve_HybridPipeline runs a query through real lexical and
// semantic indices over a small corpus and checks the fused ranking.
func TestRetrieve_HybridPipeline(t *testing.T) {
	corpus, err := document.BuildCorpus([]document.Entry{
		{Text: "roo code is an agent", Metadata: map[string]string{"id": "D1"}},
		{Text: "installing roo code", Metadata: map[string]string{"id": "D2"}},
		{Text: "unrelated text about cooking", Metadata: map[string]string{"id": "D3"}},
	})
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}

	lexIndex, err := lexical.New(corpus)
	if err != nil {
		t.Fatalf("build lexical index: %v", err)
	}

	query := "what is roo code"
	embed := &mapEmbedder{vectors: map[string][]float32{
		"roo code is an agent":         {1, 0, 0},
		"installing roo code":          {0.9, 0.1, 0},
		"unrelated text about cooking": {0, 0, 1},
		query:                          {1, 0, 0},
	}}

	semIndex, err := semantic.NewBuilder(vector.NewMemoryIndex(), embed, zap.NewNop()).
		Build(context.Background(), corpus)
	if err != nil {
		t.Fatalf("build semantic index: %v", err)
	}

	svc := New(lexIndex, semIndex, Defaults{LexicalWeight: 0.7, SemanticWeight: 0.3}, zap.NewNop())

	req, err := request.New(query, 2, nil, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	ret, err := svc.Retrieve(context.Background(), &req)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if ret.Degraded {
		t.Fatal("unexpected degradation with both indices healthy")
	}
	if len(ret.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(ret.Results))
	}
	if ret.Results[0].ID() != "D1" || ret.Results[1].ID() != "D2" {
		t.Errorf("got ranking [%s, %s], want [D1, D2]",
			ret.Results[0].ID(), ret.Results[1].ID())
	}
}
