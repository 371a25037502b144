package lexical

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
)

func buildCorpus(t *testing.T, texts ...string) *document.Corpus {
	t.Helper()
	entries := make([]document.Entry, len(texts))
	for i, text := range texts {
		entries[i] = document.Entry{Text: text}
	}
	corpus, err := document.BuildCorpus(entries)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return corpus
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"case folding", "Hello WORLD", []string{"hello", "world"}},
		{"punctuation split", "re-rank, fuse; merge!", []string{"re", "rank", "fuse", "merge"}},
		{"digits kept", "bm25 k1", []string{"bm25", "k1"}},
		{"unicode letters", "поиск Straße", []string{"поиск", "straße"}},
		{"only punctuation", "... --- !!!", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_EmptyCorpus(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestQuery_RanksMatchingDocsFirst(t *testing.T) {
	corpus := buildCorpus(t,
		"the cat sat on the mat",
		"dogs chase cats in the yard",
		"quantum computing with qubits",
	)
	idx, err := New(corpus)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	results, err := idx.Query(context.Background(), "cat", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Ordinal() != 0 {
		t.Errorf("expected document 0, got ordinal %d", results[0].Ordinal())
	}
	if results[0].Score() <= 0 {
		t.Errorf("expected positive score, got %v", results[0].Score())
	}
}

func TestQuery_TermFrequencyRaisesScore(t *testing.T) {
	corpus := buildCorpus(t,
		"fusion fusion fusion ranking",
		"fusion and other topics entirely",
	)
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "fusion", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].Ordinal() != 0 {
		t.Errorf("expected high-tf document first, got ordinal %d", results[0].Ordinal())
	}
	if results[0].Score() <= results[1].Score() {
		t.Errorf("expected tf to raise score: %v <= %v",
			results[0].Score(), results[1].Score())
	}
}

func TestQuery_RareTermOutweighsCommon(t *testing.T) {
	corpus := buildCorpus(t,
		"common word zebra",
		"common word elephant",
		"common word giraffe",
	)
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "common zebra", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if results[0].Ordinal() != 0 {
		t.Errorf("expected rare-term document first, got ordinal %d", results[0].Ordinal())
	}
}

func TestQuery_IDFFormula(t *testing.T) {
	// Single doc, single term query, doc length equals average length:
	// norm is 1 so BM25 reduces to idf * tf*(k1+1)/(tf+k1).
	corpus := buildCorpus(t, "solo")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "solo", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	idf := math.Log(1 + (1-1+0.5)/(1+0.5))
	expected := idf * (1 * (1.2 + 1)) / (1 + 1.2)
	if math.Abs(results[0].Score()-expected) > 1e-12 {
		t.Errorf("expected score %v, got %v", expected, results[0].Score())
	}
}

func TestQuery_NoMatch(t *testing.T) {
	corpus := buildCorpus(t, "alpha beta", "gamma delta")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "omega", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches, got %d", len(results))
	}
}

func TestQuery_EmptyQueryText(t *testing.T) {
	corpus := buildCorpus(t, "alpha beta")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "... !!!", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches for token-free query, got %d", len(results))
	}
}

func TestQuery_InvalidK(t *testing.T) {
	corpus := buildCorpus(t, "alpha")
	idx, _ := New(corpus)

	if _, err := idx.Query(context.Background(), "alpha", 0); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestQuery_KLargerThanMatches(t *testing.T) {
	corpus := buildCorpus(t, "shared term here", "shared term there")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "shared", 100)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected all 2 matches, got %d", len(results))
	}
}

func TestQuery_TopKTruncation(t *testing.T) {
	corpus := buildCorpus(t, "topic a", "topic b", "topic c", "topic d")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "topic", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestQuery_TiesBrokenByCorpusOrder(t *testing.T) {
	// Identical documents tie exactly; insertion order must win.
	corpus := buildCorpus(t, "same text", "same text junk junk", "same text")
	idx, _ := New(corpus)

	results, err := idx.Query(context.Background(), "same", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(results))
	}
	if results[0].Ordinal() != 0 || results[1].Ordinal() != 2 {
		t.Errorf("expected shorter tied docs first in corpus order, got %d then %d",
			results[0].Ordinal(), results[1].Ordinal())
	}
}

func TestQuery_CancelledContext(t *testing.T) {
	corpus := buildCorpus(t, "alpha")
	idx, _ := New(corpus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := idx.Query(ctx, "alpha", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQuery_PunctuationOnlyDocumentScoresZero(t *testing.T) {
	// Corpus validation requires non-empty text, but text made only of
	// punctuation tokenizes to nothing and must never match.
	corpus := buildCorpus(t, "!!!", "real words")
	idx, err := New(corpus)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	results, err := idx.Query(context.Background(), "real", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].Ordinal() != 1 {
		t.Fatalf("expected only the real document to match, got %d results", len(results))
	}
}
