// Package lexical implements an in-memory BM25 inverted index over a corpus.
package lexical

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/document"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
)

// BM25 parameters: term-frequency saturation and length normalization.
const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	ordinal int
	count   int
}

// Index is a read-only BM25 index. All term statistics are derived from
// the corpus at construction time; a corpus change requires a rebuild.
type Index struct {
	corpus      *document.Corpus
	inverted    map[string][]posting
	docLengths  []int
	totalLength int64
}

// New builds the inverted frequency index over the full corpus.
// Fails with domain.ErrEmptyCorpus when the corpus has no documents.
// Documents whose text tokenizes to nothing stay indexable but score
// zero on every query.
func New(corpus *document.Corpus) (*Index, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	idx := &Index{
		corpus:     corpus,
		inverted:   make(map[string][]posting),
		docLengths: make([]int, corpus.Len()),
	}

	for i := 0; i < corpus.Len(); i++ {
		tokens := Tokenize(corpus.At(i).Text())
		idx.docLengths[i] = len(tokens)
		idx.totalLength += int64(len(tokens))

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t, count := range tf {
			idx.inverted[t] = append(idx.inverted[t], posting{ordinal: i, count: count})
		}
	}

	return idx, nil
}

// Query scores documents against the tokenized query text and returns
// the top k by BM25 score descending, ties broken by corpus order.
// A k larger than the corpus returns every matching document. A query
// with no matching term returns an empty list and no error.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]result.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, domain.ErrInvalidRequest
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	docCount := idx.corpus.Len()
	avgDL := float64(idx.totalLength) / float64(docCount)
	scores := make(map[int]float64)

	for _, t := range tokens {
		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}

		idf := idx.computeIDF(len(postings))

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.ordinal])

			var norm float64
			if avgDL > 0 {
				norm = docLen / avgDL
			}
			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*norm)
			scores[p.ordinal] += idf * (num / denom)
		}
	}

	if len(scores) == 0 {
		return nil, nil
	}

	ordinals := make([]int, 0, len(scores))
	for ord := range scores {
		ordinals = append(ordinals, ord)
	}
	sort.Slice(ordinals, func(i, j int) bool {
		si, sj := scores[ordinals[i]], scores[ordinals[j]]
		if si != sj {
			return si > sj
		}
		return ordinals[i] < ordinals[j]
	})

	if len(ordinals) > k {
		ordinals = ordinals[:k]
	}

	results := make([]result.Result, len(ordinals))
	for i, ord := range ordinals {
		doc := idx.corpus.At(ord)
		results[i] = result.New(doc.ID(), scores[ord], doc.Text(), doc.Metadata(), result.SourceLexical, ord)
	}
	return results, nil
}

func (idx *Index) computeIDF(df int) float64 {
	// IDF = ln(1 + (N - n + 0.5) / (n + 0.5))
	N := float64(idx.corpus.Len())
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}

// Tokenize case-folds and splits text on anything that is not a letter
// or digit. The same tokenizer runs at index and query time; the two
// must never diverge or ranking degrades silently.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
