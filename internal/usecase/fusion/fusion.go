// Package fusion merges independently-ranked lexical and semantic
// result lists into one ranking via weighted reciprocal-rank fusion.
// The two input score scales are never compared directly; only rank
// positions matter, which sidesteps cross-index score calibration.
package fusion

import (
	"fmt"
	"sort"

	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/domain/search/result"
)

// DefaultSmoothing is the RRF smoothing constant (Cormack et al. 2009).
const DefaultSmoothing = 60

// DefaultWeight applies to both sources when neither weight is supplied.
const DefaultWeight = 0.5

// Options is an immutable fusion settings structure.
type Options struct {
	lexicalWeight  float64
	semanticWeight float64
	k              int
	smoothing      float64
}

// NewOptions validates fusion settings. Nil weights default to equal
// weighting (0.5, 0.5); supplied weights must be >= 0 and need not sum
// to 1. k must be positive; smoothing <= 0 falls back to the default.
func NewOptions(lexicalWeight, semanticWeight *float64, k int, smoothing float64) (Options, error) {
	if k <= 0 {
		return Options{}, fmt.Errorf("k must be positive: %w", domain.ErrInvalidRequest)
	}

	wLex, wSem := DefaultWeight, DefaultWeight
	if lexicalWeight != nil || semanticWeight != nil {
		wLex, wSem = 0, 0
		if lexicalWeight != nil {
			wLex = *lexicalWeight
		}
		if semanticWeight != nil {
			wSem = *semanticWeight
		}
	}
	if wLex < 0 || wSem < 0 {
		return Options{}, fmt.Errorf("weights must be >= 0: %w", domain.ErrInvalidRequest)
	}

	if smoothing <= 0 {
		smoothing = DefaultSmoothing
	}

	return Options{
		lexicalWeight:  wLex,
		semanticWeight: wSem,
		k:              k,
		smoothing:      smoothing,
	}, nil
}

// LexicalWeight returns the lexical source weight.
func (o *Options) LexicalWeight() float64 { return o.lexicalWeight }

// SemanticWeight returns the semantic source weight.
func (o *Options) SemanticWeight() float64 { return o.semanticWeight }

// K returns the number of fused results to keep.
func (o *Options) K() int { return o.k }

// Smoothing returns the RRF smoothing constant.
func (o *Options) Smoothing() float64 { return o.smoothing }

type merged struct {
	res        result.Result
	lexContrib float64
	semContrib float64
	bestRank   int // minimum 1-based rank across the two inputs
}

// Fuse combines the two ranked lists into one deduplicated ranking.
// A document at 1-based rank r contributes 1/(r+C) from that list; the
// fused score is wLex*lexContrib + wSem*semContrib, with an absent
// source contributing zero. Ordering: fused score descending, ties by
// whichever source ranked the document higher, then corpus order.
// Pure and deterministic; both inputs empty yields an empty list.
func Fuse(lexical, semantic []result.Result, opts Options) []result.Result {
	byID := make(map[string]*merged, len(lexical)+len(semantic))
	entries := make([]*merged, 0, len(lexical)+len(semantic))

	accumulate := func(list []result.Result, isLexical bool) {
		for i := range list {
			r := &list[i]
			rank := i + 1
			contrib := 1.0 / (float64(rank) + opts.smoothing)

			m, ok := byID[r.ID()]
			if !ok {
				m = &merged{res: *r, bestRank: rank}
				byID[r.ID()] = m
				entries = append(entries, m)
			} else if rank < m.bestRank {
				m.bestRank = rank
			}

			if isLexical {
				m.lexContrib += contrib
			} else {
				m.semContrib += contrib
			}
		}
	}

	accumulate(lexical, true)
	accumulate(semantic, false)

	if len(entries) == 0 {
		return nil
	}

	score := func(m *merged) float64 {
		return opts.lexicalWeight*m.lexContrib + opts.semanticWeight*m.semContrib
	}

	sort.Slice(entries, func(i, j int) bool {
		si, sj := score(entries[i]), score(entries[j])
		if si != sj {
			return si > sj
		}
		if entries[i].bestRank != entries[j].bestRank {
			return entries[i].bestRank < entries[j].bestRank
		}
		return entries[i].res.Ordinal() < entries[j].res.Ordinal()
	})

	if len(entries) > opts.k {
		entries = entries[:opts.k]
	}

	out := make([]result.Result, len(entries))
	for i, m := range entries {
		out[i] = result.New(
			m.res.ID(), score(m), m.res.Text(), m.res.Metadata(),
			result.SourceFused, m.res.Ordinal(),
		)
	}
	return out
}
