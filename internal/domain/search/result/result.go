package result

// Source identifies the retrieval strategy that produced a result.
type Source string

// Result sources.
const (
	SourceLexical  Source = "lexical"
	SourceSemantic Source = "semantic"
	SourceFused    Source = "fused"
)

// Result is a single search hit. Scores are comparable within one
// source but not across sources without rank normalization.
type Result struct {
	id      string
	score   float64
	text    string
	meta    map[string]string
	source  Source
	ordinal int
}

// New creates a search result.
func New(id string, score float64, text string, meta map[string]string, source Source, ordinal int) Result {
	return Result{id: id, score: score, text: text, meta: meta, source: source, ordinal: ordinal}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Text returns the document text.
func (r *Result) Text() string { return r.text }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]string { return r.meta }

// Source returns the retrieval strategy that produced this result.
func (r *Result) Source() Source { return r.source }

// Ordinal returns the corpus insertion position of the document.
func (r *Result) Ordinal() int { return r.ordinal }
