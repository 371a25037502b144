package document

import (
	"fmt"

	"github.com/mosaic-search/mosaic/internal/domain"
)

// Corpus is an ordered, read-only collection of documents.
// Insertion order is preserved; every index derived from a Corpus is
// immutable until an explicit rebuild over a new Corpus.
type Corpus struct {
	docs []Document
	byID map[string]int
}

// Entry is a raw (text, metadata) pair from a document source.
type Entry struct {
	Text     string
	Metadata map[string]string
}

// BuildCorpus validates all entries and assembles a Corpus.
// Fails with domain.ErrEmptyCorpus when entries is empty and with
// domain.ErrEmptyText (wrapped, with position) on blank text.
func BuildCorpus(entries []Entry) (*Corpus, error) {
	if len(entries) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	docs := make([]Document, 0, len(entries))
	byID := make(map[string]int, len(entries))

	for i, e := range entries {
		if e.Text == "" {
			return nil, fmt.Errorf("entry %d: %w", i, domain.ErrEmptyText)
		}
		doc, err := New(e.Text, e.Metadata, i)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := byID[doc.ID()]; dup {
			return nil, fmt.Errorf("entry %d: duplicate document id %q", i, doc.ID())
		}
		byID[doc.ID()] = i
		docs = append(docs, doc)
	}

	return &Corpus{docs: docs, byID: byID}, nil
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// At returns the document at the given ordinal.
func (c *Corpus) At(ordinal int) *Document {
	return &c.docs[ordinal]
}

// ByID returns the document with the given id, or nil when absent.
func (c *Corpus) ByID(id string) *Document {
	i, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &c.docs[i]
}

// Documents returns the documents in insertion order.
// Callers must not mutate the returned slice.
func (c *Corpus) Documents() []Document { return c.docs }
