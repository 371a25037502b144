package document

import (
	"fmt"
	"strconv"
)

// MaxTextSize is the maximum document text size in bytes.
const MaxTextSize = 163840 // 160KB

// Document is an immutable passage of corpus text with its metadata.
// The ordinal is the insertion position in the corpus and is the
// tie-breaker for every ranking in the system.
type Document struct {
	id       string
	text     string
	metadata map[string]string
	ordinal  int
}

// New validates and creates a Document.
// Text: non-empty, max 160KB. The id is taken from metadata["id"] when
// present, otherwise derived from the ordinal ("d0", "d1", ...).
func New(text string, metadata map[string]string, ordinal int) (Document, error) {
	if text == "" {
		return Document{}, fmt.Errorf("document text is required")
	}
	if len(text) > MaxTextSize {
		return Document{}, fmt.Errorf("text too large (max %d bytes)", MaxTextSize)
	}
	if ordinal < 0 {
		return Document{}, fmt.Errorf("ordinal must be non-negative")
	}

	id := metadata["id"]
	if id == "" {
		id = "d" + strconv.Itoa(ordinal)
	}

	return Document{
		id:       id,
		text:     text,
		metadata: cloneStringMap(metadata),
		ordinal:  ordinal,
	}, nil
}

// ID returns the stable document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the document text content.
func (d *Document) Text() string { return d.text }

// Metadata returns the metadata fields.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Ordinal returns the corpus insertion position.
func (d *Document) Ordinal() int { return d.ordinal }

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
