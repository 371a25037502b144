// Package corpus loads document collections from JSONL files.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mosaic-search/mosaic/internal/domain/document"
)

// one document per line: {"text": "...", "metadata": {"id": "...", ...}}
type entryJSON struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// scanner buffer cap, documents are bounded by document.MaxTextSize
const maxLineSize = 2 * document.MaxTextSize

// LoadFile reads a JSONL corpus file and builds the corpus.
func LoadFile(path string) (*document.Corpus, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	corpus, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", path, err)
	}
	return corpus, nil
}

// Load reads JSONL entries from r, skipping blank lines, and builds the
// corpus. Document ordinals follow line order.
func Load(r io.Reader) (*document.Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []document.Entry
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var e entryJSON
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, document.Entry{Text: e.Text, Metadata: e.Metadata})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}

	return document.BuildCorpus(entries)
}
