package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mosaic-search/mosaic/internal/domain"
)

func TestLoad_ParsesEntriesInOrder(t *testing.T) {
	input := `{"text": "first doc", "metadata": {"id": "one", "lang": "en"}}
{"text": "second doc"}
`
	corpus, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if corpus.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", corpus.Len())
	}
	if corpus.At(0).ID() != "one" || corpus.At(0).Metadata()["lang"] != "en" {
		t.Errorf("first document parsed wrong: %s %v", corpus.At(0).ID(), corpus.At(0).Metadata())
	}
	if corpus.At(1).ID() != "d1" || corpus.At(1).Text() != "second doc" {
		t.Errorf("second document parsed wrong: %s %q", corpus.At(1).ID(), corpus.At(1).Text())
	}
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	input := "\n{\"text\": \"a\"}\n\n   \n{\"text\": \"b\"}\n\n"
	corpus, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if corpus.Len() != 2 {
		t.Fatalf("expected blank lines skipped, got %d documents", corpus.Len())
	}
}

func TestLoad_MalformedLine(t *testing.T) {
	input := "{\"text\": \"ok\"}\nnot json at all\n"
	_, err := Load(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error to name line 2, got %v", err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	if _, err := Load(strings.NewReader("")); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestLoad_EmptyTextEntry(t *testing.T) {
	input := `{"text": ""}`
	if _, err := Load(strings.NewReader(input)); !errors.Is(err, domain.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	content := `{"text": "from disk", "metadata": {"id": "f1"}}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	corpus, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if corpus.Len() != 1 || corpus.At(0).ID() != "f1" {
		t.Fatalf("unexpected corpus: len=%d", corpus.Len())
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
