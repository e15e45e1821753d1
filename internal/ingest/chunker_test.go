package ingest

import (
	"strings"
	"testing"

	"github.com/cortexhq/cortex/internal/source"
)

func TestChunkerSplit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		words   int
		want    int
	}{
		{name: "short document is one chunk", size: 10, overlap: 2, words: 4, want: 1},
		{name: "exact window", size: 10, overlap: 2, words: 10, want: 1},
		{name: "two windows with overlap", size: 10, overlap: 2, words: 15, want: 2},
		{name: "many windows", size: 10, overlap: 2, words: 50, want: 6},
		{name: "zero step clamps to one", size: 3, overlap: 3, words: 5, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := make([]string, tt.words)
			for i := range words {
				words[i] = "w"
			}
			doc := source.Document{Text: strings.Join(words, " ")}

			chunks := NewChunker(tt.size, tt.overlap).Split(doc)
			if len(chunks) != tt.want {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.want)
			}
		})
	}
}

func TestChunkerSplitEmptyDocument(t *testing.T) {
	chunks := NewChunker(10, 2).Split(source.Document{Text: "   \n\t "})
	if chunks != nil {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkerSplitMetadata(t *testing.T) {
	doc := source.Document{
		Text:     "one two three four five six seven eight",
		Metadata: map[string]string{source.MetaFilePath: "pkg/main.go"},
	}

	chunks := NewChunker(4, 1).Split(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if got := c.Metadata[source.MetaFilePath]; got != "pkg/main.go" {
			t.Errorf("chunk %d: file path = %q", i, got)
		}
		if c.Metadata[source.MetaChunkIndex] == "" {
			t.Errorf("chunk %d: missing chunk index", i)
		}
	}
	if chunks[0].Metadata[source.MetaChunkIndex] == chunks[1].Metadata[source.MetaChunkIndex] {
		t.Error("chunk indexes should differ")
	}

	// Per-chunk metadata must be independent copies.
	chunks[0].Metadata["extra"] = "x"
	if _, ok := chunks[1].Metadata["extra"]; ok {
		t.Error("metadata map shared between chunks")
	}
	if _, ok := doc.Metadata["extra"]; ok {
		t.Error("metadata map shared with the document")
	}
}

func TestChunkerSplitPreservesLayout(t *testing.T) {
	code := "func main() {\n\tprintln(\"hi\")\n}"
	doc := source.Document{Text: "  " + code + "\n"}

	chunks := NewChunker(10, 2).Split(doc)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != code {
		t.Errorf("chunk = %q, want the original source with newlines and tabs", chunks[0].Text)
	}

	// Multi-window split keeps interior line breaks too.
	doc = source.Document{Text: "alpha beta\ngamma delta\nepsilon zeta"}
	chunks = NewChunker(4, 0).Split(doc)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "alpha beta\ngamma delta" {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	if chunks[1].Text != "epsilon zeta" {
		t.Errorf("second chunk = %q", chunks[1].Text)
	}
}

func TestChunkerSplitOverlapContent(t *testing.T) {
	doc := source.Document{Text: "a b c d e f"}
	chunks := NewChunker(4, 2).Split(doc)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "a b c d" {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	if chunks[1].Text != "c d e f" {
		t.Errorf("second chunk = %q", chunks[1].Text)
	}
}
