package ingest

import (
	"strconv"
	"unicode"

	"github.com/cortexhq/cortex/internal/source"
)

// Chunk is one embeddable window of a document, carrying the document's
// metadata plus its chunk index.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// Chunker splits document text into overlapping word windows sized for the
// embedding model. Windows are slices of the original text, so line
// breaks and indentation survive into stored chunks.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap,
// both in words. Overlap must be smaller than size.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split windows the document's text. Empty documents yield no chunks.
func (c *Chunker) Split(doc source.Document) []Chunk {
	spans := wordSpans(doc.Text)
	if len(spans) == 0 {
		return nil
	}

	step := c.size - c.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []Chunk
	for i, index := 0, 0; i < len(spans); i, index = i+step, index+1 {
		end := i + c.size
		if end > len(spans) {
			end = len(spans)
		}

		meta := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[source.MetaChunkIndex] = strconv.Itoa(index)

		chunks = append(chunks, Chunk{
			Text:     doc.Text[spans[i].start:spans[end-1].end],
			Metadata: meta,
		})
		if end >= len(spans) {
			break
		}
	}
	return chunks
}

type span struct {
	start, end int
}

// wordSpans returns the byte offsets of every whitespace-separated word.
func wordSpans(s string) []span {
	var spans []span
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, span{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(s)})
	}
	return spans
}
