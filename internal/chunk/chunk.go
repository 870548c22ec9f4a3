// Package chunk splits documents into fixed-size overlapping windows for
// embedding and retrieval. Window boundaries are rune-based so multi-byte
// text never gets cut mid-character.
package chunk

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Sentinel errors for invalid splitter parameters.
var (
	// ErrInvalidSize indicates the chunk size is not positive.
	ErrInvalidSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates the overlap is negative or not smaller
	// than the chunk size.
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// Chunk is one window of a source document together with its provenance.
type Chunk struct {
	// Content is the window text.
	Content string

	// Index is the zero-based position of this chunk within the document.
	Index int

	// Metadata carries the source document metadata, copied per chunk so
	// downstream mutation of one chunk cannot leak into its siblings.
	Metadata map[string]any
}

// Splitter produces fixed-size overlapping chunks.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter with the given window size and overlap,
// both measured in runes.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidOverlap, size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split cuts text into overlapping windows. Consecutive windows share the
// last overlap runes of the previous window. Text at most one window long
// yields a single chunk; empty or whitespace-only text yields none.
//
// Each chunk gets its own copy of metadata annotated with the chunk index.
func (s *Splitter) Split(text string, metadata map[string]any) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := s.size - s.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}

		md := make(map[string]any, len(metadata)+1)
		maps.Copy(md, metadata)
		md["chunk_index"] = len(chunks)

		chunks = append(chunks, Chunk{
			Content:  string(runes[start:end]),
			Index:    len(chunks),
			Metadata: md,
		})

		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Count reports how many chunks Split would produce for a text of n runes.
func (s *Splitter) Count(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= s.size {
		return 1
	}
	step := s.size - s.overlap
	// First window covers size runes, every further step covers step more.
	return 1 + (n-s.size+step-1)/step
}
