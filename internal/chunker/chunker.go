// Package chunker splits extracted text into overlapping windows sized for
// the embedding model.
package chunker

import (
	"strings"
	"unicode"
)

// Chunker produces ordered, overlapping text segments. Size and overlap are
// deployment configuration, fixed per instance rather than per call.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 300
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into segments of at most the configured size, preferring
// paragraph, then sentence, then word boundaries before hard-cutting.
// Consecutive segments share up to the configured overlap; together the
// segments cover every rune of the input. Empty or whitespace-only input
// yields no segments.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)

	var chunks []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= c.size {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := c.breakPoint(runes, start, start+c.size)
		chunks = append(chunks, string(runes[start:cut]))
		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// breakPoint picks the cut position in (start, limit], favoring natural
// boundaries inside the window.
func (c *Chunker) breakPoint(runes []rune, start, limit int) int {
	window := runes[start:limit]

	if i := lastParagraphBreak(window); i > 0 {
		return start + i
	}
	for i := len(window) - 2; i > 0; i-- {
		r := window[i]
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(window[i+1]) {
			return start + i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return start + i + 1
		}
	}
	return limit
}

// lastParagraphBreak returns the index just past the last blank-line break
// in window, or 0 if there is none.
func lastParagraphBreak(window []rune) int {
	for i := len(window) - 2; i > 0; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i + 2
		}
	}
	return 0
}
