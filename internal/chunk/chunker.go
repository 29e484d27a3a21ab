// Package chunk implements sentence-boundary chunking with overlap.
package chunk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spetr/studyrag/pkg/types"
)

// Default values
const (
	DefaultTargetSize = 1000 // chars per chunk (soft bound)
	DefaultOverlap    = 200  // trailing chars carried into the next chunk
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Chunker splits a text blob into overlapping, sentence-aligned segments.
type Chunker struct {
	targetSize int
	overlap    int
}

// New creates a chunker. Overlap must satisfy 0 <= overlap < targetSize.
func New(targetSize, overlap int) (*Chunker, error) {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", types.ErrInvalidConfig, overlap, targetSize)
	}
	return &Chunker{targetSize: targetSize, overlap: overlap}, nil
}

// TargetSize returns the configured soft chunk size in characters.
func (c *Chunker) TargetSize() int {
	return c.targetSize
}

// Split chunks text into an ordered sequence of non-empty segments. Each
// chunk stays within targetSize plus at most one sentence; consecutive
// chunks share a trailing word slice of at most overlap characters.
func (c *Chunker) Split(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, types.ErrEmptyInput
	}

	sentences := splitSentences(trimmed)
	if len(sentences) == 0 {
		// No sentence-ending punctuation at all: the whole text is one chunk.
		return []string{trimmed}, nil
	}

	var chunks []string
	current := ""

	for _, sentence := range sentences {
		if current != "" && len(current)+1+len(sentence) > c.targetSize {
			chunks = append(chunks, current)

			// Seed the next chunk with the trailing words of the closed one
			// so consecutive chunks share context across the boundary.
			tail := ""
			if c.overlap > 0 {
				tail = overlapTail(current, c.overlap)
			}
			if tail != "" {
				current = tail + " " + sentence
			} else {
				current = sentence
			}
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		return []string{trimmed}, nil
	}
	return chunks, nil
}

// splitSentences splits on sentence-ending punctuation, keeping the
// terminator with the sentence. Trailing text without a terminator is kept
// as a final sentence.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var sentences []string
	end := 0
	for _, m := range matches {
		s := strings.TrimSpace(text[m[0]:m[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		end = m[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// overlapTail returns the trailing whole words of chunk totalling at most
// maxChars. The word slice approximates a character overlap without cutting
// words in half.
func overlapTail(chunk string, maxChars int) string {
	words := strings.Fields(chunk)
	if len(words) == 0 {
		return ""
	}

	total := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		add := len(words[i])
		if total > 0 {
			add++ // joining space
		}
		if total+add > maxChars {
			break
		}
		total += add
		start = i
	}
	if start == len(words) {
		return ""
	}
	return strings.Join(words[start:], " ")
}
