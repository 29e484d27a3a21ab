// Package plain implements TextExtractor for raw text sources.
package plain

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Extractor handles text and plain file sources.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "plain"
}

// Extract returns the source bytes as normalized text.
func (e *Extractor) Extract(ctx context.Context, src *types.Source) (string, error) {
	if len(src.Data) == 0 {
		return "", fmt.Errorf("source %q has no data", src.Name)
	}
	if !utf8.Valid(src.Data) {
		return "", fmt.Errorf("source %q is not valid UTF-8 text", src.Name)
	}
	return Normalize(string(src.Data)), nil
}

// Normalize collapses line endings and trims surrounding whitespace so
// downstream chunking sees consistent input regardless of source platform.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}

// Ensure Extractor implements TextExtractor interface
var _ provider.TextExtractor = (*Extractor)(nil)
