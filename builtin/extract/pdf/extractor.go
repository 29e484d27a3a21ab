// Package pdf implements TextExtractor for PDF sources.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"

	"github.com/spetr/studyrag/builtin/extract/plain"
)

// Extractor handles PDF file sources.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "pdf"
}

// Extract returns the plain text of all pages in the PDF.
func (e *Extractor) Extract(ctx context.Context, src *types.Source) (string, error) {
	if len(src.Data) == 0 {
		return "", fmt.Errorf("source %q has no data", src.Name)
	}

	reader, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf %q: %w", src.Name, err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from pdf %q: %w", src.Name, err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return plain.Normalize(sb.String()), nil
}

// AutoExtractor handles file sources by sniffing the content: PDF files go
// through the PDF parser, everything else is treated as plain text.
type AutoExtractor struct {
	pdf   *Extractor
	plain *plain.Extractor
}

// NewAuto creates a file extractor with PDF detection.
func NewAuto() *AutoExtractor {
	return &AutoExtractor{
		pdf:   New(),
		plain: plain.New(),
	}
}

// Name returns the extractor name.
func (e *AutoExtractor) Name() string {
	return "file"
}

// Extract dispatches on the PDF magic header.
func (e *AutoExtractor) Extract(ctx context.Context, src *types.Source) (string, error) {
	if bytes.HasPrefix(src.Data, []byte("%PDF-")) {
		return e.pdf.Extract(ctx, src)
	}
	return e.plain.Extract(ctx, src)
}

// Ensure extractors implement TextExtractor interface
var (
	_ provider.TextExtractor = (*Extractor)(nil)
	_ provider.TextExtractor = (*AutoExtractor)(nil)
)
