// Package web implements TextExtractor for URL sources: the page is fetched
// over HTTP and reduced to its visible text.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"

	"github.com/spetr/studyrag/builtin/extract/plain"
)

// Default values
const (
	DefaultMaxFetchBytes = 10 << 20 // 10 MiB
	DefaultUserAgent     = "studyrag/1.0"
	DefaultTimeout       = 30 * time.Second
)

// Extractor handles url sources.
type Extractor struct {
	config provider.ExtractorConfig
	client *http.Client
}

// New creates a new web extractor.
func New(cfg provider.ExtractorConfig) *Extractor {
	if cfg.MaxFetchBytes <= 0 {
		cfg.MaxFetchBytes = DefaultMaxFetchBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Extractor{
		config: cfg,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "web"
}

// Extract fetches the URL and returns the page's visible text. Script,
// style and head content are dropped.
func (e *Extractor) Extract(ctx context.Context, src *types.Source) (string, error) {
	if src.URL == "" {
		return "", fmt.Errorf("source %q has no url", src.Name)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", src.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", src.URL, err)
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %q returned status %d", src.URL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, e.config.MaxFetchBytes)

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read %q: %w", src.URL, err)
		}
		return plain.Normalize(string(data)), nil
	}

	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse html from %q: %w", src.URL, err)
	}

	var sb strings.Builder
	collectText(doc, &sb)

	return plain.Normalize(collapseBlankLines(sb.String())), nil
}

// collectText walks the DOM appending visible text nodes.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head", "iframe":
			return
		}
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// collapseBlankLines squeezes runs of blank lines to one.
func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Ensure Extractor implements TextExtractor interface
var _ provider.TextExtractor = (*Extractor)(nil)
