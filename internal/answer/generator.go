// Package answer builds grounded answers from retrieved context with strict
// fallback semantics.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Default values
const (
	DefaultMaxSentences = 4
	DefaultTimeout      = 120 * time.Second

	stopMarker = "###"
)

// Generator produces validated, grounded answers. Any model failure is
// converted to the locale's fixed fallback phrase; the caller never sees a
// raw generation error as an answer.
type Generator struct {
	llm          provider.TextGenerator
	locales      map[types.Language]Locale
	maxSentences int
	timeout      time.Duration
}

// Config contains answer generator configuration.
type Config struct {
	Generator    provider.TextGenerator
	Locales      map[types.Language]Locale // nil uses DefaultLocales
	MaxSentences int
	Timeout      time.Duration
}

// New creates a new answer generator.
func New(cfg Config) *Generator {
	if cfg.Locales == nil {
		cfg.Locales = DefaultLocales()
	}
	if cfg.MaxSentences == 0 {
		cfg.MaxSentences = DefaultMaxSentences
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Generator{
		llm:          cfg.Generator,
		locales:      cfg.Locales,
		maxSentences: cfg.MaxSentences,
		timeout:      cfg.Timeout,
	}
}

// Generate answers the question from the supplied context only. A blank
// context short-circuits to the fallback phrase without invoking the model.
func (g *Generator) Generate(ctx context.Context, question, contextText string, lang types.Language, style types.AnswerStyle) (*types.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", types.ErrEmptyInput)
	}

	loc, ok := g.locales[lang]
	if !ok {
		loc = g.locales[types.LanguageSwedish]
		slog.Warn("unknown answer language, using default", "language", lang)
	}
	if style == "" {
		style = types.StyleDetailed
	}

	// No grounding context means no model call: answering anyway would
	// invite hallucination and waste a generation round-trip.
	if strings.TrimSpace(contextText) == "" {
		return g.fallback(loc, style), nil
	}

	prompt := buildPrompt(question, contextText, loc, g.maxSentences)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.llm.Generate(genCtx, provider.GenerateRequest{
		Prompt:      prompt,
		Stop:        []string{stopMarker},
		Temperature: 0.3,
	})
	if err != nil {
		slog.Error("generation failed, returning fallback",
			"error", fmt.Errorf("%w: %v", types.ErrGeneration, err))
		return g.fallback(loc, style), nil
	}

	text := g.postProcess(raw, loc)
	if text == "" || text == loc.Fallback {
		return g.fallback(loc, style), nil
	}

	ans := &types.Answer{
		Text:     text,
		Language: loc.Language,
		Style:    style,
	}
	ans.Text = applyStyle(ans.Text, style, loc)
	return ans, nil
}

// fallback returns the fixed "information not available" answer.
func (g *Generator) fallback(loc Locale, style types.AnswerStyle) *types.Answer {
	return &types.Answer{
		Text:     loc.Fallback,
		Language: loc.Language,
		Style:    style,
		Fallback: true,
	}
}

// buildPrompt constructs the grounding prompt with the explicit escape
// clause and length constraint.
func buildPrompt(question, contextText string, loc Locale, maxSentences int) string {
	var b strings.Builder

	b.WriteString("You are a study assistant. Answer the question using ONLY the context below.\n")
	fmt.Fprintf(&b, "If the answer cannot be derived from the context, reply with exactly: %s\n", loc.Fallback)
	fmt.Fprintf(&b, "Answer in %s, in at most %d sentences.\n\n", loc.Name, maxSentences)
	fmt.Fprintf(&b, "Context:\n%s\n\n", contextText)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Answer (end with %s):\n", stopMarker)

	return b.String()
}

// postProcess trims, truncates to the sentence cap, restores terminal
// punctuation and runs the approximate locale check.
func (g *Generator) postProcess(raw string, loc Locale) string {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, stopMarker); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return ""
	}

	text = truncateSentences(text, g.maxSentences)

	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}

	if !looksLikeLanguage(text, loc) {
		// The heuristic is approximate; it must never block the answer.
		slog.Warn("answer may not be in the target language", "language", loc.Language)
	}

	return text
}

// truncateSentences keeps at most n sentences, splitting on .!? and
// preserving the terminators.
func truncateSentences(text string, n int) string {
	if n <= 0 {
		return text
	}

	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return text
}

// applyStyle is a pure post-formatting step. It never re-queries the model
// and only changes framing and truncation point, not factual content.
func applyStyle(text string, style types.AnswerStyle, loc Locale) string {
	switch style {
	case types.StyleConcise:
		return truncateSentences(text, 2)
	case types.StyleEducational:
		return loc.StudyPrefix + text
	default:
		return text
	}
}
