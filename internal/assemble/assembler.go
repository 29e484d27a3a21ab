// Package assemble builds a bounded context string from similarity hits.
package assemble

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spetr/studyrag/pkg/types"
)

// Default values
const (
	DefaultMinHitChars  = 20  // hits shorter than this carry too little meaning
	DefaultMinTailChars = 100 // minimum remaining budget for a truncated tail
	DefaultVectorWeight = 0.7
	DefaultLexWeight    = 0.3

	separator = "\n\n"
	ellipsis  = "..."
)

// Assembler ranks, deduplicates and concatenates hits into one context
// string bounded by a character budget.
type Assembler struct {
	minHitChars   int
	minTailChars  int
	vectorWeight  float32
	lexicalWeight float32
}

// Config contains assembler configuration.
type Config struct {
	MinHitChars   int
	MinTailChars  int
	VectorWeight  float32
	LexicalWeight float32
}

// New creates a new assembler.
func New(cfg Config) *Assembler {
	if cfg.MinHitChars == 0 {
		cfg.MinHitChars = DefaultMinHitChars
	}
	if cfg.MinTailChars == 0 {
		cfg.MinTailChars = DefaultMinTailChars
	}
	if cfg.VectorWeight == 0 && cfg.LexicalWeight == 0 {
		cfg.VectorWeight = DefaultVectorWeight
		cfg.LexicalWeight = DefaultLexWeight
	}
	return &Assembler{
		minHitChars:   cfg.MinHitChars,
		minTailChars:  cfg.MinTailChars,
		vectorWeight:  cfg.VectorWeight,
		lexicalWeight: cfg.LexicalWeight,
	}
}

// Assemble returns a context string never longer than maxChars. An empty
// string is the valid "no context" outcome, not an error. Deterministic and
// idempotent for identical inputs.
func (a *Assembler) Assemble(hits []*types.SearchHit, query string, maxChars int) string {
	if len(hits) == 0 || maxChars <= 0 {
		return ""
	}

	terms := queryTerms(query)

	type ranked struct {
		hit   *types.SearchHit
		score float32
	}

	var candidates []ranked
	seen := make(map[string]bool)
	for _, h := range hits {
		text := strings.TrimSpace(h.Text)
		if len(text) < a.minHitChars {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		score := a.vectorWeight*h.Score + a.lexicalWeight*lexicalOverlap(terms, text)
		candidates = append(candidates, ranked{hit: h, score: score})
	}

	if len(candidates) == 0 {
		return ""
	}

	// Stable sort keeps the incoming similarity order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var b strings.Builder
	for _, c := range candidates {
		text := strings.TrimSpace(c.hit.Text)
		need := len(text)
		if b.Len() > 0 {
			need += len(separator)
		}

		if b.Len()+need <= maxChars {
			if b.Len() > 0 {
				b.WriteString(separator)
			}
			b.WriteString(text)
			continue
		}

		// Partial fit: append a truncated, ellipsis-terminated tail if the
		// remaining budget is still worth filling.
		remaining := maxChars - b.Len()
		if b.Len() > 0 {
			remaining -= len(separator)
		}
		if remaining >= a.minTailChars {
			if b.Len() > 0 {
				b.WriteString(separator)
			}
			// Back the cut off to a rune boundary so multibyte text is
			// never split mid-rune.
			cut := remaining - len(ellipsis)
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			b.WriteString(text[:cut])
			b.WriteString(ellipsis)
		}
		break
	}

	return b.String()
}

// queryTerms returns lowercased query terms longer than two runes, stripped
// of punctuation.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var terms []string
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// lexicalOverlap scores a hit by the fraction of query terms it matches. A
// term matches if it appears as a substring of the text or if a content
// word of the text is contained in the term. Raw vector similarity alone
// was not enough for short or noisy queries; this blends in simple lexical
// evidence.
func lexicalOverlap(terms []string, text string) float32 {
	if len(terms) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
			continue
		}
		for _, w := range words {
			if len([]rune(w)) > 2 && strings.Contains(term, w) {
				matched++
				break
			}
		}
	}
	return float32(matched) / float32(len(terms))
}
