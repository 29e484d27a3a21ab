package answer

import (
	"strings"
	"unicode"

	"github.com/spetr/studyrag/pkg/types"
)

// Locale carries the language-specific strings and word lists used for
// prompting, fallback and the post-generation language heuristic. Word
// lists are injectable configuration, not hardcoded core behavior.
type Locale struct {
	Language      types.Language
	Name          string // Language name used in the grounding prompt
	Fallback      string // Fixed phrase when no answer is derivable
	FunctionWords []string
	StudyPrefix   string // Prefix for the educational style
}

// DefaultLocales returns the built-in locale table.
func DefaultLocales() map[types.Language]Locale {
	return map[types.Language]Locale{
		types.LanguageSwedish: {
			Language: types.LanguageSwedish,
			Name:     "Swedish",
			Fallback: "Informationen finns inte i det uppladdade materialet.",
			FunctionWords: []string{
				"och", "att", "det", "som", "i", "en", "ett", "på", "för",
				"med", "av", "den", "inte", "har", "till", "om", "är",
			},
			StudyPrefix: "Bra fråga! ",
		},
		types.LanguageEnglish: {
			Language: types.LanguageEnglish,
			Name:     "English",
			Fallback: "The information is not available in the uploaded material.",
			FunctionWords: []string{
				"the", "and", "that", "is", "of", "to", "in", "it",
				"you", "for", "with", "not", "this", "have", "are", "was",
			},
			StudyPrefix: "Good question! ",
		},
	}
}

// looksLikeLanguage is an approximate check that text is written in the
// locale's language: at least two common function words must appear as
// standalone words. A miss is a warning, never an error.
func looksLikeLanguage(text string, loc Locale) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}

	found := 0
	for _, fw := range loc.FunctionWords {
		if present[fw] {
			found++
			if found >= 2 {
				return true
			}
		}
	}
	return false
}
