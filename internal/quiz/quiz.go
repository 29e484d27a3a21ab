// Package quiz generates practice questions from ingested document chunks.
// Questions are built with cheap lexical strategies over the chunk texts so
// quiz generation never needs a model call.
package quiz

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/spetr/studyrag/pkg/types"
)

// Locale carries the language-specific templates and stopwords used by the
// question strategies. Word lists are injectable configuration.
type Locale struct {
	Language           types.Language
	ConceptTemplate    string // takes the concept term
	NumberTemplate     string // takes a sentence fragment
	DefinitionTemplate string // takes the defined term
	GeneralTemplate    string // takes a topic fragment
	DefinitionMarkers  []string
	Stopwords          []string
}

// DefaultLocales returns the built-in locale table.
func DefaultLocales() map[types.Language]Locale {
	return map[types.Language]Locale{
		types.LanguageSwedish: {
			Language:           types.LanguageSwedish,
			ConceptTemplate:    "Vad kan du berätta om %s?",
			NumberTemplate:     "Vilken siffra eller mängd nämns i samband med: %s?",
			DefinitionTemplate: "Hur definieras %s i materialet?",
			GeneralTemplate:    "Sammanfatta vad materialet säger om: %s",
			DefinitionMarkers:  []string{"är", "betyder", "kallas", "innebär", "definieras som"},
			Stopwords: []string{
				"och", "att", "det", "som", "i", "en", "ett", "på", "för",
				"med", "av", "den", "inte", "har", "till", "om", "är", "de",
				"man", "var", "vid", "kan", "också", "eller", "men",
			},
		},
		types.LanguageEnglish: {
			Language:           types.LanguageEnglish,
			ConceptTemplate:    "What can you say about %s?",
			NumberTemplate:     "What number or quantity is mentioned regarding: %s?",
			DefinitionTemplate: "How is %s defined in the material?",
			GeneralTemplate:    "Summarize what the material says about: %s",
			DefinitionMarkers:  []string{"is", "means", "refers to", "is called", "is defined as"},
			Stopwords: []string{
				"the", "and", "that", "is", "of", "to", "in", "it", "a", "an",
				"you", "for", "with", "not", "this", "have", "are", "was",
				"also", "or", "but", "can", "at", "be", "as",
			},
		},
	}
}

// Generator builds practice questions from chunk texts.
type Generator struct {
	locales map[types.Language]Locale
}

// New creates a quiz generator with the default locales.
func New() *Generator {
	return &Generator{locales: DefaultLocales()}
}

// NewWithLocales creates a quiz generator with custom locales.
func NewWithLocales(locales map[types.Language]Locale) *Generator {
	return &Generator{locales: locales}
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Generate produces up to count questions from the chunks, rotating through
// the concept, number, definition and general strategies so one document
// yields a varied set. A strategy that finds nothing in a chunk is skipped
// for that chunk.
func (g *Generator) Generate(chunks []string, lang types.Language, count int) ([]*types.Question, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to generate questions from", types.ErrEmptyInput)
	}
	if count <= 0 {
		count = 5
	}

	loc, ok := g.locales[lang]
	if !ok {
		loc = g.locales[types.LanguageSwedish]
	}

	strategies := []func(string, Locale) *types.Question{
		conceptQuestion,
		numberQuestion,
		definitionQuestion,
		generalQuestion,
	}

	var questions []*types.Question
	seen := make(map[string]bool)

	// Round-robin: strategy index advances with each chunk, wrapping around
	// the chunk list until enough questions are produced or every
	// strategy/chunk pair has been tried.
	for round := 0; round < len(strategies) && len(questions) < count; round++ {
		for i, chunk := range chunks {
			if len(questions) >= count {
				break
			}
			strategy := strategies[(i+round)%len(strategies)]
			q := strategy(chunk, loc)
			if q == nil || seen[q.Prompt] {
				continue
			}
			seen[q.Prompt] = true
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: chunks contain no usable question material", types.ErrEmptyInput)
	}

	return questions, nil
}

// conceptQuestion picks a capitalized mid-sentence term as a concept.
func conceptQuestion(chunk string, loc Locale) *types.Question {
	words := strings.Fields(chunk)
	for i := 1; i < len(words); i++ {
		w := strings.Trim(words[i], ".,!?;:()\"'")
		if len(w) < 3 || isStopword(w, loc) {
			continue
		}
		r := []rune(w)
		// Mid-sentence capitalization marks a proper noun or named concept.
		if unicode.IsUpper(r[0]) && !endsSentence(words[i-1]) {
			return &types.Question{
				Kind:   types.QuestionConcept,
				Prompt: fmt.Sprintf(loc.ConceptTemplate, w),
				Answer: sentenceContaining(chunk, w),
			}
		}
	}
	return nil
}

// numberQuestion targets a sentence containing a numeric fact.
func numberQuestion(chunk string, loc Locale) *types.Question {
	for _, sentence := range splitSentences(chunk) {
		if !numberRe.MatchString(sentence) {
			continue
		}
		fragment := numberRe.ReplaceAllString(sentence, "...")
		return &types.Question{
			Kind:   types.QuestionNumber,
			Prompt: fmt.Sprintf(loc.NumberTemplate, shorten(fragment, 80)),
			Answer: strings.TrimSpace(sentence),
		}
	}
	return nil
}

// definitionQuestion targets a "term <marker> ..." sentence.
func definitionQuestion(chunk string, loc Locale) *types.Question {
	for _, sentence := range splitSentences(chunk) {
		lower := strings.ToLower(sentence)
		for _, marker := range loc.DefinitionMarkers {
			idx := strings.Index(lower, " "+marker+" ")
			if idx <= 0 {
				continue
			}
			term := strings.TrimSpace(sentence[:idx])
			if term == "" || len(strings.Fields(term)) > 5 {
				continue
			}
			return &types.Question{
				Kind:   types.QuestionDefinition,
				Prompt: fmt.Sprintf(loc.DefinitionTemplate, term),
				Answer: strings.TrimSpace(sentence),
			}
		}
	}
	return nil
}

// generalQuestion falls back to the chunk's leading content words.
func generalQuestion(chunk string, loc Locale) *types.Question {
	var topic []string
	for _, w := range strings.Fields(chunk) {
		clean := strings.Trim(w, ".,!?;:()\"'")
		if len(clean) < 3 || isStopword(clean, loc) {
			continue
		}
		topic = append(topic, clean)
		if len(topic) == 3 {
			break
		}
	}
	if len(topic) == 0 {
		return nil
	}
	return &types.Question{
		Kind:   types.QuestionGeneral,
		Prompt: fmt.Sprintf(loc.GeneralTemplate, strings.Join(topic, ", ")),
		Answer: shorten(strings.TrimSpace(chunk), 200),
	}
}

func isStopword(word string, loc Locale) bool {
	lower := strings.ToLower(word)
	for _, sw := range loc.Stopwords {
		if lower == sw {
			return true
		}
	}
	return false
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	if matches == nil {
		return []string{text}
	}
	return matches
}

// sentenceContaining returns the first sentence mentioning the term, or the
// shortened chunk when none does.
func sentenceContaining(chunk, term string) string {
	for _, sentence := range splitSentences(chunk) {
		if strings.Contains(sentence, term) {
			return strings.TrimSpace(sentence)
		}
	}
	return shorten(strings.TrimSpace(chunk), 200)
}

func shorten(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
