package quiz

import (
	"errors"
	"strings"
	"testing"

	"github.com/spetr/studyrag/pkg/types"
)

const richChunk = "Albert Einstein föddes år 1879. Relativitetsteorin är en teori om rummet och tiden."

func TestGenerateEmptyChunks(t *testing.T) {
	g := New()

	if _, err := g.Generate(nil, types.LanguageSwedish, 5); !errors.Is(err, types.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestGenerateVariedKinds(t *testing.T) {
	g := New()

	questions, err := g.Generate([]string{richChunk}, types.LanguageSwedish, 4)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(questions) < 3 {
		t.Fatalf("got %d questions, want at least 3 from a rich chunk", len(questions))
	}

	kinds := make(map[types.QuestionKind]bool)
	for _, q := range questions {
		kinds[q.Kind] = true
		if strings.TrimSpace(q.Prompt) == "" {
			t.Errorf("empty prompt for kind %s", q.Kind)
		}
		if strings.TrimSpace(q.Answer) == "" {
			t.Errorf("empty answer for kind %s", q.Kind)
		}
	}
	if len(kinds) < 3 {
		t.Errorf("got kinds %v, want at least 3 distinct strategies", kinds)
	}
}

func TestGenerateRespectsCount(t *testing.T) {
	g := New()

	chunks := []string{
		richChunk,
		"Fotosyntesen sker i kloroplasterna. Klorofyll är det gröna färgämnet i bladen.",
		"Sverige har ungefär 10 miljoner invånare. Stockholm är huvudstaden i landet.",
	}

	for _, count := range []int{1, 2, 5} {
		questions, err := g.Generate(chunks, types.LanguageSwedish, count)
		if err != nil {
			t.Fatalf("Generate(count=%d) error: %v", count, err)
		}
		if len(questions) > count {
			t.Errorf("got %d questions, want at most %d", len(questions), count)
		}
	}
}

func TestGenerateUniquePrompts(t *testing.T) {
	g := New()

	chunks := []string{richChunk, richChunk, richChunk}
	questions, err := g.Generate(chunks, types.LanguageSwedish, 10)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	seen := make(map[string]bool)
	for _, q := range questions {
		if seen[q.Prompt] {
			t.Errorf("duplicate prompt: %q", q.Prompt)
		}
		seen[q.Prompt] = true
	}
}

func TestDefinitionQuestion(t *testing.T) {
	loc := DefaultLocales()[types.LanguageSwedish]

	q := definitionQuestion("Relativitetsteorin är en teori om rummet och tiden.", loc)
	if q == nil {
		t.Fatal("expected a definition question")
	}
	if q.Kind != types.QuestionDefinition {
		t.Errorf("kind = %s, want definition", q.Kind)
	}
	if !strings.Contains(q.Prompt, "Relativitetsteorin") {
		t.Errorf("prompt should name the term: %q", q.Prompt)
	}
	if !strings.Contains(q.Answer, "teori om rummet") {
		t.Errorf("answer should be the defining sentence: %q", q.Answer)
	}
}

func TestNumberQuestionHidesTheNumber(t *testing.T) {
	loc := DefaultLocales()[types.LanguageSwedish]

	q := numberQuestion("Sverige har ungefär 10 miljoner invånare.", loc)
	if q == nil {
		t.Fatal("expected a number question")
	}
	if strings.Contains(q.Prompt, "10") {
		t.Errorf("prompt should not reveal the number: %q", q.Prompt)
	}
	if !strings.Contains(q.Answer, "10") {
		t.Errorf("answer should contain the number: %q", q.Answer)
	}
}

func TestConceptQuestionSkipsSentenceStarts(t *testing.T) {
	loc := DefaultLocales()[types.LanguageSwedish]

	// The only capitalized words start sentences, so no concept is found.
	q := conceptQuestion("Detta stycke saknar egennamn. Ingenting sticker ut här.", loc)
	if q != nil {
		t.Errorf("expected no concept question, got %q", q.Prompt)
	}
}

func TestGenerateEnglishLocale(t *testing.T) {
	g := New()

	questions, err := g.Generate([]string{
		"The theory of relativity is a theory about space and time, created by Albert Einstein in 1905.",
	}, types.LanguageEnglish, 4)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(questions) == 0 {
		t.Fatal("expected questions")
	}
	for _, q := range questions {
		if strings.Contains(q.Prompt, "Vad") || strings.Contains(q.Prompt, "Hur") {
			t.Errorf("swedish template used for english: %q", q.Prompt)
		}
	}
}
