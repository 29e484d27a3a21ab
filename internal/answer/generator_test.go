package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

const swedishFallback = "Informationen finns inte i det uppladdade materialet."

// fakeGenerator counts invocations and returns a canned reply.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) Close() error { return nil }

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGenerateEmptyQuestion(t *testing.T) {
	g := New(Config{Generator: &fakeGenerator{}})

	_, err := g.Generate(context.Background(), "  ", "något sammanhang", types.LanguageSwedish, "")
	if !errors.Is(err, types.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestGenerateBlankContextSkipsModel(t *testing.T) {
	fake := &fakeGenerator{reply: "ska aldrig användas"}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(), "Vad är huvudstaden?", "   ", types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !ans.Fallback {
		t.Error("answer should be marked as fallback")
	}
	if ans.Text != swedishFallback {
		t.Errorf("answer = %q, want exact fallback phrase", ans.Text)
	}
	if fake.callCount() != 0 {
		t.Errorf("model was called %d times, want 0 for blank context", fake.callCount())
	}
}

func TestGenerateModelFailureFallsBack(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("connection refused")}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(), "Vad är huvudstaden?", "Stockholm är huvudstaden.", types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("generation failure must not surface as error, got: %v", err)
	}
	if !ans.Fallback {
		t.Error("answer should be marked as fallback")
	}
	if ans.Text != swedishFallback {
		t.Errorf("answer = %q, want fallback phrase", ans.Text)
	}
}

func TestGenerateGroundedAnswer(t *testing.T) {
	fake := &fakeGenerator{reply: "Stockholm är huvudstaden i Sverige.###"}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(),
		"Vad är huvudstaden?",
		"Sverige är ett land i Norden. Stockholm är huvudstaden.",
		types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if ans.Fallback {
		t.Error("grounded answer should not be fallback")
	}
	if ans.Text != "Stockholm är huvudstaden i Sverige." {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Language != types.LanguageSwedish {
		t.Errorf("language = %q, want sv", ans.Language)
	}
	if fake.callCount() != 1 {
		t.Errorf("model called %d times, want 1", fake.callCount())
	}
}

func TestGenerateModelEmitsFallbackPhrase(t *testing.T) {
	fake := &fakeGenerator{reply: swedishFallback}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(), "Vad är kvantgravitation?", "Sverige är ett land i Norden.", types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !ans.Fallback {
		t.Error("fallback phrase from the model should set Fallback")
	}
}

func TestGenerateTruncatesSentences(t *testing.T) {
	fake := &fakeGenerator{reply: "En mening här. Två meningar nu. Tre stycken blir det. Fyra är gränsen. Fem är för många. Sex också."}
	g := New(Config{Generator: fake, MaxSentences: 4})

	ans, err := g.Generate(context.Background(), "Berätta mer?", "Det finns mycket att säga om det här ämnet.", types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got := strings.Count(ans.Text, "."); got != 4 {
		t.Errorf("answer has %d sentences, want 4: %q", got, ans.Text)
	}
	if strings.Contains(ans.Text, "Fem") {
		t.Errorf("fifth sentence should be cut: %q", ans.Text)
	}
}

func TestGenerateRestoresTerminalPunctuation(t *testing.T) {
	fake := &fakeGenerator{reply: "Ett svar utan slutpunkt"}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(), "Och sen?", "Det är ett sammanhang med innehåll.", types.LanguageSwedish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.HasSuffix(ans.Text, ".") {
		t.Errorf("answer should end with punctuation: %q", ans.Text)
	}
}

func TestGenerateStyles(t *testing.T) {
	reply := "Första meningen är här. Andra meningen är här. Tredje meningen är här."

	tests := []struct {
		style types.AnswerStyle
		check func(t *testing.T, text string)
	}{
		{types.StyleConcise, func(t *testing.T, text string) {
			if got := strings.Count(text, "."); got != 2 {
				t.Errorf("concise answer has %d sentences, want 2: %q", got, text)
			}
		}},
		{types.StyleEducational, func(t *testing.T, text string) {
			if !strings.HasPrefix(text, "Bra fråga! ") {
				t.Errorf("educational answer missing prefix: %q", text)
			}
		}},
		{types.StyleDetailed, func(t *testing.T, text string) {
			if got := strings.Count(text, "."); got != 3 {
				t.Errorf("detailed answer has %d sentences, want 3: %q", got, text)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			g := New(Config{Generator: &fakeGenerator{reply: reply}})
			ans, err := g.Generate(context.Background(), "Vad händer?", "Sammanhang med gott om innehåll här.", types.LanguageSwedish, tt.style)
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			if ans.Style != tt.style {
				t.Errorf("style = %q, want %q", ans.Style, tt.style)
			}
			tt.check(t, ans.Text)
		})
	}
}

func TestGenerateEnglishLocale(t *testing.T) {
	fake := &fakeGenerator{}
	g := New(Config{Generator: fake})

	ans, err := g.Generate(context.Background(), "What is the capital?", "", types.LanguageEnglish, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if ans.Text != "The information is not available in the uploaded material." {
		t.Errorf("english fallback = %q", ans.Text)
	}
	if ans.Language != types.LanguageEnglish {
		t.Errorf("language = %q, want en", ans.Language)
	}
}

func TestGenerateUnknownLanguageDefaultsToSwedish(t *testing.T) {
	g := New(Config{Generator: &fakeGenerator{}})

	ans, err := g.Generate(context.Background(), "Vad är detta?", "", types.Language("de"), "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if ans.Language != types.LanguageSwedish {
		t.Errorf("language = %q, want sv default", ans.Language)
	}
}

func TestLooksLikeLanguage(t *testing.T) {
	locales := DefaultLocales()

	tests := []struct {
		name string
		text string
		lang types.Language
		want bool
	}{
		{"swedish text", "Stockholm är huvudstaden i Sverige och det är en stor stad.", types.LanguageSwedish, true},
		{"english text", "The capital of Sweden is Stockholm and it is the largest city.", types.LanguageEnglish, true},
		{"english checked as swedish", "The capital of Sweden is Stockholm.", types.LanguageSwedish, false},
		{"too few function words", "Stockholm.", types.LanguageSwedish, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeLanguage(tt.text, locales[tt.lang]); got != tt.want {
				t.Errorf("looksLikeLanguage(%q, %s) = %v, want %v", tt.text, tt.lang, got, tt.want)
			}
		})
	}
}
