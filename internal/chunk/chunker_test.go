package chunk

import (
	"errors"
	"strings"
	"testing"

	"github.com/spetr/studyrag/pkg/types"
)

func TestNewRejectsInvalidOverlap(t *testing.T) {
	tests := []struct {
		name       string
		targetSize int
		overlap    int
		wantErr    bool
	}{
		{"valid", 100, 20, false},
		{"zero overlap", 100, 0, false},
		{"negative overlap", 100, -1, true},
		{"overlap equals target", 100, 100, true},
		{"overlap exceeds target", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.targetSize, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) err=%v, wantErr=%v", tt.targetSize, tt.overlap, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, _ := New(100, 20)

	for _, text := range []string{"", "   ", "\n\t "} {
		if _, err := c.Split(text); !errors.Is(err, types.ErrEmptyInput) {
			t.Errorf("Split(%q) err=%v, want ErrEmptyInput", text, err)
		}
	}
}

func TestSplitNoPunctuation(t *testing.T) {
	c, _ := New(50, 10)

	text := "ord utan skiljetecken bara en lång rad med ord och mera ord"
	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want whole text", chunks[0])
	}
}

func TestSplitShortText(t *testing.T) {
	c, _ := New(1000, 200)

	chunks, err := c.Split("Sverige är ett land i Norden. Stockholm är huvudstaden.")
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("got %d chunks, want 1 for text below target size", len(chunks))
	}
}

func TestSplitBreaksAtSentenceBoundaries(t *testing.T) {
	c, _ := New(40, 0)

	s1 := "Första meningen handlar om en sak."
	s2 := "Andra meningen handlar om något annat."
	s3 := "Tredje meningen avslutar texten här."
	chunks, err := c.Split(s1 + " " + s2 + " " + s3)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks %v, want 3", len(chunks), chunks)
	}
	for i, want := range []string{s1, s2, s3} {
		if chunks[i] != want {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want)
		}
	}
}

func TestSplitOverlapSharedAcrossBoundary(t *testing.T) {
	c, _ := New(40, 15)

	s1 := "Alpha beta gamma delta."
	s2 := "Epsilon zeta eta theta."
	chunks, err := c.Split(s1 + " " + s2)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %v, want 2", len(chunks), chunks)
	}
	if chunks[0] != s1 {
		t.Errorf("chunk 0 = %q, want %q", chunks[0], s1)
	}
	// The second chunk starts with the trailing words of the first.
	if !strings.HasPrefix(chunks[1], "gamma delta.") {
		t.Errorf("chunk 1 = %q, want prefix %q", chunks[1], "gamma delta.")
	}
	if !strings.Contains(chunks[1], s2) {
		t.Errorf("chunk 1 = %q, should contain %q", chunks[1], s2)
	}
}

func TestSplitEveryChunkNonEmptyAndComplete(t *testing.T) {
	c, _ := New(80, 20)

	sentences := []string{
		"Fotosyntesen omvandlar ljus till energi.",
		"Processen sker i växternas kloroplaster.",
		"Klorofyll ger bladen deras gröna färg.",
		"Syre frigörs som en biprodukt av processen.",
		"Koldioxid tas upp genom bladens klyvöppningar.",
	}
	chunks, err := c.Split(strings.Join(sentences, " "))
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}

	// Every sentence must survive into at least one chunk.
	joined := strings.Join(chunks, " ")
	for _, s := range sentences {
		if !strings.Contains(joined, s) {
			t.Errorf("sentence %q missing from chunks", s)
		}
	}
}

func TestSplitTrailingTextWithoutTerminator(t *testing.T) {
	c, _ := New(1000, 0)

	chunks, err := c.Split("En hel mening. och en svans utan punkt")
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, "svans utan punkt") {
		t.Errorf("trailing text lost: %v", chunks)
	}
}

func TestOverlapTail(t *testing.T) {
	tests := []struct {
		name     string
		chunk    string
		maxChars int
		want     string
	}{
		{"takes trailing words", "one two three four", 10, "three four"},
		{"single word fits", "one two three four", 4, "four"},
		{"nothing fits", "enormouslylongword", 5, ""},
		{"whole chunk fits", "a b c", 10, "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapTail(tt.chunk, tt.maxChars); got != tt.want {
				t.Errorf("overlapTail(%q, %d) = %q, want %q", tt.chunk, tt.maxChars, got, tt.want)
			}
		})
	}
}
