package types

import (
	"errors"
	"testing"
)

func TestNewNamespace(t *testing.T) {
	tests := []struct {
		userID     string
		documentID string
		want       Namespace
	}{
		{"alice", "doc1", "alice_doc1"},
		{"alice", "", "alice"},
		{"user-42", "abc-def", "user-42_abc-def"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := NewNamespace(tt.userID, tt.documentID); got != tt.want {
				t.Errorf("NewNamespace(%q, %q) = %q, want %q", tt.userID, tt.documentID, got, tt.want)
			}
		})
	}
}

func TestNamespaceOwnedBy(t *testing.T) {
	tests := []struct {
		name   string
		ns     Namespace
		userID string
		want   bool
	}{
		{"own document namespace", "alice_doc1", "alice", true},
		{"own tenant namespace", "alice", "alice", true},
		{"foreign namespace", "bob_doc2", "alice", false},
		{"prefix but not owner", "alicia_doc1", "alice", false},
		{"empty user", "alice_doc1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ns.OwnedBy(tt.userID); got != tt.want {
				t.Errorf("%q.OwnedBy(%q) = %v, want %v", tt.ns, tt.userID, got, tt.want)
			}
		})
	}
}

func TestNamespaceValidate(t *testing.T) {
	if err := Namespace("alice_doc1").Validate(); err != nil {
		t.Errorf("valid namespace rejected: %v", err)
	}
	for _, ns := range []Namespace{"", "   "} {
		if err := ns.Validate(); !errors.Is(err, ErrNamespaceDenied) {
			t.Errorf("Validate(%q) = %v, want ErrNamespaceDenied", ns, err)
		}
	}
}

func TestChunkVectorID(t *testing.T) {
	c := Chunk{DocumentID: "doc1", Index: 3}
	if got := c.VectorID(); got != "doc1-chunk-3" {
		t.Errorf("VectorID() = %q, want doc1-chunk-3", got)
	}
}

func TestStageError(t *testing.T) {
	inner := ErrEmbeddingProvider
	err := NewStageError(StageEmbedded, inner)

	if !errors.Is(err, ErrEmbeddingProvider) {
		t.Error("StageError should unwrap to the inner error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatal("errors.As should find StageError")
	}
	if stageErr.Stage != StageEmbedded {
		t.Errorf("stage = %q, want embedded", stageErr.Stage)
	}
}
