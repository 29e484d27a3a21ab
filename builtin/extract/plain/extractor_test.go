package plain

import (
	"context"
	"testing"

	"github.com/spetr/studyrag/pkg/types"
)

func TestExtract(t *testing.T) {
	e := New()

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{"simple text", []byte("hej världen"), "hej världen", false},
		{"crlf normalized", []byte("rad ett\r\nrad två\r"), "rad ett\nrad två", false},
		{"surrounding whitespace trimmed", []byte("  text  \n"), "text", false},
		{"empty data", nil, "", true},
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), &types.Source{
				Kind: types.SourceText,
				Name: tt.name,
				Data: tt.data,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract() err=%v, wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}
