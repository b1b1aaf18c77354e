package storage

import (
	"testing"
)

func TestCursor_EncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		c    Cursor
	}{
		{
			name: "query and offset",
			c:    Cursor{Query: "android", Offset: 50},
		},
		{
			name: "query with spaces",
			c:    Cursor{Query: "paging library", Offset: 10},
		},
		{
			name: "zero values",
			c:    Cursor{},
		},
		{
			name: "large offset",
			c:    Cursor{Query: "go", Offset: 1 << 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.c.Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := DecodeCursor(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.Query != tt.c.Query {
				t.Errorf("Query: got %q, want %q", decoded.Query, tt.c.Query)
			}
			if decoded.Offset != tt.c.Offset {
				t.Errorf("Offset: got %d, want %d", decoded.Offset, tt.c.Offset)
			}
		})
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "invalid base64",
			input: "!!!invalid!!!",
		},
		{
			name:  "invalid json",
			input: "eyJvIjoiYWJjIn0=", // {"o":"abc"}
		},
		{
			name:  "negative offset",
			input: "eyJvIjotMX0=", // {"o":-1}
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.input)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"android", "%android%"},
		{"paging library", "%paging%library%"},
		{"", "%%"},
	}

	for _, tt := range tests {
		if got := LikePattern(tt.query); got != tt.want {
			t.Errorf("LikePattern(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
