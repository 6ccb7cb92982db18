package object

import (
	"errors"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "", want: ""},
		{key: "./", want: ""},
		{key: "/", want: ""},
		{key: "abc/./resume.pdf", want: "abc/resume.pdf"},
		{key: "/abc//resume.pdf", want: "abc/resume.pdf"},
		{key: "abc/../etc", wantErr: true},
		{key: "abc\\evil", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CleanKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
