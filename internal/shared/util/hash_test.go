package util

import (
	"strings"
	"testing"
)

func TestUserNamespace(t *testing.T) {
	a, b := UserNamespace("local:dev"), UserNamespace("local:other")
	if a != UserNamespace("local:dev") {
		t.Fatalf("expected stable namespace")
	}
	if a == b {
		t.Fatalf("distinct users share namespace %s", a)
	}
	if len(a) != 64 || strings.Trim(a, "0123456789abcdef") != "" {
		t.Fatalf("expected 64 lowercase hex characters, got %q", a)
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"resume.pdf", "resume.pdf"},
		{"  cv/final\\v2.pdf ", "cv_final_v2.pdf"},
		{"bad\x00name\n.pdf", "badname.pdf"},
	}
	for _, tt := range tests {
		got, err := CleanFileName(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("CleanFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	for _, in := range []string{"", "   ", "../etc/passwd", "\x01\x02"} {
		if _, err := CleanFileName(in); err != ErrInvalidFileName {
			t.Fatalf("CleanFileName(%q) err = %v, want ErrInvalidFileName", in, err)
		}
	}

	long := strings.Repeat("é", 100) + ".pdf"
	got, err := CleanFileName(long)
	if err != nil {
		t.Fatalf("long name: %v", err)
	}
	if len(got) > MaxFileNameLen || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("expected truncated name with extension, got %d bytes %q", len(got), got)
	}
}
