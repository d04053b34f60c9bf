package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncateRunes(tc.in, tc.n); got != tc.want {
			t.Fatalf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestEllipsize(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := Ellipsize(long, 500)
	if utf8.RuneCountInString(got) != 500 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected 500 runes ending in ellipsis, got %d", utf8.RuneCountInString(got))
	}
	if Ellipsize("short", 500) != "short" {
		t.Fatalf("short strings must be untouched")
	}
}
