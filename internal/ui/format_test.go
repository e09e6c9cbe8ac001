package ui

import "testing"

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 10, "much lo..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.in, tt.width); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 2, "abcd"},
		{"", 2, "  "},
	}
	for _, tt := range tests {
		if got := PadRight(tt.in, tt.width); got != tt.want {
			t.Errorf("PadRight(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
