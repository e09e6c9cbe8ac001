package logs

import "testing"

func TestParseLine(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantLabel   string
		wantContent string
	}{
		{"labelled", "[build] step1", "build", "step1"},
		{"file label", "[0_build.txt] 2024-01-01T00:00:00Z Run make", "0_build.txt", "2024-01-01T00:00:00Z Run make"},
		{"empty content", "[build] ", "build", ""},
		{"label up to first delimiter", "[a] b] c", "a", "b] c"},
		{"bracket inside label", "[]] x", "]", "x"},
		{"content keeps brackets", "[test] [nested] value", "test", "[nested] value"},
		{"bare line", "no-prefix line", "", "no-prefix line"},
		{"empty label", "[] x", "", "[] x"},
		{"no space after bracket", "[build]step", "", "[build]step"},
		{"unterminated", "[build step", "", "[build step"},
		{"leading space", " [build] x", "", " [build] x"},
		{"empty", "", "", ""},
		{"just bracket", "[", "", "["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, content := ParseLine(tt.raw)
			if label != tt.wantLabel {
				t.Errorf("label: got %q, want %q", label, tt.wantLabel)
			}
			if content != tt.wantContent {
				t.Errorf("content: got %q, want %q", content, tt.wantContent)
			}
		})
	}
}

func TestParseLine_RoundTrip(t *testing.T) {
	lines := []string{
		"[build] step1",
		"no-prefix line",
		"[a] b] c",
		"[x] ",
		"[] x",
		"[unterminated",
		"",
		"[job/step 1] ##[group]Run actions/checkout@v4",
	}

	for _, raw := range lines {
		label, content := ParseLine(raw)
		if got := FormatLine(label, content); got != raw {
			t.Errorf("round trip of %q: got %q", raw, got)
		}
		if label != "" && "["+label+"] "+content != raw {
			t.Errorf("labelled line %q does not rebuild from its parts", raw)
		}
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"only newline", "\n", nil},
		{"only crlf lines", "\r\n\r\n", nil},
		{"single", "a", []string{"a"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank line kept", "a\n\nb", []string{"a", "", "b"}},
		{"leading blank line kept", "\na", []string{"", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("lines: got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseBatch_ReproducesText(t *testing.T) {
	text := "[build] step1\nno-prefix line\r\n[build] step2\n[test] ok"
	records := ParseBatch(text)

	if len(records) != 4 {
		t.Fatalf("records: got %d, want 4", len(records))
	}
	for i, r := range records {
		if r.Sequence != i {
			t.Errorf("record %d sequence: got %d", i, r.Sequence)
		}
	}
	want := "[build] step1\nno-prefix line\n[build] step2\n[test] ok"
	if got := Render(records); got != want {
		t.Errorf("Render: got %q, want %q", got, want)
	}
}
