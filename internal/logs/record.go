package logs

import "strings"

// Record is one parsed log line.
type Record struct {
	// Sequence is assigned in arrival order and never reused within a session.
	Sequence int
	// Label is the bracketed source prefix, empty when the line had none.
	Label   string
	Content string
}

// String re-serializes the record in its raw form.
func (r Record) String() string {
	return FormatLine(r.Label, r.Content)
}

// ParseLine splits a raw line of the form "[label] content". The label is
// everything between the leading '[' and the first "] " after it and must be
// at least one character long. Lines without that shape come back whole as
// content with an empty label.
func ParseLine(raw string) (label, content string) {
	if len(raw) < 4 || raw[0] != '[' {
		return "", raw
	}
	idx := strings.Index(raw[2:], "] ")
	if idx < 0 {
		return "", raw
	}
	end := idx + 2
	return raw[1:end], raw[end+2:]
}

// FormatLine is the inverse of ParseLine.
func FormatLine(label, content string) string {
	if label == "" {
		return content
	}
	return "[" + label + "] " + content
}

// SplitLines splits batch log text on line breaks. A trailing '\r' is removed
// from each line and a final empty line left by a trailing newline is dropped.
// Text made only of line terminators has no lines.
func SplitLines(text string) []string {
	if strings.Trim(text, "\r\n") == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// ParseBatch parses every line of text into records numbered from 0.
func ParseBatch(text string) []Record {
	lines := SplitLines(text)
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		label, content := ParseLine(line)
		records = append(records, Record{Sequence: i, Label: label, Content: content})
	}
	return records
}

// Render joins records back into raw text, one line each.
func Render(records []Record) string {
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(r.String())
	}
	return sb.String()
}
