package app

import "strings"

func _contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// _wordWrap breaks text on spaces so no line exceeds width. Words longer than
// width stay on their own line.
func _wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		switch {
		case i == 0:
		case lineLen+1+len(word) > width:
			b.WriteString("\n")
			lineLen = 0
		default:
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
