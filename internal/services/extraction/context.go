package extraction

import (
	"strings"
	"unicode"
)

// ContextWindow is how many runes around a match are kept as context
const ContextWindow = 100

// FindContext returns the text surrounding the first case-insensitive
// occurrence of phrase, window runes on each side, or "" when absent.
func FindContext(text, phrase string, window int) string {
	if phrase == "" {
		return ""
	}

	hay := []rune(text)
	needle := []rune(phrase)
	idx := indexFold(hay, needle)
	if idx < 0 {
		return ""
	}

	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window
	if end > len(hay) {
		end = len(hay)
	}

	return strings.TrimSpace(string(hay[start:end]))
}

func indexFold(hay, needle []rune) int {
	if len(needle) > len(hay) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if unicode.ToLower(hay[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
