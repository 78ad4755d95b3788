package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Hello World", "Hello World"},
		{"bold markers", "*bold*", "\\*bold\\*"},
		{"price", "Price: $1,234.56 (+5%)", "Price: $1,234\\.56 \\(\\+5%\\)"},
		{"backslash first", `a\b`, `a\\b`},
		{"arrows untouched", "BTC ↑", "BTC ↑"},
		{"invalid utf8 dropped", "ok\xffok", "okok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeMarkdownV2(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "бит...", Truncate("биткоин", 3), "counts runes, not bytes")
	assert.Equal(t, "", Truncate("anything", 0))
}
