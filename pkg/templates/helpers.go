package templates

import (
	"strings"
	"unicode/utf8"
)

// EscapeMarkdownV2 escapes special characters for Telegram MarkdownV2 format.
// Outside code entities every one of _*[]()~`>#+-=|{}.! must be escaped,
// and the backslash itself first.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(strings.ToValidUTF8(text, ""))
}

var markdownV2Replacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// Truncate cuts s to at most n runes, appending "..." when it was shortened
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " \n") + "..."
}
