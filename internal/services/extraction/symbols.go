package extraction

import (
	"regexp"
	"strings"

	"cryptosys/internal/domain/market"
)

var (
	cashtagPattern = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{1,9})\b`)
	tickerPatterns = buildTickerPatterns()
)

func buildTickerPatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(market.KnownCoins))
	for _, c := range market.KnownCoins {
		pattern := `(?i)\b` + c.Symbol + `\b`
		if c.Word {
			pattern = `\b` + c.Symbol + `\b`
		}
		out[c.Symbol] = regexp.MustCompile(pattern)
	}
	return out
}

// DetectSymbol finds the coin a chat message is about. Known coins match by
// ticker (whole word, any case; word tickers like LINK only in capitals) or
// by name; a $cashtag names any coin.
func DetectSymbol(text string) (string, bool) {
	lower := strings.ToLower(text)

	for _, c := range market.KnownCoins {
		if tickerPatterns[c.Symbol].MatchString(text) || strings.Contains(lower, c.Name) {
			return c.Symbol, true
		}
	}

	if m := cashtagPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1]), true
	}

	return "", false
}
