package market

import (
	"regexp"
	"strings"

	"cryptosys/pkg/errors"
)

// Coin pairs a ticker with its common name. Word tickers are also ordinary
// English words and only count in free text when written in capitals.
type Coin struct {
	Symbol string
	Name   string
	Word   bool
}

// KnownCoins lists coins recognized by name in free text, in match priority order
var KnownCoins = []Coin{
	{Symbol: "BTC", Name: "bitcoin"},
	{Symbol: "ETH", Name: "ethereum"},
	{Symbol: "SOL", Name: "solana"},
	{Symbol: "ADA", Name: "cardano"},
	{Symbol: "XRP", Name: "ripple"},
	{Symbol: "DOT", Name: "polkadot", Word: true},
	{Symbol: "DOGE", Name: "dogecoin"},
	{Symbol: "LINK", Name: "chainlink", Word: true},
	{Symbol: "LTC", Name: "litecoin"},
	{Symbol: "AVAX", Name: "avalanche"},
	{Symbol: "MATIC", Name: "polygon"},
	{Symbol: "UNI", Name: "uniswap", Word: true},
	{Symbol: "SHIB", Name: "shiba"},
}

// CoinName returns the common name for a ticker, if known
func CoinName(symbol string) (string, bool) {
	for _, c := range KnownCoins {
		if c.Symbol == symbol {
			return c.Name, true
		}
	}
	return "", false
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// NormalizeSymbol upper-cases and validates a ticker
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		return "", errors.NewValidationError("symbol", "must be 1-10 letters or digits", raw)
	}
	return symbol, nil
}
