package source

import (
	"strings"
)

// Reliability is a coarse trust tag for a provenance entry
type Reliability string

const (
	ReliabilityHigh   Reliability = "High"
	ReliabilityMedium Reliability = "Medium"
	ReliabilityLow    Reliability = "Low"
)

// Record types
const (
	TypeNews           = "News"
	TypeSocialMedia    = "Social Media"
	TypeExchange       = "Exchange Analysis"
	TypeOnChain        = "On-chain Data"
	TypeQuote          = "Quote"
	TypeMarketData     = "Market Data"
	TypeNewsAggregator = "News Aggregator"
	TypeAnalysisEngine = "Analysis Engine"
)

// SocialLabel names records derived from social posts
const SocialLabel = "Twitter/X"

// dedupePrefix is the number of content runes that, with the name, identify a record
const dedupePrefix = 50

// Record is a provenance entry attached to an analysis
type Record struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Content     string      `json:"content"`
	URL         string      `json:"url,omitempty"`
	Reliability Reliability `json:"reliability"`
}

func (r Record) key() string {
	content := []rune(r.Content)
	if len(content) > dedupePrefix {
		content = content[:dedupePrefix]
	}
	return r.Name + "\x00" + string(content)
}

// Dedupe drops records whose (name, first 50 runes of content) was already seen.
// Order of first occurrence is kept.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

var (
	highReliability   = []string{"CoinDesk", "Binance Research", "Glassnode", "CryptoQuant", "Bloomberg", "CoinMetrics", "Chainalysis"}
	mediumReliability = []string{"Twitter", "Medium", "CoinTelegraph", "Decrypt", "BeInCrypto"}
	lowReliability    = []string{"Reddit", "Telegram", "Anonymous", "4chan"}
)

// ReliabilityOf rates a publisher by name. Unknown publishers are Medium.
func ReliabilityOf(name string) Reliability {
	switch {
	case name == "":
		return ReliabilityMedium
	case containsAny(name, highReliability):
		return ReliabilityHigh
	case containsAny(name, mediumReliability):
		return ReliabilityMedium
	case containsAny(name, lowReliability):
		return ReliabilityLow
	}
	return ReliabilityMedium
}

// TypeOf classifies a source by its URL host hints
func TypeOf(url string) string {
	switch {
	case url == "":
		return TypeNews
	case containsAny(url, []string{"coindesk", "cointelegraph", "bitcoin.com"}):
		return TypeNews
	case containsAny(url, []string{"binance", "kraken", "coinbase"}):
		return TypeExchange
	case containsAny(url, []string{"twitter", "reddit", "medium"}):
		return TypeSocialMedia
	case containsAny(url, []string{"glassnode", "cryptoquant", "blockchair"}):
		return TypeOnChain
	}
	return TypeNews
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
