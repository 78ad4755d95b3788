package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cryptosys/internal/domain/source"
)

// minQuoteLength filters out short quoted fragments such as single words
const minQuoteLength = 20

type mentionPattern struct {
	re   *regexp.Regexp
	kind string
}

var mentionPatterns = []mentionPattern{
	{regexp.MustCompile(`(?i)according to ([^,.\n]{3,50})`), "Analysis Mention"},
	{regexp.MustCompile(`(?i)reported by ([^,.\n]{3,50})`), "News Report"},
	{regexp.MustCompile(`(?i)\bfrom ([^,.\n]{3,50})`), "Source"},
	{regexp.MustCompile(`(?i)([^,.\n]{3,50}) (?:reports|reported|states|stated)\b`), "Report"},
	{regexp.MustCompile(`(?i)data from ([^,.\n]{3,50})`), "Data Source"},
	{regexp.MustCompile(`(?i)([^,.\n]{3,40}) analytics`), "Analytics"},
	{regexp.MustCompile(`(?i)\bon ([^,.\n]*?(?:twitter|\bx\b))`), "Social Media"},
	{regexp.MustCompile(`(?i)tweet from ([^,.\n]+)`), "Tweet"},
	{regexp.MustCompile(`(?i)article by ([^,.\n]+)`), "Article"},
}

var quotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]*)"`),
	regexp.MustCompile(`'([^']*)'`),
	regexp.MustCompile(`“([^”]*)”`),
}

// Sources finds source mentions and long quotations in analysis texts.
// Overlapping matches are all kept; callers dedupe with source.Dedupe.
func Sources(texts ...string) []source.Record {
	combined := strings.Join(texts, "\n")
	var records []source.Record

	for _, p := range mentionPatterns {
		for _, m := range p.re.FindAllStringSubmatch(combined, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			records = append(records, source.Record{
				Name:        name,
				Type:        p.kind,
				Content:     FindContext(combined, name, ContextWindow),
				Reliability: source.ReliabilityMedium,
			})
		}
	}

	for _, p := range quotePatterns {
		for _, m := range p.FindAllStringSubmatch(combined, -1) {
			quote := m[1]
			if utf8.RuneCountInString(quote) <= minQuoteLength {
				continue
			}

			name := Attribution(FindContext(combined, quote, ContextWindow), quote)
			if name == "" {
				name = "Quoted Content"
			}
			records = append(records, source.Record{
				Name:        name,
				Type:        source.TypeQuote,
				Content:     quote,
				Reliability: source.ReliabilityMedium,
			})
		}
	}

	return records
}

var asPerPattern = regexp.MustCompile(`(?i)\bas(?: per)?\s+([^,.\n]{3,40}?)\s*,`)

// Attribution looks for who said quote within its surrounding context
func Attribution(context, quote string) string {
	q := regexp.QuoteMeta(quote)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + q + `["'”]?\s*,?\s*(?:said|according to|noted by|by|from)\s+([^,.\n]{3,40})`),
		regexp.MustCompile(`(?i)` + q + `["'”]?\s*,?\s*([^,.\n]{3,40}?)\s+(?:said|reported|noted|stated)`),
		asPerPattern,
	}

	for _, re := range patterns {
		if m := re.FindStringSubmatch(context); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

// Provenance lists the data providers behind every analysis
func Provenance() []source.Record {
	return []source.Record{
		{
			Name:        "Polygon.io",
			Type:        source.TypeMarketData,
			Content:     "Price and volume data from Polygon API",
			URL:         "https://polygon.io/",
			Reliability: source.ReliabilityHigh,
		},
		{
			Name:        "News API",
			Type:        source.TypeNewsAggregator,
			Content:     "Recent news articles from various publishers",
			URL:         "https://newsapi.org/",
			Reliability: source.ReliabilityMedium,
		},
		{
			Name:        "OpenAI API",
			Type:        source.TypeAnalysisEngine,
			Content:     "Analysis of market data and sentiment",
			URL:         "https://openai.com/",
			Reliability: source.ReliabilityMedium,
		},
	}
}
