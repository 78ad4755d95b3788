package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"cryptosys/internal/domain/analysis"
)

// overallPrefix is how much of the analysis is scanned for the headline sentiment
const overallPrefix = 200

type indicator struct {
	phrase string
	value  int
}

var indicators = []indicator{
	{"highly bullish", 90},
	{"bullish", 75},
	{"positive", 70},
	{"neutral", 50},
	{"mixed", 50},
	{"negative", 30},
	{"bearish", 25},
	{"highly bearish", 10},
}

// Categories of the sentiment breakdown, in display order
var Categories = []string{
	"Social Media",
	"News Articles",
	"Trading Volume",
	"Market Volatility",
	"Institutional Interest",
}

var mentionStatements = []*regexp.Regexp{
	regexp.MustCompile(`(social media|twitter|reddit)\s+(?:sentiment|reaction)\s+(?:is|has been|appears)\s+([a-z]+)`),
	regexp.MustCompile(`(news articles|publications|press)\s+(?:are|have been|appear)\s+([a-z]+)`),
	regexp.MustCompile(`(trading volume|market volume)\s+(?:is|has been|appears)\s+([a-z]+)`),
	regexp.MustCompile(`(market volatility|price volatility)\s+(?:is|has been|appears)\s+([a-z]+)`),
	regexp.MustCompile(`(institutional interest|institutional investors)\s+(?:are|have been|appear)\s+([a-z]+)`),
	regexp.MustCompile(`sentiment (?:around|regarding|concerning)\s+([^.,]+?)\s+(?:is|has been|appears)\s+([a-z]+)`),
}

// Metrics derives a structured sentiment breakdown from analysis text.
// The headline value comes from the earliest indicator phrase in the first
// 200 characters ("highly bullish" beats "bullish" at the same spot).
// Categories without an explicit statement inherit the headline value.
func Metrics(text string) analysis.Metrics {
	lower := strings.ToLower(text)

	overall, description := analysis.NeutralScore, "Neutral"
	if ind, ok := headline(lower); ok {
		overall, description = ind.value, titleWords(ind.phrase)
	}

	mentions := make([]analysis.Mention, 0)
	for _, re := range mentionStatements {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			src := strings.TrimSpace(m[1])
			word := strings.TrimSpace(m[2])
			mentions = append(mentions, analysis.Mention{
				Source:    titleWords(src),
				Sentiment: word,
				Value:     wordValue(word),
				Context:   FindContext(text, src, ContextWindow),
			})
		}
	}

	values := make(map[string]int, len(Categories))
	for _, m := range mentions {
		src := strings.ToLower(m.Source)
		for _, c := range Categories {
			if strings.Contains(src, strings.ToLower(c)) {
				values[c] = m.Value
				break
			}
		}
	}

	data := make([]analysis.CategoryScore, 0, len(Categories))
	for _, c := range Categories {
		v, ok := values[c]
		if !ok {
			v = overall
		}
		data = append(data, analysis.CategoryScore{
			Category: c,
			Value:    v,
			Trend:    analysis.TrendOf(v),
		})
	}

	return analysis.Metrics{
		Overall:     overall,
		Description: description,
		Data:        data,
		Mentions:    mentions,
	}
}

func headline(lower string) (indicator, bool) {
	prefix := []rune(lower)
	if len(prefix) > overallPrefix {
		prefix = prefix[:overallPrefix]
	}
	head := string(prefix)

	best, bestPos := indicator{}, -1
	for _, ind := range indicators {
		pos := strings.Index(head, ind.phrase)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(ind.phrase) > len(best.phrase)) {
			best, bestPos = ind, pos
		}
	}
	return best, bestPos >= 0
}

// wordValue maps a one-word sentiment to a score: exact indicator match
// first, then the first indicator overlapping the word, else neutral.
func wordValue(word string) int {
	for _, ind := range indicators {
		if ind.phrase == word {
			return ind.value
		}
	}
	for _, ind := range indicators {
		if strings.Contains(word, ind.phrase) || strings.Contains(ind.phrase, word) {
			return ind.value
		}
	}
	return analysis.NeutralScore
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
