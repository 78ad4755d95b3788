package sentiment

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"cryptosys/internal/domain/analysis"
)

var scoreMarker = regexp.MustCompile(`(?i)\[SENTIMENT_SCORE:\s*(-?\d+(?:\.\d+)?)\s*%?\s*\]`)

// ParseScore extracts the [SENTIMENT_SCORE: NN%] marker. When found, the
// marker is removed from the returned text and the score is rounded and
// clamped to [0,100]. Otherwise text is returned unchanged with NeutralScore.
func ParseScore(text string) (clean string, score int, found bool) {
	m := scoreMarker.FindStringSubmatchIndex(text)
	if m == nil {
		return text, analysis.NeutralScore, false
	}

	value, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return text, analysis.NeutralScore, false
	}

	clean = strings.TrimSpace(scoreMarker.ReplaceAllString(text, ""))
	value = math.Max(analysis.MinScore, math.Min(analysis.MaxScore, value))
	return clean, int(math.Round(value)), true
}
