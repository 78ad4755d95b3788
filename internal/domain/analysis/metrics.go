package analysis

// Trend arrows for category scores
const (
	TrendUp   = "↑"
	TrendFlat = "→"
	TrendDown = "↓"
)

// TrendOf maps a 0-100 value to an arrow: up above 60, down below 40
func TrendOf(value int) string {
	switch {
	case value > 60:
		return TrendUp
	case value < 40:
		return TrendDown
	default:
		return TrendFlat
	}
}

// CategoryScore is one bar of the sentiment breakdown
type CategoryScore struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
	Trend    string `json:"trend"`
}

// Mention is a sentence-level sentiment statement found in analysis text
type Mention struct {
	Source    string `json:"source"`
	Sentiment string `json:"sentiment"`
	Value     int    `json:"value"`
	Context   string `json:"context"`
}

// Metrics is the structured sentiment breakdown derived from analysis text
type Metrics struct {
	Overall     int             `json:"overall"`
	Description string          `json:"description"`
	Data        []CategoryScore `json:"data"`
	Mentions    []Mention       `json:"mentions"`
}
