package history

import (
	"fmt"
	"strings"

	"cryptosys/internal/domain/news"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
)

// Chunk splits text into windows of at most size runes, each starting
// size-overlap runes after the previous one. Blank windows are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// FormatArticles renders each article as a TITLE/DESCRIPTION/CONTENT block
func FormatArticles(articles []news.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, fmt.Sprintf("TITLE: %s\nDESCRIPTION: %s\nCONTENT: %s", a.Title, a.Description, a.Content))
	}
	return out
}

// RecallQuery is the similarity query used to pull earlier coverage of symbol
func RecallQuery(symbol string) string {
	return symbol + " cryptocurrency market sentiment"
}
