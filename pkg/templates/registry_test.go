package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoadAndRender(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "prompts")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	tplPath := filepath.Join(dir, "greeting.tmpl")
	require.NoError(t, os.WriteFile(tplPath, []byte("  Hello {{.Name}}\n"), 0o644))

	reg, err := NewRegistry(base)
	require.NoError(t, err)

	tmpl, err := reg.GetTemplate("prompts/greeting")
	require.NoError(t, err)

	rendered, err := tmpl.Render(map[string]string{"Name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice", rendered)

	// parsed once; later edits on disk do not change a loaded template
	require.NoError(t, os.WriteFile(tplPath, []byte("Hi {{.Name}}"), 0o644))
	rendered, err = tmpl.Render(map[string]string{"Name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", rendered)
}

func TestRegistryLazyLoad(t *testing.T) {
	base := t.TempDir()
	reg, err := NewRegistry(base)
	require.NoError(t, err)

	path := filepath.Join(base, "notifications", "late.tmpl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Score {{.Score}}"), 0o644))

	rendered, err := reg.Render("notifications/late", map[string]int{"Score": 73})
	require.NoError(t, err)
	assert.Equal(t, "Score 73", rendered)
}

func TestRegistryMissingTemplate(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	require.NoError(t, err)

	_, err = reg.Render("prompts/nope", nil)
	assert.ErrorContains(t, err, "template not found")
}

func TestEmbeddedPromptsPresent(t *testing.T) {
	ids := Get().List()
	for _, id := range []string{
		PromptMarketData, PromptMarketAnalysis, PromptSentiment, PromptCombine,
		PromptFollowup, PromptFollowupTiming, PromptPredict, PromptStrategy,
		PromptPolicyImpact, NotificationAnalysisCompleted,
	} {
		assert.Contains(t, ids, id)
	}
}

func TestSentimentPromptAsksForScoreMarker(t *testing.T) {
	out, err := Get().Render(PromptSentiment, map[string]any{
		"Symbol":    "BTC",
		"Headlines": []string{"• ETF inflows hit record (Reuters)"},
		"Posts":     []string{"BTC to the moon"},
		"History":   nil,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "• ETF inflows hit record (Reuters)")
	assert.Contains(t, out, "BTC to the moon")
	assert.Contains(t, out, "[SENTIMENT_SCORE: NN%]")
	assert.NotContains(t, out, "Historical context")
}

func TestSentimentPromptWithoutNews(t *testing.T) {
	out, err := Get().Render(PromptSentiment, map[string]any{"Symbol": "XYZ"})
	require.NoError(t, err)
	assert.Contains(t, out, "No recent news found")
}

func TestNotificationEscapesAndTruncates(t *testing.T) {
	out, err := Get().Render(NotificationAnalysisCompleted, map[string]any{
		"Symbol":  "BTC",
		"Score":   73,
		"Arrow":   "↑",
		"Price":   "$61,800.25",
		"Summary": strings.Repeat("a", 600),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "*BTC*: sentiment 73% ↑"))
	assert.Contains(t, out, "$61,800\\.25")
	assert.Contains(t, out, strings.Repeat("a", 500)+"\\.\\.\\.")
	assert.NotContains(t, out, strings.Repeat("a", 501))
}
