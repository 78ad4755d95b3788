package sentiment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/domain/news"
	"cryptosys/internal/domain/social"
	"cryptosys/internal/domain/source"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/templates"
)

type fakeNews struct {
	articles []news.Article
	err      error
	limit    int
}

func (f *fakeNews) Search(_ context.Context, _ string, limit int) ([]news.Article, error) {
	f.limit = limit
	return f.articles, f.err
}

type fakeSocial struct {
	posts []social.Post
	err   error
	since time.Time
}

func (f *fakeSocial) Recent(_ context.Context, _ string, _ int, since time.Time) ([]social.Post, error) {
	f.since = since
	return f.posts, f.err
}

type fakeStore struct {
	remembered  []string
	rememberErr error
	similar     []string
	similarErr  error
}

func (f *fakeStore) Remember(_ context.Context, _ string, _ time.Time, texts []string) error {
	f.remembered = append(f.remembered, texts...)
	return f.rememberErr
}

func (f *fakeStore) Similar(context.Context, string, int) ([]string, error) {
	return f.similar, f.similarErr
}

type recordingLLM struct {
	prompts []string
	reply   string
	err     error
}

func (r *recordingLLM) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	r.prompts = append(r.prompts, req.Prompt)
	if r.err != nil {
		return nil, r.err
	}
	return &ai.Completion{Text: r.reply}, nil
}

func sampleArticles(n int) []news.Article {
	out := make([]news.Article, n)
	for i := range out {
		out[i] = news.Article{
			Title:      "Headline " + string(rune('A'+i)),
			SourceName: "CoinDesk",
			URL:        "https://www.coindesk.com/a",
		}
	}
	return out
}

var fixedNow = time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

func newSynth(n news.Provider, s social.Provider, store *fakeStore, llm ai.Completer) *Synthesizer {
	var synth *Synthesizer
	if store == nil {
		synth = NewSynthesizer(n, s, nil, llm, templates.Get(), DefaultConfig())
	} else {
		synth = NewSynthesizer(n, s, store, llm, templates.Get(), DefaultConfig())
	}
	synth.now = func() time.Time { return fixedNow }
	return synth
}

func TestAnalyzeBuildsPromptAndParsesScore(t *testing.T) {
	newsFake := &fakeNews{articles: sampleArticles(7)}
	socialFake := &fakeSocial{posts: []social.Post{{Text: "BTC breaking out", URL: "https://twitter.com/i/web/status/1"}}}
	store := &fakeStore{similar: []string{"Earlier: miners selling"}}
	llm := &recordingLLM{reply: "Bullish overall.\n[SENTIMENT_SCORE: 73%]"}

	res, err := newSynth(newsFake, socialFake, store, llm).Analyze(context.Background(), "BTC")
	require.NoError(t, err)

	assert.Equal(t, 20, newsFake.limit)
	assert.Equal(t, fixedNow.Add(-72*time.Hour), socialFake.since)
	assert.Len(t, store.remembered, 7)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "• Headline A (CoinDesk)")
	assert.Contains(t, prompt, "• Headline E (CoinDesk)")
	assert.NotContains(t, prompt, "Headline F", "only the top five headlines")
	assert.Contains(t, prompt, "BTC breaking out")
	assert.Contains(t, prompt, "Earlier: miners selling")

	assert.Equal(t, "Bullish overall.", res.Analysis)
	assert.Equal(t, 73, res.Score)
	require.Len(t, res.Sources, 8)
	assert.Equal(t, source.ReliabilityHigh, res.Sources[0].Reliability)
	assert.Equal(t, source.SocialLabel, res.Sources[7].Name)
	for _, s := range res.Sources {
		assert.NotEqual(t, "Earlier: miners selling", s.Content, "history is never a source")
	}
}

func TestAnalyzeDegradesOptionalInputs(t *testing.T) {
	store := &fakeStore{
		rememberErr: errors.ErrUnavailable,
		similarErr:  errors.ErrUnavailable,
	}
	socialFake := &fakeSocial{err: errors.ErrUnavailable}
	llm := &recordingLLM{reply: "No marker here"}

	res, err := newSynth(&fakeNews{articles: sampleArticles(2)}, socialFake, store, llm).Analyze(context.Background(), "ETH")
	require.NoError(t, err)

	assert.Equal(t, 50, res.Score)
	assert.Equal(t, "No marker here", res.Analysis)
	assert.Len(t, res.Sources, 2)
	assert.NotContains(t, llm.prompts[0], "Historical context")
}

func TestAnalyzeWithoutSocialOrStore(t *testing.T) {
	llm := &recordingLLM{reply: "[SENTIMENT_SCORE: 40%] Cautious."}

	res, err := newSynth(&fakeNews{}, nil, nil, llm).Analyze(context.Background(), "SOL")
	require.NoError(t, err)

	assert.Equal(t, 40, res.Score)
	assert.Empty(t, res.Sources)
	assert.Contains(t, llm.prompts[0], "No recent news found")
}

func TestAnalyzeNewsFailureIsFatal(t *testing.T) {
	llm := &recordingLLM{}
	_, err := newSynth(&fakeNews{err: errors.ErrUnavailable}, nil, nil, llm).Analyze(context.Background(), "BTC")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Empty(t, llm.prompts)
}

func TestAnalyzeLLMFailureIsFatal(t *testing.T) {
	llm := &recordingLLM{err: errors.ErrExternal}
	_, err := newSynth(&fakeNews{}, nil, nil, llm).Analyze(context.Background(), "BTC")
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestHeadlinesFallbacks(t *testing.T) {
	got := Headlines([]news.Article{{}}, 5)
	assert.Equal(t, []string{"• No title (Unknown source)"}, got)
}

func TestSourcesTruncatesPosts(t *testing.T) {
	recs := Sources(nil, []social.Post{{Text: strings.Repeat("x", 300)}})
	require.Len(t, recs, 1)
	assert.Equal(t, source.TypeSocialMedia, recs[0].Type)
	assert.Equal(t, 103, len(recs[0].Content))
}
