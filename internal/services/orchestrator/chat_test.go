package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/pkg/errors"
)

func TestChatWithoutSymbol(t *testing.T) {
	f := newFixture()
	session := &Session{}

	reply, err := f.orch.Chat(context.Background(), session, "what do you think?")
	require.NoError(t, err)

	assert.Equal(t, UnknownSymbolResponse, reply.Response)
	assert.Empty(t, session.Symbol)
	assert.Zero(t, reply.SourcesCount)
}

func TestChatDetectsSymbolThenFollowsUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := &Session{}

	reply, err := f.orch.Chat(ctx, session, "Tell me about Solana")
	require.NoError(t, err)
	assert.Equal(t, "SOL", reply.Symbol)
	assert.Equal(t, "SOL", session.Symbol)
	assert.Equal(t, "followup answer"+Disclaimer, reply.Response)

	reply, err = f.orch.Chat(ctx, session, "and the outlook for next month?")
	require.NoError(t, err)
	assert.Equal(t, "SOL", reply.Symbol)
	assert.Equal(t, "followup answer"+Disclaimer, reply.Response)
	assert.EqualValues(t, 1, f.analyst.analyzeCalls.Load())
	assert.Len(t, f.llm.calls(OperationFollowup), 2)
}

func TestChatRoutesByIntent(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		operation string
		response  string
	}{
		{"analyze prefix", "Analyze BTC", OperationCombine, "combine answer"},
		{"bare ticker", "eth?", OperationCombine, "combine answer"},
		{"leading coin name", "Bitcoin outlook", OperationCombine, "combine answer"},
		{"timing", "When should I sell my BTC?", OperationStrategy, "strategy answer"},
		{"strategy", "best strategy for ETH over 3 months", OperationStrategy, "strategy answer"},
		{"forecast", "Can you forecast SOL?", OperationStrategy, "strategy answer"},
		{"predict", "predict BTC next week", OperationStrategy, "strategy answer"},
		{"regulation", "How will SEC regulation hit ETH?", OperationPolicyImpact, "policy_impact answer"},
		{"policy", "BTC and the new tax policy", OperationPolicyImpact, "policy_impact answer"},
		{"followup", "Why is BTC moving today?", OperationFollowup, "followup answer" + Disclaimer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			reply, err := f.orch.Chat(context.Background(), &Session{}, tt.message)
			require.NoError(t, err)

			assert.Equal(t, tt.response, reply.Response)
			assert.Len(t, f.llm.calls(tt.operation), 1)
			assert.Len(t, f.llm.calls(OperationCombine), 1, "a named coin warms the cached analysis")
		})
	}
}

func TestChatQuestionAfterAnalysisIsNotCachedAnswer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := &Session{}

	reply, err := f.orch.Chat(ctx, session, "Analyze BTC")
	require.NoError(t, err)
	assert.Equal(t, "combine answer", reply.Response)

	reply, err = f.orch.Chat(ctx, session, "When should I sell my BTC?")
	require.NoError(t, err)
	assert.Equal(t, "BTC", reply.Symbol)
	assert.Equal(t, "strategy answer", reply.Response)
	assert.Len(t, f.llm.calls(OperationStrategy), 1)

	reply, err = f.orch.Chat(ctx, session, "What is driving BTC volume?")
	require.NoError(t, err)
	assert.Equal(t, "followup answer"+Disclaimer, reply.Response)
	assert.Len(t, f.llm.calls(OperationCombine), 1)
}

func TestChatSessionSymbolRoutesWithoutNamingCoin(t *testing.T) {
	f := newFixture()
	session := &Session{Symbol: "ETH"}

	reply, err := f.orch.Chat(context.Background(), session, "what about the new regulation?")
	require.NoError(t, err)
	assert.Equal(t, "ETH", reply.Symbol)
	assert.Equal(t, "policy_impact answer", reply.Response)
}

func TestChatAnalysisFailure(t *testing.T) {
	f := newFixture()
	f.analyst.err = errProviderDown

	_, err := f.orch.Chat(context.Background(), &Session{}, "analyze BTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}

func TestChatSessionSymbolWithoutContext(t *testing.T) {
	f := newFixture()
	session := &Session{Symbol: "ADA"}

	reply, err := f.orch.Chat(context.Background(), session, "any news?")
	require.NoError(t, err)
	assert.Contains(t, reply.Response, "I don't have any analysis data for ADA")
	assert.Empty(t, f.llm.calls(OperationFollowup))
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Chat(context.Background(), &Session{}, "   ")
	require.Error(t, err)
}
