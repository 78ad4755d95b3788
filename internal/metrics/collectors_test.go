package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCollectorReportsCacheSize(t *testing.T) {
	c := NewStateCollector(func(context.Context) int { return 3 }, nil)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP cryptosys_context_cache_entries Analyses currently held in the context cache
# TYPE cryptosys_context_cache_entries gauge
cryptosys_context_cache_entries 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cryptosys_context_cache_entries"))
}

func TestStateCollectorWithoutSources(t *testing.T) {
	c := NewStateCollector(nil, nil)
	assert.Zero(t, testutil.CollectAndCount(c))
}
