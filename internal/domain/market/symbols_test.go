package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/pkg/errors"
)

func TestNormalizeSymbol(t *testing.T) {
	symbol, err := NormalizeSymbol("  btc ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", symbol)

	for _, bad := range []string{"", "BTC/USD", "waytoolongsymbol", "$ETH"} {
		_, err := NormalizeSymbol(bad)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput), bad)
	}
}

func TestCoinName(t *testing.T) {
	name, ok := CoinName("SOL")
	assert.True(t, ok)
	assert.Equal(t, "solana", name)

	_, ok = CoinName("PEPE")
	assert.False(t, ok)
}
