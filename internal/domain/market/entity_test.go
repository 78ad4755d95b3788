package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func bar(close string) Bar {
	return Bar{Close: decimal.RequireFromString(close)}
}

func TestSeriesChangePercent(t *testing.T) {
	s := &Series{Bars: []Bar{bar("100"), bar("105"), bar("110.5")}}

	change, ok := s.ChangePercent()
	assert.True(t, ok)
	assert.Equal(t, "10.5", change.String())

	latest, ok := s.Latest()
	assert.True(t, ok)
	assert.Equal(t, "110.5", latest.Close.String())
	assert.Equal(t, []float64{100, 105, 110.5}, s.Closes())
}

func TestSeriesEmpty(t *testing.T) {
	var s *Series
	assert.True(t, s.Empty())
	_, ok := s.Latest()
	assert.False(t, ok)
	_, ok = (&Series{Bars: []Bar{bar("1")}}).ChangePercent()
	assert.False(t, ok)
}
