package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the day-resolution format used for window bounds
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV aggregate
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap"`
	Trades    int64           `json:"trades"`
}

// Series is the price history for a symbol over a trailing window.
// Bars are in ascending time order.
type Series struct {
	Symbol string `json:"symbol"`
	Ticker string `json:"ticker"`
	From   string `json:"from"`
	To     string `json:"to"`
	Bars   []Bar  `json:"bars"`
}

// Empty reports whether the provider returned no bars
func (s *Series) Empty() bool {
	return s == nil || len(s.Bars) == 0
}

// Latest returns the most recent bar
func (s *Series) Latest() (Bar, bool) {
	if s.Empty() {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns close prices as float64 in bar order
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close.InexactFloat64()
	}
	return closes
}

// ChangePercent is the close-to-close change across the window
func (s *Series) ChangePercent() (decimal.Decimal, bool) {
	if s == nil || len(s.Bars) < 2 {
		return decimal.Zero, false
	}
	first := s.Bars[0].Close
	if first.IsZero() {
		return decimal.Zero, false
	}
	last := s.Bars[len(s.Bars)-1].Close
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2), true
}
