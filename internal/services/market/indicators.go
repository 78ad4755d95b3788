package market

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"cryptosys/internal/domain/market"
)

const (
	smaPeriod = 3
	rsiPeriod = 5
)

// Indicators summarizes a series in short human-readable lines.
// Indicators needing more bars than the series holds are omitted.
func Indicators(series *market.Series) []string {
	if series.Empty() {
		return nil
	}

	var out []string
	latest, _ := series.Latest()
	out = append(out, fmt.Sprintf("Latest close: %s on %s", FormatPrice(latest.Close), latest.Timestamp.Format(market.DateLayout)))

	if change, ok := series.ChangePercent(); ok {
		out = append(out, fmt.Sprintf("Change over window: %s%%", signed(change)))
	}

	high, low := series.Bars[0].High, series.Bars[0].Low
	volume := decimal.Zero
	for _, b := range series.Bars {
		high = decimal.Max(high, b.High)
		low = decimal.Min(low, b.Low)
		volume = volume.Add(b.Volume)
	}
	out = append(out, fmt.Sprintf("Window range: %s - %s", FormatPrice(low), FormatPrice(high)))

	avgVolume := volume.Div(decimal.NewFromInt(int64(len(series.Bars))))
	out = append(out, fmt.Sprintf("Average daily volume: %s", FormatVolume(avgVolume)))

	closes := series.Closes()
	if len(closes) >= smaPeriod {
		if sma, ok := lastValue(talib.Sma(closes, smaPeriod)); ok {
			out = append(out, fmt.Sprintf("SMA(%d): %s", smaPeriod, FormatPrice(decimal.NewFromFloat(sma))))
		}
	}
	if len(closes) > rsiPeriod {
		if rsi, ok := lastValue(talib.Rsi(closes, rsiPeriod)); ok {
			out = append(out, fmt.Sprintf("RSI(%d): %.2f (%s)", rsiPeriod, rsi, rsiSignal(rsi)))
		}
	}

	return out
}

func rsiSignal(rsi float64) string {
	switch {
	case rsi < 30:
		return "oversold"
	case rsi > 70:
		return "overbought"
	case rsi > 50:
		return "bullish"
	default:
		return "bearish"
	}
}

func lastValue(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatPrice renders a USD price with thousands separators. Sub-dollar
// prices keep more decimals so low-priced coins stay readable.
func FormatPrice(d decimal.Decimal) string {
	f := d.InexactFloat64()
	digits := 2
	if math.Abs(f) < 1 {
		digits = 8
	}
	return "$" + humanize.CommafWithDigits(f, digits)
}

// FormatVolume renders a volume with thousands separators and two decimals
func FormatVolume(d decimal.Decimal) string {
	return humanize.CommafWithDigits(d.InexactFloat64(), 2)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
