package risk

import "github.com/rustyeddy/swingtrader/market"

// PivotConfig controls how strict swing-pivot detection is.
type PivotConfig struct {
	Left        int `json:"left" yaml:"left"`
	Right       int `json:"right" yaml:"right"`
	MaxLookback int `json:"max_lookback" yaml:"max_lookback"`
}

// DefaultPivotConfig returns the 3/3/120 window used by the live engine.
func DefaultPivotConfig() PivotConfig {
	return PivotConfig{Left: 3, Right: 3, MaxLookback: 120}
}

// minPivotBars is the shortest history worth scanning.
const minPivotBars = 5

// NearestPivotLow returns the low of the most recent confirmed pivot low.
//
// The scan starts at the second-to-last bar because the last bar is still
// forming. Bar i is a pivot low when its low is <= every low in
// [i-Left, i+Right] and that window is complete. ok is false when nothing is
// found within MaxLookback bars.
func NearestPivotLow(bars []market.Bar, cfg PivotConfig) (price float64, ok bool) {
	return nearestPivot(bars, cfg, func(b market.Bar) float64 { return b.Low }, false)
}

// NearestPivotHigh is the mirror of NearestPivotLow using bar highs.
func NearestPivotHigh(bars []market.Bar, cfg PivotConfig) (price float64, ok bool) {
	return nearestPivot(bars, cfg, func(b market.Bar) float64 { return b.High }, true)
}

// NearestPivot returns a pivot low for BUY and a pivot high for SELL.
func NearestPivot(bars []market.Bar, side market.Side, cfg PivotConfig) (float64, bool) {
	switch side {
	case market.Buy:
		return NearestPivotLow(bars, cfg)
	case market.Sell:
		return NearestPivotHigh(bars, cfg)
	default:
		return 0, false
	}
}

func nearestPivot(bars []market.Bar, cfg PivotConfig, price func(market.Bar) float64, high bool) (float64, bool) {
	if len(bars) < minPivotBars {
		return 0, false
	}
	if cfg.Left < 0 || cfg.Right < 0 {
		return 0, false
	}

	last := len(bars) - 2
	start := last - cfg.MaxLookback
	if start < 1 {
		start = 1
	}

	for i := last; i >= start; i-- {
		if isPivot(bars, i, cfg.Left, cfg.Right, price, high) {
			return price(bars[i]), true
		}
	}
	return 0, false
}

func isPivot(bars []market.Bar, idx, left, right int, price func(market.Bar) float64, high bool) bool {
	lo := idx - left
	hi := idx + right
	if lo < 0 || hi >= len(bars) {
		// window clipped by available history
		return false
	}

	v := price(bars[idx])
	for j := lo; j <= hi; j++ {
		p := price(bars[j])
		if high && p > v {
			return false
		}
		if !high && p < v {
			return false
		}
	}
	return true
}
