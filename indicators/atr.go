package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/swingtrader/market"
)

// ATR is a streaming Average True Range using Wilder smoothing
// (alpha = 1/period), seeded with the first bar's high-low range.
type ATR struct {
	period int
	alpha  float64

	count int
	atr   float64
	prev  market.Bar
}

// NewATR creates a new Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{
		period: period,
		alpha:  1.0 / float64(period),
	}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup needs period+1 bars because TR uses the previous close.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.count = 0
	a.atr = 0
	a.prev = market.Bar{}
}

func (a *ATR) Update(b market.Bar) {
	tr := b.High - b.Low
	if a.count > 0 {
		tr = trueRange(b, a.prev)
	}

	if a.count == 0 {
		a.atr = tr
	} else {
		a.atr = a.alpha*tr + (1.0-a.alpha)*a.atr
	}
	a.count++
	a.prev = b
}

func (a *ATR) Ready() bool { return a.count >= a.Warmup() }

func (a *ATR) Value() float64 { return a.atr }

// ATRSeries returns the ATR at every index of bars.
func ATRSeries(bars []market.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	a := NewATR(period)
	for i, b := range bars {
		a.Update(b)
		out[i] = a.Value()
	}
	return out
}

// LastATR computes the ATR over bars and returns the final value.
// ok is false when bars is empty.
func LastATR(bars []market.Bar, period int) (v float64, ok bool) {
	if len(bars) == 0 {
		return 0, false
	}
	a := NewATR(period)
	for _, b := range bars {
		a.Update(b)
	}
	return a.Value(), true
}

func trueRange(cur, prev market.Bar) float64 {
	highLow := cur.High - cur.Low
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
