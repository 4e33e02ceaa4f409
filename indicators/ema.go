package indicators

import (
	"fmt"

	"github.com/rustyeddy/swingtrader/market"
)

// EMA is a streaming exponential moving average over bar closes.
//
// It is seeded with the first close and uses alpha = 2/(span+1), which
// matches a non-adjusted span EWM.
type EMA struct {
	span  int
	alpha float64

	seen  int
	value float64
}

func NewEMA(span int) *EMA {
	if span <= 0 {
		panic("EMA span must be > 0")
	}
	return &EMA{
		span:  span,
		alpha: 2.0 / float64(span+1),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.span) }
func (e *EMA) Warmup() int  { return e.span }
func (e *EMA) Ready() bool  { return e.seen >= e.span }

// Value returns the current average. It is defined after the first update
// even before Ready.
func (e *EMA) Value() float64 { return e.value }

func (e *EMA) Reset() {
	e.seen = 0
	e.value = 0
}

func (e *EMA) Update(b market.Bar) { e.Add(b.Close) }

// Add feeds a raw value.
func (e *EMA) Add(x float64) {
	e.seen++
	if e.seen == 1 {
		e.value = x
		return
	}
	e.value = e.alpha*x + (1.0-e.alpha)*e.value
}

// EMASeries returns the EMA of xs at every index.
func EMASeries(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	e := NewEMA(span)
	for i, x := range xs {
		e.Add(x)
		out[i] = e.Value()
	}
	return out
}
