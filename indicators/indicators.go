// Package indicators provides streaming and batch technical indicators over
// market bars.
package indicators

import "github.com/rustyeddy/swingtrader/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	Value() float64
}

var (
	_ Indicator = (*EMA)(nil)
	_ Indicator = (*ATR)(nil)
)
