package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// Sizer turns account equity and a stop distance into a quantity.
type Sizer interface {
	Qty(equity, entry, stop float64) float64
}

// QtyPrecision is the number of decimals quantities are rounded to.
const QtyPrecision = 2

// FixedFractionSizer risks a fixed percentage of equity per trade.
// RiskPerTradePct is in percent: 0.5 means 0.5% of equity.
type FixedFractionSizer struct {
	RiskPerTradePct float64
}

func NewFixedFractionSizer(riskPerTradePct float64) *FixedFractionSizer {
	return &FixedFractionSizer{RiskPerTradePct: riskPerTradePct}
}

// Qty returns riskAmount / |entry - stop| rounded to QtyPrecision decimals.
// Zero means "skip this trade" and is not an error.
func (s *FixedFractionSizer) Qty(equity, entry, stop float64) float64 {
	perUnit := math.Abs(entry - stop)
	if perUnit <= 0 || math.IsNaN(perUnit) || math.IsInf(perUnit, 0) {
		return 0
	}

	riskAmt := RiskAmount(equity, s.RiskPerTradePct)
	if riskAmt <= 0 {
		return 0
	}

	q := decimal.NewFromFloat(riskAmt / perUnit).Round(QtyPrecision).InexactFloat64()
	return math.Max(0, q)
}

// RiskAmount is equity × pct/100.
func RiskAmount(equity, pct float64) float64 {
	return equity * (pct / 100.0)
}
