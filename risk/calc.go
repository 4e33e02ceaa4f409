package risk

import "math"

// PlannedRisk is the cash lost if the stop is hit.
func PlannedRisk(qty, entry, stop float64) float64 {
	return math.Abs(qty) * math.Abs(entry-stop)
}

// RR is the reward/risk ratio of a planned trade, 0 when risk is zero.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is plannedRisk as a fraction of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
