package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/swingtrader/market"
)

const (
	// pivotBufferPct pads a pivot stop when no volatility estimate is given.
	pivotBufferPct = 0.0015
	// fallbackVolPct is the stop distance used when there is neither a pivot
	// nor a volatility estimate.
	fallbackVolPct = 0.002
	// epsilon keeps a pivot stop strictly on the losing side of entry.
	epsilon = 1e-9

	DefaultRewardRatio = 2.0
)

// Levels are the protective prices for a new trade.
type Levels struct {
	Stop   float64
	Target float64
	Pivot  *float64 // pivot the stop was anchored to, nil for a volatility stop
}

// Distance is |entry - stop|.
func (l Levels) Distance(entry float64) float64 { return math.Abs(entry - l.Stop) }

// Manager places stop-loss and take-profit levels.
type Manager struct {
	RewardRatio float64
	Pivots      PivotConfig
}

// NewManager returns a manager with the default reward ratio and pivot window.
func NewManager() *Manager {
	return &Manager{RewardRatio: DefaultRewardRatio, Pivots: DefaultPivotConfig()}
}

// StopTarget anchors the stop just beyond the nearest swing pivot and puts the
// target RewardRatio stop-distances past entry. Without a pivot it falls back
// to a pure volatility stop. vol may be nil; non-positive values count as
// absent.
func (m *Manager) StopTarget(bars []market.Bar, side market.Side, entry float64, vol *float64) (Levels, error) {
	if !side.Tradeable() {
		return Levels{}, fmt.Errorf("stop target: side %q is not tradeable", side)
	}
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return Levels{}, fmt.Errorf("stop target: bad entry price %v", entry)
	}

	rr := m.RewardRatio
	if rr <= 0 {
		rr = DefaultRewardRatio
	}

	var v float64
	haveVol := vol != nil && *vol > 0 && !math.IsNaN(*vol)
	if haveVol {
		v = *vol
	}

	if pivot, ok := NearestPivot(bars, side, m.Pivots); ok {
		buffer := entry * pivotBufferPct
		if haveVol {
			buffer = v
		}

		var stop, target float64
		if side == market.Buy {
			stop = math.Min(entry-epsilon, pivot-buffer)
			target = entry + rr*math.Abs(entry-stop)
		} else {
			stop = math.Max(entry+epsilon, pivot+buffer)
			target = entry - rr*math.Abs(entry-stop)
		}
		return Levels{Stop: stop, Target: target, Pivot: &pivot}, nil
	}

	return VolatilityLevels(side, entry, v, rr), nil
}

// VolatilityLevels places the stop span away from entry and the target rr
// spans the other way. A non-positive span falls back to 0.2% of entry.
func VolatilityLevels(side market.Side, entry, span, rr float64) Levels {
	if span <= 0 || math.IsNaN(span) {
		span = entry * fallbackVolPct
	}
	if side == market.Buy {
		return Levels{Stop: entry - span, Target: entry + rr*span}
	}
	return Levels{Stop: entry + span, Target: entry - rr*span}
}
