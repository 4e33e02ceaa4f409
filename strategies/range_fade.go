package strategies

import (
	"fmt"

	"github.com/rustyeddy/swingtrader/indicators"
	"github.com/rustyeddy/swingtrader/market"
)

const RangeFadeName = "range_fade"

const minStdDev = 1e-9

// RangeFade fades closes that stretch more than Z standard deviations from
// the mean of the last Lookback closes.
type RangeFade struct {
	Lookback int
	Z        float64
}

func NewRangeFade(lookback int, z float64) (*RangeFade, error) {
	if err := positive("lookback", lookback); err != nil {
		return nil, err
	}
	if z <= 0 {
		return nil, fmt.Errorf("z must be > 0, got %v", z)
	}
	return &RangeFade{Lookback: lookback, Z: z}, nil
}

func NewRangeFadeFromParams(p Params) (Strategy, error) {
	if err := p.check("lookback", "z"); err != nil {
		return nil, err
	}
	lb, err := p.Int("lookback", 50)
	if err != nil {
		return nil, err
	}
	z, err := p.Float("z", 1.5)
	if err != nil {
		return nil, err
	}
	return NewRangeFade(lb, z)
}

func (s *RangeFade) Name() string { return RangeFadeName }

func (s *RangeFade) Init([]market.Bar) State { return nil }

func (s *RangeFade) OnBar(history []market.Bar, _ State) *market.Signal {
	if len(history) < s.Lookback+5 {
		return nil
	}

	window := market.Closes(history[len(history)-s.Lookback:])
	mean := indicators.Mean(window)
	std := indicators.StdDev(window)
	if std == 0 {
		std = minStdDev
	}

	px := history[len(history)-1].Close
	z := (px - mean) / std

	switch {
	case z > s.Z:
		return signal(market.Sell, fmt.Sprintf("z=%.2f", z), map[string]float64{"z": z})
	case z < -s.Z:
		return signal(market.Buy, fmt.Sprintf("z=%.2f", z), map[string]float64{"z": z})
	}
	return nil
}
