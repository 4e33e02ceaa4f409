package strategies

import (
	"github.com/rustyeddy/swingtrader/indicators"
	"github.com/rustyeddy/swingtrader/market"
)

const OCOBreakoutName = "oco_breakout"

// OCOBreakout buys a close above the highest high of the previous Lookback
// bars and sells a close below the lowest low. The two sides are one
// cancels other: at most one fires per bar.
type OCOBreakout struct {
	Lookback int
}

func NewOCOBreakout(lookback int) (*OCOBreakout, error) {
	if err := positive("lookback", lookback); err != nil {
		return nil, err
	}
	return &OCOBreakout{Lookback: lookback}, nil
}

func NewOCOBreakoutFromParams(p Params) (Strategy, error) {
	if err := p.check("lookback"); err != nil {
		return nil, err
	}
	lb, err := p.Int("lookback", 30)
	if err != nil {
		return nil, err
	}
	return NewOCOBreakout(lb)
}

func (s *OCOBreakout) Name() string { return OCOBreakoutName }

func (s *OCOBreakout) Init([]market.Bar) State { return nil }

func (s *OCOBreakout) OnBar(history []market.Bar, _ State) *market.Signal {
	n := len(history)
	if n < s.Lookback+1 {
		return nil
	}

	// channel excludes the current bar, whose own high always covers its close
	prior := history[n-1-s.Lookback : n-1]
	hi := indicators.Max(market.Highs(prior))
	lo := indicators.Min(market.Lows(prior))
	px := history[n-1].Close

	switch {
	case px > hi:
		return signal(market.Buy, "breakout_up", map[string]float64{"channel_high": hi})
	case px < lo:
		return signal(market.Sell, "breakout_dn", map[string]float64{"channel_low": lo})
	}
	return nil
}
