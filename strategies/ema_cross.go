package strategies

import (
	"fmt"

	"github.com/rustyeddy/swingtrader/indicators"
	"github.com/rustyeddy/swingtrader/market"
)

const EMACrossName = "ema_cross"

// EMACross signals when the fast EMA of closes crosses the slow one. A
// signal in the same direction as the previous one is suppressed.
type EMACross struct {
	Fast int
	Slow int
}

func NewEMACross(fast, slow int) (*EMACross, error) {
	if err := positive("fast", fast); err != nil {
		return nil, err
	}
	if err := positive("slow", slow); err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast (%d) must be shorter than slow (%d)", fast, slow)
	}
	return &EMACross{Fast: fast, Slow: slow}, nil
}

func NewEMACrossFromParams(p Params) (Strategy, error) {
	if err := p.check("fast", "slow"); err != nil {
		return nil, err
	}
	fast, err := p.Int("fast", 21)
	if err != nil {
		return nil, err
	}
	slow, err := p.Int("slow", 55)
	if err != nil {
		return nil, err
	}
	return NewEMACross(fast, slow)
}

func (s *EMACross) Name() string { return EMACrossName }

func (s *EMACross) Init([]market.Bar) State { return &lastSide{Side: market.Flat} }

func (s *EMACross) OnBar(history []market.Bar, st State) *market.Signal {
	if len(history) < s.Slow+2 {
		return nil
	}
	last := st.(*lastSide)

	closes := market.Closes(history)
	fast := indicators.EMASeries(closes, s.Fast)
	slow := indicators.EMASeries(closes, s.Slow)

	n := len(closes)
	crossUp := fast[n-2] < slow[n-2] && fast[n-1] > slow[n-1]
	crossDn := fast[n-2] > slow[n-2] && fast[n-1] < slow[n-1]

	switch {
	case crossUp && last.take(market.Buy):
		return signal(market.Buy, "EMA cross up", nil)
	case crossDn && last.take(market.Sell):
		return signal(market.Sell, "EMA cross down", nil)
	}
	return nil
}
