package strategies

import (
	"fmt"

	"github.com/rustyeddy/swingtrader/indicators"
	"github.com/rustyeddy/swingtrader/market"
)

const TurtleDennisName = "turtle_dennis"

// TurtleDennis is a System 2 style Donchian breakout. Entry fires on a close
// beyond the EntryChannel high/low of the preceding bars. ExitChannel is
// informational; exits come from the engine's stop and target. The signal
// carries the ATR so the engine can size the stop.
type TurtleDennis struct {
	EntryChannel int
	ExitChannel  int
	ATRPeriod    int
	ATRMult      float64
}

func NewTurtleDennis(entry, exit, atrPeriod int, atrMult float64) (*TurtleDennis, error) {
	for name, v := range map[string]int{"entry_channel": entry, "exit_channel": exit, "atr_period": atrPeriod} {
		if err := positive(name, v); err != nil {
			return nil, err
		}
	}
	if atrMult <= 0 {
		return nil, fmt.Errorf("atr_mult must be > 0, got %v", atrMult)
	}
	return &TurtleDennis{EntryChannel: entry, ExitChannel: exit, ATRPeriod: atrPeriod, ATRMult: atrMult}, nil
}

func NewTurtleDennisFromParams(p Params) (Strategy, error) {
	if err := p.check("entry_channel", "exit_channel", "atr_period", "atr_mult"); err != nil {
		return nil, err
	}
	entry, err := p.Int("entry_channel", 55)
	if err != nil {
		return nil, err
	}
	exit, err := p.Int("exit_channel", 20)
	if err != nil {
		return nil, err
	}
	period, err := p.Int("atr_period", 20)
	if err != nil {
		return nil, err
	}
	mult, err := p.Float("atr_mult", 2.0)
	if err != nil {
		return nil, err
	}
	return NewTurtleDennis(entry, exit, period, mult)
}

func (s *TurtleDennis) Name() string { return TurtleDennisName }

func (s *TurtleDennis) Init([]market.Bar) State { return &lastSide{Side: market.Flat} }

func (s *TurtleDennis) OnBar(history []market.Bar, st State) *market.Signal {
	n := len(history)
	if n < max(s.EntryChannel, s.ATRPeriod)+2 {
		return nil
	}
	last := st.(*lastSide)

	prior := history[n-1-s.EntryChannel : n-1]
	hi := indicators.Max(market.Highs(prior))
	lo := indicators.Min(market.Lows(prior))
	c := history[n-1].Close

	atr, _ := indicators.LastATR(history, s.ATRPeriod)

	switch {
	case c > hi && last.take(market.Buy):
		return signal(market.Buy, fmt.Sprintf("breakout_up N=%d", s.EntryChannel), map[string]float64{
			"atr": atr, "sl": c - s.ATRMult*atr, "atr_mult": s.ATRMult,
		})
	case c < lo && last.take(market.Sell):
		return signal(market.Sell, fmt.Sprintf("breakout_dn N=%d", s.EntryChannel), map[string]float64{
			"atr": atr, "sl": c + s.ATRMult*atr, "atr_mult": s.ATRMult,
		})
	}
	return nil
}
