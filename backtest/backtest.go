// Package backtest replays strategies over a bar series with a simple cash
// ledger: one position at a time, market fills at the bar close and
// volatility stops evaluated on each bar's range.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/swingtrader/indicators"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/strategies"
)

// periodsPerYear annualises per-bar returns for minute bars.
var periodsPerYear = 252.0 * 24 * 60

type Config struct {
	StartingCash    float64 `yaml:"starting_cash" json:"starting_cash"`
	FeeBps          float64 `yaml:"fee_bps" json:"fee_bps"`
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct" json:"risk_per_trade_pct"`
	RewardRatio     float64 `yaml:"reward_ratio" json:"reward_ratio"`
	ATRPeriod       int     `yaml:"atr_period" json:"atr_period"`
}

func DefaultConfig() Config {
	return Config{
		StartingCash:    10_000,
		FeeBps:          1,
		RiskPerTradePct: 0.5,
		RewardRatio:     risk.DefaultRewardRatio,
		ATRPeriod:       14,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StartingCash <= 0 {
		c.StartingCash = d.StartingCash
	}
	if c.FeeBps < 0 {
		c.FeeBps = 0
	}
	if c.RiskPerTradePct <= 0 {
		c.RiskPerTradePct = d.RiskPerTradePct
	}
	if c.RewardRatio <= 0 {
		c.RewardRatio = d.RewardRatio
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	return c
}

// Result is the outcome of one (symbol, strategy) run. The headline numbers
// are rounded: money and percentages to 2 places, SharpeLike to 3.
type Result struct {
	Symbol    string
	Timeframe string
	Strategy  string

	FinalEquity float64
	Trades      int
	WinRatePct  float64
	MaxDrawdown float64
	SharpeLike  float64

	Start time.Time
	End   time.Time

	Equity   []journal.EquitySnapshot
	TradeLog []journal.TradeRecord
}

type position struct {
	side  market.Side
	qty   float64 // signed
	entry float64
	stop  float64
	take  float64
}

// Run backtests strat over bars. The equity point for a bar is marked at its
// close before any exit on that bar. A bar that closes a trade through its
// stop or target is not shown to the strategy. An opposite (or repeated)
// signal while in a position closes it at the bar close and opens the new
// one. Whatever is still open at the end is marked out at the last close.
func Run(symbol, timeframe string, bars []market.Bar, strat strategies.Strategy, cfg Config) (Result, error) {
	if strat == nil {
		return Result{}, errors.New("backtest: nil strategy")
	}
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("backtest %s: no bars", symbol)
	}
	cfg = cfg.withDefaults()

	sizer := risk.NewFixedFractionSizer(cfg.RiskPerTradePct)
	atr := indicators.ATRSeries(bars, cfg.ATRPeriod)
	state := strat.Init(nil)

	res := Result{
		Symbol:    symbol,
		Timeframe: timeframe,
		Strategy:  strat.Name(),
		Start:     bars[0].Timestamp(),
		End:       bars[len(bars)-1].Timestamp(),
		Equity:    make([]journal.EquitySnapshot, 0, len(bars)),
	}

	cash := cfg.StartingCash
	var pos *position

	closeAt := func(b market.Bar, exit float64) {
		cash += pos.qty * exit
		t := &res.TradeLog[len(res.TradeLog)-1]
		t.CloseTime = b.Timestamp()
		t.ExitPrice = exit
		t.RealizedPL = (exit - pos.entry) * pos.qty
		pos = nil
	}

	for i, b := range bars {
		px := b.Close
		mtm := cash
		if pos != nil {
			mtm += pos.qty * px
		}
		res.Equity = append(res.Equity, journal.EquitySnapshot{Time: b.Timestamp(), Symbol: symbol, Cash: cash, Equity: mtm})

		if pos != nil {
			hitStop, hitTake := touched(pos, b)
			if hitStop || hitTake {
				exit := pos.take
				if hitStop {
					exit = pos.stop
				}
				closeAt(b, exit)
				continue
			}
		}

		sig := strat.OnBar(bars[:i+1], state)
		if sig == nil || !sig.Side.Tradeable() {
			continue
		}
		if pos != nil {
			closeAt(b, px)
		}

		span := atr[i]
		if math.IsNaN(span) {
			span = 0
		}
		lv := risk.VolatilityLevels(sig.Side, px, span, cfg.RewardRatio)
		qty := sizer.Qty(cash, px, lv.Stop)
		if qty <= 0 {
			continue
		}

		cash -= math.Abs(qty*px) * cfg.FeeBps / 1e4
		signed := qty * sig.Side.Sign()
		cash -= signed * px
		pos = &position{side: sig.Side, qty: signed, entry: px, stop: lv.Stop, take: lv.Target}

		res.TradeLog = append(res.TradeLog, journal.TradeRecord{
			TradeID:    strconv.Itoa(len(res.TradeLog) + 1),
			Symbol:     symbol,
			Strategy:   res.Strategy,
			Side:       string(sig.Side),
			Qty:        qty,
			EntryPrice: px,
			StopLoss:   lv.Stop,
			TakeProfit: lv.Target,
			OpenTime:   b.Timestamp(),
			Reason:     sig.Reason,
		})
	}

	if pos != nil {
		closeAt(bars[len(bars)-1], bars[len(bars)-1].Close)
	}

	wins := 0
	for _, t := range res.TradeLog {
		if t.RealizedPL > 0 {
			wins++
		}
	}
	res.Trades = len(res.TradeLog)
	if res.Trades > 0 {
		res.WinRatePct = round(float64(wins)/float64(res.Trades)*100, 2)
	}

	curve := make([]float64, len(res.Equity))
	for i, e := range res.Equity {
		curve[i] = e.Equity
	}
	res.FinalEquity = round(cash, 2)
	res.MaxDrawdown = round(MaxDrawdown(curve), 2)
	res.SharpeLike = round(SharpeLike(curve), 3)

	return res, nil
}

func touched(p *position, b market.Bar) (stop, take bool) {
	if p.side == market.Buy {
		return b.Low <= p.stop, b.High >= p.take
	}
	return b.High >= p.stop, b.Low <= p.take
}

// MaxDrawdown is the largest fall from a running peak, in account units.
func MaxDrawdown(equity []float64) float64 {
	var peak, dd float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		dd = math.Max(dd, peak-v)
	}
	return dd
}

// SharpeLike is mean/std of per-bar returns scaled by sqrt(periodsPerYear).
// The first return is zero; std is the population deviation.
func SharpeLike(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	rets := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			rets[i] = equity[i]/equity[i-1] - 1
		}
	}
	return indicators.Mean(rets) / (indicators.StdDev(rets) + 1e-12) * math.Sqrt(periodsPerYear)
}

func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
