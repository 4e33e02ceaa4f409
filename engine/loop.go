package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingtrader/broker"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/strategies"
)

type symbolLoop struct {
	e         *Engine
	symbol    string
	timeframe string
	log       zerolog.Logger

	names   []string
	states  map[string]strategies.State
	history *market.Series
	gaps    int
}

// RunSymbol warms up, restores OPEN keys from the signal logger and then
// processes live bars until ctx is done or the stream ends. Only a
// persistence failure ends the loop with an error.
func (e *Engine) RunSymbol(ctx context.Context, symbol, timeframe string) error {
	l := &symbolLoop{
		e:         e,
		symbol:    symbol,
		timeframe: timeframe,
		log:       e.log.With().Str("symbol", symbol).Str("timeframe", timeframe).Logger(),
		names:     e.strategyNames(),
		states:    make(map[string]strategies.State),
	}

	l.warmup(ctx)
	l.restore()

	bars, err := e.d.Live.Stream(ctx, symbol, timeframe)
	if err != nil {
		return fmt.Errorf("symbol %s: live feed: %w", symbol, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-bars:
			if !ok {
				l.log.Info().Msg("live feed closed")
				return nil
			}
			if err := l.onBar(ctx, b); err != nil {
				if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					return nil
				}
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
		}
	}
}

func (l *symbolLoop) warmup(ctx context.Context) {
	e := l.e
	bars, err := e.d.History.Candles(ctx, l.symbol, l.timeframe, e.cfg.WarmupBars)
	if err != nil {
		e.d.Metrics.HistoryError(l.symbol)
		l.log.Warn().Err(err).Msg("warm-up history unavailable, starting empty")
		bars = nil
	}
	if lim := e.cfg.HistoryLimit; lim > 0 && len(bars) > lim {
		bars = bars[len(bars)-lim:]
	}
	tf, _ := market.TimeframeSeconds(l.timeframe)
	l.history = market.NewSeries(tf, e.cfg.HistoryLimit, bars)
	st := l.history.Stats()
	l.gaps = st.Gaps

	for _, name := range l.names {
		l.states[name] = e.d.Strategies[name].Init(l.history.Bars())
	}
	l.log.Info().
		Int("bars", st.Bars).
		Int("dropped", st.Duplicates).
		Int("gaps", st.Gaps).
		Int("strategies", len(l.names)).
		Msg("warm-up done")
}

// restore rebuilds OPEN keys from records the logger still holds open for
// the symbol, whatever timeframe opened them.
func (l *symbolLoop) restore() {
	for _, rec := range l.e.d.Signals.OpenRecords(l.symbol, "") {
		key := TradeKey{Symbol: l.symbol, Strategy: rec.Strategy}
		if prev, ok := l.e.trade(key); ok {
			l.log.Warn().Str("strategy", rec.Strategy).Str("kept", prev.SignalID).Str("ignored", rec.ID).
				Msg("more than one open signal for trade key")
			continue
		}
		l.e.setOpen(OpenTrade{
			Key:      key,
			SignalID: rec.ID,
			Side:     journal.SideOf(rec),
			Entry:    rec.EntryPrice,
			Stop:     rec.StopLoss,
			Target:   rec.TakeProfit,
			Qty:      rec.Qty,
		})
		l.log.Info().Str("strategy", rec.Strategy).Str("id", rec.ID).Str("opened_on", rec.Timeframe).Msg("restored open trade")
	}
}

func (l *symbolLoop) onBar(ctx context.Context, b market.Bar) error {
	e := l.e
	if !l.history.Append(b) {
		l.log.Debug().Int64("time", b.Time).Msg("dropping stale bar")
		return nil
	}
	if st := l.history.Stats(); st.Gaps > l.gaps {
		l.gaps = st.Gaps
		l.log.Warn().Int64("time", b.Time).Int("missing_total", st.MissingBars).Msg("gap in live bars")
	}

	e.d.Broker.Mark(l.symbol, b.Close)
	e.d.Metrics.Bar(l.symbol)

	for _, t := range e.openFor(l.symbol) {
		if err := l.checkExit(ctx, t, b); err != nil {
			return err
		}
	}

	for _, name := range l.names {
		if err := l.consult(ctx, name, b); err != nil {
			return err
		}
	}

	l.snapshotEquity(ctx, b)
	return nil
}

// touched reports which protective levels the bar reached.
func touched(side market.Side, b market.Bar, stop, target float64) (hitStop, hitTarget bool) {
	if side == market.Buy {
		return b.Low <= stop, b.High >= target
	}
	return b.High >= stop, b.Low <= target
}

func (l *symbolLoop) checkExit(ctx context.Context, t OpenTrade, b market.Bar) error {
	hitStop, hitTarget := touched(t.Side, b, t.Stop, t.Target)
	if !hitStop && !hitTarget {
		return nil
	}

	// both touched inside one bar: assume the worse fill
	exit, outcome := t.Target, journal.OutcomeTakeProfit
	if hitStop {
		exit, outcome = t.Stop, journal.OutcomeStopLoss
	}

	log := l.log.With().Str("strategy", t.Key.Strategy).Str("id", t.SignalID).Logger()

	rec, ok, err := l.e.d.Signals.ResolveSignal(ctx, t.SignalID, exit, outcome)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", t.Key, err)
	}
	l.e.setFlat(t.Key)
	if !ok {
		log.Warn().Msg("signal already closed, releasing trade key")
		return nil
	}

	ev := log.Info().Str("outcome", outcome).Float64("exit", exit)
	if rec.PnL != nil {
		ev = ev.Float64("pnl", *rec.PnL)
	}
	ev.Msg("trade resolved")
	l.e.d.Metrics.Resolved(t.Key.Strategy, outcome)

	l.closePosition(t, exit, log)
	return nil
}

// closePosition unwinds the exposure the trade itself added. Other keys on
// the same symbol may hold the opposite side, so the netted broker position
// says nothing about this trade.
func (l *symbolLoop) closePosition(t OpenTrade, exit float64, log zerolog.Logger) {
	if t.Exposure <= 0 {
		log.Debug().Msg("restored trade, no broker exposure to close")
		return
	}

	fill, err := l.e.d.Broker.Place(broker.Order{
		Symbol:    l.symbol,
		Side:      t.Side.Opposite(),
		Qty:       t.Exposure,
		PriceType: broker.Market,
	}, exit)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("closing order invalid")
	case !fill.Accepted:
		l.e.d.Metrics.Rejected(l.symbol, fill.Reason)
		log.Warn().Str("reason", fill.Reason).Msg("closing order rejected")
	}
}

func (l *symbolLoop) consult(ctx context.Context, name string, b market.Bar) error {
	e := l.e
	key := TradeKey{Symbol: l.symbol, Strategy: name}
	if _, open := e.trade(key); open {
		return nil
	}
	if !e.d.Selector.IsEnabled(name) {
		return nil
	}

	sig := e.d.Strategies[name].OnBar(l.history.Bars(), l.states[name])
	if sig == nil || !sig.Side.Tradeable() {
		return nil
	}

	log := l.log.With().Str("strategy", name).Str("side", string(sig.Side)).Str("reason", sig.Reason).Logger()

	entry := b.Close
	var vol *float64
	if v, ok := sig.Extra("atr"); ok {
		vol = &v
	}

	lv, err := e.d.Risk.StopTarget(l.history.Bars(), sig.Side, entry, vol)
	if err != nil {
		log.Warn().Err(err).Msg("no stop/target, skipping signal")
		return nil
	}

	qty := e.d.Sizer.Qty(e.d.Broker.Equity(), entry, lv.Stop)
	if qty <= 0 {
		log.Info().Float64("entry", entry).Float64("stop", lv.Stop).Msg("zero size, skipping signal")
		return nil
	}

	stop, target := lv.Stop, lv.Target
	fill, err := e.d.Broker.Place(broker.Order{
		Symbol:     l.symbol,
		Side:       sig.Side,
		Qty:        qty,
		StopLoss:   &stop,
		TakeProfit: &target,
		PriceType:  broker.Market,
	}, entry)
	if err != nil {
		e.d.Metrics.Rejected(l.symbol, "invalid_order")
		log.Warn().Err(err).Msg("order invalid")
		return nil
	}
	if !fill.Accepted {
		e.d.Metrics.Rejected(l.symbol, fill.Reason)
		log.Info().Str("why", fill.Reason).Float64("qty", qty).Msg("order rejected")
		return nil
	}

	sigID, err := e.d.Signals.RecordSignal(ctx, journal.NewSignal{
		Symbol:     l.symbol,
		Timeframe:  l.timeframe,
		Strategy:   name,
		Side:       sig.Side,
		Reason:     sig.Reason,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Pivot:      lv.Pivot,
		Qty:        qty,
	})
	if err != nil {
		l.unwind(sig.Side, qty, entry, log)
		return fmt.Errorf("record %s: %w", key, err)
	}

	e.setOpen(OpenTrade{
		Key:      key,
		SignalID: sigID,
		Side:     sig.Side,
		Entry:    entry,
		Stop:     stop,
		Target:   target,
		Qty:      qty,
		Exposure: qty,
	})
	e.d.Metrics.Signal(l.symbol, name, string(sig.Side))
	log.Info().
		Str("id", sigID).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("target", target).
		Float64("qty", qty).
		Float64("rr", risk.RR(entry, stop, target)).
		Float64("risk_pct", 100*risk.RiskPct(risk.PlannedRisk(qty, entry, stop), e.d.Broker.Equity())).
		Msg("trade opened")
	return nil
}

// unwind reverses a fill whose signal could not be recorded, so the broker
// holds nothing the signal logger does not know about.
func (l *symbolLoop) unwind(side market.Side, qty, price float64, log zerolog.Logger) {
	fill, err := l.e.d.Broker.Place(broker.Order{
		Symbol:    l.symbol,
		Side:      side.Opposite(),
		Qty:       qty,
		PriceType: broker.Market,
	}, price)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("unrecorded fill not reversed")
	case !fill.Accepted:
		log.Error().Str("reason", fill.Reason).Msg("unrecorded fill not reversed")
	default:
		log.Warn().Float64("qty", qty).Msg("reversed unrecorded fill")
	}
}

func (l *symbolLoop) snapshotEquity(ctx context.Context, b market.Bar) {
	e := l.e
	equity := e.d.Broker.Equity()
	e.d.Metrics.Equity(equity)
	if e.d.Equity == nil {
		return
	}
	err := e.d.Equity.RecordEquity(ctx, journal.EquitySnapshot{
		Time:   b.Timestamp(),
		Symbol: l.symbol,
		Cash:   e.d.Broker.Cash(),
		Equity: equity,
	})
	if err != nil {
		l.log.Warn().Err(err).Msg("equity snapshot not recorded")
	}
}
