// Package engine drives strategies over live bars, one loop per symbol, and
// carries each (symbol, strategy) through FLAT and OPEN.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/swingtrader/broker"
	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/strategies"
)

const (
	DefaultWarmupBars   = 2000
	DefaultHistoryLimit = 5000
)

type Config struct {
	WarmupBars   int `yaml:"warmup_bars" json:"warmup_bars"`
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`
}

func DefaultConfig() Config {
	return Config{WarmupBars: DefaultWarmupBars, HistoryLimit: DefaultHistoryLimit}
}

// Selector decides whether a strategy may open new trades.
type Selector interface {
	IsEnabled(name string) bool
}

type allEnabled struct{}

func (allEnabled) IsEnabled(string) bool { return true }

// Metrics receives engine events. internal/metrics.Recorder satisfies it.
type Metrics interface {
	Bar(symbol string)
	Signal(symbol, strategy, side string)
	Rejected(symbol, reason string)
	Resolved(strategy, outcome string)
	Equity(v float64)
	HistoryError(symbol string)
}

type nopMetrics struct{}

func (nopMetrics) Bar(string) {}
func (nopMetrics) Signal(string, string, string) {}
func (nopMetrics) Rejected(string, string) {}
func (nopMetrics) Resolved(string, string) {}
func (nopMetrics) Equity(float64) {}
func (nopMetrics) HistoryError(string) {}

// Deps are the collaborators an Engine needs. Selector, Equity and Metrics
// are optional.
type Deps struct {
	History    feed.History
	Live       feed.Live
	Strategies map[string]strategies.Strategy
	Risk       *risk.Manager
	Sizer      risk.Sizer
	Broker     broker.Broker
	Signals    *journal.SignalLogger
	Selector   Selector
	Equity     journal.EquityRecorder
	Metrics    Metrics
	Log        zerolog.Logger
}

// TradeKey identifies the single trade slot of a strategy on a symbol. The
// timeframe is not part of it: a restart on another timeframe still sees the
// trade a strategy left open.
type TradeKey struct {
	Symbol   string
	Strategy string
}

func (k TradeKey) String() string { return k.Symbol + "/" + k.Strategy }

// OpenTrade is the engine's view of an OPEN trade key.
type OpenTrade struct {
	Key      TradeKey
	SignalID string
	Side     market.Side
	Entry    float64
	Stop     float64
	Target   float64
	Qty      float64

	// Exposure is the quantity this trade holds at the broker. Trades
	// restored from the signal logger carry none.
	Exposure float64
}

type Engine struct {
	cfg Config
	d   Deps
	log zerolog.Logger

	mu   sync.Mutex
	open map[TradeKey]OpenTrade
}

func New(cfg Config, d Deps) (*Engine, error) {
	switch {
	case d.History == nil:
		return nil, errors.New("engine: history feed is required")
	case d.Live == nil:
		return nil, errors.New("engine: live feed is required")
	case d.Risk == nil:
		return nil, errors.New("engine: risk manager is required")
	case d.Sizer == nil:
		return nil, errors.New("engine: sizer is required")
	case d.Broker == nil:
		return nil, errors.New("engine: broker is required")
	case d.Signals == nil:
		return nil, errors.New("engine: signal logger is required")
	}
	if cfg.WarmupBars <= 0 {
		cfg.WarmupBars = DefaultWarmupBars
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if d.Selector == nil {
		d.Selector = allEnabled{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}

	return &Engine{
		cfg:  cfg,
		d:    d,
		log:  d.Log.With().Str("component", "engine").Logger(),
		open: make(map[TradeKey]OpenTrade),
	}, nil
}

// OpenTrades returns a snapshot of every OPEN key, sorted.
func (e *Engine) OpenTrades() []OpenTrade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]OpenTrade, 0, len(e.open))
	for _, t := range e.open {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func (e *Engine) trade(k TradeKey) (OpenTrade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.open[k]
	return t, ok
}

func (e *Engine) setOpen(t OpenTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[t.Key] = t
}

func (e *Engine) setFlat(k TradeKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.open, k)
}

func (e *Engine) openFor(symbol string) []OpenTrade {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []OpenTrade
	for k, t := range e.open {
		if k.Symbol == symbol {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Strategy < out[j].Key.Strategy })
	return out
}

func (e *Engine) strategyNames() []string {
	names := make([]string, 0, len(e.d.Strategies))
	for n := range e.d.Strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run starts one loop per symbol and waits for all of them. A failing or
// panicking loop does not stop the others; their errors are joined.
func (e *Engine) Run(ctx context.Context, symbols []string, timeframe string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			if err := e.runGuarded(ctx, sym, timeframe); err != nil {
				e.log.Error().Err(err).Str("symbol", sym).Msg("symbol loop stopped")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (e *Engine) runGuarded(ctx context.Context, symbol, timeframe string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("symbol %s: panic: %v", symbol, r)
		}
	}()
	return e.RunSymbol(ctx, symbol, timeframe)
}
