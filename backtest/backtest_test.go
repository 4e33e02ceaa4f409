package backtest

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/strategies"
)

// scripted signals by bar time.
type scripted struct {
	name string
	at   map[int64]market.Side
}

func (s scripted) Name() string { return s.name }

func (s scripted) Init([]market.Bar) strategies.State { return nil }

func (s scripted) OnBar(h []market.Bar, _ strategies.State) *market.Signal {
	side, ok := s.at[h[len(h)-1].Time]
	if !ok {
		return nil
	}
	return &market.Signal{Side: side, Reason: "scripted"}
}

// flat bars have a true range of 2, so ATR is 2 everywhere.
func flat(t int64) market.Bar {
	return market.Bar{Time: t, Open: 100, High: 101, Low: 99, Close: 100}
}

func series(extra ...market.Bar) []market.Bar {
	bars := []market.Bar{flat(1), flat(2), flat(3)}
	return append(bars, extra...)
}

func TestRun_TakeProfit(t *testing.T) {
	t.Parallel()

	bars := series(market.Bar{Time: 4, Open: 100, High: 104.5, Low: 99.5, Close: 104}, flat(5))
	res, err := Run("EURUSD", "M1", bars, scripted{name: "s", at: map[int64]market.Side{3: market.Buy}}, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, res.TradeLog, 1)
	tr := res.TradeLog[0]
	assert.Equal(t, "BUY", tr.Side)
	assert.InDelta(t, 98.0, tr.StopLoss, 1e-9)
	assert.InDelta(t, 104.0, tr.TakeProfit, 1e-9)
	assert.InDelta(t, 25.0, tr.Qty, 1e-9)
	assert.InDelta(t, 104.0, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 100.0, tr.RealizedPL, 1e-9)
	assert.Equal(t, int64(4), tr.CloseTime.Unix())

	// 10000 - fee 0.25 + 100 profit
	assert.Equal(t, 10099.75, res.FinalEquity)
	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 100.0, res.WinRatePct)
	assert.Equal(t, 0.0, res.MaxDrawdown)
	require.Len(t, res.Equity, 5)
	assert.InDelta(t, 10000.0, res.Equity[2].Equity, 1e-9, "marked before the entry")
	assert.InDelta(t, 10099.75, res.Equity[3].Equity, 1e-9)
}

func TestRun_StopWinsAndSkipsExitBar(t *testing.T) {
	t.Parallel()

	both := market.Bar{Time: 4, Open: 100, High: 110, Low: 90, Close: 100}
	strat := scripted{name: "s", at: map[int64]market.Side{3: market.Buy, 4: market.Sell}}
	res, err := Run("EURUSD", "M1", series(both), strat, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, res.TradeLog, 1, "the exit bar is not shown to the strategy")
	assert.InDelta(t, 98.0, res.TradeLog[0].ExitPrice, 1e-9)
	assert.InDelta(t, -50.0, res.TradeLog[0].RealizedPL, 1e-9)
	assert.Equal(t, 0.0, res.WinRatePct)
	assert.Equal(t, 9949.75, res.FinalEquity)
}

func TestRun_ReversalAndMarkOut(t *testing.T) {
	t.Parallel()

	strat := scripted{name: "s", at: map[int64]market.Side{2: market.Buy, 3: market.Sell}}
	last := market.Bar{Time: 4, Open: 100, High: 101, Low: 99, Close: 99}
	res, err := Run("EURUSD", "M1", series(last), strat, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, res.TradeLog, 2)
	assert.Equal(t, "BUY", res.TradeLog[0].Side)
	assert.InDelta(t, 100.0, res.TradeLog[0].ExitPrice, 1e-9)
	assert.Equal(t, int64(3), res.TradeLog[0].CloseTime.Unix())

	sell := res.TradeLog[1]
	assert.Equal(t, "SELL", sell.Side)
	assert.InDelta(t, 102.0, sell.StopLoss, 1e-9)
	assert.InDelta(t, 96.0, sell.TakeProfit, 1e-9)
	assert.InDelta(t, 99.0, sell.ExitPrice, 1e-9, "marked out at the last close")
	assert.Greater(t, sell.RealizedPL, 0.0)
	assert.Equal(t, 50.0, res.WinRatePct)
	assert.Equal(t, "2", sell.TradeID)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	_, err := Run("X", "M1", nil, scripted{name: "s"}, DefaultConfig())
	assert.Error(t, err)
	_, err = Run("X", "M1", series(), nil, DefaultConfig())
	assert.Error(t, err)
}

func TestRun_NoSignals(t *testing.T) {
	t.Parallel()

	res, err := Run("X", "M1", series(), scripted{name: "s"}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, res.FinalEquity)
	assert.Zero(t, res.Trades)
	assert.Zero(t, res.WinRatePct)
	assert.Zero(t, res.SharpeLike)
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 30.0, MaxDrawdown([]float64{100, 120, 90, 130, 110}))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestSharpeLike(t *testing.T) {
	t.Parallel()

	rets := []float64{0, 0.1, 0.1}
	mean := 0.2 / 3
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	want := mean / (math.Sqrt(ss/3) + 1e-12) * math.Sqrt(252*24*60)

	assert.InDelta(t, want, SharpeLike([]float64{100, 110, 121}), 1e-6)
	assert.Zero(t, SharpeLike(nil))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunner_WritesOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := series(market.Bar{Time: 4, Open: 100, High: 104.5, Low: 99.5, Close: 104}, flat(5))
	r := &Runner{
		History: feed.Static{Bars: bars},
		Strategies: map[string]strategies.Strategy{
			"a": scripted{name: "a", at: map[int64]market.Side{3: market.Buy}},
			"b": scripted{name: "b"},
		},
		Config: DefaultConfig(),
		OutDir: dir,
		Log:    zerolog.Nop(),
	}

	rows, summary, err := r.Run(context.Background(), []string{"EURUSD"}, "M1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Strategy)
	assert.Equal(t, filepath.Join(dir, SummaryFile), summary)

	sum := readCSV(t, summary)
	require.Len(t, sum, 3)
	assert.Equal(t, summaryHeader, sum[0])
	assert.Equal(t, []string{"EURUSD", "a", "10099.75", "1", "100", "0"}, sum[1][:6])

	trades := readCSV(t, TradesPath(dir, "EURUSD", "a"))
	require.Len(t, trades, 2)
	assert.Equal(t, "ts_open", trades[0][0])
	assert.Equal(t, "BUY", trades[1][2])

	eq := readCSV(t, EquityPath(dir, "EURUSD", "b"))
	assert.Len(t, eq, 6)
}

func TestRunner_HistoryError(t *testing.T) {
	t.Parallel()

	r := &Runner{
		History:    feed.Static{Err: feed.ErrNoBars},
		Strategies: map[string]strategies.Strategy{"s": scripted{name: "s"}},
		OutDir:     t.TempDir(),
	}
	_, _, err := r.Run(context.Background(), []string{"EURUSD"}, "M1")
	assert.ErrorIs(t, err, feed.ErrNoBars)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	res, err := Run("EURUSD", "M1", series(), scripted{name: "s"}, DefaultConfig())
	require.NoError(t, err)

	var sb strings.Builder
	PrintResult(&sb, res)
	assert.Contains(t, sb.String(), "Strategy:      s")
	assert.Contains(t, sb.String(), "Final Equity:  10000.00")
}
