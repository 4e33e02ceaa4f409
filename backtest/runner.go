package backtest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/strategies"
)

// DefaultHistoryLimit caps how many bars are requested per symbol.
const DefaultHistoryLimit = 5000

// Runner fetches history once per symbol, backtests every strategy against
// it and writes the CSV outputs to OutDir.
type Runner struct {
	History      feed.History
	Strategies   map[string]strategies.Strategy
	Config       Config
	OutDir       string
	HistoryLimit int
	Parallel     int
	Log          zerolog.Logger
}

// Run returns the summary rows sorted by symbol then strategy, and the path
// of summary.csv.
func (r *Runner) Run(ctx context.Context, symbols []string, timeframe string) ([]SummaryRow, string, error) {
	if r.History == nil {
		return nil, "", fmt.Errorf("backtest: History is required")
	}
	if len(r.Strategies) == 0 {
		return nil, "", fmt.Errorf("backtest: no strategies configured")
	}
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return nil, "", err
	}

	limit := r.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var (
		mu   sync.Mutex
		rows []SummaryRow
	)

	g, gctx := errgroup.WithContext(ctx)
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}

	for _, sym := range symbols {
		r.Log.Info().Str("symbol", sym).Str("timeframe", timeframe).Msg("fetching candles")
		bars, err := r.History.Candles(ctx, sym, timeframe, limit)
		if err != nil {
			return nil, "", fmt.Errorf("backtest %s: %w", sym, err)
		}

		for name, strat := range r.Strategies {
			sym, name, strat := sym, name, strat
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.Log.Info().Str("symbol", sym).Str("strategy", name).Int("bars", len(bars)).Msg("backtesting")

				res, err := Run(sym, timeframe, bars, strat, r.Config)
				if err != nil {
					return err
				}
				row, err := WriteResult(r.OutDir, res)
				if err != nil {
					return fmt.Errorf("backtest %s/%s: %w", sym, name, err)
				}

				mu.Lock()
				rows = append(rows, row)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Strategy < rows[j].Strategy
	})

	path, err := WriteSummary(r.OutDir, rows)
	if err != nil {
		return nil, "", err
	}
	r.Log.Info().Str("summary", path).Int("runs", len(rows)).Msg("backtest complete")
	return rows, path, nil
}
