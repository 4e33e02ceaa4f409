package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the configured strategies",
	Long: `Fetch history for each symbol (or read a CSV of bars) and run every
configured strategy over it. Equity curves, trade logs and summary.csv are
written to the output directory.

Examples:
  trader backtest
  trader backtest --csv EURUSD-M1.csv --symbols EURUSD --out ./bt`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	backtestOut       string
	backtestCSV       string
	backtestSymbols   []string
	backtestTimeframe string
	backtestParallel  int
	backtestVerbose   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&backtestOut, "out", "o", "", "output directory (default from config)")
	backtestCmd.Flags().StringVar(&backtestCSV, "csv", "", "read bars from a CSV file instead of the gateway")
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "symbols to test (default from config)")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", "", "bar timeframe (default from config)")
	backtestCmd.Flags().IntVar(&backtestParallel, "parallel", 4, "concurrent strategy runs")
	backtestCmd.Flags().BoolVarP(&backtestVerbose, "verbose", "v", false, "print a full report per run")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(backtestSymbols) > 0 {
		cfg.Symbols = backtestSymbols
	}
	if backtestTimeframe != "" {
		cfg.Timeframe = backtestTimeframe
	}
	if backtestOut != "" {
		cfg.Backtest.OutDir = backtestOut
	}
	log := newLogger(cfg)

	strats, err := strategies.BuildAll(cfg.Strategies)
	if err != nil {
		return err
	}

	var history feed.History = feed.NewHTTPHistory(cfg.Server.BaseHTTP)
	if backtestCSV != "" {
		history = feed.CSVHistory{Path: backtestCSV}
	}

	r := &backtest.Runner{
		History:      history,
		Strategies:   strats,
		Config:       cfg.BacktestParams(),
		OutDir:       cfg.Backtest.OutDir,
		HistoryLimit: cfg.Backtest.HistoryLimit,
		Parallel:     backtestParallel,
		Log:          log,
	}

	rows, summary, err := r.Run(cmd.Context(), cfg.Symbols, cfg.Timeframe)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backtestVerbose {
		for _, row := range rows {
			backtest.PrintResult(out, row.Result)
		}
	}
	fmt.Fprintf(out, "%-10s %-14s %12s %7s %8s %12s %10s\n", "SYMBOL", "STRATEGY", "EQUITY", "TRADES", "WIN%", "MAX DD", "SHARPE")
	for _, row := range rows {
		fmt.Fprintf(out, "%-10s %-14s %12.2f %7d %8.2f %12.2f %10.3f\n",
			row.Symbol, row.Strategy, row.FinalEquity, row.Trades, row.WinRatePct, row.MaxDrawdown, row.SharpeLike)
	}
	fmt.Fprintf(out, "\nSaved CSVs in %s\n", summary)
	return nil
}
