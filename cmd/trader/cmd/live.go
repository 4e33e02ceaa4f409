package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/broker/paper"
	"github.com/rustyeddy/swingtrader/engine"
	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/internal/metrics"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/selection"
	"github.com/rustyeddy/swingtrader/strategies"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the paper-trading engine",
	Long: `Warm up every configured symbol from the gateway history, then trade
closed bars from the websocket stream until interrupted.

Examples:
  trader live
  trader live --symbols EURUSD,GBPUSD --timeframe M5
  trader live --replay bars.csv`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

var (
	liveSymbols   []string
	liveTimeframe string
	liveReplay    string
)

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringSliceVar(&liveSymbols, "symbols", nil, "symbols to trade (default from config)")
	liveCmd.Flags().StringVar(&liveTimeframe, "timeframe", "", "bar timeframe (default from config)")
	liveCmd.Flags().StringVar(&liveReplay, "replay", "", "replay bars from a CSV file instead of the gateway")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(liveSymbols) > 0 {
		cfg.Symbols = liveSymbols
	}
	if liveTimeframe != "" {
		cfg.Timeframe = liveTimeframe
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := checkReplay(liveReplay, cfg.Symbols); err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strats, err := strategies.BuildAll(cfg.Strategies)
	if err != nil {
		return err
	}

	sel, err := selection.Open(cfg.SelectionPath(), log)
	if err != nil {
		return err
	}
	if err := seedSelection(sel, cfg.StrategyNames(), log); err != nil {
		return err
	}

	opts := []journal.Option{journal.WithLogger(log)}
	var db *journal.SQLite
	if cfg.Paths.JournalDB != "" {
		db, err = journal.NewSQLite(cfg.Paths.JournalDB)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		opts = append(opts, journal.WithMirror(db))
	}

	signals, err := journal.Open(cfg.Paths.LogDir, opts...)
	if err != nil {
		return err
	}

	deps := engine.Deps{
		History:    feed.NewHTTPHistory(cfg.Server.BaseHTTP),
		Live:       feed.NewWSLive(cfg.Server.BaseWS, log),
		Strategies: strats,
		Risk:       cfg.RiskManager(),
		Sizer:      risk.NewFixedFractionSizer(cfg.Risk.RiskPerTradePct),
		Broker:     paper.New(cfg.Broker.StartingCash, cfg.Risk.FeeBps),
		Signals:    signals,
		Selector:   sel,
		Log:        log,
	}
	if db != nil {
		deps.Equity = db
	}
	if liveReplay != "" {
		bars, err := feed.LoadCSV(liveReplay)
		if err != nil {
			return err
		}
		deps.History = feed.Static{}
		deps.Live = &feed.Replay{Bars: bars}
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.Metrics = metrics.New(reg)
		srv := metrics.Serve(cfg.MetricsAddr, reg, log)
		defer srv.Close()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
	}

	eng, err := engine.New(cfg.Engine, deps)
	if err != nil {
		return err
	}

	log.Info().Strs("symbols", cfg.Symbols).Str("timeframe", cfg.Timeframe).Strs("enabled", sel.All()).Msg("engine starting")
	runErr := eng.Run(ctx, cfg.Symbols, cfg.Timeframe)

	for _, t := range eng.OpenTrades() {
		log.Info().Str("key", t.Key.String()).Str("id", t.SignalID).Str("side", string(t.Side)).
			Float64("stop", t.Stop).Float64("target", t.Target).Msg("still open")
	}
	return runErr
}

// checkReplay allows --replay only for a single symbol; the bar file carries
// no symbol column.
func checkReplay(path string, symbols []string) error {
	if path == "" || len(symbols) == 1 {
		return nil
	}
	return fmt.Errorf("--replay plays one bar file, got %d symbols (pick one with --symbols)", len(symbols))
}

// seedSelection enables every configured strategy when the selection file
// is empty, so the first run trades everything explicitly.
func seedSelection(sel *selection.Store, names []string, log zerolog.Logger) error {
	if len(sel.All()) > 0 {
		return nil
	}
	if err := sel.Set(names); err != nil {
		return fmt.Errorf("seed selection: %w", err)
	}
	log.Info().Strs("strategies", names).Str("path", sel.Path()).Msg("seeded strategy selection")
	return nil
}
