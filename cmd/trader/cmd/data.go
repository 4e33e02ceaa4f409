package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/market"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download gateway history to CSV",
	Long: `Fetch closed bars from the gateway's history endpoint and write them
as time,open,high,low,close,volume. The output can be fed back to
"trader backtest --csv" or "trader live --replay".

Examples:
  trader data --symbol EURUSD --timeframe M1 --limit 5000 --out eurusd_m1.csv
  trader data --symbol EURUSD --from 2024-01-01T00:00:00Z --to 2024-02-01T00:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runData,
}

var (
	dataSymbol    string
	dataTimeframe string
	dataLimit     int
	dataFrom      string
	dataTo        string
	dataOut       string
)

func init() {
	rootCmd.AddCommand(dataCmd)

	dataCmd.Flags().StringVar(&dataSymbol, "symbol", "", "symbol to fetch (required)")
	dataCmd.Flags().StringVar(&dataTimeframe, "timeframe", "", "timeframe (default from config)")
	dataCmd.Flags().IntVar(&dataLimit, "limit", 5000, "number of most recent bars to request")
	dataCmd.Flags().StringVar(&dataFrom, "from", "", "RFC3339 start time, inclusive")
	dataCmd.Flags().StringVar(&dataTo, "to", "", "RFC3339 end time, exclusive")
	dataCmd.Flags().StringVarP(&dataOut, "out", "o", "", "output CSV path (default <symbol>_<timeframe>.csv)")
	_ = dataCmd.MarkFlagRequired("symbol")
}

func runData(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tf := dataTimeframe
	if tf == "" {
		tf = cfg.Timeframe
	}
	if _, err := market.TimeframeSeconds(tf); err != nil {
		return err
	}

	from, to, err := parseRange(dataFrom, dataTo)
	if err != nil {
		return err
	}

	out := dataOut
	if out == "" {
		out = fmt.Sprintf("%s_%s.csv", dataSymbol, tf)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	h := feed.NewHTTPHistory(cfg.Server.BaseHTTP)
	n, err := fetchToCSV(cmd.Context(), h, dataSymbol, tf, dataLimit, from, to, f)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bars to %s\n", n, out)
	return nil
}

// parseRange accepts empty bounds, which leave that side open.
func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, fmt.Errorf("bad --from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, fmt.Errorf("bad --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("--from must be before --to")
	}
	return from, to, nil
}

func fetchToCSV(ctx context.Context, h feed.History, symbol, tf string, limit int, from, to time.Time, w io.Writer) (int, error) {
	bars, err := h.Candles(ctx, symbol, tf, limit)
	if err != nil {
		return 0, fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
	}

	kept := bars[:0:0]
	for _, b := range bars {
		t := b.Timestamp()
		if !from.IsZero() && t.Before(from) {
			continue
		}
		if !to.IsZero() && !t.Before(to) {
			continue
		}
		kept = append(kept, b)
	}

	if err := feed.WriteCSV(w, kept); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(kept), nil
}
