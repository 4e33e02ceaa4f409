package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/swingtrader/journal"
)

// SummaryFile is the per-run roll-up written next to the per-strategy CSVs.
const SummaryFile = "summary.csv"

var summaryHeader = []string{
	"symbol", "strategy", "final_equity", "trades", "win_rate_pct",
	"max_drawdown", "sharpe_like", "equity_csv", "trades_csv",
}

// SummaryRow is one line of summary.csv.
type SummaryRow struct {
	Result
	EquityCSV string
	TradesCSV string
}

// EquityPath and TradesPath name the per-run outputs inside dir.
func EquityPath(dir, symbol, strategy string) string {
	return filepath.Join(dir, fmt.Sprintf("equity_%s_%s.csv", symbol, strategy))
}

func TradesPath(dir, symbol, strategy string) string {
	return filepath.Join(dir, fmt.Sprintf("trades_%s_%s.csv", symbol, strategy))
}

// WriteResult writes the equity curve and trade log of r into dir.
func WriteResult(dir string, r Result) (SummaryRow, error) {
	row := SummaryRow{
		Result:    r,
		EquityCSV: EquityPath(dir, r.Symbol, r.Strategy),
		TradesCSV: TradesPath(dir, r.Symbol, r.Strategy),
	}

	j, err := journal.NewCSV(row.TradesCSV, row.EquityCSV)
	if err != nil {
		return SummaryRow{}, err
	}
	for _, t := range r.TradeLog {
		if err := j.RecordTrade(t); err != nil {
			_ = j.Close()
			return SummaryRow{}, err
		}
	}
	for _, e := range r.Equity {
		if err := j.RecordEquity(e); err != nil {
			_ = j.Close()
			return SummaryRow{}, err
		}
	}
	if err := j.Close(); err != nil {
		return SummaryRow{}, err
	}
	return row, nil
}

// WriteSummary writes summary.csv into dir and returns its path.
func WriteSummary(dir string, rows []SummaryRow) (string, error) {
	path := filepath.Join(dir, SummaryFile)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return "", err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.Symbol,
			r.Strategy,
			num(r.FinalEquity),
			strconv.Itoa(r.Trades),
			num(r.WinRatePct),
			num(r.MaxDrawdown),
			num(r.SharpeLike),
			r.EquityCSV,
			r.TradesCSV,
		}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}

func num(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }

// PrintResult writes a human readable report of r.
func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(w, "Timeframe:     %s\n", r.Timeframe)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", len(r.Equity))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRatePct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	if r.MaxDrawdown > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f\n", r.MaxDrawdown)
	}
	fmt.Fprintf(w, "Sharpe-like:   %.3f\n", r.SharpeLike)

	fmt.Fprintln(w)
}
